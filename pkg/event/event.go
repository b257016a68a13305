// Package event is an in-process publish/subscribe dispatcher. Services
// fire domain events after their transaction commits; listeners do the
// follow-up work (metrics, emails).
package event

import (
	"fmt"
	"sync"

	"github.com/rituelsdebene/boutique/pkg/logger"
)

// Handler receives an event payload.
type Handler func(payload interface{})

// Dispatcher routes events to handlers by name.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: map[string][]Handler{}}
}

// Listen registers handler for name.
func (d *Dispatcher) Listen(name string, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[name] = append(d.handlers[name], handler)
}

// Fire calls every handler for name in registration order. A panicking
// handler is logged and does not stop the others.
func (d *Dispatcher) Fire(name string, payload interface{}) {
	d.mu.RLock()
	hs := append([]Handler(nil), d.handlers[name]...)
	d.mu.RUnlock()

	for _, h := range hs {
		call(name, h, payload)
	}
}

// Flush removes all listeners.
func (d *Dispatcher) Flush() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers = map[string][]Handler{}
}

func call(name string, h Handler, payload interface{}) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("event: listener panicked", "event", name, "error", fmt.Sprintf("%v", r))
		}
	}()
	h(payload)
}

var std = NewDispatcher()

// Default returns the process-wide dispatcher.
func Default() *Dispatcher { return std }

func Listen(name string, handler Handler) { std.Listen(name, handler) }

func Fire(name string, payload interface{}) { std.Fire(name, payload) }

func Flush() { std.Flush() }
