package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ErrNoState is returned by Load when nothing was saved.
var ErrNoState = errors.New("checkout: no saved state")

// RelayPoint is the pickup point picked on the payment page.
type RelayPoint struct {
	Num    string `json:"Num"`
	LgAdr1 string `json:"LgAdr1"`
	LgAdr3 string `json:"LgAdr3"`
	CP     string `json:"CP"`
	Ville  string `json:"Ville"`
}

// State is what the buyer chose before leaving for the payment page.
type State struct {
	Token         string      `json:"token"`
	IDFacturation uint        `json:"idFacturation,omitempty"`
	IDLivraison   uint        `json:"idLivraison,omitempty"`
	ModeLivraison string      `json:"modeLivraison"`
	PointRelais   *RelayPoint `json:"pointRelais,omitempty"`
}

func (s State) validate() error {
	switch {
	case s.Token == "":
		return fmt.Errorf("%w: missing session token", ErrIncompleteState)
	case s.ModeLivraison == "":
		return fmt.Errorf("%w: missing delivery mode", ErrIncompleteState)
	case s.IDFacturation == 0:
		return fmt.Errorf("%w: missing billing address", ErrIncompleteState)
	case s.IDLivraison == 0 && !(s.ModeLivraison == modeRelay && s.PointRelais != nil):
		return fmt.Errorf("%w: missing shipping address", ErrIncompleteState)
	}
	return nil
}

// Store keeps checkout state between leaving for and returning from the
// payment page.
type Store interface {
	Save(ctx context.Context, s State) error
	Load(ctx context.Context) (State, error)
	Clear(ctx context.Context) error
}

type MemoryStore struct {
	mu    sync.Mutex
	state *State
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (m *MemoryStore) Save(_ context.Context, s State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = &s
	return nil
}

func (m *MemoryStore) Load(_ context.Context) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		return State{}, ErrNoState
	}
	return *m.state, nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = nil
	return nil
}

// FileStore persists the state as a JSON document at path.
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) *FileStore { return &FileStore{path: path} }

func (f *FileStore) Save(_ context.Context, s State) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("checkout: encode state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("checkout: create state dir: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("checkout: write state: %w", err)
	}
	return os.Rename(tmp, f.path)
}

func (f *FileStore) Load(_ context.Context) (State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return State{}, ErrNoState
	}
	if err != nil {
		return State{}, fmt.Errorf("checkout: read state: %w", err)
	}
	var s State
	if err := json.Unmarshal(b, &s); err != nil {
		return State{}, fmt.Errorf("checkout: decode state: %w", err)
	}
	return s, nil
}

func (f *FileStore) Clear(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("checkout: remove state: %w", err)
	}
	return nil
}
