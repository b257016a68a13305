package testkit

import (
	"sync"
	"testing"

	"github.com/rituelsdebene/boutique/pkg/mail"
	"github.com/stretchr/testify/mock"
)

// MailRecorder is a testify mock standing in for the SMTP transport.
// By default every delivery succeeds.
type MailRecorder struct {
	mock.Mock

	mu   sync.Mutex
	sent []*mail.Message
}

// InstallMail routes outgoing mail to a recorder for the duration of t.
func InstallMail(t testing.TB) *MailRecorder {
	t.Helper()
	r := &MailRecorder{}
	r.On("Deliver", mock.Anything, mock.Anything).Return(nil).Maybe()
	t.Cleanup(mail.SetTransport(r))
	return r
}

func (r *MailRecorder) Deliver(cfg mail.SMTP, m *mail.Message) error {
	args := r.Called(cfg, m)
	if err := args.Error(0); err != nil {
		return err
	}
	r.mu.Lock()
	r.sent = append(r.sent, m)
	r.mu.Unlock()
	return nil
}

// Sent returns the delivered messages in order.
func (r *MailRecorder) Sent() []*mail.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*mail.Message(nil), r.sent...)
}

// FailWith makes every later delivery return err.
func (r *MailRecorder) FailWith(err error) {
	r.ExpectedCalls = nil
	r.On("Deliver", mock.Anything, mock.Anything).Return(err)
}
