package testutils

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"
)

type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Send(ctx context.Context, to, subject, text, html string) error {
	args := m.Called(ctx, to, subject, text, html)
	return args.Error(0)
}

type SentMail struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// RecordingMailer keeps every message in memory.
type RecordingMailer struct {
	mu   sync.Mutex
	sent []SentMail
	Err  error
}

func (r *RecordingMailer) Send(_ context.Context, to, subject, text, html string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Err != nil {
		return r.Err
	}

	r.sent = append(r.sent, SentMail{To: to, Subject: subject, Text: text, HTML: html})
	return nil
}

func (r *RecordingMailer) Sent() []SentMail {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]SentMail, len(r.sent))
	copy(out, r.sent)
	return out
}

func (r *RecordingMailer) Last() (SentMail, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.sent) == 0 {
		return SentMail{}, false
	}
	return r.sent[len(r.sent)-1], true
}

func (r *RecordingMailer) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = nil
}
