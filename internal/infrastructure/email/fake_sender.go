package email

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/baechuer/summons/internal/notify"
	"github.com/rs/zerolog"
)

// FakeSender logs instead of sending and keeps what it was given.
//
// FAKE_FAIL_MODE:
// - "none" (default): always succeed
// - "transient": return TemporaryError
// - "permanent": return PermanentError
type FakeSender struct {
	lg   zerolog.Logger
	mode string

	mu   sync.Mutex
	sent []notify.Message
}

func NewFakeSender(lg zerolog.Logger) *FakeSender {
	return &FakeSender{
		lg:   lg.With().Str("component", "fake_sender").Logger(),
		mode: strings.TrimSpace(strings.ToLower(os.Getenv("FAKE_FAIL_MODE"))),
	}
}

func (s *FakeSender) Send(ctx context.Context, msg notify.Message) error {
	switch s.mode {
	case "transient":
		return TemporaryError{msg: fmt.Sprintf("fake transient failure (%s)", msg.Subject)}
	case "permanent":
		return PermanentError{msg: fmt.Sprintf("fake permanent failure (%s)", msg.Subject)}
	}

	s.mu.Lock()
	s.sent = append(s.sent, msg)
	s.mu.Unlock()

	s.lg.Info().
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Msg("FAKE send email")
	return nil
}

func (s *FakeSender) Sent() []notify.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]notify.Message(nil), s.sent...)
}
