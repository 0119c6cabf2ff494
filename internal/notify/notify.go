// Package notify sends guest and host emails about an event.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/baechuer/summons/internal/domain"
	"github.com/baechuer/summons/internal/metrics"
	"github.com/rs/zerolog"
)

type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// IdempotencyStore remembers which confirmations went out already.
type IdempotencyStore interface {
	MarkOnce(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Forget(ctx context.Context, key string) error
}

// ConfirmationKind is what the guest is being told about.
type ConfirmationKind string

const (
	ConfirmAttending ConfirmationKind = "yes"
	ConfirmDeclined  ConfirmationKind = "no"
	ConfirmWaitlist  ConfirmationKind = "waitlist"
)

func ParseConfirmationKind(s string) (ConfirmationKind, bool) {
	switch k := ConfirmationKind(strings.ToLower(strings.TrimSpace(s))); k {
	case ConfirmAttending, ConfirmDeclined, ConfirmWaitlist:
		return k, true
	default:
		return "", false
	}
}

// ErrSkipped reports a message that was intentionally not sent.
var ErrSkipped = fmt.Errorf("notification skipped")

const maxNameLen = 100

type Service struct {
	sender  Sender
	idem    IdempotencyStore // optional
	siteURL string
	ttl     time.Duration
	lg      zerolog.Logger
}

func NewService(sender Sender, idem IdempotencyStore, siteURL string, ttl time.Duration, lg zerolog.Logger) *Service {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{
		sender:  sender,
		idem:    idem,
		siteURL: strings.TrimRight(siteURL, "/"),
		ttl:     ttl,
		lg:      lg.With().Str("component", "notify").Logger(),
	}
}

func (s *Service) InviteLink(ev domain.Event) string {
	return s.siteURL + "/invite/" + ev.ID.String()
}

func (s *Service) ManageLink(ev domain.Event) string {
	return s.siteURL + "/manage/" + ev.ID.String()
}

// EventDetails mails the host their invite and manage links.
func (s *Service) EventDetails(ctx context.Context, ev domain.Event) error {
	if ev.HostEmail == "" || !domain.ValidEmail(ev.HostEmail) {
		metrics.RecordNotification("event_details", "skipped")
		return ErrSkipped
	}
	msg, err := renderEventDetails(ev, s.InviteLink(ev), s.ManageLink(ev))
	if err != nil {
		return err
	}
	msg.To = ev.HostEmail
	if err := s.sender.Send(ctx, msg); err != nil {
		metrics.RecordNotification("event_details", "failed")
		s.lg.Warn().Err(err).Str("event_id", ev.ID.String()).Msg("event details email failed")
		return err
	}
	metrics.RecordNotification("event_details", "sent")
	return nil
}

// RSVPConfirmation mails a guest once per (event, email, kind).
// Placeholder addresses are never mailed.
func (s *Service) RSVPConfirmation(ctx context.Context, ev domain.Event, name, email string, kind ConfirmationKind) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || domain.IsPlaceholderEmail(email) {
		metrics.RecordNotification("rsvp_confirmation", "skipped")
		return ErrSkipped
	}
	if !domain.ValidEmail(email) {
		return domain.NewValidationError("email", "invalid email")
	}
	if _, ok := ParseConfirmationKind(string(kind)); !ok {
		return domain.NewValidationError("status", "must be yes, no or waitlist")
	}
	name = truncate(strings.TrimSpace(name), maxNameLen)

	key := fmt.Sprintf("rsvp:%s:%s:%s", ev.ID, email, kind)
	if s.idem != nil {
		first, err := s.idem.MarkOnce(ctx, key, s.ttl)
		switch {
		case err != nil:
			// send anyway; a duplicate email beats a lost one
			s.lg.Warn().Err(err).Msg("idempotency store unavailable")
		case !first:
			metrics.RecordNotification("rsvp_confirmation", "duplicate")
			return ErrSkipped
		}
	}

	msg, err := renderConfirmation(ev, name, kind, s.InviteLink(ev))
	if err != nil {
		return err
	}
	msg.To = email
	if err := s.sender.Send(ctx, msg); err != nil {
		if s.idem != nil {
			if ferr := s.idem.Forget(ctx, key); ferr != nil {
				s.lg.Warn().Err(ferr).Msg("failed to release idempotency key")
			}
		}
		metrics.RecordNotification("rsvp_confirmation", "failed")
		s.lg.Warn().Err(err).Str("event_id", ev.ID.String()).Str("kind", string(kind)).Msg("confirmation email failed")
		return err
	}
	metrics.RecordNotification("rsvp_confirmation", "sent")
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
