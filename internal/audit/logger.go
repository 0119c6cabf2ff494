package audit

import (
	"context"

	"github.com/baechuer/summons/internal/domain"
	pkgctx "github.com/baechuer/summons/internal/pkg/context"
	"github.com/rs/zerolog"
)

// Logger provides structured audit logging for guest-list changes.
// Guest emails are never written to the audit stream.
type Logger struct {
	log zerolog.Logger
}

func New(log zerolog.Logger) *Logger {
	return &Logger{
		log: log.With().Bool("audit", true).Logger(),
	}
}

func (l *Logger) EventCreated(ctx context.Context, ev domain.Event) {
	l.log.Info().
		Str("action", "event_created").
		Str("event_id", ev.ID.String()).
		Bool("unlimited", ev.Unlimited).
		Int("guest_limit", ev.GuestLimit).
		Bool("ratio_control", ev.RatioApplies()).
		Str("request_id", pkgctx.GetRequestID(ctx)).
		Msg("Event created")
}

func (l *Logger) EventUpdated(ctx context.Context, ev domain.Event) {
	l.log.Info().
		Str("action", "event_updated").
		Str("event_id", ev.ID.String()).
		Int("guest_limit", ev.GuestLimit).
		Str("request_id", pkgctx.GetRequestID(ctx)).
		Msg("Event updated")
}

func (l *Logger) EventCancelled(ctx context.Context, ev domain.Event) {
	l.log.Warn().
		Str("action", "event_cancelled").
		Str("event_id", ev.ID.String()).
		Str("request_id", pkgctx.GetRequestID(ctx)).
		Msg("Event cancelled")
}

// Responded logs a written RSVP (yes or no).
func (l *Logger) Responded(ctx context.Context, r domain.RSVP) {
	l.log.Info().
		Str("action", "rsvp_recorded").
		Str("event_id", r.EventID.String()).
		Str("rsvp_id", r.ID.String()).
		Str("status", string(r.Status)).
		Str("gender", string(r.Gender)).
		Str("request_id", pkgctx.GetRequestID(ctx)).
		Msg("RSVP recorded")
}

func (l *Logger) Waitlisted(ctx context.Context, e domain.WaitlistEntry) {
	l.log.Info().
		Str("action", "waitlisted").
		Str("event_id", e.EventID.String()).
		Str("entry_id", e.ID.String()).
		Str("gender", string(e.Gender)).
		Str("request_id", pkgctx.GetRequestID(ctx)).
		Msg("Guest joined waitlist")
}

func (l *Logger) WaitlistRemoved(ctx context.Context, e domain.WaitlistEntry) {
	l.log.Info().
		Str("action", "waitlist_removed").
		Str("event_id", e.EventID.String()).
		Str("entry_id", e.ID.String()).
		Str("request_id", pkgctx.GetRequestID(ctx)).
		Msg("Waitlist entry removed by host")
}

func (l *Logger) GuestRemoved(ctx context.Context, r domain.RSVP) {
	l.log.Warn().
		Str("action", "guest_removed").
		Str("event_id", r.EventID.String()).
		Str("rsvp_id", r.ID.String()).
		Str("request_id", pkgctx.GetRequestID(ctx)).
		Msg("Confirmed guest removed")
}

func (l *Logger) Promoted(ctx context.Context, from domain.WaitlistEntry, to domain.RSVP) {
	l.log.Info().
		Str("action", "promoted").
		Str("event_id", to.EventID.String()).
		Str("entry_id", from.ID.String()).
		Str("rsvp_id", to.ID.String()).
		Bool("placeholder_email", domain.IsPlaceholderEmail(to.Email)).
		Str("request_id", pkgctx.GetRequestID(ctx)).
		Msg("Guest promoted from waitlist")
}

func (l *Logger) OutboxMessageSent(ctx context.Context, messageID, routingKey string) {
	l.log.Debug().
		Str("action", "outbox_sent").
		Str("message_id", messageID).
		Str("routing_key", routingKey).
		Msg("Outbox message sent")
}

func (l *Logger) OutboxMessageDead(ctx context.Context, messageID, routingKey string, retries int) {
	l.log.Error().
		Str("action", "outbox_dead").
		Str("message_id", messageID).
		Str("routing_key", routingKey).
		Int("retries", retries).
		Msg("Outbox message moved to dead status")
}
