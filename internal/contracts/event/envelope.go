package event

import "time"

// Routing keys published through the outbox.
const (
	RoutingEventCreated   = "invite.event.created"
	RoutingEventUpdated   = "invite.event.updated"
	RoutingEventCancelled = "invite.event.cancelled"
	RoutingRSVPRecorded   = "invite.rsvp.recorded"
	RoutingGuestRemoved   = "invite.rsvp.removed"
	RoutingWaitlisted     = "invite.waitlist.joined"
	RoutingWaitlistLeft   = "invite.waitlist.removed"
	RoutingPromoted       = "invite.waitlist.promoted"
)

// DomainEventEnvelope is what goes on the wire; payload is one of the types below.
type DomainEventEnvelope[T any] struct {
	Version    int       `json:"version"`
	Producer   string    `json:"producer"`
	TraceID    string    `json:"trace_id,omitempty"`
	MessageID  string    `json:"message_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    T         `json:"payload"`
}

type EventChangedPayload struct {
	EventID    string `json:"event_id"`
	Status     string `json:"status"`
	Unlimited  bool   `json:"unlimited"`
	GuestLimit int    `json:"guest_limit,omitempty"`
}

type RSVPPayload struct {
	EventID string `json:"event_id"`
	RSVPID  string `json:"rsvp_id"`
	Status  string `json:"status"`
	Gender  string `json:"gender"`
}

type WaitlistPayload struct {
	EventID string `json:"event_id"`
	EntryID string `json:"entry_id"`
	Gender  string `json:"gender"`
}

type PromotionPayload struct {
	EventID        string `json:"event_id"`
	RemovedRSVPID  string `json:"removed_rsvp_id"`
	EntryID        string `json:"entry_id"`
	PromotedRSVPID string `json:"promoted_rsvp_id"`
}
