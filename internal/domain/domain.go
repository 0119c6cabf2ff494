package domain

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	// GenderOther sits outside the ratio quotas but still takes a seat.
	GenderOther Gender = "other"
)

func ParseGender(s string) (Gender, bool) {
	switch g := Gender(strings.ToLower(strings.TrimSpace(s))); g {
	case GenderMale, GenderFemale, GenderOther:
		return g, true
	default:
		return "", false
	}
}

type RSVPStatus string

const (
	RSVPYes RSVPStatus = "yes"
	RSVPNo  RSVPStatus = "no"
)

func ParseRSVPStatus(s string) (RSVPStatus, bool) {
	switch st := RSVPStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case RSVPYes, RSVPNo:
		return st, true
	default:
		return "", false
	}
}

type EventStatus string

const (
	EventOpen      EventStatus = "open"
	EventCancelled EventStatus = "cancelled"
)

var (
	ErrEventNotFound         = errors.New("event not found")
	ErrRSVPNotFound          = errors.New("rsvp not found")
	ErrWaitlistEntryNotFound = errors.New("waitlist entry not found")

	ErrEventClosed    = errors.New("event is cancelled")
	ErrDeadlinePassed = errors.New("rsvp deadline has passed")

	// ErrCapacityExceeded comes from the guarded write path only. A full event
	// on the normal path is a Decision, not an error.
	ErrCapacityExceeded = errors.New("capacity exceeded")

	ErrAlreadyResponded  = errors.New("already responded to this event")
	ErrAlreadyWaitlisted = errors.New("already on the waitlist")
	ErrNotConfirmed      = errors.New("rsvp is not a confirmed guest")

	ErrCacheMiss = errors.New("cache miss")

	ErrValidation = errors.New("validation failed")
)

// ValidationError reports field-level problems. It matches ErrValidation
// under errors.Is.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = map[string]string{}
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

// orNil returns nil when nothing was recorded so callers can `return v.orNil()`.
func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// NewValidationError builds a single-field validation error.
func NewValidationError(field, msg string) error {
	v := &ValidationError{}
	v.add(field, msg)
	return v
}

type RSVP struct {
	ID        uuid.UUID
	EventID   uuid.UUID
	Name      string
	Email     string
	Gender    Gender
	Status    RSVPStatus
	CreatedAt time.Time
}

type WaitlistEntry struct {
	ID        uuid.UUID
	EventID   uuid.UUID
	Name      string
	Email     string // empty when the guest did not leave one
	Gender    Gender
	CreatedAt time.Time
}

// RSVPFilter narrows ListRSVPs. Zero values match everything.
type RSVPFilter struct {
	Status RSVPStatus
	Gender Gender
}

func (f RSVPFilter) Match(r RSVP) bool {
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.Gender != "" && r.Gender != f.Gender {
		return false
	}
	return true
}

// OutboxMessage is an integration event queued for publishing.
type OutboxMessage struct {
	RoutingKey string
	Payload    any
}

// Tx is the data-access surface. Inside Store.WithinEvent every call sees and
// mutates the locked event consistently.
type Tx interface {
	GetEvent(ctx context.Context, eventID uuid.UUID) (Event, error)
	UpdateEvent(ctx context.Context, ev Event) error

	ListRSVPs(ctx context.Context, eventID uuid.UUID, filter RSVPFilter) ([]RSVP, error)
	// ListWaitlist returns entries ordered by created_at ASC, id ASC.
	ListWaitlist(ctx context.Context, eventID uuid.UUID) ([]WaitlistEntry, error)

	// InsertRSVP returns ErrCapacityExceeded when a guard is set and fails,
	// ErrEventClosed when the event is cancelled.
	InsertRSVP(ctx context.Context, in NewRSVP) (RSVP, error)
	InsertWaitlistEntry(ctx context.Context, in NewWaitlistEntry) (WaitlistEntry, error)
	DeleteRSVP(ctx context.Context, eventID, rsvpID uuid.UUID) (RSVP, error)
	DeleteWaitlistEntry(ctx context.Context, eventID, entryID uuid.UUID) (WaitlistEntry, error)

	// RecordEvent appends an integration event to the outbox in the same unit of work.
	RecordEvent(ctx context.Context, msg OutboxMessage) error
}

type Store interface {
	Tx

	// CreateEvent persists ev and msgs atomically.
	CreateEvent(ctx context.Context, traceID string, ev Event, msgs ...OutboxMessage) (Event, error)

	// WithinEvent serialises fn against every other WithinEvent call for the
	// same event. A non-nil error from fn rolls back everything fn wrote.
	WithinEvent(ctx context.Context, traceID string, eventID uuid.UUID, fn func(ctx context.Context, tx Tx) error) error
}

type CacheRepository interface {
	// GetEventStatus returns ErrCacheMiss when nothing is cached.
	GetEventStatus(ctx context.Context, eventID uuid.UUID) (EventStatus, error)
	SetEventStatus(ctx context.Context, eventID uuid.UUID, status EventStatus) error

	AllowRequest(ctx context.Context, ip string, limit int, window time.Duration) (bool, error)
}
