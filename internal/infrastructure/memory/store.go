// Package memory is an in-process domain.Store for local development and
// tests. It honours the same per-event serialisation contract as Postgres.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/baechuer/summons/internal/domain"
	"github.com/google/uuid"
)

// Recorded is an outbox message captured by the store.
type Recorded struct {
	TraceID string
	domain.OutboxMessage
}

type Store struct {
	mu       sync.Mutex
	events   map[uuid.UUID]domain.Event
	rsvps    map[uuid.UUID][]domain.RSVP
	waitlist map[uuid.UUID][]domain.WaitlistEntry
	outbox   []Recorded
	lastTS   time.Time
	now      func() time.Time

	locksMu sync.Mutex
	locks   map[uuid.UUID]*sync.Mutex
}

var _ domain.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		events:   map[uuid.UUID]domain.Event{},
		rsvps:    map[uuid.UUID][]domain.RSVP{},
		waitlist: map[uuid.UUID][]domain.WaitlistEntry{},
		locks:    map[uuid.UUID]*sync.Mutex{},
		now:      time.Now,
	}
}

// Outbox returns a copy of everything recorded so far.
func (s *Store) Outbox() []Recorded {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Recorded(nil), s.outbox...)
}

func (s *Store) eventLock(id uuid.UUID) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

// stamp hands out strictly increasing timestamps so FIFO order is total.
// Callers hold s.mu.
func (s *Store) stamp() time.Time {
	t := s.now().UTC()
	if !t.After(s.lastTS) {
		t = s.lastTS.Add(time.Microsecond)
	}
	s.lastTS = t
	return t
}

func (s *Store) CreateEvent(ctx context.Context, traceID string, ev domain.Event, msgs ...domain.OutboxMessage) (domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[ev.ID] = ev
	for _, m := range msgs {
		s.outbox = append(s.outbox, Recorded{TraceID: traceID, OutboxMessage: m})
	}
	return ev, nil
}

type snapshot struct {
	event     domain.Event
	rsvps     []domain.RSVP
	waitlist  []domain.WaitlistEntry
	outboxLen int
}

func (s *Store) WithinEvent(ctx context.Context, traceID string, eventID uuid.UUID, fn func(ctx context.Context, tx domain.Tx) error) error {
	lock := s.eventLock(eventID)
	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	ev, ok := s.events[eventID]
	if !ok {
		s.mu.Unlock()
		return domain.ErrEventNotFound
	}
	snap := snapshot{
		event:     ev,
		rsvps:     append([]domain.RSVP(nil), s.rsvps[eventID]...),
		waitlist:  append([]domain.WaitlistEntry(nil), s.waitlist[eventID]...),
		outboxLen: len(s.outbox),
	}
	s.mu.Unlock()

	if err := fn(ctx, &txView{s: s, traceID: traceID}); err != nil {
		s.mu.Lock()
		s.events[eventID] = snap.event
		s.rsvps[eventID] = snap.rsvps
		s.waitlist[eventID] = snap.waitlist
		s.outbox = s.outbox[:snap.outboxLen]
		s.mu.Unlock()
		return err
	}
	return nil
}

// Direct (unlocked) access delegates to a view with no trace id.

func (s *Store) GetEvent(ctx context.Context, eventID uuid.UUID) (domain.Event, error) {
	return (&txView{s: s}).GetEvent(ctx, eventID)
}

func (s *Store) UpdateEvent(ctx context.Context, ev domain.Event) error {
	return (&txView{s: s}).UpdateEvent(ctx, ev)
}

func (s *Store) ListRSVPs(ctx context.Context, eventID uuid.UUID, filter domain.RSVPFilter) ([]domain.RSVP, error) {
	return (&txView{s: s}).ListRSVPs(ctx, eventID, filter)
}

func (s *Store) ListWaitlist(ctx context.Context, eventID uuid.UUID) ([]domain.WaitlistEntry, error) {
	return (&txView{s: s}).ListWaitlist(ctx, eventID)
}

func (s *Store) InsertRSVP(ctx context.Context, in domain.NewRSVP) (domain.RSVP, error) {
	return (&txView{s: s}).InsertRSVP(ctx, in)
}

func (s *Store) InsertWaitlistEntry(ctx context.Context, in domain.NewWaitlistEntry) (domain.WaitlistEntry, error) {
	return (&txView{s: s}).InsertWaitlistEntry(ctx, in)
}

func (s *Store) DeleteRSVP(ctx context.Context, eventID, rsvpID uuid.UUID) (domain.RSVP, error) {
	return (&txView{s: s}).DeleteRSVP(ctx, eventID, rsvpID)
}

func (s *Store) DeleteWaitlistEntry(ctx context.Context, eventID, entryID uuid.UUID) (domain.WaitlistEntry, error) {
	return (&txView{s: s}).DeleteWaitlistEntry(ctx, eventID, entryID)
}

func (s *Store) RecordEvent(ctx context.Context, msg domain.OutboxMessage) error {
	return (&txView{s: s}).RecordEvent(ctx, msg)
}

type txView struct {
	s       *Store
	traceID string
}

func (t *txView) GetEvent(_ context.Context, eventID uuid.UUID) (domain.Event, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	ev, ok := t.s.events[eventID]
	if !ok {
		return domain.Event{}, domain.ErrEventNotFound
	}
	return ev, nil
}

func (t *txView) UpdateEvent(_ context.Context, ev domain.Event) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if _, ok := t.s.events[ev.ID]; !ok {
		return domain.ErrEventNotFound
	}
	t.s.events[ev.ID] = ev
	return nil
}

func (t *txView) ListRSVPs(_ context.Context, eventID uuid.UUID, filter domain.RSVPFilter) ([]domain.RSVP, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	out := make([]domain.RSVP, 0)
	for _, r := range t.s.rsvps[eventID] {
		if filter.Match(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (t *txView) ListWaitlist(_ context.Context, eventID uuid.UUID) ([]domain.WaitlistEntry, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	out := append([]domain.WaitlistEntry{}, t.s.waitlist[eventID]...)
	domain.SortWaitlist(out)
	return out, nil
}

func (t *txView) openEvent(eventID uuid.UUID) error {
	ev, ok := t.s.events[eventID]
	if !ok {
		return domain.ErrEventNotFound
	}
	if ev.Status != domain.EventOpen {
		return domain.ErrEventClosed
	}
	return nil
}

func (t *txView) InsertRSVP(_ context.Context, in domain.NewRSVP) (domain.RSVP, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if err := t.openEvent(in.EventID); err != nil {
		return domain.RSVP{}, err
	}

	existing := t.s.rsvps[in.EventID]
	for _, r := range existing {
		if strings.EqualFold(r.Email, in.Email) {
			return domain.RSVP{}, domain.ErrAlreadyResponded
		}
	}
	if in.Guard != nil && in.Status == domain.RSVPYes && !in.Guard.Allows(domain.CountConfirmed(existing)) {
		return domain.RSVP{}, domain.ErrCapacityExceeded
	}

	r := domain.RSVP{
		ID:        uuid.New(),
		EventID:   in.EventID,
		Name:      in.Name,
		Email:     in.Email,
		Gender:    in.Gender,
		Status:    in.Status,
		CreatedAt: t.s.stamp(),
	}
	t.s.rsvps[in.EventID] = append(existing, r)
	return r, nil
}

func (t *txView) InsertWaitlistEntry(_ context.Context, in domain.NewWaitlistEntry) (domain.WaitlistEntry, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if err := t.openEvent(in.EventID); err != nil {
		return domain.WaitlistEntry{}, err
	}

	existing := t.s.waitlist[in.EventID]
	if in.Email != "" {
		for _, e := range existing {
			if strings.EqualFold(e.Email, in.Email) {
				return domain.WaitlistEntry{}, domain.ErrAlreadyWaitlisted
			}
		}
	}

	e := domain.WaitlistEntry{
		ID:        uuid.New(),
		EventID:   in.EventID,
		Name:      in.Name,
		Email:     in.Email,
		Gender:    in.Gender,
		CreatedAt: t.s.stamp(),
	}
	t.s.waitlist[in.EventID] = append(existing, e)
	return e, nil
}

func (t *txView) DeleteRSVP(_ context.Context, eventID, rsvpID uuid.UUID) (domain.RSVP, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	rows := t.s.rsvps[eventID]
	for i, r := range rows {
		if r.ID == rsvpID {
			t.s.rsvps[eventID] = append(rows[:i:i], rows[i+1:]...)
			return r, nil
		}
	}
	return domain.RSVP{}, domain.ErrRSVPNotFound
}

func (t *txView) DeleteWaitlistEntry(_ context.Context, eventID, entryID uuid.UUID) (domain.WaitlistEntry, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	rows := t.s.waitlist[eventID]
	for i, e := range rows {
		if e.ID == entryID {
			t.s.waitlist[eventID] = append(rows[:i:i], rows[i+1:]...)
			return e, nil
		}
	}
	return domain.WaitlistEntry{}, domain.ErrWaitlistEntryNotFound
}

func (t *txView) RecordEvent(_ context.Context, msg domain.OutboxMessage) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	t.s.outbox = append(t.s.outbox, Recorded{TraceID: t.traceID, OutboxMessage: msg})
	return nil
}
