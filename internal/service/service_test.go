package service_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/baechuer/summons/internal/contracts/event"
	"github.com/baechuer/summons/internal/domain"
	"github.com/baechuer/summons/internal/infrastructure/memory"
	"github.com/baechuer/summons/internal/notify"
	"github.com/baechuer/summons/internal/service"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockNotifier struct{ mock.Mock }

func (m *MockNotifier) EventDetails(ctx context.Context, ev domain.Event) error {
	return m.Called(ctx, ev).Error(0)
}

func (m *MockNotifier) RSVPConfirmation(ctx context.Context, ev domain.Event, name, email string, kind notify.ConfirmationKind) error {
	return m.Called(ctx, ev, name, email, kind).Error(0)
}

type MockImages struct{ mock.Mock }

func (m *MockImages) UploadEventImage(ctx context.Context, eventID uuid.UUID, data io.Reader, contentType string, size int64) (string, error) {
	args := m.Called(ctx, eventID, data, contentType, size)
	return args.String(0), args.Error(1)
}

type fakeCache struct {
	mu     sync.Mutex
	status map[uuid.UUID]domain.EventStatus
}

func newFakeCache() *fakeCache { return &fakeCache{status: map[uuid.UUID]domain.EventStatus{}} }

func (c *fakeCache) GetEventStatus(_ context.Context, id uuid.UUID) (domain.EventStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.status[id]
	if !ok {
		return "", domain.ErrCacheMiss
	}
	return st, nil
}

func (c *fakeCache) SetEventStatus(_ context.Context, id uuid.UUID, st domain.EventStatus) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status[id] = st
	return nil
}

func (c *fakeCache) AllowRequest(context.Context, string, int, time.Duration) (bool, error) {
	return true, nil
}

var ctx = context.Background()

func newService(t *testing.T, deps service.Deps) (*service.RSVPService, *memory.Store) {
	t.Helper()
	store := memory.New()
	return service.New(store, deps), store
}

func createEvent(t *testing.T, svc *service.RSVPService, mutate func(*domain.EventInput)) domain.Event {
	t.Helper()
	in := domain.EventInput{
		Title: "Dinner", Description: "d", Date: "2026-09-01", StartTime: "19:00", EndTime: "22:00",
		Location: "Home", GuestLimit: 10,
	}
	if mutate != nil {
		mutate(&in)
	}
	res, err := svc.CreateEvent(ctx, "trace", in, nil)
	require.NoError(t, err)
	return res.Event
}

func respondYes(t *testing.T, svc *service.RSVPService, eventID uuid.UUID, name string, g domain.Gender) service.RespondResult {
	t.Helper()
	res, err := svc.Respond(ctx, "trace", eventID, service.RespondInput{
		Name: name, Email: strings.ToLower(name) + "@x.io", Gender: string(g), Status: "yes",
	})
	require.NoError(t, err)
	return res
}

func TestRespond_AcceptsUntilFullThenOffersWaitlist(t *testing.T) {
	svc, store := newService(t, service.Deps{})
	ev := createEvent(t, svc, func(in *domain.EventInput) { in.GuestLimit = 2 })

	first := respondYes(t, svc, ev.ID, "A", domain.GenderMale)
	require.NotNil(t, first.RSVP)
	assert.Equal(t, domain.ReasonSpotAvailable, first.Decision.Reason)
	assert.Equal(t, 2, first.Decision.SpotsRemaining)

	respondYes(t, svc, ev.ID, "B", domain.GenderFemale)

	third := respondYes(t, svc, ev.ID, "C", domain.GenderMale)
	assert.Nil(t, third.RSVP)
	assert.True(t, third.OfferedWaitlist())
	assert.Equal(t, domain.ReasonEventFull, third.Decision.Reason)

	rows, err := store.ListRSVPs(ctx, ev.ID, domain.RSVPFilter{})
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestRespond_DeclineIgnoresCapacity(t *testing.T) {
	svc, _ := newService(t, service.Deps{})
	ev := createEvent(t, svc, func(in *domain.EventInput) { in.GuestLimit = 1 })
	respondYes(t, svc, ev.ID, "A", domain.GenderMale)

	res, err := svc.Respond(ctx, "trace", ev.ID, service.RespondInput{Name: "B", Email: "b@x.io", Gender: "female", Status: "no"})
	require.NoError(t, err)
	require.NotNil(t, res.RSVP)
	assert.Equal(t, domain.RSVPNo, res.RSVP.Status)
	assert.False(t, res.OfferedWaitlist())
}

func TestRespond_GenderQuota(t *testing.T) {
	svc, _ := newService(t, service.Deps{})
	ev := createEvent(t, svc, func(in *domain.EventInput) { in.RatioControl = true })

	for i := 0; i < 5; i++ {
		res := respondYes(t, svc, ev.ID, fmt.Sprintf("M%d", i), domain.GenderMale)
		require.NotNil(t, res.RSVP)
	}
	male := respondYes(t, svc, ev.ID, "M5", domain.GenderMale)
	assert.True(t, male.OfferedWaitlist())
	assert.Equal(t, domain.ReasonGenderFull, male.Decision.Reason)

	female := respondYes(t, svc, ev.ID, "F0", domain.GenderFemale)
	require.NotNil(t, female.RSVP)
	assert.Equal(t, 5, female.Decision.GenderSpotsRemaining)
}

func TestRespond_UnlimitedAlwaysAccepts(t *testing.T) {
	svc, _ := newService(t, service.Deps{})
	ev := createEvent(t, svc, func(in *domain.EventInput) { in.Unlimited = true })
	for i := 0; i < 25; i++ {
		res := respondYes(t, svc, ev.ID, fmt.Sprintf("G%d", i), domain.GenderOther)
		require.NotNil(t, res.RSVP)
		assert.Equal(t, domain.ReasonUnlimited, res.Decision.Reason)
	}
}

func TestRespond_Errors(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	svc, _ := newService(t, service.Deps{Now: func() time.Time { return now }})
	deadline := now.Add(-time.Hour)
	late := createEvent(t, svc, func(in *domain.EventInput) { in.RSVPDeadline = &deadline })
	ev := createEvent(t, svc, nil)

	_, err := svc.Respond(ctx, "t", late.ID, service.RespondInput{Name: "A", Email: "a@x.io", Gender: "male", Status: "yes"})
	assert.ErrorIs(t, err, domain.ErrDeadlinePassed)

	_, err = svc.Respond(ctx, "t", ev.ID, service.RespondInput{Name: "", Email: "bad", Gender: "x", Status: "maybe"})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "name")
	assert.Contains(t, verr.Fields, "email")
	assert.Contains(t, verr.Fields, "gender")
	assert.Contains(t, verr.Fields, "status")

	_, err = svc.Respond(ctx, "t", uuid.New(), service.RespondInput{Name: "A", Email: "a@x.io", Gender: "male", Status: "yes"})
	assert.ErrorIs(t, err, domain.ErrEventNotFound)

	respondYes(t, svc, ev.ID, "A", domain.GenderMale)
	_, err = svc.Respond(ctx, "t", ev.ID, service.RespondInput{Name: "A", Email: "A@X.io", Gender: "male", Status: "no"})
	assert.ErrorIs(t, err, domain.ErrAlreadyResponded)
}

func TestRespond_CancelledEvent(t *testing.T) {
	cache := newFakeCache()
	svc, _ := newService(t, service.Deps{Cache: cache})
	ev := createEvent(t, svc, nil)

	_, err := svc.CancelEvent(ctx, "t", ev.ID)
	require.NoError(t, err)
	st, _ := cache.GetEventStatus(ctx, ev.ID)
	assert.Equal(t, domain.EventCancelled, st)

	_, err = svc.Respond(ctx, "t", ev.ID, service.RespondInput{Name: "A", Email: "a@x.io", Gender: "male", Status: "yes"})
	assert.ErrorIs(t, err, domain.ErrEventClosed)
	_, err = svc.JoinWaitlist(ctx, "t", ev.ID, service.WaitlistInput{Name: "W", Gender: "male"})
	assert.ErrorIs(t, err, domain.ErrEventClosed)

	_, err = svc.CancelEvent(ctx, "t", ev.ID)
	assert.ErrorIs(t, err, domain.ErrEventClosed)
}

func TestRespond_SendsConfirmation(t *testing.T) {
	n := &MockNotifier{}
	n.On("RSVPConfirmation", mock.Anything, mock.Anything, "Ann", "ann@x.io", notify.ConfirmAttending).Return(nil).Once()
	n.On("RSVPConfirmation", mock.Anything, mock.Anything, "Ben", "ben@x.io", notify.ConfirmDeclined).Return(errors.New("smtp down")).Once()

	svc, _ := newService(t, service.Deps{Notifier: n})
	ev := createEvent(t, svc, nil)

	ok, err := svc.Respond(ctx, "t", ev.ID, service.RespondInput{Name: "Ann", Email: "ann@x.io", Gender: "female", Status: "yes"})
	require.NoError(t, err)
	assert.Empty(t, ok.Warnings)

	failed, err := svc.Respond(ctx, "t", ev.ID, service.RespondInput{Name: "Ben", Email: "ben@x.io", Gender: "male", Status: "no"})
	require.NoError(t, err, "email failure must not fail the response")
	require.NotNil(t, failed.RSVP)
	assert.Equal(t, []string{service.WarnEmailNotSent}, failed.Warnings)
	n.AssertExpectations(t)
}

func TestRespond_ConcurrentNeverOversells(t *testing.T) {
	svc, store := newService(t, service.Deps{})
	ev := createEvent(t, svc, func(in *domain.EventInput) { in.GuestLimit = 7 })

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = svc.Respond(ctx, "t", ev.ID, service.RespondInput{
				Name: "g", Email: fmt.Sprintf("g%d@x.io", i), Gender: "other", Status: "yes",
			})
		}(i)
	}
	wg.Wait()

	rows, err := store.ListRSVPs(ctx, ev.ID, domain.RSVPFilter{Status: domain.RSVPYes})
	require.NoError(t, err)
	assert.Len(t, rows, 7)
}

func TestJoinWaitlist(t *testing.T) {
	svc, _ := newService(t, service.Deps{})
	ev := createEvent(t, svc, func(in *domain.EventInput) { in.GuestLimit = 1 })
	respondYes(t, svc, ev.ID, "A", domain.GenderMale)

	res, err := svc.JoinWaitlist(ctx, "t", ev.ID, service.WaitlistInput{Name: "Wendy", Gender: "female"})
	require.NoError(t, err)
	require.NotNil(t, res.Entry)
	assert.Nil(t, res.RSVP)
	assert.Empty(t, res.Entry.Email)

	_, err = svc.JoinWaitlist(ctx, "t", ev.ID, service.WaitlistInput{Name: "A", Email: "a@x.io", Gender: "male"})
	assert.ErrorIs(t, err, domain.ErrAlreadyResponded)

	_, err = svc.JoinWaitlist(ctx, "t", ev.ID, service.WaitlistInput{Name: "Q", Email: "q@x.io", Gender: "male"})
	require.NoError(t, err)
	_, err = svc.JoinWaitlist(ctx, "t", ev.ID, service.WaitlistInput{Name: "Q", Email: "Q@x.io", Gender: "male"})
	assert.ErrorIs(t, err, domain.ErrAlreadyWaitlisted)
}

func TestJoinWaitlist_ConfirmsWhenSpotOpened(t *testing.T) {
	svc, store := newService(t, service.Deps{})
	ev := createEvent(t, svc, func(in *domain.EventInput) { in.GuestLimit = 3 })

	res, err := svc.JoinWaitlist(ctx, "t", ev.ID, service.WaitlistInput{Name: "Late", Email: "late@x.io", Gender: "male"})
	require.NoError(t, err)
	require.NotNil(t, res.RSVP)
	assert.Nil(t, res.Entry)
	assert.Equal(t, domain.RSVPYes, res.RSVP.Status)

	wl, err := store.ListWaitlist(ctx, ev.ID)
	require.NoError(t, err)
	assert.Empty(t, wl)
}

func TestJoinWaitlist_WithoutEmailTakesFreeSeat(t *testing.T) {
	n := &MockNotifier{}
	svc, store := newService(t, service.Deps{Notifier: n})
	ev := createEvent(t, svc, func(in *domain.EventInput) { in.GuestLimit = 3 })

	res, err := svc.JoinWaitlist(ctx, "t", ev.ID, service.WaitlistInput{Name: "Bob", Gender: "male"})
	require.NoError(t, err)
	require.NotNil(t, res.RSVP, "a free seat is never queued")
	assert.Nil(t, res.Entry)
	assert.Equal(t, domain.RSVPYes, res.RSVP.Status)
	assert.True(t, domain.IsPlaceholderEmail(res.RSVP.Email))
	assert.Empty(t, res.Warnings)

	wl, err := store.ListWaitlist(ctx, ev.ID)
	require.NoError(t, err)
	assert.Empty(t, wl)

	stats, err := svc.GetStats(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Confirmed)
	assert.Equal(t, 2, stats.SpotsRemaining)

	// two email-less guests get distinct placeholder addresses
	res2, err := svc.JoinWaitlist(ctx, "t", ev.ID, service.WaitlistInput{Name: "Bea", Gender: "female"})
	require.NoError(t, err)
	require.NotNil(t, res2.RSVP)
	assert.NotEqual(t, res.RSVP.Email, res2.RSVP.Email)

	n.AssertNotCalled(t, "RSVPConfirmation", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestWaitlistManager_FIFO(t *testing.T) {
	svc, store := newService(t, service.Deps{})
	ev := createEvent(t, svc, nil)
	wm := svc.Waitlist()

	var ids []uuid.UUID
	for _, n := range []string{"E1", "E2", "E3"} {
		e, err := wm.Enqueue(ctx, store, domain.NewWaitlistEntry{EventID: ev.ID, Name: n, Gender: domain.GenderMale})
		require.NoError(t, err)
		ids = append(ids, e.ID)
	}

	for i, want := range []string{"E1", "E2", "E3"} {
		head, ok, err := wm.PeekNext(ctx, store, ev.ID)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, want, head.Name)

		again, _, _ := wm.PeekNext(ctx, store, ev.ID)
		assert.Equal(t, head.ID, again.ID, "peek is read-only")

		_, err = wm.Remove(ctx, store, ev.ID, ids[i])
		require.NoError(t, err)
	}
	_, ok, err := wm.PeekNext(ctx, store, ev.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRemoveConfirmedGuest_EmptyWaitlist(t *testing.T) {
	svc, store := newService(t, service.Deps{})
	ev := createEvent(t, svc, func(in *domain.EventInput) { in.GuestLimit = 2 })
	a := respondYes(t, svc, ev.ID, "A", domain.GenderMale)
	respondYes(t, svc, ev.ID, "B", domain.GenderMale)

	out, err := svc.RemoveConfirmedGuest(ctx, "t", ev.ID, a.RSVP.ID)
	require.NoError(t, err)
	assert.Nil(t, out.Promoted)
	assert.Equal(t, a.RSVP.ID, out.Removed.ID)
	assert.Equal(t, 1, out.Stats.Confirmed)
	assert.Equal(t, 1, out.Stats.SpotsRemaining)

	rows, _ := store.ListRSVPs(ctx, ev.ID, domain.RSVPFilter{})
	assert.Len(t, rows, 1)
	wl, _ := store.ListWaitlist(ctx, ev.ID)
	assert.Empty(t, wl)
}

func TestRemoveConfirmedGuest_PromotesHeadOfQueue(t *testing.T) {
	n := &MockNotifier{}
	n.On("RSVPConfirmation", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	svc, store := newService(t, service.Deps{Notifier: n})
	ev := createEvent(t, svc, func(in *domain.EventInput) { in.GuestLimit = 1 })
	guest := respondYes(t, svc, ev.ID, "Host", domain.GenderMale)

	alice, err := svc.JoinWaitlist(ctx, "t", ev.ID, service.WaitlistInput{Name: "Alice", Email: "alice@x.io", Gender: "female"})
	require.NoError(t, err)
	_, err = svc.JoinWaitlist(ctx, "t", ev.ID, service.WaitlistInput{Name: "Bob", Gender: "male"})
	require.NoError(t, err)

	out, err := svc.RemoveConfirmedGuest(ctx, "trace-rm", ev.ID, guest.RSVP.ID)
	require.NoError(t, err)
	require.NotNil(t, out.Promoted)
	assert.Equal(t, alice.Entry.ID, out.Promoted.Entry.ID)
	assert.Equal(t, "Alice", out.Promoted.RSVP.Name)
	assert.Equal(t, domain.GenderFemale, out.Promoted.RSVP.Gender)
	assert.Equal(t, "alice@x.io", out.Promoted.RSVP.Email)
	assert.Equal(t, 1, out.Stats.Confirmed)
	assert.Equal(t, 1, out.Stats.WaitlistCount)

	wl, err := store.ListWaitlist(ctx, ev.ID)
	require.NoError(t, err)
	require.Len(t, wl, 1)
	assert.Equal(t, "Bob", wl[0].Name)

	n.AssertCalled(t, "RSVPConfirmation", mock.Anything, mock.Anything, "Alice", "alice@x.io", notify.ConfirmAttending)

	var keys []string
	for _, m := range store.Outbox() {
		keys = append(keys, m.RoutingKey)
	}
	assert.Contains(t, keys, event.RoutingGuestRemoved)
	assert.Contains(t, keys, event.RoutingPromoted)
}

func TestRemoveConfirmedGuest_PlaceholderEmail(t *testing.T) {
	svc, _ := newService(t, service.Deps{})
	ev := createEvent(t, svc, func(in *domain.EventInput) { in.GuestLimit = 1 })
	guest := respondYes(t, svc, ev.ID, "Host", domain.GenderMale)

	bob, err := svc.JoinWaitlist(ctx, "t", ev.ID, service.WaitlistInput{Name: "Bob", Gender: "male"})
	require.NoError(t, err)

	out, err := svc.RemoveConfirmedGuest(ctx, "t", ev.ID, guest.RSVP.ID)
	require.NoError(t, err)
	require.NotNil(t, out.Promoted)
	assert.Equal(t, "waitlist-"+bob.Entry.ID.String()+"@placeholder.com", out.Promoted.RSVP.Email)
	assert.Equal(t, "Bob", out.Promoted.RSVP.Name)
	assert.Equal(t, domain.GenderMale, out.Promoted.RSVP.Gender)
}

func TestRemoveConfirmedGuest_SkipsEntryThatAlreadyResponded(t *testing.T) {
	svc, store := newService(t, service.Deps{})
	ev := createEvent(t, svc, func(in *domain.EventInput) { in.GuestLimit = 1 })
	guest := respondYes(t, svc, ev.ID, "Host", domain.GenderMale)

	_, err := svc.JoinWaitlist(ctx, "t", ev.ID, service.WaitlistInput{Name: "Dana", Email: "dana@x.io", Gender: "female"})
	require.NoError(t, err)
	_, err = svc.JoinWaitlist(ctx, "t", ev.ID, service.WaitlistInput{Name: "Eve", Email: "eve@x.io", Gender: "female"})
	require.NoError(t, err)
	_, err = svc.Respond(ctx, "t", ev.ID, service.RespondInput{Name: "Dana", Email: "dana@x.io", Gender: "female", Status: "no"})
	require.NoError(t, err)

	out, err := svc.RemoveConfirmedGuest(ctx, "t", ev.ID, guest.RSVP.ID)
	require.NoError(t, err)
	require.NotNil(t, out.Promoted)
	assert.Equal(t, "Eve", out.Promoted.RSVP.Name)

	wl, _ := store.ListWaitlist(ctx, ev.ID)
	assert.Empty(t, wl)
}

// readFailingStore fails reads made outside an event tx.
type readFailingStore struct {
	*memory.Store
	err error
}

func (s readFailingStore) ListWaitlist(ctx context.Context, eventID uuid.UUID) ([]domain.WaitlistEntry, error) {
	return nil, s.err
}

func TestRemoveConfirmedGuest_StatsReadInsideTx(t *testing.T) {
	store := memory.New()
	svc := service.New(readFailingStore{Store: store, err: errors.New("read replica down")}, service.Deps{})
	ev := createEvent(t, svc, func(in *domain.EventInput) { in.GuestLimit = 1 })
	guest := respondYes(t, svc, ev.ID, "Host", domain.GenderMale)
	_, err := svc.JoinWaitlist(ctx, "t", ev.ID, service.WaitlistInput{Name: "Wes", Email: "wes@x.io", Gender: "male"})
	require.NoError(t, err)

	_, err = svc.GetStats(ctx, ev.ID)
	require.Error(t, err, "direct reads are broken")

	out, err := svc.RemoveConfirmedGuest(ctx, "t", ev.ID, guest.RSVP.ID)
	require.NoError(t, err)
	require.NotNil(t, out.Promoted)
	assert.Equal(t, guest.RSVP.ID, out.Removed.ID)
	assert.Equal(t, 1, out.Stats.Confirmed)
	assert.Equal(t, 0, out.Stats.WaitlistCount)

	rows, err := store.ListRSVPs(ctx, ev.ID, domain.RSVPFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Wes", rows[0].Name)
}

func TestRemoveConfirmedGuest_Errors(t *testing.T) {
	svc, _ := newService(t, service.Deps{})
	ev := createEvent(t, svc, nil)

	_, err := svc.RemoveConfirmedGuest(ctx, "t", ev.ID, uuid.New())
	assert.ErrorIs(t, err, domain.ErrRSVPNotFound)

	no, err := svc.Respond(ctx, "t", ev.ID, service.RespondInput{Name: "N", Email: "n@x.io", Gender: "male", Status: "no"})
	require.NoError(t, err)
	_, err = svc.RemoveConfirmedGuest(ctx, "t", ev.ID, no.RSVP.ID)
	assert.ErrorIs(t, err, domain.ErrNotConfirmed)

	_, err = svc.RemoveConfirmedGuest(ctx, "t", uuid.New(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrEventNotFound)
}

func TestRemoveConfirmedGuest_CancelledEventDoesNotPromote(t *testing.T) {
	svc, store := newService(t, service.Deps{})
	ev := createEvent(t, svc, func(in *domain.EventInput) { in.GuestLimit = 1 })
	guest := respondYes(t, svc, ev.ID, "Host", domain.GenderMale)
	_, err := svc.JoinWaitlist(ctx, "t", ev.ID, service.WaitlistInput{Name: "W", Gender: "male"})
	require.NoError(t, err)

	_, err = svc.CancelEvent(ctx, "t", ev.ID)
	require.NoError(t, err)

	out, err := svc.RemoveConfirmedGuest(ctx, "t", ev.ID, guest.RSVP.ID)
	require.NoError(t, err)
	assert.Nil(t, out.Promoted)
	wl, _ := store.ListWaitlist(ctx, ev.ID)
	assert.Len(t, wl, 1)
}

func TestRemoveWaitlistEntry(t *testing.T) {
	svc, store := newService(t, service.Deps{})
	ev := createEvent(t, svc, func(in *domain.EventInput) { in.GuestLimit = 1 })
	respondYes(t, svc, ev.ID, "A", domain.GenderMale)
	w, err := svc.JoinWaitlist(ctx, "t", ev.ID, service.WaitlistInput{Name: "W", Gender: "male"})
	require.NoError(t, err)

	removed, err := svc.RemoveWaitlistEntry(ctx, "t", ev.ID, w.Entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "W", removed.Name)

	rows, _ := store.ListRSVPs(ctx, ev.ID, domain.RSVPFilter{})
	assert.Len(t, rows, 1, "host withdrawal never promotes")

	_, err = svc.RemoveWaitlistEntry(ctx, "t", ev.ID, w.Entry.ID)
	assert.ErrorIs(t, err, domain.ErrWaitlistEntryNotFound)
}

func TestCreateEvent_CollaboratorFailuresAreWarnings(t *testing.T) {
	n := &MockNotifier{}
	n.On("EventDetails", mock.Anything, mock.Anything).Return(errors.New("smtp down")).Once()
	img := &MockImages{}
	img.On("UploadEventImage", mock.Anything, mock.Anything, mock.Anything, "image/png", int64(3)).Return("", errors.New("s3 down")).Once()

	svc, store := newService(t, service.Deps{Notifier: n, Images: img})
	res, err := svc.CreateEvent(ctx, "t", domain.EventInput{
		Title: "Party", Description: "d", Date: "2026-09-01", StartTime: "19:00", EndTime: "22:00",
		Location: "Home", GuestLimit: 5, HostEmail: "host@x.io",
	}, &service.ImageUpload{Body: strings.NewReader("png"), ContentType: "image/png", Size: 3})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{service.WarnImageUploadFailed, service.WarnEmailNotSent}, res.Warnings)
	assert.Empty(t, res.Event.ImageURL)

	got, err := store.GetEvent(ctx, res.Event.ID)
	require.NoError(t, err)
	assert.Equal(t, "Party", got.Title)
	n.AssertExpectations(t)
	img.AssertExpectations(t)
}

func TestCreateEvent_StoresImageURL(t *testing.T) {
	img := &MockImages{}
	img.On("UploadEventImage", mock.Anything, mock.Anything, mock.Anything, "image/jpeg", int64(4)).Return("https://cdn.test/x.jpg", nil).Once()

	svc, _ := newService(t, service.Deps{Images: img})
	res, err := svc.CreateEvent(ctx, "t", domain.EventInput{
		Title: "Party", Description: "d", Date: "2026-09-01", StartTime: "19:00", EndTime: "22:00",
		Location: "Home", Unlimited: true,
	}, &service.ImageUpload{Body: strings.NewReader("jpeg"), ContentType: "image/jpeg", Size: 4})
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, "https://cdn.test/x.jpg", res.Event.ImageURL)
}

func TestUpdateEvent_LoweringLimitKeepsGuests(t *testing.T) {
	svc, _ := newService(t, service.Deps{})
	ev := createEvent(t, svc, func(in *domain.EventInput) { in.GuestLimit = 3 })
	for _, n := range []string{"A", "B", "C"} {
		respondYes(t, svc, ev.ID, n, domain.GenderMale)
	}

	limit := 1
	updated, err := svc.UpdateEvent(ctx, "t", ev.ID, domain.EventPatch{GuestLimit: &limit})
	require.NoError(t, err)
	assert.Equal(t, 1, updated.GuestLimit)

	stats, err := svc.GetStats(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Confirmed)
	assert.Equal(t, 0, stats.SpotsRemaining)

	zero := 0
	_, err = svc.UpdateEvent(ctx, "t", ev.ID, domain.EventPatch{GuestLimit: &zero})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestListPublicRSVPs_HidesEmailsAndDeclines(t *testing.T) {
	svc, _ := newService(t, service.Deps{})
	ev := createEvent(t, svc, nil)
	respondYes(t, svc, ev.ID, "A", domain.GenderMale)
	_, err := svc.Respond(ctx, "t", ev.ID, service.RespondInput{Name: "B", Email: "b@x.io", Gender: "female", Status: "no"})
	require.NoError(t, err)

	pub, err := svc.ListPublicRSVPs(ctx, ev.ID)
	require.NoError(t, err)
	require.Len(t, pub, 1)
	assert.Equal(t, "A", pub[0].Name)

	all, err := svc.ListRSVPs(ctx, ev.ID, domain.RSVPFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = svc.ListPublicRSVPs(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrEventNotFound)
}
