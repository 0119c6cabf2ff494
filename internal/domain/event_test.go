package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/baechuer/summons/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func validInput() domain.EventInput {
	return domain.EventInput{
		Title:       "Rooftop Dinner",
		Description: "Bring a dish",
		Date:        "2026-06-12",
		StartTime:   "19:00",
		EndTime:     "23:00",
		Location:    "12 Harbour St",
		GuestLimit:  10,
		HostEmail:   "Host@Example.com",
	}
}

func TestNewEvent_Valid(t *testing.T) {
	ev, err := domain.NewEvent(validInput(), now)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, ev.ID)
	assert.Equal(t, domain.EventOpen, ev.Status)
	assert.Equal(t, "host@example.com", ev.HostEmail)
	assert.Equal(t, time.Date(2026, 6, 12, 0, 0, 0, 0, time.UTC), ev.Date)
	assert.Equal(t, domain.DefaultMaleRatio, ev.MaleRatio)
	assert.InDelta(t, 0.5, ev.FemaleRatio(), 1e-9)
}

func TestNewEvent_UnlimitedNormalises(t *testing.T) {
	in := validInput()
	in.Unlimited = true
	in.GuestLimit = 0
	in.RatioControl = true
	ev, err := domain.NewEvent(in, now)
	require.NoError(t, err)
	assert.Equal(t, 0, ev.GuestLimit)
	assert.False(t, ev.RatioControl)
	assert.False(t, ev.RatioApplies())
}

func TestNewEvent_FieldErrors(t *testing.T) {
	bad := 1.2
	in := domain.EventInput{
		Date:       "12/06/2026",
		StartTime:  "7pm",
		GuestLimit: 0,
		MaleRatio:  &bad,
		HostEmail:  "nope",
	}
	_, err := domain.NewEvent(in, now)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrValidation))

	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve))
	for _, f := range []string{"title", "description", "location", "date", "start_time", "end_time", "guest_limit", "male_ratio", "host_email"} {
		assert.Contains(t, ve.Fields, f)
	}
}

func TestEvent_ApplyUpdate(t *testing.T) {
	ev, err := domain.NewEvent(validInput(), now)
	require.NoError(t, err)

	limit := 4
	ratio := 0.25
	on := true
	later := now.Add(time.Hour)
	out, err := ev.ApplyUpdate(domain.EventPatch{GuestLimit: &limit, RatioControl: &on, MaleRatio: &ratio}, later)
	require.NoError(t, err)
	assert.Equal(t, 4, out.GuestLimit)
	assert.True(t, out.RatioApplies())
	assert.Equal(t, later, out.UpdatedAt)
	assert.Equal(t, 10, ev.GuestLimit, "receiver is not mutated")

	zero := 0
	_, err = ev.ApplyUpdate(domain.EventPatch{GuestLimit: &zero}, later)
	assert.ErrorIs(t, err, domain.ErrValidation)

	deadline := now.Add(24 * time.Hour)
	withDeadline, err := ev.ApplyUpdate(domain.EventPatch{RSVPDeadline: &deadline}, later)
	require.NoError(t, err)
	require.NotNil(t, withDeadline.RSVPDeadline)
	cleared, err := withDeadline.ApplyUpdate(domain.EventPatch{ClearRSVPDeadline: true}, later)
	require.NoError(t, err)
	assert.Nil(t, cleared.RSVPDeadline)
}

func TestEvent_CancelIsTerminal(t *testing.T) {
	ev, err := domain.NewEvent(validInput(), now)
	require.NoError(t, err)

	cancelled, err := ev.Cancel(now)
	require.NoError(t, err)
	assert.Equal(t, domain.EventCancelled, cancelled.Status)

	_, err = cancelled.Cancel(now)
	assert.ErrorIs(t, err, domain.ErrEventClosed)

	title := "new"
	_, err = cancelled.ApplyUpdate(domain.EventPatch{Title: &title}, now)
	assert.ErrorIs(t, err, domain.ErrEventClosed)
}

func TestEvent_CheckAccepting(t *testing.T) {
	deadline := now.Add(time.Hour)
	ev := domain.Event{Status: domain.EventOpen, RSVPDeadline: &deadline}
	assert.NoError(t, ev.CheckAccepting(now))
	assert.ErrorIs(t, ev.CheckAccepting(deadline.Add(time.Second)), domain.ErrDeadlinePassed)

	ev.Status = domain.EventCancelled
	assert.ErrorIs(t, ev.CheckAccepting(now), domain.ErrEventClosed)
}

func TestNewGuestResponse(t *testing.T) {
	id := uuid.New()
	in, err := domain.NewGuestResponse(id, "  Ana ", "ANA@mail.com", "Female", "YES")
	require.NoError(t, err)
	assert.Equal(t, "Ana", in.Name)
	assert.Equal(t, "ana@mail.com", in.Email)
	assert.Equal(t, domain.GenderFemale, in.Gender)
	assert.Equal(t, domain.RSVPYes, in.Status)
	assert.Nil(t, in.Guard)

	_, err = domain.NewGuestResponse(id, "", "", "robot", "maybe")
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Fields, 4)
}

func TestNewWaitlistRequest_EmailOptional(t *testing.T) {
	in, err := domain.NewWaitlistRequest(uuid.New(), "Bob", "", "male")
	require.NoError(t, err)
	assert.Empty(t, in.Email)

	_, err = domain.NewWaitlistRequest(uuid.New(), "Bob", "bob@", "male")
	assert.ErrorIs(t, err, domain.ErrValidation)
}
