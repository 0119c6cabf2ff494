package domain

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"

	DefaultMaleRatio = 0.5

	maxTitleLen = 200
	maxNameLen  = 100
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func ValidEmail(s string) bool { return emailRe.MatchString(s) }

type Event struct {
	ID          uuid.UUID
	Title       string
	Description string
	Date        time.Time // calendar day, UTC midnight
	StartTime   string    // HH:MM
	EndTime     string    // HH:MM
	Location    string

	Unlimited    bool
	GuestLimit   int
	RatioControl bool
	MaleRatio    float64

	RSVPDeadline *time.Time
	Status       EventStatus
	HostEmail    string
	ImageURL     string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (e Event) FemaleRatio() float64 { return 1 - e.MaleRatio }

// RatioApplies reports whether per-gender quotas are enforced.
func (e Event) RatioApplies() bool { return e.RatioControl && !e.Unlimited }

// CheckAccepting gates every new RSVP or waitlist write.
func (e Event) CheckAccepting(now time.Time) error {
	if e.Status == EventCancelled {
		return ErrEventClosed
	}
	if e.RSVPDeadline != nil && now.After(*e.RSVPDeadline) {
		return ErrDeadlinePassed
	}
	return nil
}

type EventInput struct {
	Title        string
	Description  string
	Date         string
	StartTime    string
	EndTime      string
	Location     string
	Unlimited    bool
	GuestLimit   int
	RatioControl bool
	MaleRatio    *float64
	RSVPDeadline *time.Time
	HostEmail    string
}

// NewEvent validates a host submission and returns an open event.
func NewEvent(in EventInput, now time.Time) (Event, error) {
	v := &ValidationError{}
	ratio := DefaultMaleRatio
	if in.MaleRatio != nil {
		ratio = *in.MaleRatio
	}
	e := Event{
		ID:           uuid.New(),
		Title:        strings.TrimSpace(in.Title),
		Description:  strings.TrimSpace(in.Description),
		StartTime:    strings.TrimSpace(in.StartTime),
		EndTime:      strings.TrimSpace(in.EndTime),
		Location:     strings.TrimSpace(in.Location),
		Unlimited:    in.Unlimited,
		GuestLimit:   in.GuestLimit,
		RatioControl: in.RatioControl,
		MaleRatio:    ratio,
		RSVPDeadline: in.RSVPDeadline,
		Status:       EventOpen,
		HostEmail:    strings.ToLower(strings.TrimSpace(in.HostEmail)),
		CreatedAt:    now.UTC(),
		UpdatedAt:    now.UTC(),
	}
	e.Date = parseDate(v, in.Date)
	e.normalise()
	validateEvent(v, e)
	if err := v.orNil(); err != nil {
		return Event{}, err
	}
	return e, nil
}

// EventPatch is a host edit. Nil fields are left untouched.
type EventPatch struct {
	Title             *string
	Description       *string
	Date              *string
	StartTime         *string
	EndTime           *string
	Location          *string
	Unlimited         *bool
	GuestLimit        *int
	RatioControl      *bool
	MaleRatio         *float64
	RSVPDeadline      *time.Time
	ClearRSVPDeadline bool
}

// ApplyUpdate returns the edited event. Lowering the guest limit below the
// current confirmed count is allowed; existing guests are never evicted.
func (e Event) ApplyUpdate(p EventPatch, now time.Time) (Event, error) {
	if e.Status == EventCancelled {
		return Event{}, ErrEventClosed
	}
	v := &ValidationError{}
	out := e
	if p.Title != nil {
		out.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		out.Description = strings.TrimSpace(*p.Description)
	}
	if p.Date != nil {
		out.Date = parseDate(v, *p.Date)
	}
	if p.StartTime != nil {
		out.StartTime = strings.TrimSpace(*p.StartTime)
	}
	if p.EndTime != nil {
		out.EndTime = strings.TrimSpace(*p.EndTime)
	}
	if p.Location != nil {
		out.Location = strings.TrimSpace(*p.Location)
	}
	if p.Unlimited != nil {
		out.Unlimited = *p.Unlimited
	}
	if p.GuestLimit != nil {
		out.GuestLimit = *p.GuestLimit
	}
	if p.RatioControl != nil {
		out.RatioControl = *p.RatioControl
	}
	if p.MaleRatio != nil {
		out.MaleRatio = *p.MaleRatio
	}
	if p.ClearRSVPDeadline {
		out.RSVPDeadline = nil
	} else if p.RSVPDeadline != nil {
		out.RSVPDeadline = p.RSVPDeadline
	}
	out.normalise()
	validateEvent(v, out)
	if err := v.orNil(); err != nil {
		return Event{}, err
	}
	out.UpdatedAt = now.UTC()
	return out, nil
}

// Cancel is terminal; cancelling twice reports ErrEventClosed.
func (e Event) Cancel(now time.Time) (Event, error) {
	if e.Status == EventCancelled {
		return Event{}, ErrEventClosed
	}
	e.Status = EventCancelled
	e.UpdatedAt = now.UTC()
	return e, nil
}

func (e *Event) normalise() {
	if e.Unlimited {
		e.GuestLimit = 0
		e.RatioControl = false
	}
	if !e.RatioControl && e.MaleRatio == 0 {
		e.MaleRatio = DefaultMaleRatio
	}
}

func parseDate(v *ValidationError, s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		v.add("date", "required")
		return time.Time{}
	}
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		v.add("date", "must be YYYY-MM-DD")
		return time.Time{}
	}
	return d
}

func validateEvent(v *ValidationError, e Event) {
	switch {
	case e.Title == "":
		v.add("title", "required")
	case len(e.Title) > maxTitleLen:
		v.add("title", "too long")
	}
	if e.Description == "" {
		v.add("description", "required")
	}
	if e.Location == "" {
		v.add("location", "required")
	}
	checkClock(v, "start_time", e.StartTime)
	checkClock(v, "end_time", e.EndTime)
	if !e.Unlimited && e.GuestLimit <= 0 {
		v.add("guest_limit", "must be positive unless unlimited")
	}
	if e.MaleRatio < 0 || e.MaleRatio > 1 {
		v.add("male_ratio", "must be between 0 and 1")
	}
	if e.HostEmail != "" && !ValidEmail(e.HostEmail) {
		v.add("host_email", "invalid email")
	}
}

func checkClock(v *ValidationError, field, s string) {
	if s == "" {
		v.add(field, "required")
		return
	}
	if _, err := time.Parse(TimeLayout, s); err != nil {
		v.add(field, "must be HH:MM")
	}
}

// NewRSVP is an RSVP about to be written.
type NewRSVP struct {
	EventID uuid.UUID
	Name    string
	Email   string
	Gender  Gender
	Status  RSVPStatus

	// Guard, when set, turns the insert into a conditional write.
	Guard *CapacityGuard
}

// NewGuestResponse validates what a guest typed into the RSVP form.
func NewGuestResponse(eventID uuid.UUID, name, email, gender, status string) (NewRSVP, error) {
	v := &ValidationError{}
	out := NewRSVP{EventID: eventID}
	out.Name = checkName(v, name)
	out.Email = strings.ToLower(strings.TrimSpace(email))
	if out.Email == "" {
		v.add("email", "required")
	} else if !ValidEmail(out.Email) {
		v.add("email", "invalid email")
	}
	g, ok := ParseGender(gender)
	if !ok {
		v.add("gender", "must be male, female or other")
	}
	out.Gender = g
	st, ok := ParseRSVPStatus(status)
	if !ok {
		v.add("status", "must be yes or no")
	}
	out.Status = st
	if err := v.orNil(); err != nil {
		return NewRSVP{}, err
	}
	return out, nil
}

type NewWaitlistEntry struct {
	EventID uuid.UUID
	Name    string
	Email   string
	Gender  Gender
}

func NewWaitlistRequest(eventID uuid.UUID, name, email, gender string) (NewWaitlistEntry, error) {
	v := &ValidationError{}
	out := NewWaitlistEntry{EventID: eventID}
	out.Name = checkName(v, name)
	out.Email = strings.ToLower(strings.TrimSpace(email))
	if out.Email != "" && !ValidEmail(out.Email) {
		v.add("email", "invalid email")
	}
	g, ok := ParseGender(gender)
	if !ok {
		v.add("gender", "must be male, female or other")
	}
	out.Gender = g
	if err := v.orNil(); err != nil {
		return NewWaitlistEntry{}, err
	}
	return out, nil
}

func checkName(v *ValidationError, name string) string {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		v.add("name", "required")
	case len([]rune(name)) > maxNameLen:
		v.add("name", "too long")
	}
	return name
}
