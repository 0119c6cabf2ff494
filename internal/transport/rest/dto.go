package rest

import (
	"time"

	"github.com/baechuer/summons/internal/domain"
	"github.com/baechuer/summons/internal/service"
	"github.com/google/uuid"
)

type createEventRequest struct {
	Title        string     `json:"title" validate:"required,max=200"`
	Description  string     `json:"description" validate:"required"`
	Date         string     `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime    string     `json:"start_time" validate:"required,datetime=15:04"`
	EndTime      string     `json:"end_time" validate:"required,datetime=15:04"`
	Location     string     `json:"location" validate:"required"`
	Unlimited    bool       `json:"unlimited"`
	GuestLimit   int        `json:"guest_limit" validate:"gte=0"`
	RatioControl bool       `json:"ratio_control"`
	MaleRatio    *float64   `json:"male_ratio" validate:"omitempty,gte=0,lte=1"`
	RSVPDeadline *time.Time `json:"rsvp_deadline"`
	HostEmail    string     `json:"host_email" validate:"omitempty,email"`
}

func (r createEventRequest) input() domain.EventInput {
	return domain.EventInput{
		Title:        r.Title,
		Description:  r.Description,
		Date:         r.Date,
		StartTime:    r.StartTime,
		EndTime:      r.EndTime,
		Location:     r.Location,
		Unlimited:    r.Unlimited,
		GuestLimit:   r.GuestLimit,
		RatioControl: r.RatioControl,
		MaleRatio:    r.MaleRatio,
		RSVPDeadline: r.RSVPDeadline,
		HostEmail:    r.HostEmail,
	}
}

type updateEventRequest struct {
	Title             *string    `json:"title" validate:"omitempty,max=200"`
	Description       *string    `json:"description"`
	Date              *string    `json:"date" validate:"omitempty,datetime=2006-01-02"`
	StartTime         *string    `json:"start_time" validate:"omitempty,datetime=15:04"`
	EndTime           *string    `json:"end_time" validate:"omitempty,datetime=15:04"`
	Location          *string    `json:"location"`
	Unlimited         *bool      `json:"unlimited"`
	GuestLimit        *int       `json:"guest_limit" validate:"omitempty,gte=0"`
	RatioControl      *bool      `json:"ratio_control"`
	MaleRatio         *float64   `json:"male_ratio" validate:"omitempty,gte=0,lte=1"`
	RSVPDeadline      *time.Time `json:"rsvp_deadline"`
	ClearRSVPDeadline bool       `json:"clear_rsvp_deadline"`
}

func (r updateEventRequest) patch() domain.EventPatch {
	return domain.EventPatch{
		Title:             r.Title,
		Description:       r.Description,
		Date:              r.Date,
		StartTime:         r.StartTime,
		EndTime:           r.EndTime,
		Location:          r.Location,
		Unlimited:         r.Unlimited,
		GuestLimit:        r.GuestLimit,
		RatioControl:      r.RatioControl,
		MaleRatio:         r.MaleRatio,
		RSVPDeadline:      r.RSVPDeadline,
		ClearRSVPDeadline: r.ClearRSVPDeadline,
	}
}

type respondRequest struct {
	Name   string `json:"attendee_name" validate:"required,max=100"`
	Email  string `json:"attendee_email" validate:"required,email"`
	Gender string `json:"gender" validate:"required,oneof=male female other"`
	Status string `json:"status" validate:"required,oneof=yes no"`
}

type waitlistRequest struct {
	Name   string `json:"attendee_name" validate:"required,max=100"`
	Email  string `json:"attendee_email" validate:"omitempty,email"`
	Gender string `json:"gender" validate:"required,oneof=male female other"`
}

type eventResponse struct {
	ID           uuid.UUID  `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Date         string     `json:"date"`
	StartTime    string     `json:"start_time"`
	EndTime      string     `json:"end_time"`
	Location     string     `json:"location"`
	Unlimited    bool       `json:"unlimited"`
	GuestLimit   int        `json:"guest_limit"`
	RatioControl bool       `json:"ratio_control"`
	MaleRatio    float64    `json:"male_ratio"`
	FemaleRatio  float64    `json:"female_ratio"`
	RSVPDeadline *time.Time `json:"rsvp_deadline,omitempty"`
	Status       string     `json:"status"`
	ImageURL     string     `json:"image_url,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// toEventResponse leaves the host email out; it is never echoed publicly.
func toEventResponse(e domain.Event) eventResponse {
	return eventResponse{
		ID:           e.ID,
		Title:        e.Title,
		Description:  e.Description,
		Date:         e.Date.Format(domain.DateLayout),
		StartTime:    e.StartTime,
		EndTime:      e.EndTime,
		Location:     e.Location,
		Unlimited:    e.Unlimited,
		GuestLimit:   e.GuestLimit,
		RatioControl: e.RatioApplies(),
		MaleRatio:    e.MaleRatio,
		FemaleRatio:  e.FemaleRatio(),
		RSVPDeadline: e.RSVPDeadline,
		Status:       string(e.Status),
		ImageURL:     e.ImageURL,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
}

type rsvpResponse struct {
	ID        uuid.UUID `json:"id"`
	EventID   uuid.UUID `json:"event_id"`
	Name      string    `json:"attendee_name"`
	Email     string    `json:"attendee_email,omitempty"`
	Gender    string    `json:"gender"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

func toRSVPResponse(r domain.RSVP) rsvpResponse {
	return rsvpResponse{
		ID:        r.ID,
		EventID:   r.EventID,
		Name:      r.Name,
		Email:     r.Email,
		Gender:    string(r.Gender),
		Status:    string(r.Status),
		CreatedAt: r.CreatedAt,
	}
}

func toRSVPResponses(rows []domain.RSVP) []rsvpResponse {
	out := make([]rsvpResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, toRSVPResponse(r))
	}
	return out
}

type publicRSVPResponse struct {
	Name      string    `json:"attendee_name"`
	Gender    string    `json:"gender"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

func toPublicRSVPResponses(rows []service.PublicRSVP) []publicRSVPResponse {
	out := make([]publicRSVPResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, publicRSVPResponse{Name: r.Name, Gender: string(r.Gender), Status: string(r.Status), CreatedAt: r.CreatedAt})
	}
	return out
}

type waitlistEntryResponse struct {
	ID        uuid.UUID `json:"id"`
	EventID   uuid.UUID `json:"event_id"`
	Name      string    `json:"attendee_name"`
	Email     string    `json:"attendee_email,omitempty"`
	Gender    string    `json:"gender"`
	Position  int       `json:"position,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toWaitlistEntryResponse(e domain.WaitlistEntry) waitlistEntryResponse {
	return waitlistEntryResponse{
		ID:        e.ID,
		EventID:   e.EventID,
		Name:      e.Name,
		Email:     e.Email,
		Gender:    string(e.Gender),
		CreatedAt: e.CreatedAt,
	}
}

func toWaitlistResponses(entries []domain.WaitlistEntry) []waitlistEntryResponse {
	out := make([]waitlistEntryResponse, 0, len(entries))
	for i, e := range entries {
		item := toWaitlistEntryResponse(e)
		item.Position = i + 1
		out = append(out, item)
	}
	return out
}

// bounded maps domain.Unbounded to JSON null.
func bounded(n int) *int {
	if n == domain.Unbounded {
		return nil
	}
	return &n
}

type decisionResponse struct {
	Kind                 string `json:"kind"`
	Reason               string `json:"reason"`
	SpotsRemaining       *int   `json:"spots_remaining"`
	GenderSpotsRemaining *int   `json:"gender_spots_remaining"`
}

func toDecisionResponse(d domain.Decision) *decisionResponse {
	if d.Kind == "" {
		return nil
	}
	return &decisionResponse{
		Kind:                 string(d.Kind),
		Reason:               string(d.Reason),
		SpotsRemaining:       bounded(d.SpotsRemaining),
		GenderSpotsRemaining: bounded(d.GenderSpotsRemaining),
	}
}

type statsResponse struct {
	EventID              uuid.UUID `json:"event_id"`
	Unlimited            bool      `json:"unlimited"`
	GuestLimit           int       `json:"guest_limit"`
	Confirmed            int       `json:"confirmed"`
	Declined             int       `json:"declined"`
	ConfirmedMale        int       `json:"confirmed_male"`
	ConfirmedFemale      int       `json:"confirmed_female"`
	ConfirmedOther       int       `json:"confirmed_other"`
	SpotsRemaining       *int      `json:"spots_remaining"`
	RatioControl         bool      `json:"ratio_control"`
	MaleQuota            int       `json:"male_quota,omitempty"`
	FemaleQuota          int       `json:"female_quota,omitempty"`
	MaleSpotsRemaining   *int      `json:"male_spots_remaining"`
	FemaleSpotsRemaining *int      `json:"female_spots_remaining"`
	WaitlistCount        int       `json:"waitlist_count"`
}

func toStatsResponse(s domain.EventStats) statsResponse {
	return statsResponse{
		EventID:              s.EventID,
		Unlimited:            s.Unlimited,
		GuestLimit:           s.GuestLimit,
		Confirmed:            s.Confirmed,
		Declined:             s.Declined,
		ConfirmedMale:        s.ConfirmedMale,
		ConfirmedFemale:      s.ConfirmedFemale,
		ConfirmedOther:       s.ConfirmedOther,
		SpotsRemaining:       bounded(s.SpotsRemaining),
		RatioControl:         s.RatioControl,
		MaleQuota:            s.MaleQuota,
		FemaleQuota:          s.FemaleQuota,
		MaleSpotsRemaining:   bounded(s.MaleSpotsRemaining),
		FemaleSpotsRemaining: bounded(s.FemaleSpotsRemaining),
		WaitlistCount:        s.WaitlistCount,
	}
}
