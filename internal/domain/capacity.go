package domain

import (
	"math"

	"github.com/google/uuid"
)

type DecisionKind string

const (
	DecisionAccept        DecisionKind = "accept"
	DecisionOfferWaitlist DecisionKind = "offer_waitlist"
)

type Reason string

const (
	ReasonUnlimited     Reason = "unlimited"
	ReasonSpotAvailable Reason = "spot_available"
	ReasonEventFull     Reason = "event_full"
	ReasonGenderFull    Reason = "gender_full"
)

// Unbounded marks a remaining-spots count that has no ceiling.
const Unbounded = -1

type Decision struct {
	Kind   DecisionKind
	Reason Reason

	SpotsRemaining       int // Unbounded for unlimited events
	GenderSpotsRemaining int // Unbounded when no quota applies to the guest
}

func (d Decision) Accepted() bool { return d.Kind == DecisionAccept }

// Counts tallies confirmed (yes) rows.
type Counts struct {
	Total  int
	Male   int
	Female int
}

// Other counts confirmed guests outside the binary quotas.
func (c Counts) Other() int { return c.Total - c.Male - c.Female }

func (c Counts) For(g Gender) int {
	switch g {
	case GenderMale:
		return c.Male
	case GenderFemale:
		return c.Female
	default:
		return 0
	}
}

// CountConfirmed ignores anything that is not a yes row.
func CountConfirmed(rsvps []RSVP) Counts {
	var c Counts
	for _, r := range rsvps {
		if r.Status != RSVPYes {
			continue
		}
		c.Total++
		switch r.Gender {
		case GenderMale:
			c.Male++
		case GenderFemale:
			c.Female++
		}
	}
	return c
}

// Quotas splits a guest limit by ratio. male + female == limit for any
// non-negative limit.
func Quotas(limit int, maleRatio float64) (male, female int) {
	if limit <= 0 {
		return 0, 0
	}
	switch {
	case math.IsNaN(maleRatio) || maleRatio < 0:
		maleRatio = 0
	case maleRatio > 1:
		maleRatio = 1
	}
	// epsilon absorbs binary float noise such as 100*0.29 = 28.999999999999996
	male = int(math.Floor(float64(limit)*maleRatio + 1e-9))
	if male > limit {
		male = limit
	}
	return male, limit - male
}

// QuotaFor returns the quota for g and whether one applies.
func QuotaFor(ev Event, g Gender) (int, bool) {
	if !ev.RatioApplies() {
		return 0, false
	}
	male, female := Quotas(ev.GuestLimit, ev.MaleRatio)
	switch g {
	case GenderMale:
		return male, true
	case GenderFemale:
		return female, true
	default:
		return 0, false
	}
}

// Evaluate decides whether a guest of gender g can be confirmed given the
// event's current confirmed rows. It performs no I/O.
func Evaluate(ev Event, confirmed []RSVP, g Gender) Decision {
	return EvaluateCounts(ev, CountConfirmed(confirmed), g)
}

func EvaluateCounts(ev Event, c Counts, g Gender) Decision {
	if ev.Unlimited {
		return Decision{
			Kind:                 DecisionAccept,
			Reason:               ReasonUnlimited,
			SpotsRemaining:       Unbounded,
			GenderSpotsRemaining: Unbounded,
		}
	}

	d := Decision{
		SpotsRemaining:       nonNegative(ev.GuestLimit - c.Total),
		GenderSpotsRemaining: Unbounded,
	}

	quota, ok := QuotaFor(ev, g)
	if ok {
		d.GenderSpotsRemaining = nonNegative(quota - c.For(g))
	}

	// Binary quotas partition the guest limit, so the total only needs a
	// separate check once guests outside the quotas hold seats.
	checkTotal := !ok || c.Other() > 0

	switch {
	case ok && d.GenderSpotsRemaining == 0:
		d.Kind, d.Reason = DecisionOfferWaitlist, ReasonGenderFull
	case checkTotal && d.SpotsRemaining == 0:
		d.Kind, d.Reason = DecisionOfferWaitlist, ReasonEventFull
	default:
		d.Kind, d.Reason = DecisionAccept, ReasonSpotAvailable
	}
	return d
}

// CapacityGuard is the condition a confirmed insert must still satisfy at
// write time.
type CapacityGuard struct {
	Limit       int
	Gender      Gender // empty when no quota applies
	GenderLimit int
}

// GuardFor returns nil for unlimited events.
func GuardFor(ev Event, g Gender) *CapacityGuard {
	if ev.Unlimited {
		return nil
	}
	guard := &CapacityGuard{Limit: ev.GuestLimit}
	if quota, ok := QuotaFor(ev, g); ok {
		guard.Gender = g
		guard.GenderLimit = quota
	}
	return guard
}

// Allows mirrors EvaluateCounts for the accept branch.
func (cg CapacityGuard) Allows(c Counts) bool {
	if cg.Gender == "" {
		return c.Total < cg.Limit
	}
	if c.For(cg.Gender) >= cg.GenderLimit {
		return false
	}
	return c.Other() == 0 || c.Total < cg.Limit
}

type EventStats struct {
	EventID    uuid.UUID
	Unlimited  bool
	GuestLimit int

	Confirmed       int
	Declined        int
	ConfirmedMale   int
	ConfirmedFemale int
	ConfirmedOther  int

	SpotsRemaining int // Unbounded for unlimited events

	RatioControl         bool
	MaleQuota            int
	FemaleQuota          int
	MaleSpotsRemaining   int // Unbounded when ratio control is off
	FemaleSpotsRemaining int

	WaitlistCount int
}

func ComputeStats(ev Event, rsvps []RSVP, waitlistCount int) EventStats {
	c := CountConfirmed(rsvps)
	s := EventStats{
		EventID:              ev.ID,
		Unlimited:            ev.Unlimited,
		GuestLimit:           ev.GuestLimit,
		Confirmed:            c.Total,
		ConfirmedMale:        c.Male,
		ConfirmedFemale:      c.Female,
		ConfirmedOther:       c.Other(),
		SpotsRemaining:       Unbounded,
		RatioControl:         ev.RatioApplies(),
		MaleSpotsRemaining:   Unbounded,
		FemaleSpotsRemaining: Unbounded,
		WaitlistCount:        waitlistCount,
	}
	for _, r := range rsvps {
		if r.Status == RSVPNo {
			s.Declined++
		}
	}
	if !ev.Unlimited {
		s.SpotsRemaining = nonNegative(ev.GuestLimit - c.Total)
	}
	if s.RatioControl {
		s.MaleQuota, s.FemaleQuota = Quotas(ev.GuestLimit, ev.MaleRatio)
		s.MaleSpotsRemaining = nonNegative(s.MaleQuota - c.Male)
		s.FemaleSpotsRemaining = nonNegative(s.FemaleQuota - c.Female)
	}
	return s
}

func nonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
