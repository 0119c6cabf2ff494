package service

import (
	"context"
	"errors"
	"strings"

	"github.com/baechuer/summons/internal/contracts/event"
	"github.com/baechuer/summons/internal/domain"
	"github.com/baechuer/summons/internal/metrics"
	"github.com/baechuer/summons/internal/notify"
	"github.com/google/uuid"
)

type RespondInput struct {
	Name   string
	Email  string
	Gender string
	Status string
}

type RespondResult struct {
	// Decision is zero for a declined response.
	Decision domain.Decision
	// RSVP is nil when the guest was offered the waitlist instead.
	RSVP     *domain.RSVP
	Warnings []string
}

func (r RespondResult) OfferedWaitlist() bool {
	return r.RSVP == nil && r.Decision.Kind == domain.DecisionOfferWaitlist
}

// Respond records a yes/no response. A yes that does not fit is not an
// error: the result carries an OfferWaitlist decision and nothing is written.
func (s *RSVPService) Respond(ctx context.Context, traceID string, eventID uuid.UUID, in RespondInput) (RespondResult, error) {
	nr, err := domain.NewGuestResponse(eventID, in.Name, in.Email, in.Gender, in.Status)
	if err != nil {
		return RespondResult{}, err
	}
	if err := s.closedFastFail(ctx, eventID); err != nil {
		return RespondResult{}, err
	}

	var (
		res RespondResult
		ev  domain.Event
	)
	err = s.store.WithinEvent(ctx, traceID, eventID, func(ctx context.Context, tx domain.Tx) error {
		var err error
		ev, err = tx.GetEvent(ctx, eventID)
		if err != nil {
			return err
		}
		if err := ev.CheckAccepting(s.now()); err != nil {
			return err
		}

		if nr.Status == domain.RSVPYes {
			confirmed, err := tx.ListRSVPs(ctx, eventID, domain.RSVPFilter{Status: domain.RSVPYes})
			if err != nil {
				return err
			}
			res.Decision = domain.Evaluate(ev, confirmed, nr.Gender)
			metrics.RecordDecision(string(res.Decision.Kind), string(res.Decision.Reason))
			if !res.Decision.Accepted() {
				return nil
			}
			nr.Guard = domain.GuardFor(ev, nr.Gender)
		}

		r, err := tx.InsertRSVP(ctx, nr)
		if err != nil {
			if errors.Is(err, domain.ErrCapacityExceeded) {
				metrics.RecordCapacityConflict()
			}
			return err
		}
		res.RSVP = &r
		return tx.RecordEvent(ctx, rsvpMessage(r))
	})
	if err != nil {
		return RespondResult{}, err
	}
	if res.RSVP == nil {
		return res, nil
	}

	s.audit.Responded(ctx, *res.RSVP)
	metrics.RecordRSVP(string(res.RSVP.Status))

	kind := notify.ConfirmDeclined
	if res.RSVP.Status == domain.RSVPYes {
		kind = notify.ConfirmAttending
	}
	if !s.confirm(ctx, ev, res.RSVP.Name, res.RSVP.Email, kind) {
		res.Warnings = append(res.Warnings, WarnEmailNotSent)
	}
	return res, nil
}

type WaitlistInput struct {
	Name   string
	Email  string // optional
	Gender string
}

type JoinWaitlistResult struct {
	// Entry is set when the guest was queued.
	Entry *domain.WaitlistEntry
	// RSVP is set when a spot had opened and the guest was confirmed instead.
	RSVP     *domain.RSVP
	Warnings []string
}

// JoinWaitlist queues a guest. The capacity check is repeated under the
// event lock; if a spot has opened since the offer the guest is confirmed
// directly, under a placeholder address when they left no email.
func (s *RSVPService) JoinWaitlist(ctx context.Context, traceID string, eventID uuid.UUID, in WaitlistInput) (JoinWaitlistResult, error) {
	req, err := domain.NewWaitlistRequest(eventID, in.Name, in.Email, in.Gender)
	if err != nil {
		return JoinWaitlistResult{}, err
	}
	if err := s.closedFastFail(ctx, eventID); err != nil {
		return JoinWaitlistResult{}, err
	}

	var (
		res JoinWaitlistResult
		ev  domain.Event
	)
	err = s.store.WithinEvent(ctx, traceID, eventID, func(ctx context.Context, tx domain.Tx) error {
		var err error
		ev, err = tx.GetEvent(ctx, eventID)
		if err != nil {
			return err
		}
		if err := ev.CheckAccepting(s.now()); err != nil {
			return err
		}

		rows, err := tx.ListRSVPs(ctx, eventID, domain.RSVPFilter{})
		if err != nil {
			return err
		}
		if req.Email != "" {
			for _, r := range rows {
				if strings.EqualFold(r.Email, req.Email) {
					return domain.ErrAlreadyResponded
				}
			}
		}

		if domain.Evaluate(ev, rows, req.Gender).Accepted() {
			email := req.Email
			if email == "" {
				email = domain.PlaceholderEmail(uuid.New())
			}
			r, err := tx.InsertRSVP(ctx, domain.NewRSVP{
				EventID: eventID,
				Name:    req.Name,
				Email:   email,
				Gender:  req.Gender,
				Status:  domain.RSVPYes,
				Guard:   domain.GuardFor(ev, req.Gender),
			})
			if err != nil {
				return err
			}
			res.RSVP = &r
			return tx.RecordEvent(ctx, rsvpMessage(r))
		}

		e, err := s.waitlist.Enqueue(ctx, tx, req)
		if err != nil {
			return err
		}
		res.Entry = &e
		return tx.RecordEvent(ctx, domain.OutboxMessage{
			RoutingKey: event.RoutingWaitlisted,
			Payload:    event.WaitlistPayload{EventID: e.EventID.String(), EntryID: e.ID.String(), Gender: string(e.Gender)},
		})
	})
	if err != nil {
		return JoinWaitlistResult{}, err
	}

	name, email, kind := req.Name, req.Email, notify.ConfirmWaitlist
	if res.RSVP != nil {
		s.audit.Responded(ctx, *res.RSVP)
		metrics.RecordRSVP(string(res.RSVP.Status))
		kind = notify.ConfirmAttending
	} else {
		s.audit.Waitlisted(ctx, *res.Entry)
		metrics.RecordWaitlistJoin()
	}
	if email != "" && !s.confirm(ctx, ev, name, email, kind) {
		res.Warnings = append(res.Warnings, WarnEmailNotSent)
	}
	return res, nil
}

func rsvpMessage(r domain.RSVP) domain.OutboxMessage {
	return domain.OutboxMessage{
		RoutingKey: event.RoutingRSVPRecorded,
		Payload: event.RSVPPayload{
			EventID: r.EventID.String(),
			RSVPID:  r.ID.String(),
			Status:  string(r.Status),
			Gender:  string(r.Gender),
		},
	}
}
