package service

import (
	"context"
	"errors"

	"github.com/baechuer/summons/internal/contracts/event"
	"github.com/baechuer/summons/internal/domain"
	"github.com/baechuer/summons/internal/metrics"
	"github.com/baechuer/summons/internal/notify"
	"github.com/baechuer/summons/internal/pkg/logger"
	"github.com/google/uuid"
)

type Promotion struct {
	Entry domain.WaitlistEntry
	RSVP  domain.RSVP
}

type RemovalOutcome struct {
	Removed  domain.RSVP
	Promoted *Promotion
	// Stats reflect the event after the removal and any promotion.
	Stats    domain.EventStats
	Warnings []string
}

// RemoveConfirmedGuest deletes a confirmed RSVP and backfills the seat from
// the head of the waitlist. Everything happens under the event lock, so a
// failed promotion leaves the removed guest in place. Quotas are not
// re-checked for the promoted guest.
func (s *RSVPService) RemoveConfirmedGuest(ctx context.Context, traceID string, eventID, rsvpID uuid.UUID) (RemovalOutcome, error) {
	var (
		out RemovalOutcome
		ev  domain.Event
	)
	err := s.store.WithinEvent(ctx, traceID, eventID, func(ctx context.Context, tx domain.Tx) error {
		var err error
		ev, err = tx.GetEvent(ctx, eventID)
		if err != nil {
			return err
		}

		target, err := findRSVP(ctx, tx, eventID, rsvpID)
		if err != nil {
			return err
		}
		if target.Status != domain.RSVPYes {
			return domain.ErrNotConfirmed
		}

		out.Removed, err = tx.DeleteRSVP(ctx, eventID, rsvpID)
		if err != nil {
			return err
		}
		err = tx.RecordEvent(ctx, domain.OutboxMessage{
			RoutingKey: event.RoutingGuestRemoved,
			Payload: event.RSVPPayload{
				EventID: eventID.String(),
				RSVPID:  rsvpID.String(),
				Status:  string(out.Removed.Status),
				Gender:  string(out.Removed.Gender),
			},
		})
		if err != nil {
			return err
		}

		if ev.Status != domain.EventCancelled {
			out.Promoted, err = s.promoteNext(ctx, tx, eventID, rsvpID)
			if err != nil {
				return err
			}
		}

		// read under the lock: once committed, the removal must not be
		// reported as a failure
		out.Stats, err = readStats(ctx, tx, eventID)
		return err
	})
	if err != nil {
		return RemovalOutcome{}, err
	}

	s.audit.GuestRemoved(ctx, out.Removed)
	metrics.RecordGuestRemoval(out.Promoted != nil)
	if p := out.Promoted; p != nil {
		s.audit.Promoted(ctx, p.Entry, p.RSVP)
		metrics.RecordRSVP(string(p.RSVP.Status))
		if !s.confirm(ctx, ev, p.RSVP.Name, p.RSVP.Email, notify.ConfirmAttending) {
			out.Warnings = append(out.Warnings, WarnEmailNotSent)
		}
	}

	return out, nil
}

// promoteNext confirms the head of the queue. An entry whose email already
// has a response cannot become an RSVP; it is dropped and the next one tried.
func (s *RSVPService) promoteNext(ctx context.Context, tx domain.Tx, eventID, removedID uuid.UUID) (*Promotion, error) {
	for {
		entry, ok, err := s.waitlist.PeekNext(ctx, tx, eventID)
		if err != nil || !ok {
			return nil, err
		}

		r, err := tx.InsertRSVP(ctx, domain.PromotionOf(entry))
		if errors.Is(err, domain.ErrAlreadyResponded) {
			logger.WithCtx(ctx).Warn().
				Str("event_id", eventID.String()).
				Str("entry_id", entry.ID.String()).
				Msg("dropping waitlist entry that already has a response")
			if _, err := s.waitlist.Remove(ctx, tx, eventID, entry.ID); err != nil {
				return nil, err
			}
			continue
		}
		if err != nil {
			return nil, err
		}

		if _, err := s.waitlist.Remove(ctx, tx, eventID, entry.ID); err != nil {
			return nil, err
		}
		err = tx.RecordEvent(ctx, domain.OutboxMessage{
			RoutingKey: event.RoutingPromoted,
			Payload: event.PromotionPayload{
				EventID:        eventID.String(),
				RemovedRSVPID:  removedID.String(),
				EntryID:        entry.ID.String(),
				PromotedRSVPID: r.ID.String(),
			},
		})
		if err != nil {
			return nil, err
		}
		return &Promotion{Entry: entry, RSVP: r}, nil
	}
}

// RemoveWaitlistEntry is the host withdrawing someone from the queue. No
// promotion follows.
func (s *RSVPService) RemoveWaitlistEntry(ctx context.Context, traceID string, eventID, entryID uuid.UUID) (domain.WaitlistEntry, error) {
	var removed domain.WaitlistEntry
	err := s.store.WithinEvent(ctx, traceID, eventID, func(ctx context.Context, tx domain.Tx) error {
		var err error
		removed, err = s.waitlist.Remove(ctx, tx, eventID, entryID)
		if err != nil {
			return err
		}
		return tx.RecordEvent(ctx, domain.OutboxMessage{
			RoutingKey: event.RoutingWaitlistLeft,
			Payload:    event.WaitlistPayload{EventID: eventID.String(), EntryID: entryID.String(), Gender: string(removed.Gender)},
		})
	})
	if err != nil {
		return domain.WaitlistEntry{}, err
	}
	s.audit.WaitlistRemoved(ctx, removed)
	return removed, nil
}

func findRSVP(ctx context.Context, tx domain.Tx, eventID, rsvpID uuid.UUID) (domain.RSVP, error) {
	rows, err := tx.ListRSVPs(ctx, eventID, domain.RSVPFilter{})
	if err != nil {
		return domain.RSVP{}, err
	}
	for _, r := range rows {
		if r.ID == rsvpID {
			return r, nil
		}
	}
	return domain.RSVP{}, domain.ErrRSVPNotFound
}
