package service

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/baechuer/summons/internal/contracts/event"
	"github.com/baechuer/summons/internal/domain"
	"github.com/baechuer/summons/internal/metrics"
	"github.com/baechuer/summons/internal/notify"
	"github.com/baechuer/summons/internal/pkg/logger"
	"github.com/google/uuid"
)

type ImageUpload struct {
	Body        io.Reader
	ContentType string
	Size        int64
}

type CreateEventResult struct {
	Event    domain.Event
	Warnings []string
}

// CreateEvent stores a new event. A failed image upload or host email does
// not fail creation; both surface as warnings.
func (s *RSVPService) CreateEvent(ctx context.Context, traceID string, in domain.EventInput, img *ImageUpload) (CreateEventResult, error) {
	ev, err := domain.NewEvent(in, s.now())
	if err != nil {
		return CreateEventResult{}, err
	}

	var res CreateEventResult
	if img != nil {
		url, err := s.uploadImage(ctx, ev.ID, img)
		if err != nil {
			logger.WithCtx(ctx).Warn().Err(err).Str("event_id", ev.ID.String()).Msg("event image upload failed")
			res.Warnings = append(res.Warnings, WarnImageUploadFailed)
		} else {
			ev.ImageURL = url
		}
	}

	ev, err = s.store.CreateEvent(ctx, traceID, ev, eventMessage(event.RoutingEventCreated, ev))
	if err != nil {
		return CreateEventResult{}, err
	}
	res.Event = ev

	s.audit.EventCreated(ctx, ev)
	s.cacheStatus(ctx, ev)

	if ev.HostEmail != "" && s.notifier != nil {
		if err := s.notifier.EventDetails(ctx, ev); err != nil && !errors.Is(err, notify.ErrSkipped) {
			logger.WithCtx(ctx).Warn().Err(err).Str("event_id", ev.ID.String()).Msg("event details email not sent")
			res.Warnings = append(res.Warnings, WarnEmailNotSent)
		}
	}
	return res, nil
}

func (s *RSVPService) uploadImage(ctx context.Context, eventID uuid.UUID, img *ImageUpload) (string, error) {
	if s.images == nil {
		metrics.RecordImageUpload(false)
		return "", errors.New("image storage is not configured")
	}
	url, err := s.images.UploadEventImage(ctx, eventID, img.Body, img.ContentType, img.Size)
	metrics.RecordImageUpload(err == nil)
	return url, err
}

// UpdateEvent applies a host edit. Confirmed guests are never evicted when
// the limit is lowered.
func (s *RSVPService) UpdateEvent(ctx context.Context, traceID string, eventID uuid.UUID, patch domain.EventPatch) (domain.Event, error) {
	var updated domain.Event
	err := s.store.WithinEvent(ctx, traceID, eventID, func(ctx context.Context, tx domain.Tx) error {
		ev, err := tx.GetEvent(ctx, eventID)
		if err != nil {
			return err
		}
		updated, err = ev.ApplyUpdate(patch, s.now())
		if err != nil {
			return err
		}
		if err := tx.UpdateEvent(ctx, updated); err != nil {
			return err
		}
		return tx.RecordEvent(ctx, eventMessage(event.RoutingEventUpdated, updated))
	})
	if err != nil {
		return domain.Event{}, err
	}
	s.audit.EventUpdated(ctx, updated)
	return updated, nil
}

func (s *RSVPService) CancelEvent(ctx context.Context, traceID string, eventID uuid.UUID) (domain.Event, error) {
	var cancelled domain.Event
	err := s.store.WithinEvent(ctx, traceID, eventID, func(ctx context.Context, tx domain.Tx) error {
		ev, err := tx.GetEvent(ctx, eventID)
		if err != nil {
			return err
		}
		cancelled, err = ev.Cancel(s.now())
		if err != nil {
			return err
		}
		if err := tx.UpdateEvent(ctx, cancelled); err != nil {
			return err
		}
		return tx.RecordEvent(ctx, eventMessage(event.RoutingEventCancelled, cancelled))
	})
	if err != nil {
		return domain.Event{}, err
	}
	s.audit.EventCancelled(ctx, cancelled)
	s.cacheStatus(ctx, cancelled)
	return cancelled, nil
}

func (s *RSVPService) GetEvent(ctx context.Context, eventID uuid.UUID) (domain.Event, error) {
	return s.store.GetEvent(ctx, eventID)
}

func (s *RSVPService) GetStats(ctx context.Context, eventID uuid.UUID) (domain.EventStats, error) {
	return readStats(ctx, s.store, eventID)
}

// readStats works against the store or a live tx; under WithinEvent it sees
// the event as the caller left it.
func readStats(ctx context.Context, tx domain.Tx, eventID uuid.UUID) (domain.EventStats, error) {
	ev, err := tx.GetEvent(ctx, eventID)
	if err != nil {
		return domain.EventStats{}, err
	}
	rsvps, err := tx.ListRSVPs(ctx, eventID, domain.RSVPFilter{})
	if err != nil {
		return domain.EventStats{}, err
	}
	wl, err := tx.ListWaitlist(ctx, eventID)
	if err != nil {
		return domain.EventStats{}, err
	}
	return domain.ComputeStats(ev, rsvps, len(wl)), nil
}

// ListRSVPs is the host view, emails included.
func (s *RSVPService) ListRSVPs(ctx context.Context, eventID uuid.UUID, filter domain.RSVPFilter) ([]domain.RSVP, error) {
	if _, err := s.store.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}
	return s.store.ListRSVPs(ctx, eventID, filter)
}

// PublicRSVP is what other guests may see.
type PublicRSVP struct {
	Name      string
	Gender    domain.Gender
	Status    domain.RSVPStatus
	CreatedAt time.Time
}

// ListPublicRSVPs returns confirmed guests without contact details.
func (s *RSVPService) ListPublicRSVPs(ctx context.Context, eventID uuid.UUID) ([]PublicRSVP, error) {
	rows, err := s.ListRSVPs(ctx, eventID, domain.RSVPFilter{Status: domain.RSVPYes})
	if err != nil {
		return nil, err
	}
	out := make([]PublicRSVP, 0, len(rows))
	for _, r := range rows {
		out = append(out, PublicRSVP{Name: r.Name, Gender: r.Gender, Status: r.Status, CreatedAt: r.CreatedAt})
	}
	return out, nil
}

func (s *RSVPService) ListWaitlist(ctx context.Context, eventID uuid.UUID) ([]domain.WaitlistEntry, error) {
	if _, err := s.store.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}
	entries, err := s.store.ListWaitlist(ctx, eventID)
	if err != nil {
		return nil, err
	}
	domain.SortWaitlist(entries)
	return entries, nil
}

func eventMessage(routingKey string, ev domain.Event) domain.OutboxMessage {
	return domain.OutboxMessage{
		RoutingKey: routingKey,
		Payload: event.EventChangedPayload{
			EventID:    ev.ID.String(),
			Status:     string(ev.Status),
			Unlimited:  ev.Unlimited,
			GuestLimit: ev.GuestLimit,
		},
	}
}
