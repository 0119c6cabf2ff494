package service

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/baechuer/summons/internal/audit"
	"github.com/baechuer/summons/internal/domain"
	"github.com/baechuer/summons/internal/notify"
	"github.com/baechuer/summons/internal/pkg/logger"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Non-fatal collaborator failures reported alongside a successful result.
const (
	WarnImageUploadFailed = "image_upload_failed"
	WarnEmailNotSent      = "email_not_sent"
)

type ImageStore interface {
	UploadEventImage(ctx context.Context, eventID uuid.UUID, data io.Reader, contentType string, size int64) (string, error)
}

type Notifier interface {
	EventDetails(ctx context.Context, ev domain.Event) error
	RSVPConfirmation(ctx context.Context, ev domain.Event, name, email string, kind notify.ConfirmationKind) error
}

// Deps are the optional collaborators. Any of them may be nil.
type Deps struct {
	Cache    domain.CacheRepository
	Notifier Notifier
	Images   ImageStore
	Audit    *audit.Logger
	Now      func() time.Time
}

type RSVPService struct {
	store    domain.Store
	cache    domain.CacheRepository
	notifier Notifier
	images   ImageStore
	audit    *audit.Logger
	now      func() time.Time
	waitlist WaitlistManager
}

func New(store domain.Store, deps Deps) *RSVPService {
	s := &RSVPService{
		store:    store,
		cache:    deps.Cache,
		notifier: deps.Notifier,
		images:   deps.Images,
		audit:    deps.Audit,
		now:      deps.Now,
	}
	if s.audit == nil {
		s.audit = audit.New(zerolog.Nop())
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Waitlist exposes the queue primitives used by the guest flows.
func (s *RSVPService) Waitlist() WaitlistManager { return s.waitlist }

// closedFastFail rejects writes for events the cache already knows are
// cancelled. Cache errors are ignored; the store re-checks.
func (s *RSVPService) closedFastFail(ctx context.Context, eventID uuid.UUID) error {
	if s.cache == nil {
		return nil
	}
	status, err := s.cache.GetEventStatus(ctx, eventID)
	if err != nil {
		if !errors.Is(err, domain.ErrCacheMiss) {
			logger.WithCtx(ctx).Debug().Err(err).Msg("event status cache unavailable")
		}
		return nil
	}
	if status == domain.EventCancelled {
		return domain.ErrEventClosed
	}
	return nil
}

func (s *RSVPService) cacheStatus(ctx context.Context, ev domain.Event) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetEventStatus(ctx, ev.ID, ev.Status); err != nil {
		logger.WithCtx(ctx).Warn().Err(err).Str("event_id", ev.ID.String()).Msg("failed to cache event status")
	}
}

// confirm sends a guest email and reports whether a warning is due.
func (s *RSVPService) confirm(ctx context.Context, ev domain.Event, name, email string, kind notify.ConfirmationKind) bool {
	if s.notifier == nil {
		return true
	}
	err := s.notifier.RSVPConfirmation(ctx, ev, name, email, kind)
	if err == nil || errors.Is(err, notify.ErrSkipped) {
		return true
	}
	logger.WithCtx(ctx).Warn().Err(err).Str("event_id", ev.ID.String()).Msg("rsvp confirmation not sent")
	return false
}
