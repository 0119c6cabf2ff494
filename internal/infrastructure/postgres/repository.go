package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/baechuer/summons/internal/contracts/event"
	"github.com/baechuer/summons/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const producerName = "invite-service"

// dbtx is satisfied by both *pgxpool.Pool and pgx.Tx.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// queries implements domain.Tx over either the pool or a live transaction.
type queries struct {
	db      dbtx
	traceID string
}

type Repository struct {
	queries
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{queries: queries{db: pool}, pool: pool}
}

var _ domain.Store = (*Repository)(nil)

// -------------------------
// Lock policy:
// Every guest-list write for an event runs inside WithinEvent, which takes
//   1) events row (FOR UPDATE)
// before touching rsvps / waitlist rows of that event. Promotion, RSVP and
// waitlist writes therefore never interleave for the same event_id.
// -------------------------

func (r *Repository) WithinEvent(ctx context.Context, traceID string, eventID uuid.UUID, fn func(ctx context.Context, tx domain.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var locked uuid.UUID
	err = tx.QueryRow(ctx, `SELECT id FROM events WHERE id = $1 FOR UPDATE`, eventID).Scan(&locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrEventNotFound
		}
		return err
	}

	if err := fn(ctx, &queries{db: tx, traceID: strings.TrimSpace(traceID)}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repository) CreateEvent(ctx context.Context, traceID string, ev domain.Event, msgs ...domain.OutboxMessage) (domain.Event, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.Event{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO events (
			id, title, description, event_date, start_time, end_time, location,
			unlimited_guests, guest_limit, use_ratio_control, male_ratio,
			rsvp_deadline, status, host_email, image_url, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
	`,
		ev.ID, ev.Title, ev.Description, ev.Date, ev.StartTime, ev.EndTime, ev.Location,
		ev.Unlimited, ev.GuestLimit, ev.RatioControl, ev.MaleRatio,
		ev.RSVPDeadline, string(ev.Status), nullIfEmpty(ev.HostEmail), nullIfEmpty(ev.ImageURL),
		ev.CreatedAt, ev.UpdatedAt,
	)
	if err != nil {
		return domain.Event{}, err
	}

	q := &queries{db: tx, traceID: strings.TrimSpace(traceID)}
	for _, m := range msgs {
		if err := q.RecordEvent(ctx, m); err != nil {
			return domain.Event{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Event{}, err
	}
	return ev, nil
}

func (q *queries) RecordEvent(ctx context.Context, msg domain.OutboxMessage) error {
	messageID := uuid.New()
	body, err := json.Marshal(event.DomainEventEnvelope[any]{
		Version:    1,
		Producer:   producerName,
		TraceID:    q.traceID,
		MessageID:  messageID.String(),
		OccurredAt: time.Now().UTC(),
		Payload:    msg.Payload,
	})
	if err != nil {
		return err
	}
	_, err = q.db.Exec(ctx,
		`INSERT INTO outbox (message_id, trace_id, routing_key, payload, occurred_at, status) VALUES ($1, $2, $3, $4, NOW(), 'pending')`,
		messageID, q.traceID, msg.RoutingKey, body,
	)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func nullIfEmpty(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
