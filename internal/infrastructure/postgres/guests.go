package postgres

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/baechuer/summons/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const rsvpColumns = `id, event_id, attendee_name, attendee_email, gender, status, created_at`

func scanRSVP(row pgx.Row) (domain.RSVP, error) {
	var (
		r      domain.RSVP
		gender string
		status string
	)
	if err := row.Scan(&r.ID, &r.EventID, &r.Name, &r.Email, &gender, &status, &r.CreatedAt); err != nil {
		return domain.RSVP{}, err
	}
	r.Gender = domain.Gender(gender)
	r.Status = domain.RSVPStatus(status)
	return r, nil
}

func (q *queries) ListRSVPs(ctx context.Context, eventID uuid.UUID, filter domain.RSVPFilter) ([]domain.RSVP, error) {
	where := []string{"event_id = $1"}
	args := []any{eventID}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, "status = $"+strconv.Itoa(len(args)))
	}
	if filter.Gender != "" {
		args = append(args, string(filter.Gender))
		where = append(where, "gender = $"+strconv.Itoa(len(args)))
	}

	rows, err := q.db.Query(ctx, `
		SELECT `+rsvpColumns+`
		FROM rsvps
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY created_at ASC, id ASC
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.RSVP, 0)
	for rows.Next() {
		r, err := scanRSVP(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// InsertRSVP is a conditional write when in.Guard is set: the capacity
// predicate is evaluated by the same statement that inserts the row.
func (q *queries) InsertRSVP(ctx context.Context, in domain.NewRSVP) (domain.RSVP, error) {
	status, err := q.eventStatus(ctx, in.EventID)
	if err != nil {
		return domain.RSVP{}, err
	}
	if status != domain.EventOpen {
		return domain.RSVP{}, domain.ErrEventClosed
	}

	// Checked up front: a unique violation would abort the surrounding tx.
	var dup bool
	err = q.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM rsvps WHERE event_id = $1 AND lower(attendee_email) = lower($2))
	`, in.EventID, in.Email).Scan(&dup)
	if err != nil {
		return domain.RSVP{}, err
	}
	if dup {
		return domain.RSVP{}, domain.ErrAlreadyResponded
	}

	guarded := in.Guard != nil && in.Status == domain.RSVPYes
	var (
		limit       int
		guardGender string
		genderLimit int
	)
	if guarded {
		limit = in.Guard.Limit
		guardGender = string(in.Guard.Gender)
		genderLimit = in.Guard.GenderLimit
	}

	r := domain.RSVP{
		ID:      uuid.New(),
		EventID: in.EventID,
		Name:    in.Name,
		Email:   in.Email,
		Gender:  in.Gender,
		Status:  in.Status,
	}
	err = q.db.QueryRow(ctx, `
		INSERT INTO rsvps (id, event_id, attendee_name, attendee_email, gender, status)
		SELECT $1, $2, $3, $4, $5, $6
		WHERE NOT $7::boolean OR (
			WITH c AS (
				SELECT count(*) AS total,
				       count(*) FILTER (WHERE gender = $8::text) AS same,
				       count(*) FILTER (WHERE gender NOT IN ('male', 'female')) AS other
				FROM rsvps
				WHERE event_id = $2 AND status = 'yes'
			)
			SELECT CASE
				WHEN $8::text = '' THEN c.total < $9::int
				ELSE c.same < $10::int AND (c.other = 0 OR c.total < $9::int)
			END
			FROM c
		)
		RETURNING created_at
	`,
		r.ID, r.EventID, r.Name, r.Email, string(r.Gender), string(r.Status),
		guarded, guardGender, limit, genderLimit,
	).Scan(&r.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.RSVP{}, domain.ErrCapacityExceeded
		}
		if isUniqueViolation(err) {
			return domain.RSVP{}, domain.ErrAlreadyResponded
		}
		return domain.RSVP{}, err
	}
	return r, nil
}

func (q *queries) DeleteRSVP(ctx context.Context, eventID, rsvpID uuid.UUID) (domain.RSVP, error) {
	r, err := scanRSVP(q.db.QueryRow(ctx, `
		DELETE FROM rsvps
		WHERE id = $1 AND event_id = $2
		RETURNING `+rsvpColumns, rsvpID, eventID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.RSVP{}, domain.ErrRSVPNotFound
		}
		return domain.RSVP{}, err
	}
	return r, nil
}

const waitlistColumns = `id, event_id, attendee_name, attendee_email, gender, created_at`

func scanWaitlistEntry(row pgx.Row) (domain.WaitlistEntry, error) {
	var (
		e      domain.WaitlistEntry
		email  *string
		gender string
	)
	if err := row.Scan(&e.ID, &e.EventID, &e.Name, &email, &gender, &e.CreatedAt); err != nil {
		return domain.WaitlistEntry{}, err
	}
	e.Email = derefString(email)
	e.Gender = domain.Gender(gender)
	return e, nil
}

func (q *queries) ListWaitlist(ctx context.Context, eventID uuid.UUID) ([]domain.WaitlistEntry, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+waitlistColumns+`
		FROM waitlist
		WHERE event_id = $1
		ORDER BY created_at ASC, id ASC
	`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.WaitlistEntry, 0)
	for rows.Next() {
		e, err := scanWaitlistEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (q *queries) InsertWaitlistEntry(ctx context.Context, in domain.NewWaitlistEntry) (domain.WaitlistEntry, error) {
	status, err := q.eventStatus(ctx, in.EventID)
	if err != nil {
		return domain.WaitlistEntry{}, err
	}
	if status != domain.EventOpen {
		return domain.WaitlistEntry{}, domain.ErrEventClosed
	}

	e := domain.WaitlistEntry{
		ID:      uuid.New(),
		EventID: in.EventID,
		Name:    in.Name,
		Email:   in.Email,
		Gender:  in.Gender,
	}
	err = q.db.QueryRow(ctx, `
		INSERT INTO waitlist (id, event_id, attendee_name, attendee_email, gender)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, e.ID, e.EventID, e.Name, nullIfEmpty(e.Email), string(e.Gender)).Scan(&e.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.WaitlistEntry{}, domain.ErrAlreadyWaitlisted
		}
		return domain.WaitlistEntry{}, err
	}
	return e, nil
}

func (q *queries) DeleteWaitlistEntry(ctx context.Context, eventID, entryID uuid.UUID) (domain.WaitlistEntry, error) {
	e, err := scanWaitlistEntry(q.db.QueryRow(ctx, `
		DELETE FROM waitlist
		WHERE id = $1 AND event_id = $2
		RETURNING `+waitlistColumns, entryID, eventID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.WaitlistEntry{}, domain.ErrWaitlistEntryNotFound
		}
		return domain.WaitlistEntry{}, err
	}
	return e, nil
}
