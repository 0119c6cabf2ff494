package postgres

import (
	"context"
	"errors"

	"github.com/baechuer/summons/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const eventColumns = `
	id, title, description, event_date, start_time, end_time, location,
	unlimited_guests, guest_limit, use_ratio_control, male_ratio,
	rsvp_deadline, status, host_email, image_url, created_at, updated_at`

func scanEvent(row pgx.Row) (domain.Event, error) {
	var (
		ev        domain.Event
		status    string
		hostEmail *string
		imageURL  *string
	)
	err := row.Scan(
		&ev.ID, &ev.Title, &ev.Description, &ev.Date, &ev.StartTime, &ev.EndTime, &ev.Location,
		&ev.Unlimited, &ev.GuestLimit, &ev.RatioControl, &ev.MaleRatio,
		&ev.RSVPDeadline, &status, &hostEmail, &imageURL, &ev.CreatedAt, &ev.UpdatedAt,
	)
	if err != nil {
		return domain.Event{}, err
	}
	ev.Status = domain.EventStatus(status)
	ev.HostEmail = derefString(hostEmail)
	ev.ImageURL = derefString(imageURL)
	return ev, nil
}

func (q *queries) GetEvent(ctx context.Context, eventID uuid.UUID) (domain.Event, error) {
	ev, err := scanEvent(q.db.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, eventID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Event{}, domain.ErrEventNotFound
		}
		return domain.Event{}, err
	}
	return ev, nil
}

func (q *queries) UpdateEvent(ctx context.Context, ev domain.Event) error {
	tag, err := q.db.Exec(ctx, `
		UPDATE events
		SET title = $2,
		    description = $3,
		    event_date = $4,
		    start_time = $5,
		    end_time = $6,
		    location = $7,
		    unlimited_guests = $8,
		    guest_limit = $9,
		    use_ratio_control = $10,
		    male_ratio = $11,
		    rsvp_deadline = $12,
		    status = $13,
		    host_email = $14,
		    image_url = $15,
		    updated_at = $16
		WHERE id = $1
	`,
		ev.ID, ev.Title, ev.Description, ev.Date, ev.StartTime, ev.EndTime, ev.Location,
		ev.Unlimited, ev.GuestLimit, ev.RatioControl, ev.MaleRatio,
		ev.RSVPDeadline, string(ev.Status), nullIfEmpty(ev.HostEmail), nullIfEmpty(ev.ImageURL),
		ev.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrEventNotFound
	}
	return nil
}

// eventStatus is the storage-level gate for new guest rows.
func (q *queries) eventStatus(ctx context.Context, eventID uuid.UUID) (domain.EventStatus, error) {
	var status string
	err := q.db.QueryRow(ctx, `SELECT status FROM events WHERE id = $1`, eventID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrEventNotFound
		}
		return "", err
	}
	return domain.EventStatus(status), nil
}
