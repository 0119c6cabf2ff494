package service

import (
	"context"

	"github.com/baechuer/summons/internal/domain"
	"github.com/google/uuid"
)

// WaitlistManager holds the FIFO queue operations. Callers run them inside
// Store.WithinEvent so peek and remove see the same queue.
type WaitlistManager struct{}

func (WaitlistManager) Enqueue(ctx context.Context, tx domain.Tx, in domain.NewWaitlistEntry) (domain.WaitlistEntry, error) {
	return tx.InsertWaitlistEntry(ctx, in)
}

// PeekNext returns the earliest entry without removing it.
func (WaitlistManager) PeekNext(ctx context.Context, tx domain.Tx, eventID uuid.UUID) (domain.WaitlistEntry, bool, error) {
	entries, err := tx.ListWaitlist(ctx, eventID)
	if err != nil {
		return domain.WaitlistEntry{}, false, err
	}
	domain.SortWaitlist(entries)
	e, ok := domain.NextEntry(entries)
	return e, ok, nil
}

func (WaitlistManager) Remove(ctx context.Context, tx domain.Tx, eventID, entryID uuid.UUID) (domain.WaitlistEntry, error) {
	return tx.DeleteWaitlistEntry(ctx, eventID, entryID)
}
