package domain

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

const placeholderDomain = "placeholder.com"

// SortWaitlist orders entries FIFO: created_at ascending, id as tiebreak.
func SortWaitlist(entries []WaitlistEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return bytes.Compare(a.ID[:], b.ID[:]) < 0
	})
}

// NextEntry returns the head of the queue without modifying it.
func NextEntry(entries []WaitlistEntry) (WaitlistEntry, bool) {
	if len(entries) == 0 {
		return WaitlistEntry{}, false
	}
	head := entries[0]
	for _, e := range entries[1:] {
		if e.CreatedAt.Before(head.CreatedAt) ||
			(e.CreatedAt.Equal(head.CreatedAt) && bytes.Compare(e.ID[:], head.ID[:]) < 0) {
			head = e
		}
	}
	return head, true
}

func PlaceholderEmail(entryID uuid.UUID) string {
	return fmt.Sprintf("waitlist-%s@%s", entryID, placeholderDomain)
}

// IsPlaceholderEmail matches only addresses minted by PlaceholderEmail; a
// real guest on the same domain is still mailed.
func IsPlaceholderEmail(email string) bool {
	local, ok := strings.CutSuffix(strings.ToLower(strings.TrimSpace(email)), "@"+placeholderDomain)
	if !ok {
		return false
	}
	id, ok := strings.CutPrefix(local, "waitlist-")
	if !ok {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil && len(id) == 36
}

// PromotionOf converts a waitlist entry into a confirmed RSVP. The result
// carries no CapacityGuard.
func PromotionOf(e WaitlistEntry) NewRSVP {
	email := e.Email
	if strings.TrimSpace(email) == "" {
		email = PlaceholderEmail(e.ID)
	}
	return NewRSVP{
		EventID: e.EventID,
		Name:    e.Name,
		Email:   email,
		Gender:  e.Gender,
		Status:  RSVPYes,
	}
}
