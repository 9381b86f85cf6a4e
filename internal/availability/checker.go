// Package availability decides whether a date range can be booked on a
// cabin. Only pending and confirmed reservations block; cancelled and
// expired ones never do. The check is cabin-scoped: the same dates may be
// free on another cabin.
package availability

import (
	"context"
	"fmt"
	"time"

	"villaalcielo/internal/models"
)

// Reader is the slice of the repository this package needs.
type Reader interface {
	ListActiveReservations(ctx context.Context, cabinID int64, rng models.DateRange) ([]*models.Reservation, error)
}

type Checker struct {
	repo Reader
}

func NewChecker(repo Reader) *Checker {
	return &Checker{repo: repo}
}

// ConflictingReservations returns the active reservations of the cabin
// whose ranges overlap [checkIn, checkOut). A reservation checking out on
// the requested check-in day does not conflict.
func (c *Checker) ConflictingReservations(ctx context.Context, cabinID int64, checkIn, checkOut time.Time) ([]*models.Reservation, error) {
	rng := models.DateRange{CheckIn: checkIn, CheckOut: checkOut}

	candidates, err := c.repo.ListActiveReservations(ctx, cabinID, rng)
	if err != nil {
		return nil, fmt.Errorf("failed to load reservations: %w", err)
	}

	// The repository already filters by the overlap condition; re-apply it
	// here so the law does not silently depend on a query detail.
	conflicts := make([]*models.Reservation, 0, len(candidates))
	for _, r := range candidates {
		if r.IsActive() && r.Range().Overlaps(rng) {
			conflicts = append(conflicts, r)
		}
	}
	return conflicts, nil
}

// IsAvailable reports whether the range can be booked on the cabin.
// excludeReservationID, when non-zero, skips that reservation so an edit or
// re-quote flow does not collide with itself.
func (c *Checker) IsAvailable(ctx context.Context, cabinID int64, checkIn, checkOut time.Time, excludeReservationID int64) (bool, error) {
	conflicts, err := c.ConflictingReservations(ctx, cabinID, checkIn, checkOut)
	if err != nil {
		return false, err
	}

	for _, r := range conflicts {
		if excludeReservationID != 0 && r.ID == excludeReservationID {
			continue
		}
		return false, nil
	}
	return true, nil
}
