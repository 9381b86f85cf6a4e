package availability

import (
	"context"
	"testing"
	"time"

	"villaalcielo/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubReader struct {
	reservations []*models.Reservation
}

func (s *stubReader) ListActiveReservations(_ context.Context, cabinID int64, rng models.DateRange) ([]*models.Reservation, error) {
	var out []*models.Reservation
	for _, r := range s.reservations {
		if r.CabinID == cabinID && r.IsActive() && r.Range().Overlaps(rng) {
			out = append(out, r)
		}
	}
	return out, nil
}

func day(d int) time.Time {
	return time.Date(2025, time.June, d, 0, 0, 0, 0, time.UTC)
}

func reservation(id, cabinID int64, checkIn, checkOut time.Time, status string) *models.Reservation {
	return &models.Reservation{ID: id, CabinID: cabinID, CheckIn: checkIn, CheckOut: checkOut, Status: status}
}

func TestIsAvailableOverlapLaw(t *testing.T) {
	existing := reservation(1, 1, day(10), day(15), models.StatusConfirmed)
	checker := NewChecker(&stubReader{reservations: []*models.Reservation{existing}})
	ctx := context.Background()

	cases := []struct {
		name     string
		checkIn  int
		checkOut int
		want     bool
	}{
		{"identical range", 10, 15, false},
		{"contained", 11, 13, false},
		{"straddles start", 8, 11, false},
		{"straddles end", 14, 18, false},
		{"covers fully", 8, 18, false},
		{"same-day turnover at checkout", 15, 18, true},
		{"same-day turnover at checkin", 7, 10, true},
		{"fully before", 2, 5, true},
		{"fully after", 20, 22, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := checker.IsAvailable(ctx, 1, day(tc.checkIn), day(tc.checkOut), 0)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestInactiveReservationsDoNotBlock(t *testing.T) {
	checker := NewChecker(&stubReader{reservations: []*models.Reservation{
		reservation(1, 1, day(10), day(15), models.StatusCancelled),
		reservation(2, 1, day(10), day(15), models.StatusExpired),
	}})

	available, err := checker.IsAvailable(context.Background(), 1, day(10), day(15), 0)
	require.NoError(t, err)
	assert.True(t, available)
}

func TestCheckIsCabinScoped(t *testing.T) {
	checker := NewChecker(&stubReader{reservations: []*models.Reservation{
		reservation(1, 1, day(10), day(15), models.StatusConfirmed),
	}})
	ctx := context.Background()

	available, err := checker.IsAvailable(ctx, 2, day(10), day(15), 0)
	require.NoError(t, err)
	assert.True(t, available, "same dates must be bookable on another cabin")
}

func TestExcludeReservationID(t *testing.T) {
	checker := NewChecker(&stubReader{reservations: []*models.Reservation{
		reservation(7, 1, day(10), day(15), models.StatusPending),
	}})
	ctx := context.Background()

	available, err := checker.IsAvailable(ctx, 1, day(12), day(16), 7)
	require.NoError(t, err)
	assert.True(t, available, "a reservation must not conflict with itself during re-quote")

	available, err = checker.IsAvailable(ctx, 1, day(12), day(16), 0)
	require.NoError(t, err)
	assert.False(t, available)
}

func TestConflictingReservationsReturned(t *testing.T) {
	first := reservation(1, 1, day(10), day(12), models.StatusPending)
	second := reservation(2, 1, day(14), day(16), models.StatusConfirmed)
	checker := NewChecker(&stubReader{reservations: []*models.Reservation{first, second}})

	conflicts, err := checker.ConflictingReservations(context.Background(), 1, day(11), day(15))
	require.NoError(t, err)
	require.Len(t, conflicts, 2)
	assert.Equal(t, int64(1), conflicts[0].ID)
	assert.Equal(t, int64(2), conflicts[1].ID)
}
