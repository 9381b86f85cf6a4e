package database

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"villaalcielo/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Racing overlapping creations must serialize through the insert
// transaction: exactly one commits, the rest see ErrNotAvailable.
func TestConcurrentOverlappingCreations(t *testing.T) {
	db := testDB(t)
	cabin := seedCabin(t, db, "Cielo")
	ctx := context.Background()

	const goroutines = 10
	var wg sync.WaitGroup
	errs := make([]error, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r := newReservation(cabin.ID, fmt.Sprintf("CODE%02d", i), d(10), d(15))
			errs[i] = db.CreateReservationWithLock(ctx, r)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.True(t, errors.Is(err, ErrNotAvailable), "unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one overlapping creation may win")

	rows, err := db.ListActiveReservations(ctx, cabin.ID, models.DateRange{CheckIn: d(10), CheckOut: d(15)})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

// The confirm/expire race resolves to whichever guarded update runs first.
func TestConcurrentConfirmAndExpire(t *testing.T) {
	db := testDB(t)
	cabin := seedCabin(t, db, "Cielo")
	ctx := context.Background()

	r := newReservation(cabin.ID, "AAAAAA", d(10), d(15))
	require.NoError(t, db.CreateReservationWithLock(ctx, r))

	var wg sync.WaitGroup
	var confirmOK, expireOK bool
	var confirmErr, expireErr error

	wg.Add(2)
	go func() {
		defer wg.Done()
		confirmOK, confirmErr = db.UpdateReservationStatus(ctx, r.ID, []string{models.StatusPending}, models.StatusConfirmed)
	}()
	go func() {
		defer wg.Done()
		expireOK, expireErr = db.UpdateReservationStatus(ctx, r.ID, []string{models.StatusPending}, models.StatusExpired)
	}()
	wg.Wait()

	require.NoError(t, confirmErr)
	require.NoError(t, expireErr)
	assert.NotEqual(t, confirmOK, expireOK, "exactly one transition wins")

	got, err := db.GetReservation(ctx, r.ID)
	require.NoError(t, err)
	if confirmOK {
		assert.Equal(t, models.StatusConfirmed, got.Status)
	} else {
		assert.Equal(t, models.StatusExpired, got.Status)
	}
}
