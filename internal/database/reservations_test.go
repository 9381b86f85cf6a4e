package database

import (
	"context"
	"io"
	"testing"
	"time"

	"villaalcielo/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	logger := zerolog.New(io.Discard)
	db, err := NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seedCabin(t *testing.T, db *DB, name string) *models.Cabin {
	t.Helper()
	cabin := &models.Cabin{
		Name:         name,
		WeekdayPrice: 200000,
		WeekendPrice: 390000,
		MaxGuests:    2,
		IsActive:     true,
	}
	require.NoError(t, db.CreateCabin(context.Background(), cabin))
	return cabin
}

func newReservation(cabinID int64, code string, checkIn, checkOut time.Time) *models.Reservation {
	return &models.Reservation{
		CabinID:             cabinID,
		GuestName:           "Laura Gomez",
		GuestEmail:          "laura@example.com",
		CheckIn:             checkIn,
		CheckOut:            checkOut,
		Guests:              2,
		TotalPrice:          780000,
		Status:              models.StatusPending,
		FrozenUntil:         time.Now().Add(24 * time.Hour),
		ConfirmationCode:    code,
		PaymentInstructions: "Para confirmar tu reserva " + code + ", consigna el 50% del total (390.000 COP).",
	}
}

func d(day int) time.Time {
	return time.Date(2025, time.June, day, 0, 0, 0, 0, time.UTC)
}

func TestCreateAndGetReservation(t *testing.T) {
	db := testDB(t)
	cabin := seedCabin(t, db, "Cielo")
	ctx := context.Background()

	r := newReservation(cabin.ID, "K7M2PQ", d(20), d(22))
	require.NoError(t, db.CreateReservationWithLock(ctx, r))
	require.NotZero(t, r.ID)

	got, err := db.GetReservation(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "K7M2PQ", got.ConfirmationCode)
	assert.Equal(t, d(20), got.CheckIn)
	assert.Equal(t, d(22), got.CheckOut)
	assert.Equal(t, int64(780000), got.TotalPrice)
	assert.Equal(t, models.StatusPending, got.Status)
	assert.Equal(t, r.PaymentInstructions, got.PaymentInstructions)
}

func TestGetReservationByCodeIsCaseInsensitive(t *testing.T) {
	db := testDB(t)
	cabin := seedCabin(t, db, "Cielo")
	ctx := context.Background()

	r := newReservation(cabin.ID, "K7M2PQ", d(20), d(22))
	require.NoError(t, db.CreateReservationWithLock(ctx, r))

	got, err := db.GetReservationByCode(ctx, "k7m2pq")
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)

	_, err = db.GetReservationByCode(ctx, "NOPE99")
	assert.ErrorIs(t, err, ErrNotFound)

	taken, err := db.CodeExists(ctx, "k7M2Pq")
	require.NoError(t, err)
	assert.True(t, taken)
}

func TestDuplicateCodeRejected(t *testing.T) {
	db := testDB(t)
	cabin := seedCabin(t, db, "Cielo")
	ctx := context.Background()

	require.NoError(t, db.CreateReservationWithLock(ctx, newReservation(cabin.ID, "K7M2PQ", d(1), d(3))))

	// Different case still collides thanks to COLLATE NOCASE on the column.
	err := db.CreateReservationWithLock(ctx, newReservation(cabin.ID, "k7m2pq", d(10), d(12)))
	assert.ErrorIs(t, err, ErrDuplicateCode)
}

func TestOverlapBlocking(t *testing.T) {
	db := testDB(t)
	cabin := seedCabin(t, db, "Cielo")
	ctx := context.Background()

	require.NoError(t, db.CreateReservationWithLock(ctx, newReservation(cabin.ID, "AAAAAA", d(10), d(15))))

	cases := []struct {
		name     string
		checkIn  int
		checkOut int
		wantErr  error
	}{
		{"contained", 11, 13, ErrNotAvailable},
		{"straddles start", 8, 11, ErrNotAvailable},
		{"straddles end", 14, 18, ErrNotAvailable},
		{"covers fully", 8, 18, ErrNotAvailable},
		{"same-day turnover at checkout", 15, 17, nil},
		{"same-day turnover at checkin", 8, 10, nil},
	}

	code := 'B'
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newReservation(cabin.ID, string([]rune{code, code, code, code, code, code}), d(tc.checkIn), d(tc.checkOut))
			code++
			err := db.CreateReservationWithLock(ctx, r)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCancelledReservationsDoNotBlock(t *testing.T) {
	db := testDB(t)
	cabin := seedCabin(t, db, "Cielo")
	ctx := context.Background()

	r := newReservation(cabin.ID, "AAAAAA", d(10), d(15))
	require.NoError(t, db.CreateReservationWithLock(ctx, r))

	ok, err := db.UpdateReservationStatus(ctx, r.ID, []string{models.StatusPending}, models.StatusCancelled)
	require.NoError(t, err)
	require.True(t, ok)

	err = db.CreateReservationWithLock(ctx, newReservation(cabin.ID, "BBBBBB", d(10), d(15)))
	assert.NoError(t, err)
}

func TestOverlapIsCabinScoped(t *testing.T) {
	db := testDB(t)
	cielo := seedCabin(t, db, "Cielo")
	eclipse := seedCabin(t, db, "Eclipse")
	ctx := context.Background()

	require.NoError(t, db.CreateReservationWithLock(ctx, newReservation(cielo.ID, "AAAAAA", d(10), d(15))))
	assert.NoError(t, db.CreateReservationWithLock(ctx, newReservation(eclipse.ID, "BBBBBB", d(10), d(15))))
}

func TestUpdateReservationStatusGuard(t *testing.T) {
	db := testDB(t)
	cabin := seedCabin(t, db, "Cielo")
	ctx := context.Background()

	r := newReservation(cabin.ID, "AAAAAA", d(10), d(15))
	require.NoError(t, db.CreateReservationWithLock(ctx, r))

	// pending -> confirmed matches the guard.
	ok, err := db.UpdateReservationStatus(ctx, r.ID, []string{models.StatusPending}, models.StatusConfirmed)
	require.NoError(t, err)
	assert.True(t, ok)

	// pending -> expired no longer matches; no rows touched.
	ok, err = db.UpdateReservationStatus(ctx, r.ID, []string{models.StatusPending}, models.StatusExpired)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := db.GetReservation(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, got.Status)

	// Unknown id also reports false, not an error.
	ok, err = db.UpdateReservationStatus(ctx, 9999, []string{models.StatusPending}, models.StatusExpired)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListPendingExpired(t *testing.T) {
	db := testDB(t)
	cabin := seedCabin(t, db, "Cielo")
	ctx := context.Background()
	now := time.Now()

	stale := newReservation(cabin.ID, "AAAAAA", d(1), d(3))
	stale.FrozenUntil = now.Add(-time.Hour)
	require.NoError(t, db.CreateReservationWithLock(ctx, stale))

	fresh := newReservation(cabin.ID, "BBBBBB", d(5), d(7))
	fresh.FrozenUntil = now.Add(time.Hour)
	require.NoError(t, db.CreateReservationWithLock(ctx, fresh))

	confirmedStale := newReservation(cabin.ID, "CCCCCC", d(10), d(12))
	confirmedStale.FrozenUntil = now.Add(-time.Hour)
	require.NoError(t, db.CreateReservationWithLock(ctx, confirmedStale))
	ok, err := db.UpdateReservationStatus(ctx, confirmedStale.ID, []string{models.StatusPending}, models.StatusConfirmed)
	require.NoError(t, err)
	require.True(t, ok)

	expired, err := db.ListPendingExpired(ctx, now)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, stale.ID, expired[0].ID)
}

func TestListActiveReservationsOverlapQuery(t *testing.T) {
	db := testDB(t)
	cabin := seedCabin(t, db, "Cielo")
	ctx := context.Background()

	require.NoError(t, db.CreateReservationWithLock(ctx, newReservation(cabin.ID, "AAAAAA", d(10), d(12))))
	require.NoError(t, db.CreateReservationWithLock(ctx, newReservation(cabin.ID, "BBBBBB", d(14), d(16))))
	require.NoError(t, db.CreateReservationWithLock(ctx, newReservation(cabin.ID, "CCCCCC", d(20), d(22))))

	overlapping, err := db.ListActiveReservations(ctx, cabin.ID, models.DateRange{CheckIn: d(11), CheckOut: d(15)})
	require.NoError(t, err)
	require.Len(t, overlapping, 2)
	assert.Equal(t, "AAAAAA", overlapping[0].ConfirmationCode)
	assert.Equal(t, "BBBBBB", overlapping[1].ConfirmationCode)
}

func TestGetReservationsByDateRangeIncludesAllStatuses(t *testing.T) {
	db := testDB(t)
	cabin := seedCabin(t, db, "Cielo")
	ctx := context.Background()

	r := newReservation(cabin.ID, "AAAAAA", d(10), d(12))
	require.NoError(t, db.CreateReservationWithLock(ctx, r))
	ok, err := db.UpdateReservationStatus(ctx, r.ID, []string{models.StatusPending}, models.StatusCancelled)
	require.NoError(t, err)
	require.True(t, ok)

	all, err := db.GetReservationsByDateRange(ctx, d(1), d(30))
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, models.StatusCancelled, all[0].Status)
}

func TestDeleteReservation(t *testing.T) {
	db := testDB(t)
	cabin := seedCabin(t, db, "Cielo")
	ctx := context.Background()

	r := newReservation(cabin.ID, "AAAAAA", d(10), d(12))
	require.NoError(t, db.CreateReservationWithLock(ctx, r))

	require.NoError(t, db.DeleteReservation(ctx, r.ID))
	assert.ErrorIs(t, db.DeleteReservation(ctx, r.ID), ErrNotFound)
	_, err := db.GetReservation(ctx, r.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateReservationCalendarEvent(t *testing.T) {
	db := testDB(t)
	cabin := seedCabin(t, db, "Cielo")
	ctx := context.Background()

	r := newReservation(cabin.ID, "AAAAAA", d(10), d(12))
	require.NoError(t, db.CreateReservationWithLock(ctx, r))

	require.NoError(t, db.UpdateReservationCalendarEvent(ctx, r.ID, "gcal-123"))
	got, err := db.GetReservation(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "gcal-123", got.CalendarEventID)
}
