package database

import (
	"context"
	"testing"

	"villaalcielo/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertCabinIsIdempotent(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	cabin := &models.Cabin{Name: "Cielo", WeekdayPrice: 200000, WeekendPrice: 390000, MaxGuests: 2, IsActive: true}
	require.NoError(t, db.UpsertCabin(ctx, cabin))
	firstID := cabin.ID
	require.NotZero(t, firstID)

	// Second upsert with new prices keeps the row and updates it.
	updated := &models.Cabin{Name: "Cielo", WeekdayPrice: 250000, WeekendPrice: 450000, MaxGuests: 2, IsActive: true}
	require.NoError(t, db.UpsertCabin(ctx, updated))
	assert.Equal(t, firstID, updated.ID)

	got, err := db.GetCabin(ctx, firstID)
	require.NoError(t, err)
	assert.Equal(t, int64(250000), got.WeekdayPrice)
	assert.Equal(t, int64(450000), got.WeekendPrice)
}

func TestGetActiveCabins(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	seedCabin(t, db, "Cielo")
	eclipse := seedCabin(t, db, "Eclipse")
	require.NoError(t, db.DeactivateCabin(ctx, eclipse.ID))

	active, err := db.GetActiveCabins(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Cielo", active[0].Name)
}

func TestGetCabinByName(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	seedCabin(t, db, "Aurora")

	got, err := db.GetCabinByName(ctx, "Aurora")
	require.NoError(t, err)
	assert.Equal(t, "Aurora", got.Name)

	_, err = db.GetCabinByName(ctx, "Nube")
	assert.ErrorIs(t, err, ErrNotFound)
}
