package config

import (
	"os"
	"path/filepath"
	"testing"

	"villaalcielo/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validConfig = `
app:
  name: villa-al-cielo
  environment: test
database:
  path: ":memory:"
booking:
  freeze_hours: 48
payment:
  bank_name: Bancolombia
  account_number: "123-456789-00"
cabins:
  - id: 1
    name: Cielo
    weekday_price: 200000
    weekend_price: 390000
    is_active: true
  - id: 2
    name: Eclipse
    weekday_price: 200000
    weekend_price: 390000
    max_guests: 4
    is_active: true
`

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, "villa-al-cielo", cfg.App.Name)
	assert.Equal(t, ":memory:", cfg.Database.Path)
	assert.Equal(t, "Bancolombia", cfg.Payment.BankName)

	// Explicit values survive, the rest gets defaults.
	assert.Equal(t, 48, cfg.Booking.FreezeHours)
	assert.Equal(t, models.DefaultCodeLength, cfg.Booking.CodeLength)
	assert.Equal(t, models.DefaultDepositPercent, cfg.Booking.DepositPercent)
	assert.Equal(t, 8080, cfg.API.Port)
	assert.Equal(t, "x-api-key", cfg.API.Auth.HeaderAPIKey)

	require.Len(t, cfg.Cabins, 2)
	assert.Equal(t, int64(models.DefaultMaxGuests), cfg.Cabins[0].MaxGuests, "cabin inherits booking max_guests")
	assert.Equal(t, int64(4), cfg.Cabins[1].MaxGuests, "explicit cabin max_guests wins")
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("VAC_DB_PATH", "/tmp/test.db")
	cfg, err := Load(writeConfig(t, `
database:
  path: ${VAC_DB_PATH}
`))
	require.NoError(t, err)
	assert.Equal(t, "/tmp/test.db", cfg.Database.Path)
}

func TestValidateRejectsMissingDatabasePath(t *testing.T) {
	_, err := Load(writeConfig(t, `
app:
  name: test
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database path")
}

func TestValidateRejectsDuplicateCabins(t *testing.T) {
	err := ValidateCabins([]models.Cabin{
		{Name: "Cielo", WeekdayPrice: 1, WeekendPrice: 1},
		{Name: "Cielo", WeekdayPrice: 1, WeekendPrice: 1},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate cabin name")
}

func TestValidateRejectsNonPositivePrices(t *testing.T) {
	err := ValidateCabins([]models.Cabin{{Name: "Cielo", WeekdayPrice: 0, WeekendPrice: 390000}})
	require.Error(t, err)
}

func TestValidateTelegramNeedsToken(t *testing.T) {
	_, err := Load(writeConfig(t, `
database:
  path: ":memory:"
telegram:
  enabled: true
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telegram bot token")
}
