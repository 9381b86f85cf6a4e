package config

import (
	"errors"
	"fmt"
	"os"

	"villaalcielo/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Booking    BookingConfig    `yaml:"booking"`
	Payment    PaymentConfig    `yaml:"payment"`
	Calendar   CalendarConfig   `yaml:"calendar"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	API        APIConfig        `yaml:"api"`
	Exports    ExportConfig     `yaml:"exports"`
	Cabins     []models.Cabin   `yaml:"cabins"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

// BookingConfig holds the reservation policy knobs.
type BookingConfig struct {
	FreezeHours        int `yaml:"freeze_hours"`
	MaxGuests          int `yaml:"max_guests"`
	CodeLength         int `yaml:"code_length"`
	SweepIntervalMin   int `yaml:"sweep_interval_minutes"`
	DepositPercent     int `yaml:"deposit_percent"`
	RateLimitAttempts  int `yaml:"rate_limit_attempts"`
	RateLimitWindowSec int `yaml:"rate_limit_window"`
}

type PaymentConfig struct {
	BankName       string `yaml:"bank_name"`
	AccountHolder  string `yaml:"account_holder"`
	AccountNumber  string `yaml:"account_number"`
	WhatsAppNumber string `yaml:"whatsapp_number"`
}

type CalendarConfig struct {
	Enabled         bool   `yaml:"enabled"`
	CredentialsFile string `yaml:"credentials_file"`
	CalendarID      string `yaml:"calendar_id"`
}

type TelegramConfig struct {
	Enabled      bool    `yaml:"enabled"`
	BotToken     string  `yaml:"bot_token"`
	OwnerChatIDs []int64 `yaml:"owner_chat_ids"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type APIConfig struct {
	Port      int                `yaml:"port"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	HeaderExtra  string         `yaml:"header_extra"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key         string   `yaml:"key"`
	Extra       string   `yaml:"extra"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

// Load reads the YAML config, expanding ${VARS} from the environment. A .env
// file next to the binary is honored when present.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}
	if c.Telegram.Enabled && c.Telegram.BotToken == "" {
		return errors.New("telegram bot token is required when telegram is enabled")
	}
	if c.Calendar.Enabled && (c.Calendar.CredentialsFile == "" || c.Calendar.CalendarID == "") {
		return errors.New("calendar credentials_file and calendar_id are required when calendar is enabled")
	}
	if c.Booking.DepositPercent < 0 || c.Booking.DepositPercent > 100 {
		return fmt.Errorf("deposit_percent must be between 0 and 100, got %d", c.Booking.DepositPercent)
	}
	return ValidateCabins(c.Cabins)
}

// ValidateCabins rejects duplicate or nonsensical cabin definitions.
func ValidateCabins(cabins []models.Cabin) error {
	names := make(map[string]bool)
	for _, cabin := range cabins {
		if cabin.Name == "" {
			return errors.New("cabin with empty name")
		}
		if names[cabin.Name] {
			return fmt.Errorf("duplicate cabin name: %s", cabin.Name)
		}
		names[cabin.Name] = true

		if cabin.WeekdayPrice <= 0 || cabin.WeekendPrice <= 0 {
			return fmt.Errorf("cabin '%s' must have positive prices", cabin.Name)
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.API.Port == 0 {
		c.API.Port = 8080
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.API.Auth.HeaderExtra == "" {
		c.API.Auth.HeaderExtra = "x-api-extra"
	}

	if c.Booking.FreezeHours == 0 {
		c.Booking.FreezeHours = models.DefaultFreezeHours
	}
	if c.Booking.MaxGuests == 0 {
		c.Booking.MaxGuests = models.DefaultMaxGuests
	}
	if c.Booking.CodeLength == 0 {
		c.Booking.CodeLength = models.DefaultCodeLength
	}
	if c.Booking.SweepIntervalMin == 0 {
		c.Booking.SweepIntervalMin = models.DefaultSweepIntervalMinutes
	}
	if c.Booking.DepositPercent == 0 {
		c.Booking.DepositPercent = models.DefaultDepositPercent
	}
	if c.Booking.RateLimitAttempts == 0 {
		c.Booking.RateLimitAttempts = models.DefaultBookingAttempts
	}
	if c.Booking.RateLimitWindowSec == 0 {
		c.Booking.RateLimitWindowSec = models.DefaultBookingWindow
	}

	for i := range c.Cabins {
		if c.Cabins[i].MaxGuests == 0 {
			c.Cabins[i].MaxGuests = int64(c.Booking.MaxGuests)
		}
	}
}
