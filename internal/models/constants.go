package models

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
	StatusExpired   = "expired"
)

const (
	// DefaultFreezeHours is how long a pending reservation holds the
	// calendar while the guest wires the deposit.
	DefaultFreezeHours = 24

	// DefaultMaxGuests per cabin unless the cabin overrides it.
	DefaultMaxGuests = 2

	// DefaultCodeLength is the confirmation-code length.
	DefaultCodeLength = 6

	// DefaultSweepIntervalMinutes between expiry sweeper runs.
	DefaultSweepIntervalMinutes = 5

	// DefaultDepositPercent of the total asked up front.
	DefaultDepositPercent = 50

	// DefaultBookingAttempts allowed per client in the rate-limit window.
	DefaultBookingAttempts = 5

	// DefaultBookingWindow rate-limit window for booking attempts.
	DefaultBookingWindow = 600 // 10 minutes in seconds

	// DateLayout is the calendar-date format used in storage and the API.
	DateLayout = "2006-01-02"
)
