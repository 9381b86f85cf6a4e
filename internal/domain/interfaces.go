package domain

import (
	"context"
	"time"

	"villaalcielo/internal/models"
)

// Repository is the storage capability the core depends on. The insert path
// must enforce the overlap exclusion atomically: CreateReservationWithLock
// re-checks availability inside the same transaction as the insert, so that
// of two racing overlapping creations at most one commits.
type Repository interface {
	GetCabin(ctx context.Context, id int64) (*models.Cabin, error)
	GetActiveCabins(ctx context.Context) ([]*models.Cabin, error)
	CreateCabin(ctx context.Context, cabin *models.Cabin) error

	GetReservation(ctx context.Context, id int64) (*models.Reservation, error)
	GetReservationByCode(ctx context.Context, code string) (*models.Reservation, error)
	CodeExists(ctx context.Context, code string) (bool, error)
	ListActiveReservations(ctx context.Context, cabinID int64, rng models.DateRange) ([]*models.Reservation, error)
	CreateReservationWithLock(ctx context.Context, reservation *models.Reservation) error
	UpdateReservationStatus(ctx context.Context, id int64, fromStatuses []string, toStatus string) (bool, error)
	UpdateReservationCalendarEvent(ctx context.Context, id int64, eventID string) error
	ListPendingExpired(ctx context.Context, now time.Time) ([]*models.Reservation, error)
	DeleteReservation(ctx context.Context, id int64) error
}

// Notifier delivers reservation events to the owner and the guest.
// Delivery is best effort: a failed notification is logged by the caller
// and never affects the reservation state.
type Notifier interface {
	ReservationCreated(ctx context.Context, reservation *models.Reservation, cabin *models.Cabin) error
	ReservationConfirmed(ctx context.Context, reservation *models.Reservation, cabin *models.Cabin) error
	ReservationExpired(ctx context.Context, reservation *models.Reservation, cabin *models.Cabin) error
}

// CalendarClient mirrors the reservation into an external calendar.
type CalendarClient interface {
	CreateEvent(ctx context.Context, reservation *models.Reservation, cabin *models.Cabin) (string, error)
	DeleteEvent(ctx context.Context, eventID string) error
}

// EventPublisher provides in-process pub/sub for reservation events.
type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// BookingGuard throttles booking attempts per client key.
type BookingGuard interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
