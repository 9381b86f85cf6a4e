package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"villaalcielo/internal/availability"
	"villaalcielo/internal/database"
	"villaalcielo/internal/domain"
	"villaalcielo/internal/events"
	"villaalcielo/internal/models"
	"villaalcielo/internal/pricing"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// ErrTooManyAttempts is returned when a client exceeds the booking rate limit.
var ErrTooManyAttempts = errors.New("too many booking attempts, try again later")

// Policy bundles the booking knobs the service applies.
type Policy struct {
	FreezeDuration  time.Duration
	CodeLength      int
	DepositPercent  int
	BookingAttempts int
	BookingWindow   time.Duration
	BankName        string
	AccountHolder   string
	AccountNumber   string
	WhatsAppNumber  string
}

func (p *Policy) applyDefaults() {
	if p.FreezeDuration <= 0 {
		p.FreezeDuration = models.DefaultFreezeHours * time.Hour
	}
	if p.CodeLength <= 0 {
		p.CodeLength = models.DefaultCodeLength
	}
	if p.DepositPercent <= 0 || p.DepositPercent > 100 {
		p.DepositPercent = models.DefaultDepositPercent
	}
	if p.BookingAttempts <= 0 {
		p.BookingAttempts = models.DefaultBookingAttempts
	}
	if p.BookingWindow <= 0 {
		p.BookingWindow = models.DefaultBookingWindow * time.Second
	}
}

// CreateReservationRequest is the input for a new reservation. ClientKey
// identifies the caller for rate limiting and is never stored.
type CreateReservationRequest struct {
	CabinID       int64  `validate:"required"`
	GuestName     string `validate:"required,min=2,max=120"`
	GuestEmail    string `validate:"required,email"`
	CheckIn       time.Time
	CheckOut      time.Time
	Guests        int64 `validate:"required,min=1"`
	IncludesAsado bool
	ClientKey     string
}

type ReservationService struct {
	repo     domain.Repository
	checker  *availability.Checker
	pricer   *pricing.Engine
	eventBus domain.EventPublisher
	notifier domain.Notifier
	calendar domain.CalendarClient
	guard    domain.BookingGuard
	policy   Policy
	validate *validator.Validate
	codes    *codeGenerator
	now      func() time.Time
	logger   *zerolog.Logger
}

// NewReservationService wires the reservation lifecycle. notifier, calendar
// and guard may be nil; the corresponding side effects are skipped.
func NewReservationService(
	repo domain.Repository,
	checker *availability.Checker,
	pricer *pricing.Engine,
	eventBus domain.EventPublisher,
	notifier domain.Notifier,
	calendar domain.CalendarClient,
	guard domain.BookingGuard,
	policy Policy,
	logger *zerolog.Logger,
) *ReservationService {
	policy.applyDefaults()
	return &ReservationService{
		repo:     repo,
		checker:  checker,
		pricer:   pricer,
		eventBus: eventBus,
		notifier: notifier,
		calendar: calendar,
		guard:    guard,
		policy:   policy,
		validate: validator.New(),
		codes:    newCodeGenerator(policy.CodeLength),
		now:      time.Now,
		logger:   logger,
	}
}

// CreateReservation validates the request, prices the stay and persists a
// pending reservation that freezes the dates for the deposit window.
func (s *ReservationService) CreateReservation(ctx context.Context, req *CreateReservationRequest) (*models.Reservation, error) {
	if err := s.checkRateLimit(ctx, req.ClientKey); err != nil {
		return nil, err
	}

	cabin, fields, err := s.validateRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(fields) > 0 {
		return nil, &domain.ValidationError{Fields: fields}
	}

	quote, err := s.pricer.Quote(cabin, req.CheckIn, req.CheckOut)
	if err != nil {
		return nil, &domain.ValidationError{Fields: map[string]string{"check_out": err.Error()}}
	}

	now := s.now()
	reservation := &models.Reservation{
		CabinID:       cabin.ID,
		GuestName:     req.GuestName,
		GuestEmail:    req.GuestEmail,
		CheckIn:       quote.CheckIn,
		CheckOut:      quote.CheckOut,
		Guests:        req.Guests,
		TotalPrice:    quote.TotalPrice,
		IncludesAsado: quote.IncludesAsado || req.IncludesAsado,
		Status:        models.StatusPending,
		FrozenUntil:   now.Add(s.policy.FreezeDuration),
	}

	if err := s.insertWithFreshCode(ctx, reservation); err != nil {
		return nil, err
	}

	s.publishEvent(events.EventReservationCreated, reservation, cabin)
	if s.notifier != nil {
		if err := s.notifier.ReservationCreated(ctx, reservation, cabin); err != nil {
			s.logger.Warn().Err(err).Int64("reservation_id", reservation.ID).Msg("created notification failed")
		}
	}

	return reservation, nil
}

// insertWithFreshCode generates a confirmation code, renders the payment
// instructions the guest is told at booking time and inserts the reservation,
// regenerating on a code collision. The instructions are persisted with the
// row so later policy changes never rewrite what a guest was quoted. The
// availability re-check happens inside the repository transaction, so a
// concurrent overlapping creation surfaces here as ErrNotAvailable.
func (s *ReservationService) insertWithFreshCode(ctx context.Context, r *models.Reservation) error {
	const maxCodeAttempts = 5

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := s.codes.Generate()
		if err != nil {
			return fmt.Errorf("failed to generate confirmation code: %w", err)
		}

		taken, err := s.repo.CodeExists(ctx, code)
		if err != nil {
			return err
		}
		if taken {
			continue
		}

		r.ConfirmationCode = code
		r.PaymentInstructions = s.paymentInstructions(r)
		err = s.repo.CreateReservationWithLock(ctx, r)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, database.ErrDuplicateCode):
			// Lost a race on the code between the existence check and the
			// insert; try another one.
			continue
		case errors.Is(err, database.ErrNotAvailable):
			return s.conflictError(ctx, r)
		default:
			return err
		}
	}

	return errors.New("could not allocate a unique confirmation code")
}

func (s *ReservationService) conflictError(ctx context.Context, r *models.Reservation) error {
	conflict := &domain.ConflictError{
		CabinID:   r.CabinID,
		Requested: r.Range(),
	}
	if blocking, err := s.checker.ConflictingReservations(ctx, r.CabinID, r.CheckIn, r.CheckOut); err == nil {
		for _, b := range blocking {
			conflict.Conflicts = append(conflict.Conflicts, b.Range())
		}
	}
	return conflict
}

// validateRequest collects every violation instead of failing on the first.
// Returns the cabin on success so callers do not fetch it twice.
func (s *ReservationService) validateRequest(ctx context.Context, req *CreateReservationRequest) (*models.Cabin, map[string]string, error) {
	fields := map[string]string{}

	if err := s.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, ve := range verrs {
				fields[fieldName(ve.Field())] = fmt.Sprintf("failed %s validation", ve.Tag())
			}
		} else {
			return nil, nil, err
		}
	}

	today := truncateDate(s.now())
	checkIn := truncateDate(req.CheckIn)
	checkOut := truncateDate(req.CheckOut)
	if checkIn.Before(today) {
		fields["check_in"] = "must not be in the past"
	}
	if !checkIn.Before(checkOut) {
		fields["check_out"] = "must be after check-in"
	}

	cabin, err := s.repo.GetCabin(ctx, req.CabinID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil, &domain.NotFoundError{Entity: "cabin", ID: req.CabinID}
		}
		return nil, nil, err
	}
	if !cabin.IsActive {
		return nil, nil, &domain.NotFoundError{Entity: "cabin", ID: req.CabinID}
	}

	if req.Guests > cabin.MaxGuests {
		fields["guests"] = fmt.Sprintf("cabin %s sleeps at most %d guests", cabin.Name, cabin.MaxGuests)
	}

	if len(fields) > 0 {
		return cabin, fields, nil
	}

	// Read-path availability check. The authoritative check happens inside
	// the insert transaction; this one exists to answer with the
	// conflicting ranges before any write is attempted.
	conflicts, err := s.checker.ConflictingReservations(ctx, cabin.ID, checkIn, checkOut)
	if err != nil {
		return nil, nil, err
	}
	if len(conflicts) > 0 {
		conflict := &domain.ConflictError{
			CabinID:   cabin.ID,
			Requested: models.DateRange{CheckIn: checkIn, CheckOut: checkOut},
		}
		for _, c := range conflicts {
			conflict.Conflicts = append(conflict.Conflicts, c.Range())
		}
		return nil, nil, conflict
	}

	req.CheckIn = checkIn
	req.CheckOut = checkOut
	return cabin, nil, nil
}

func (s *ReservationService) checkRateLimit(ctx context.Context, key string) error {
	if s.guard == nil || key == "" {
		return nil
	}
	allowed, err := s.guard.CheckRateLimit(ctx, "booking:"+key, s.policy.BookingAttempts, s.policy.BookingWindow)
	if err != nil {
		// The guard failing open is better than refusing every booking.
		s.logger.Warn().Err(err).Msg("booking rate limit check failed")
		return nil
	}
	if !allowed {
		return ErrTooManyAttempts
	}
	return nil
}

// ConfirmReservation moves a pending reservation to confirmed. The guarded
// update makes the transition race-safe against the expiry sweeper: whichever
// writes first wins, the loser observes the new status.
func (s *ReservationService) ConfirmReservation(ctx context.Context, id int64) (*models.Reservation, error) {
	ok, err := s.repo.UpdateReservationStatus(ctx, id, []string{models.StatusPending}, models.StatusConfirmed)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.transitionFailure(ctx, id, models.StatusConfirmed)
	}

	reservation, err := s.repo.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	cabin, err := s.repo.GetCabin(ctx, reservation.CabinID)
	if err != nil {
		return nil, err
	}

	s.attachCalendarEvent(ctx, reservation, cabin)

	s.publishEvent(events.EventReservationConfirmed, reservation, cabin)
	if s.notifier != nil {
		if err := s.notifier.ReservationConfirmed(ctx, reservation, cabin); err != nil {
			s.logger.Warn().Err(err).Int64("reservation_id", id).Msg("confirmed notification failed")
		}
	}

	return reservation, nil
}

func (s *ReservationService) attachCalendarEvent(ctx context.Context, reservation *models.Reservation, cabin *models.Cabin) {
	if s.calendar == nil {
		return
	}
	eventID, err := s.calendar.CreateEvent(ctx, reservation, cabin)
	if err != nil {
		s.logger.Warn().Err(err).Int64("reservation_id", reservation.ID).Msg("calendar event creation failed")
		return
	}
	if err := s.repo.UpdateReservationCalendarEvent(ctx, reservation.ID, eventID); err != nil {
		s.logger.Warn().Err(err).Int64("reservation_id", reservation.ID).Msg("failed to store calendar event id")
		return
	}
	reservation.CalendarEventID = eventID
}

// CancelReservation cancels a pending or confirmed reservation and frees its
// dates immediately.
func (s *ReservationService) CancelReservation(ctx context.Context, id int64) (*models.Reservation, error) {
	ok, err := s.repo.UpdateReservationStatus(ctx, id, []string{models.StatusPending, models.StatusConfirmed}, models.StatusCancelled)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.transitionFailure(ctx, id, models.StatusCancelled)
	}

	reservation, err := s.repo.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.calendar != nil && reservation.CalendarEventID != "" {
		if err := s.calendar.DeleteEvent(ctx, reservation.CalendarEventID); err != nil {
			s.logger.Warn().Err(err).Int64("reservation_id", id).Msg("calendar event removal failed")
		}
	}

	cabin, err := s.repo.GetCabin(ctx, reservation.CabinID)
	if err == nil {
		s.publishEvent(events.EventReservationCancelled, reservation, cabin)
	}

	return reservation, nil
}

// ExpireReservation moves a pending reservation whose freeze window has
// lapsed to expired, reporting whether this call performed the transition.
// A reservation that was confirmed or cancelled in the meantime is left
// untouched and no error is returned: losing that race is the expected
// outcome, not a fault.
func (s *ReservationService) ExpireReservation(ctx context.Context, id int64) (bool, error) {
	ok, err := s.repo.UpdateReservationStatus(ctx, id, []string{models.StatusPending}, models.StatusExpired)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	reservation, err := s.repo.GetReservation(ctx, id)
	if err != nil {
		return true, err
	}
	cabin, err := s.repo.GetCabin(ctx, reservation.CabinID)
	if err != nil {
		return true, err
	}

	s.publishEvent(events.EventReservationExpired, reservation, cabin)
	if s.notifier != nil {
		if err := s.notifier.ReservationExpired(ctx, reservation, cabin); err != nil {
			s.logger.Warn().Err(err).Int64("reservation_id", id).Msg("expired notification failed")
		}
	}

	return true, nil
}

// SweepExpired expires every pending reservation whose freeze deadline has
// passed. One failing reservation does not stop the sweep. Returns how many
// were actually transitioned; a reservation that was confirmed between the
// listing and the update is not counted.
func (s *ReservationService) SweepExpired(ctx context.Context) (int, error) {
	stale, err := s.repo.ListPendingExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, r := range stale {
		transitioned, err := s.ExpireReservation(ctx, r.ID)
		if err != nil {
			s.logger.Error().Err(err).Int64("reservation_id", r.ID).Msg("failed to expire reservation")
		}
		if transitioned {
			expired++
		}
	}
	return expired, nil
}

// GetReservationByCode looks a reservation up by its confirmation code,
// case-insensitively. The payment instructions come back exactly as stored
// at creation time.
func (s *ReservationService) GetReservationByCode(ctx context.Context, code string) (*models.Reservation, error) {
	reservation, err := s.repo.GetReservationByCode(ctx, code)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, &domain.NotFoundError{Entity: "reservation"}
		}
		return nil, err
	}
	return reservation, nil
}

// QuoteStay prices a prospective stay without writing anything.
func (s *ReservationService) QuoteStay(ctx context.Context, cabinID int64, checkIn, checkOut time.Time) (*pricing.Quote, error) {
	cabin, err := s.repo.GetCabin(ctx, cabinID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, &domain.NotFoundError{Entity: "cabin", ID: cabinID}
		}
		return nil, err
	}
	if !cabin.IsActive {
		return nil, &domain.NotFoundError{Entity: "cabin", ID: cabinID}
	}

	quote, err := s.pricer.Quote(cabin, checkIn, checkOut)
	if err != nil {
		return nil, &domain.ValidationError{Fields: map[string]string{"check_out": err.Error()}}
	}
	return quote, nil
}

// CheckAvailability reports whether the range is free on the cabin.
func (s *ReservationService) CheckAvailability(ctx context.Context, cabinID int64, checkIn, checkOut time.Time) (bool, error) {
	checkIn = truncateDate(checkIn)
	checkOut = truncateDate(checkOut)
	if !checkIn.Before(checkOut) {
		return false, &domain.ValidationError{Fields: map[string]string{"check_out": "must be after check-in"}}
	}
	if _, err := s.repo.GetCabin(ctx, cabinID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return false, &domain.NotFoundError{Entity: "cabin", ID: cabinID}
		}
		return false, err
	}
	return s.checker.IsAvailable(ctx, cabinID, checkIn, checkOut, 0)
}

// CabinAvailability describes one cabin's availability for a range.
type CabinAvailability struct {
	Cabin     *models.Cabin `json:"cabin"`
	Available bool          `json:"available"`
}

// CheckAllCabins checks the range against every active cabin in one call.
func (s *ReservationService) CheckAllCabins(ctx context.Context, checkIn, checkOut time.Time) ([]CabinAvailability, error) {
	checkIn = truncateDate(checkIn)
	checkOut = truncateDate(checkOut)
	if !checkIn.Before(checkOut) {
		return nil, &domain.ValidationError{Fields: map[string]string{"check_out": "must be after check-in"}}
	}

	cabins, err := s.repo.GetActiveCabins(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]CabinAvailability, 0, len(cabins))
	for _, cabin := range cabins {
		free, err := s.checker.IsAvailable(ctx, cabin.ID, checkIn, checkOut, 0)
		if err != nil {
			return nil, err
		}
		out = append(out, CabinAvailability{Cabin: cabin, Available: free})
	}
	return out, nil
}

// ListCabins returns the bookable cabins.
func (s *ReservationService) ListCabins(ctx context.Context) ([]*models.Cabin, error) {
	return s.repo.GetActiveCabins(ctx)
}

// transitionFailure distinguishes "no such reservation" from "wrong status"
// after a guarded update touched zero rows.
func (s *ReservationService) transitionFailure(ctx context.Context, id int64, attempted string) error {
	reservation, err := s.repo.GetReservation(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return &domain.NotFoundError{Entity: "reservation", ID: id}
		}
		return err
	}
	return &domain.InvalidStateError{ReservationID: id, Status: reservation.Status, Attempted: attempted}
}

func (s *ReservationService) publishEvent(eventType string, r *models.Reservation, cabin *models.Cabin) {
	if s.eventBus == nil {
		return
	}
	payload := events.ReservationEventPayload{
		ReservationID:    r.ID,
		ConfirmationCode: r.ConfirmationCode,
		CabinID:          r.CabinID,
		CabinName:        cabin.Name,
		GuestName:        r.GuestName,
		GuestEmail:       r.GuestEmail,
		CheckIn:          r.CheckIn.Format(models.DateLayout),
		CheckOut:         r.CheckOut.Format(models.DateLayout),
		Guests:           r.Guests,
		TotalPrice:       r.TotalPrice,
		Status:           r.Status,
		FrozenUntil:      r.FrozenUntil,
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("failed to publish event")
	}
}

func truncateDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func fieldName(structField string) string {
	switch structField {
	case "CabinID":
		return "cabin_id"
	case "GuestName":
		return "guest_name"
	case "GuestEmail":
		return "guest_email"
	case "CheckIn":
		return "check_in"
	case "CheckOut":
		return "check_out"
	case "Guests":
		return "guests"
	default:
		return structField
	}
}
