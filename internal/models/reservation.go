package models

import "time"

type Reservation struct {
	ID                  int64     `json:"id"`
	CabinID             int64     `json:"cabin_id"`
	GuestName           string    `json:"guest_name"`
	GuestEmail          string    `json:"guest_email"`
	CheckIn             time.Time `json:"check_in"`
	CheckOut            time.Time `json:"check_out"`
	Guests              int64     `json:"guests"`
	TotalPrice          int64     `json:"total_price"`
	IncludesAsado       bool      `json:"includes_asado"`
	Status              string    `json:"status"` // pending, confirmed, cancelled, expired
	FrozenUntil         time.Time `json:"frozen_until"`
	ConfirmationCode    string    `json:"confirmation_code"`
	PaymentInstructions string    `json:"payment_instructions"`
	CalendarEventID     string    `json:"calendar_event_id,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// Nights is the number of nights stayed, check-in inclusive, check-out exclusive.
func (r *Reservation) Nights() int {
	return int(r.CheckOut.Sub(r.CheckIn).Hours() / 24)
}

// IsActive reports whether the reservation blocks its date range.
func (r *Reservation) IsActive() bool {
	return r.Status == StatusPending || r.Status == StatusConfirmed
}

// DateRange is a half-open calendar interval: the guest occupies the nights
// starting on CheckIn up to but not including CheckOut.
type DateRange struct {
	CheckIn  time.Time `json:"check_in"`
	CheckOut time.Time `json:"check_out"`
}

// Overlaps reports whether two ranges share at least one night. Back-to-back
// ranges (one checking out the day the other checks in) do not overlap,
// which allows same-day turnover.
func (d DateRange) Overlaps(other DateRange) bool {
	return d.CheckIn.Before(other.CheckOut) && d.CheckOut.After(other.CheckIn)
}

func (r *Reservation) Range() DateRange {
	return DateRange{CheckIn: r.CheckIn, CheckOut: r.CheckOut}
}
