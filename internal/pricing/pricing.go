// Package pricing computes reservation totals from a cabin's weekday and
// weekend rates. A night is weekend-priced when it starts on a Friday or
// Saturday, or when the following day is a public holiday.
package pricing

import (
	"errors"
	"iter"
	"time"

	"villaalcielo/internal/holidays"
	"villaalcielo/internal/models"
)

var ErrInvalidRange = errors.New("check-in must be before check-out")

const (
	TierWeekday = "weekday"
	TierWeekend = "weekend"
)

// Night is one priced night of a stay, starting on Date.
type Night struct {
	Date  time.Time
	Tier  string
	Price int64
}

// Quote is the priced result for a cabin and date range. Prices are whole
// COP amounts; sums are exact integer addition.
type Quote struct {
	CabinID       int64
	CheckIn       time.Time
	CheckOut      time.Time
	TotalPrice    int64
	IncludesAsado bool

	weekdayPrice int64
	weekendPrice int64
	cal          *holidays.Calendar
}

type Engine struct {
	cal *holidays.Calendar
}

func NewEngine(cal *holidays.Calendar) *Engine {
	if cal == nil {
		cal = holidays.NewCalendar()
	}
	return &Engine{cal: cal}
}

// Quote prices the nights from checkIn (inclusive) to checkOut (exclusive).
// The asado kit is bundled automatically whenever any night is
// weekend-priced; opting it into a weekday-only stay is the caller's
// decision and surcharge, not this engine's.
func (e *Engine) Quote(cabin *models.Cabin, checkIn, checkOut time.Time) (*Quote, error) {
	checkIn = truncate(checkIn)
	checkOut = truncate(checkOut)
	if !checkIn.Before(checkOut) {
		return nil, ErrInvalidRange
	}

	q := &Quote{
		CabinID:      cabin.ID,
		CheckIn:      checkIn,
		CheckOut:     checkOut,
		weekdayPrice: cabin.WeekdayPrice,
		weekendPrice: cabin.WeekendPrice,
		cal:          e.cal,
	}

	for night := range q.Nights() {
		q.TotalPrice += night.Price
		if night.Tier == TierWeekend {
			q.IncludesAsado = true
		}
	}
	return q, nil
}

// Nights yields the per-night breakdown in check-in order. The sequence is
// recomputed on every range-over, so it can be restarted freely.
func (q *Quote) Nights() iter.Seq[Night] {
	return func(yield func(Night) bool) {
		for d := q.CheckIn; d.Before(q.CheckOut); d = d.AddDate(0, 0, 1) {
			night := Night{Date: d, Tier: TierWeekday, Price: q.weekdayPrice}
			if q.isWeekendPriced(d) {
				night.Tier = TierWeekend
				night.Price = q.weekendPrice
			}
			if !yield(night) {
				return
			}
		}
	}
}

func (q *Quote) isWeekendPriced(night time.Time) bool {
	if wd := night.Weekday(); wd == time.Friday || wd == time.Saturday {
		return true
	}
	return q.cal.IsHoliday(night.AddDate(0, 0, 1))
}

func truncate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
