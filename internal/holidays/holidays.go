// Package holidays computes Colombian public holidays, including the
// Ley Emiliani rule that shifts most observances to the following Monday.
package holidays

import (
	"sync"
	"time"
)

// ForYear returns every public holiday of the given year, deduplicated,
// in no particular order. It is a pure function of year.
func ForYear(year int) []time.Time {
	seen := make(map[time.Time]struct{}, 18)

	add := func(t time.Time) {
		seen[t] = struct{}{}
	}

	// Fixed holidays, never moved.
	add(date(year, time.January, 1))   // Año Nuevo
	add(date(year, time.May, 1))       // Día del Trabajo
	add(date(year, time.July, 20))     // Independencia
	add(date(year, time.August, 7))    // Batalla de Boyacá
	add(date(year, time.December, 8))  // Inmaculada Concepción
	add(date(year, time.December, 25)) // Navidad

	// Easter-relative holidays. Thursday and Friday of Holy Week stay put;
	// the later three move to the following Monday.
	easter := easterSunday(year)
	add(easter.AddDate(0, 0, -3))             // Jueves Santo
	add(easter.AddDate(0, 0, -2))             // Viernes Santo
	add(nextMonday(easter.AddDate(0, 0, 39))) // Ascensión
	add(nextMonday(easter.AddDate(0, 0, 60))) // Corpus Christi
	add(nextMonday(easter.AddDate(0, 0, 68))) // Sagrado Corazón

	// Ley Emiliani holidays, moved to Monday when not already on one.
	add(nextMonday(date(year, time.January, 6)))   // Reyes Magos
	add(nextMonday(date(year, time.March, 19)))    // San José
	add(nextMonday(date(year, time.June, 29)))     // San Pedro y San Pablo
	add(nextMonday(date(year, time.August, 15)))   // Asunción
	add(nextMonday(date(year, time.October, 12)))  // Día de la Raza
	add(nextMonday(date(year, time.November, 1)))  // Todos los Santos
	add(nextMonday(date(year, time.November, 11))) // Independencia de Cartagena

	out := make([]time.Time, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	return out
}

// easterSunday implements the Meeus/Jones/Butcher Gregorian computus.
func easterSunday(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return date(year, time.Month(month), day)
}

// nextMonday shifts a date forward to Monday. A Monday is unchanged,
// a Sunday moves one day, everything else moves to the next week's Monday.
func nextMonday(t time.Time) time.Time {
	switch t.Weekday() {
	case time.Monday:
		return t
	case time.Sunday:
		return t.AddDate(0, 0, 1)
	default:
		return t.AddDate(0, 0, 8-int(t.Weekday()))
	}
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Calendar answers point lookups with a per-year cache. Safe for
// concurrent use.
type Calendar struct {
	mu    sync.RWMutex
	years map[int]map[time.Time]struct{}
}

func NewCalendar() *Calendar {
	return &Calendar{years: make(map[int]map[time.Time]struct{})}
}

// IsHoliday reports whether the calendar date of t is a public holiday.
// Time-of-day and zone offsets are ignored.
func (c *Calendar) IsHoliday(t time.Time) bool {
	day := date(t.Year(), t.Month(), t.Day())

	c.mu.RLock()
	set, ok := c.years[day.Year()]
	c.mu.RUnlock()

	if !ok {
		set = make(map[time.Time]struct{})
		for _, h := range ForYear(day.Year()) {
			set[h] = struct{}{}
		}
		c.mu.Lock()
		c.years[day.Year()] = set
		c.mu.Unlock()
	}

	_, holiday := set[day]
	return holiday
}
