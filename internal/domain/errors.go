package domain

import (
	"fmt"
	"strings"

	"villaalcielo/internal/models"
)

// ValidationError lists every violated field, not just the first.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// NotFoundError marks an unknown or inactive entity.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	if e.ID == 0 {
		return e.Entity + " not found"
	}
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// ConflictError carries the ranges that block the requested one so the
// caller can tell the guest which dates are taken.
type ConflictError struct {
	CabinID   int64
	Requested models.DateRange
	Conflicts []models.DateRange
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("dates not available for cabin %d: %d conflicting reservation(s)", e.CabinID, len(e.Conflicts))
}

// InvalidStateError marks an illegal lifecycle transition.
type InvalidStateError struct {
	ReservationID int64
	Status        string
	Attempted     string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("reservation %d is %s, cannot transition to %s", e.ReservationID, e.Status, e.Attempted)
}
