// Package calendar mirrors confirmed reservations into a Google Calendar so
// the owners see the occupancy next to their own events.
package calendar

import (
	"context"
	"fmt"
	"os"

	"villaalcielo/internal/models"

	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

type GoogleCalendar struct {
	service    *gcal.Service
	calendarID string
}

// NewGoogleCalendar authenticates with a service-account credentials file.
func NewGoogleCalendar(credentialsFile, calendarID string) (*GoogleCalendar, error) {
	ctx := context.Background()

	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	config, err := google.JWTConfigFromJSON(credentialsJSON, gcal.CalendarEventsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	srv, err := gcal.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Calendar service: %w", err)
	}

	return &GoogleCalendar{service: srv, calendarID: calendarID}, nil
}

// NewGoogleCalendarWithService injects a service; used by tests.
func NewGoogleCalendarWithService(service *gcal.Service, calendarID string) *GoogleCalendar {
	return &GoogleCalendar{service: service, calendarID: calendarID}
}

// CreateEvent inserts an all-day event spanning the stay. The calendar
// all-day end date is exclusive, which matches the check-out convention
// exactly, so both dates go in unshifted.
func (g *GoogleCalendar) CreateEvent(ctx context.Context, r *models.Reservation, cabin *models.Cabin) (string, error) {
	event := &gcal.Event{
		Summary:     fmt.Sprintf("%s: %s (%s)", cabin.Name, r.GuestName, r.ConfirmationCode),
		Description: fmt.Sprintf("Reserva %s\nHuésped: %s (%s)\n%d persona(s), total $%d COP", r.ConfirmationCode, r.GuestName, r.GuestEmail, r.Guests, r.TotalPrice),
		Start:       &gcal.EventDateTime{Date: r.CheckIn.Format(models.DateLayout)},
		End:         &gcal.EventDateTime{Date: r.CheckOut.Format(models.DateLayout)},
	}

	created, err := g.service.Events.Insert(g.calendarID, event).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to create calendar event: %w", err)
	}
	return created.Id, nil
}

// DeleteEvent removes a previously created event.
func (g *GoogleCalendar) DeleteEvent(ctx context.Context, eventID string) error {
	if err := g.service.Events.Delete(g.calendarID, eventID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to delete calendar event: %w", err)
	}
	return nil
}
