package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"inmobot/models"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// GoogleCalendar mirrors booked visits as events in one Google calendar.
type GoogleCalendar struct {
	svc        *calendar.Service
	calendarID string
	duration   time.Duration
	loc        *time.Location
}

// NewGoogleCalendar builds the client from a service-account credentials file.
// Extra options (endpoint, http client) are appended, mainly for tests.
func NewGoogleCalendar(ctx context.Context, credentialsFile, calendarID string, duration time.Duration, loc *time.Location, opts ...option.ClientOption) (*GoogleCalendar, error) {
	all := []option.ClientOption{option.WithScopes(calendar.CalendarEventsScope)}
	if credentialsFile != "" {
		all = append(all, option.WithCredentialsFile(credentialsFile))
	}
	all = append(all, opts...)

	svc, err := calendar.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("google calendar: %w", err)
	}
	if calendarID == "" {
		calendarID = "primary"
	}
	if duration <= 0 {
		duration = time.Hour
	}
	if loc == nil {
		loc = time.UTC
	}
	return &GoogleCalendar{svc: svc, calendarID: calendarID, duration: duration, loc: loc}, nil
}

// CreateEvent inserts "Visita: <ref> - <name>" at the visit time.
func (g *GoogleCalendar) CreateEvent(ctx context.Context, v models.Visit, l models.Listing) error {
	start := v.ScheduledAt.In(g.loc)
	end := start.Add(g.duration)

	ev := &calendar.Event{
		Summary:     fmt.Sprintf("Visita: %s - %s", l.Reference, v.ClientName),
		Location:    strings.Trim(strings.TrimSpace(l.Address)+", "+strings.TrimSpace(l.City), ", "),
		Description: fmt.Sprintf("Cliente: %s\nContacto: %s\nPropiedad: %s (%s)\nAgente: %s\n%s", v.ClientName, v.ClientID, l.Reference, l.Kind, l.Agent, v.Notes),
		Start:       &calendar.EventDateTime{DateTime: start.Format(time.RFC3339), TimeZone: g.loc.String()},
		End:         &calendar.EventDateTime{DateTime: end.Format(time.RFC3339), TimeZone: g.loc.String()},
		Reminders: &calendar.EventReminders{
			UseDefault: false,
			Overrides: []*calendar.EventReminder{
				{Method: "popup", Minutes: 60},
			},
			ForceSendFields: []string{"UseDefault"},
		},
	}

	if _, err := g.svc.Events.Insert(g.calendarID, ev).Context(ctx).Do(); err != nil {
		return fmt.Errorf("%w: calendar insert: %v", models.ErrUpstreamUnavailable, err)
	}
	return nil
}
