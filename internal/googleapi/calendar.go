package googleapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"reservo/backend/internal/domain"
	"reservo/backend/internal/slotting"
)

const defaultCalendarBaseURL = "https://www.googleapis.com/calendar/v3"

// Event colors on the shared calendar: tentative until the operator confirms.
const (
	colorTentative = "5"
	colorConfirmed = "10"
)

// executor is the slice of CredentialGateway the calendar gateway needs.
type executor interface {
	Execute(ctx context.Context, op func(ctx context.Context, c *Client) error) error
}

// CalendarConfig configures the single shared calendar. BaseURL is
// overridable for tests.
type CalendarConfig struct {
	CalendarID string
	TimeZone   *time.Location
	BaseURL    string
}

// CalendarGateway performs the remote calendar operations of the reservation
// lifecycle. Every call goes through the credential gateway's retry policy,
// so only non-authorization errors reach the caller.
type CalendarGateway struct {
	exec       executor
	calendarID string
	loc        *time.Location
	baseURL    string
	log        *slog.Logger
}

func NewCalendarGateway(exec executor, cfg CalendarConfig, log *slog.Logger) *CalendarGateway {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultCalendarBaseURL
	}
	if cfg.TimeZone == nil {
		cfg.TimeZone = time.UTC
	}
	if log == nil {
		log = slog.Default()
	}
	return &CalendarGateway{
		exec:       exec,
		calendarID: cfg.CalendarID,
		loc:        cfg.TimeZone,
		baseURL:    cfg.BaseURL,
		log:        log.With(slog.String("component", "googleapi.calendar")),
	}
}

type eventDateTime struct {
	Date     string `json:"date,omitempty"`
	DateTime string `json:"dateTime,omitempty"`
	TimeZone string `json:"timeZone,omitempty"`
}

type event struct {
	ID          string         `json:"id,omitempty"`
	Summary     string         `json:"summary,omitempty"`
	Description string         `json:"description,omitempty"`
	ColorID     string         `json:"colorId,omitempty"`
	Start       *eventDateTime `json:"start,omitempty"`
	End         *eventDateTime `json:"end,omitempty"`
}

type eventList struct {
	Items []event `json:"items"`
}

// ListBusyIntervals returns the concrete busy intervals intersecting the
// day's business window. All-day entries carry only a date and are dropped;
// they are handled by the availability filter anyway.
func (g *CalendarGateway) ListBusyIntervals(ctx context.Context, day time.Time) ([]slotting.Interval, error) {
	windowStart, windowEnd := slotting.DayWindow(day, g.loc)

	params := url.Values{
		"timeMin":      {windowStart.Format(time.RFC3339)},
		"timeMax":      {windowEnd.Format(time.RFC3339)},
		"singleEvents": {"true"},
		"showDeleted":  {"false"},
		"orderBy":      {"startTime"},
	}
	listURL := g.eventsURL("") + "?" + params.Encode()

	var list eventList
	err := g.exec.Execute(ctx, func(ctx context.Context, c *Client) error {
		return c.DoJSON(ctx, http.MethodGet, listURL, nil, &list)
	})
	if err != nil {
		return nil, err
	}

	busy := make([]slotting.Interval, 0, len(list.Items))
	for _, item := range list.Items {
		if item.Start == nil || item.End == nil {
			continue
		}
		if item.Start.DateTime == "" || item.End.DateTime == "" {
			continue
		}
		start, err := time.Parse(time.RFC3339, item.Start.DateTime)
		if err != nil {
			g.log.Warn("skipping event with unparseable start", slog.String("event_id", item.ID))
			continue
		}
		end, err := time.Parse(time.RFC3339, item.End.DateTime)
		if err != nil {
			g.log.Warn("skipping event with unparseable end", slog.String("event_id", item.ID))
			continue
		}
		busy = append(busy, slotting.Interval{Start: start, End: end})
	}

	g.log.Debug("busy intervals listed", slog.Time("day", day), slog.Int("count", len(busy)))
	return busy, nil
}

// BookEvent creates a tentative event for the reservation's window and
// returns the remote event id, which the caller must persist.
func (g *CalendarGateway) BookEvent(ctx context.Context, r domain.Reservation) (string, error) {
	body := event{
		Summary:     r.Name + " " + r.Phone,
		Description: r.Registration,
		ColorID:     colorTentative,
		Start: &eventDateTime{
			DateTime: r.StartTime.In(g.loc).Format(time.RFC3339),
			TimeZone: g.loc.String(),
		},
		End: &eventDateTime{
			DateTime: r.EndTime().In(g.loc).Format(time.RFC3339),
			TimeZone: g.loc.String(),
		},
	}

	var created event
	err := g.exec.Execute(ctx, func(ctx context.Context, c *Client) error {
		return c.DoJSON(ctx, http.MethodPost, g.eventsURL(""), body, &created)
	})
	if err != nil {
		return "", err
	}

	g.log.Info("calendar event created",
		slog.String("event_id", created.ID),
		slog.String("reservation_id", r.ID.String()),
		slog.Time("start_time", r.StartTime),
	)
	return created.ID, nil
}

// ConfirmEvent recolors the event as confirmed.
func (g *CalendarGateway) ConfirmEvent(ctx context.Context, eventID string) error {
	var current event
	err := g.exec.Execute(ctx, func(ctx context.Context, c *Client) error {
		return c.DoJSON(ctx, http.MethodGet, g.eventsURL(eventID), nil, &current)
	})
	if err != nil {
		return err
	}

	current.ColorID = colorConfirmed
	err = g.exec.Execute(ctx, func(ctx context.Context, c *Client) error {
		return c.DoJSON(ctx, http.MethodPut, g.eventsURL(eventID), current, nil)
	})
	if err != nil {
		return err
	}

	g.log.Info("calendar event confirmed", slog.String("event_id", eventID))
	return nil
}

// DeleteEvent removes the event. An event that is already gone counts as
// success so deletion stays idempotent.
func (g *CalendarGateway) DeleteEvent(ctx context.Context, eventID string) error {
	err := g.exec.Execute(ctx, func(ctx context.Context, c *Client) error {
		return c.DoJSON(ctx, http.MethodDelete, g.eventsURL(eventID), nil, nil)
	})
	if err != nil {
		if IsNotFound(err) {
			g.log.Info("calendar event already gone", slog.String("event_id", eventID))
			return nil
		}
		return err
	}

	g.log.Info("calendar event deleted", slog.String("event_id", eventID))
	return nil
}

func (g *CalendarGateway) eventsURL(eventID string) string {
	u := fmt.Sprintf("%s/calendars/%s/events", g.baseURL, url.PathEscape(g.calendarID))
	if eventID != "" {
		u += "/" + url.PathEscape(eventID)
	}
	return u
}
