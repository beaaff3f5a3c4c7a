// Package calendar is the HTTP adapter for the external calendar backend.
// It is the only place that talks to the real calendar service; failures are
// classified here so the orchestrator can switch on sentinel errors.
package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/zapagenda/engine/engine/contract"
)

const maxResponseSizeBytes = 2 << 20

// Config configures the calendar backend client.
type Config struct {
	BaseURL string        `envconfig:"BASE_URL" split_words:"true" required:"true"`
	Token   string        `envconfig:"TOKEN" split_words:"true" required:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
}

// Client implements contract.CalendarGateway over the backend's REST API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

type eventPayload struct {
	ID         string    `json:"id"`
	CalendarID string    `json:"calendar_id"`
	Summary    string    `json:"summary"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
}

type listEventsResponse struct {
	Events []eventPayload `json:"events"`
}

type writeEventRequest struct {
	Summary string    `json:"summary,omitempty"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
}

func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("calendar base url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid calendar base url: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL: baseURL,
		token:   strings.TrimSpace(cfg.Token),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

func MustNew(cfg Config) *Client {
	client, err := NewClient(cfg)
	if err != nil {
		panic(err)
	}
	return client
}

// ListEvents returns the events across the given calendars overlapping
// [from, to). Times cross this boundary in UTC.
func (c *Client) ListEvents(ctx context.Context, calendarIDs []string, from, to time.Time) ([]contract.Event, error) {
	query := url.Values{}
	for _, id := range calendarIDs {
		if strings.TrimSpace(id) != "" {
			query.Add("calendar_id", id)
		}
	}
	query.Set("time_min", from.UTC().Format(time.RFC3339))
	query.Set("time_max", to.UTC().Format(time.RFC3339))

	var out listEventsResponse
	if err := c.do(ctx, http.MethodGet, "/v1/events?"+query.Encode(), nil, nil, &out); err != nil {
		return nil, err
	}

	events := make([]contract.Event, 0, len(out.Events))
	for _, ev := range out.Events {
		events = append(events, toContractEvent(ev))
	}
	return events, nil
}

// CreateEvent books a new event. Retrying with the same idempotency key is
// safe on the backend side.
func (c *Client) CreateEvent(ctx context.Context, calendarID string, start, end time.Time, summary, idempotencyKey string) (contract.Event, error) {
	body := writeEventRequest{Summary: summary, Start: start.UTC(), End: end.UTC()}
	headers := map[string]string{}
	if strings.TrimSpace(idempotencyKey) != "" {
		headers["Idempotency-Key"] = idempotencyKey
	}

	var out eventPayload
	path := "/v1/calendars/" + url.PathEscape(calendarID) + "/events"
	if err := c.do(ctx, http.MethodPost, path, headers, body, &out); err != nil {
		return contract.Event{}, err
	}
	return toContractEvent(out), nil
}

// UpdateEvent moves an existing event to a new window.
func (c *Client) UpdateEvent(ctx context.Context, eventID string, start, end time.Time) (contract.Event, error) {
	body := writeEventRequest{Start: start.UTC(), End: end.UTC()}

	var out eventPayload
	path := "/v1/events/" + url.PathEscape(eventID)
	if err := c.do(ctx, http.MethodPatch, path, nil, body, &out); err != nil {
		return contract.Event{}, err
	}
	return toContractEvent(out), nil
}

// DeleteEvent removes an event.
func (c *Client) DeleteEvent(ctx context.Context, eventID string) error {
	path := "/v1/events/" + url.PathEscape(eventID)
	return c.do(ctx, http.MethodDelete, path, nil, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, headers map[string]string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal calendar request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build calendar request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Timeouts and transport failures are all retryable from the
		// user's point of view.
		return fmt.Errorf("%w: %v", contract.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", contract.ErrGatewayUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusConflict:
		return fmt.Errorf("%w: %s %s", contract.ErrSlotConflict, method, path)
	case resp.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("%w: status=%d", contract.ErrGatewayUnavailable, resp.StatusCode)
	case resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices:
		return fmt.Errorf("calendar http status=%d body=%s", resp.StatusCode, string(raw))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode calendar response: %w", err)
	}
	return nil
}

func toContractEvent(ev eventPayload) contract.Event {
	return contract.Event{
		ID:         ev.ID,
		CalendarID: ev.CalendarID,
		Summary:    ev.Summary,
		Start:      ev.Start.UTC(),
		End:        ev.End.UTC(),
	}
}
