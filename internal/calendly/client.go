// Package calendly implements the scheduling provider used by the clinic. It
// wraps Calendly's v2 REST API and maps its failure modes onto the
// scheduling error taxonomy.
package calendly

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

	"github.com/wolfman30/clinic-ai-scheduler/internal/scheduling"
	"github.com/wolfman30/clinic-ai-scheduler/pkg/logging"
)

const (
	defaultBaseURL = "https://api.calendly.com"
	defaultTimeout = 20 * time.Second
)

// Client is a minimal Calendly v2 REST client.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *logging.Logger
}

// NewClient creates a Calendly client authenticating with a personal access
// token.
func NewClient(token string, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		baseURL: defaultBaseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger: logger,
	}
}

// WithBaseURL overrides the API endpoint. Used by tests.
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

// AvailableTimes lists bookable starts for an event type within [from, to).
// Calendly caps the window at 7 days per request, so callers page by week.
func (c *Client) AvailableTimes(ctx context.Context, eventType string, from, to time.Time) ([]Slot, error) {
	if strings.TrimSpace(eventType) == "" {
		return nil, errors.New("calendly: event type is required")
	}

	q := url.Values{}
	q.Set("event_type", eventType)
	q.Set("start_time", from.UTC().Format(time.RFC3339))
	q.Set("end_time", to.UTC().Format(time.RFC3339))

	var out availableTimesResponse
	if err := c.do(ctx, http.MethodGet, "/event_type_available_times?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}

	slots := make([]Slot, 0, len(out.Collection))
	for _, at := range out.Collection {
		if at.Status != "" && at.Status != "available" {
			continue
		}
		if at.InviteesRemaining == 0 {
			continue
		}
		start, err := time.Parse(time.RFC3339, at.StartTime)
		if err != nil {
			c.logger.Warn("calendly returned unparseable start time", "value", at.StartTime)
			continue
		}
		slots = append(slots, Slot{Start: start})
	}
	return slots, nil
}

// CreateEvent books a scheduled event and returns it.
func (c *Client) CreateEvent(ctx context.Context, req CreateEventRequest) (ScheduledEvent, error) {
	if strings.TrimSpace(req.EventType) == "" {
		return ScheduledEvent{}, errors.New("calendly: event type is required")
	}
	if strings.TrimSpace(req.Invitee.Email) == "" {
		return ScheduledEvent{}, errors.New("calendly: invitee email is required")
	}

	var out createEventResponse
	if err := c.do(ctx, http.MethodPost, "/scheduled_events", req, &out); err != nil {
		return ScheduledEvent{}, err
	}
	if out.Resource.URI == "" {
		return ScheduledEvent{}, errors.New("calendly: create event returned empty resource")
	}
	return out.Resource, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload, out interface{}) error {
	if strings.TrimSpace(c.token) == "" {
		return scheduling.ErrRejected
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("calendly: marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("calendly: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Network failures and timeouts are retryable.
		return scheduling.Transient(fmt.Errorf("calendly: http request: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return scheduling.Transient(fmt.Errorf("calendly: read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.statusError(resp.StatusCode, respBody)
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("calendly: unmarshal response: %w", err)
		}
	}
	return nil
}

// statusError maps an HTTP failure onto the scheduling error taxonomy.
// Conflict and gone mean the slot was claimed by someone else; throttling and
// server errors are retryable; anything else 4xx is a hard rejection.
func (c *Client) statusError(status int, body []byte) error {
	var detail apiError
	_ = json.Unmarshal(body, &detail)
	msg := detail.Message
	if msg == "" {
		msg = strings.TrimSpace(string(body))
		if len(msg) > 300 {
			msg = msg[:300]
		}
	}

	switch {
	case status == http.StatusConflict || status == http.StatusGone:
		c.logger.Info("calendly slot conflict", "status", status, "message", msg)
		return scheduling.ErrSlotTaken
	case status == http.StatusRequestTimeout || status == http.StatusTooManyRequests || status >= 500:
		return scheduling.Transient(fmt.Errorf("calendly: status %d: %s", status, msg))
	default:
		c.logger.Warn("calendly rejected request", "status", status, "message", msg)
		return fmt.Errorf("calendly: status %d: %s: %w", status, msg, scheduling.ErrRejected)
	}
}
