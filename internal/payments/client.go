// Package payments is a thin client for the hosted checkout provider.
// The provider owns the card form; we create a session, redirect the
// customer to its URL and read the session back after the redirect.
package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"campnest/internal/config"
)

var (
	// ErrSessionNotFound means the provider has no session with that id.
	ErrSessionNotFound = errors.New("checkout session not found")
	// ErrUpstream covers provider outages and transport failures.
	ErrUpstream = errors.New("checkout provider unavailable")
)

// Session payment states as reported by the provider.
const (
	PaymentStatusPaid   = "paid"
	PaymentStatusUnpaid = "unpaid"

	SessionStatusOpen     = "open"
	SessionStatusComplete = "complete"
	SessionStatusExpired  = "expired"
)

// CreateSessionParams describes one checkout to open with the provider.
type CreateSessionParams struct {
	AmountCents int64
	Currency    string
	ProductName string
	SuccessURL  string
	CancelURL   string
	Metadata    map[string]string
}

// Session is the provider's view of a checkout session.
type Session struct {
	ID               string
	URL              string
	Status           string
	PaymentStatus    string
	AmountTotalCents int64
	Currency         string
	Metadata         map[string]string
	ExpiresAt        time.Time
}

// Paid reports whether the provider has captured the money.
func (s *Session) Paid() bool {
	return s != nil && s.PaymentStatus == PaymentStatusPaid
}

// Expired reports whether the session lapsed without payment.
func (s *Session) Expired() bool {
	if s == nil {
		return false
	}
	if s.Status == SessionStatusExpired {
		return true
	}
	return !s.ExpiresAt.IsZero() && time.Now().After(s.ExpiresAt)
}

// Client calls the provider's REST API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zerolog.Logger
}

// NewClient constructs a provider client from config.
func NewClient(cfg config.PaymentsConfig, logger *zerolog.Logger) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// sessionEnvelope is the provider's wire format.
type sessionEnvelope struct {
	ID            string            `json:"id"`
	URL           string            `json:"url"`
	Status        string            `json:"status"`
	PaymentStatus string            `json:"payment_status"`
	AmountTotal   int64             `json:"amount_total"`
	Currency      string            `json:"currency"`
	Metadata      map[string]string `json:"metadata"`
	ExpiresAt     int64             `json:"expires_at"`
}

func (e *sessionEnvelope) toSession() *Session {
	s := &Session{
		ID:               e.ID,
		URL:              e.URL,
		Status:           e.Status,
		PaymentStatus:    e.PaymentStatus,
		AmountTotalCents: e.AmountTotal,
		Currency:         e.Currency,
		Metadata:         e.Metadata,
	}
	if e.ExpiresAt > 0 {
		s.ExpiresAt = time.Unix(e.ExpiresAt, 0)
	}
	return s
}

// CreateCheckoutSession opens a session with the provider. The form
// encoding and metadata[...] key style follow the provider's API.
func (c *Client) CreateCheckoutSession(ctx context.Context, params CreateSessionParams) (*Session, error) {
	form := url.Values{}
	form.Set("amount_total", strconv.FormatInt(params.AmountCents, 10))
	form.Set("currency", params.Currency)
	form.Set("product_name", params.ProductName)
	form.Set("success_url", params.SuccessURL)
	form.Set("cancel_url", params.CancelURL)
	for k, v := range params.Metadata {
		form.Set(fmt.Sprintf("metadata[%s]", k), v)
	}

	endpoint := c.baseURL + "/v1/checkout/sessions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build checkout request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Idempotency-Key", uuid.NewString())
	c.addHeaders(req)

	var envelope sessionEnvelope
	if err := c.do(req, &envelope); err != nil {
		return nil, err
	}
	return envelope.toSession(), nil
}

// GetCheckoutSession retrieves a session by id.
func (c *Client) GetCheckoutSession(ctx context.Context, sessionID string) (*Session, error) {
	endpoint := fmt.Sprintf("%s/v1/checkout/sessions/%s", c.baseURL, url.PathEscape(sessionID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build session request: %w", err)
	}
	c.addHeaders(req)

	var envelope sessionEnvelope
	if err := c.do(req, &envelope); err != nil {
		return nil, err
	}
	return envelope.toSession(), nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrSessionNotFound
	case resp.StatusCode >= 400:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		if c.logger != nil {
			c.logger.Warn().
				Int("status", resp.StatusCode).
				Str("url", req.URL.Path).
				Str("body", string(body)).
				Msg("checkout provider returned error")
		}
		return fmt.Errorf("%w: http %d", ErrUpstream, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrUpstream, err)
	}
	return nil
}

func (c *Client) addHeaders(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}
