package metaconv

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/deshikart/deshikart-backend/pkg/config"
	pkgerrors "github.com/deshikart/deshikart-backend/pkg/errors"
)

const (
	defaultGraphBaseURL = "https://graph.facebook.com"

	responseBodyReadLimit int64 = 4096
)

// Client sends server-side events to the Meta Conversions API. Failures are
// reported as dependency errors the caller is expected to log and swallow;
// a lost pixel event must never affect an order.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	pixelID       string
	accessToken   string
	apiVersion    string
	testEventCode string
	now           func() time.Time
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the Graph API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithClock overrides the event timestamp source.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClient builds the Conversions API client from configuration.
func NewClient(cfg config.MetaConfig, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	apiVersion := strings.TrimSpace(cfg.APIVersion)
	if apiVersion == "" {
		apiVersion = "v21.0"
	}
	client := &Client{
		httpClient:    &http.Client{Timeout: timeout},
		baseURL:       defaultGraphBaseURL,
		pixelID:       strings.TrimSpace(cfg.PixelID),
		accessToken:   strings.TrimSpace(cfg.AccessToken),
		apiVersion:    apiVersion,
		testEventCode: strings.TrimSpace(cfg.TestEventCode),
		now:           time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client
}

// Enabled reports whether pixel id and access token are configured.
func (c *Client) Enabled() bool {
	return c != nil && c.pixelID != "" && c.accessToken != ""
}

// ClientInfo carries the browser attribution fields Meta accepts unhashed.
type ClientInfo struct {
	IPAddress string
	UserAgent string
	SourceURL string
}

// PurchaseEvent describes a completed checkout.
type PurchaseEvent struct {
	OrderID       string
	Value         decimal.Decimal
	Currency      string
	CustomerName  string
	CustomerPhone string
	CustomerEmail string
	ContentIDs    []string
	NumItems      int
	Client        ClientInfo
}

// AddToCartEvent describes a product added to a cart.
type AddToCartEvent struct {
	ProductID string
	Client    ClientInfo
}

type userData struct {
	Email           []string `json:"em,omitempty"`
	Phone           []string `json:"ph,omitempty"`
	FirstName       []string `json:"fn,omitempty"`
	ClientIPAddress string   `json:"client_ip_address,omitempty"`
	ClientUserAgent string   `json:"client_user_agent,omitempty"`
}

type customData struct {
	Currency    string   `json:"currency,omitempty"`
	Value       float64  `json:"value,omitempty"`
	OrderID     string   `json:"order_id,omitempty"`
	ContentIDs  []string `json:"content_ids,omitempty"`
	NumItems    int      `json:"num_items,omitempty"`
	ContentType string   `json:"content_type,omitempty"`
}

type event struct {
	EventName      string     `json:"event_name"`
	EventTime      int64      `json:"event_time"`
	ActionSource   string     `json:"action_source"`
	UserData       userData   `json:"user_data"`
	CustomData     customData `json:"custom_data"`
	EventSourceURL string     `json:"event_source_url,omitempty"`
	TestEventCode  string     `json:"test_event_code,omitempty"`
}

type eventsResponse struct {
	EventsReceived int `json:"events_received"`
	Error          *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// SendPurchase reports a Purchase event.
func (c *Client) SendPurchase(ctx context.Context, ev PurchaseEvent) error {
	if !c.Enabled() {
		return pkgerrors.New(pkgerrors.CodeDependency, "meta conversions api not configured")
	}

	ud := userData{
		ClientIPAddress: strings.TrimSpace(ev.Client.IPAddress),
		ClientUserAgent: strings.TrimSpace(ev.Client.UserAgent),
	}
	if norm := NormalizeEmail(ev.CustomerEmail); norm != "" {
		ud.Email = []string{HashValue(norm)}
	}
	if norm := NormalizePhone(ev.CustomerPhone); norm != "" {
		ud.Phone = []string{HashValue(norm)}
	}
	if norm := NormalizeFirstName(ev.CustomerName); norm != "" {
		ud.FirstName = []string{HashValue(norm)}
	}

	value, _ := ev.Value.Round(2).Float64()
	cd := customData{
		Currency:    ev.Currency,
		Value:       value,
		OrderID:     ev.OrderID,
		ContentIDs:  ev.ContentIDs,
		NumItems:    ev.NumItems,
		ContentType: "product",
	}

	return c.sendEvents(ctx, []event{{
		EventName:      "Purchase",
		EventTime:      c.now().Unix(),
		ActionSource:   "website",
		UserData:       ud,
		CustomData:     cd,
		EventSourceURL: strings.TrimSpace(ev.Client.SourceURL),
		TestEventCode:  c.testEventCode,
	}})
}

// SendAddToCart reports an AddToCart event.
func (c *Client) SendAddToCart(ctx context.Context, ev AddToCartEvent) error {
	if !c.Enabled() {
		return pkgerrors.New(pkgerrors.CodeDependency, "meta conversions api not configured")
	}

	return c.sendEvents(ctx, []event{{
		EventName:    "AddToCart",
		EventTime:    c.now().Unix(),
		ActionSource: "website",
		UserData: userData{
			ClientIPAddress: strings.TrimSpace(ev.Client.IPAddress),
			ClientUserAgent: strings.TrimSpace(ev.Client.UserAgent),
		},
		CustomData: customData{
			ContentType: "product",
			ContentIDs:  []string{ev.ProductID},
		},
		EventSourceURL: strings.TrimSpace(ev.Client.SourceURL),
		TestEventCode:  c.testEventCode,
	}})
}

func (c *Client) sendEvents(ctx context.Context, events []event) error {
	payload, err := json.Marshal(struct {
		Data []event `json:"data"`
	}{Data: events})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal conversions payload")
	}

	endpoint := fmt.Sprintf(
		"%s/%s/%s/events?access_token=%s",
		strings.TrimRight(c.baseURL, "/"),
		c.apiVersion,
		url.PathEscape(c.pixelID),
		url.QueryEscape(c.accessToken),
	)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build conversions request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute conversions request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return pkgerrors.Wrap(
			pkgerrors.CodeDependency,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))),
			"conversions request failed",
		)
	}

	var apiResp eventsResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, responseBodyReadLimit)).Decode(&apiResp); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode conversions response")
	}
	if apiResp.Error != nil {
		return pkgerrors.New(pkgerrors.CodeDependency, apiResp.Error.Message)
	}
	return nil
}
