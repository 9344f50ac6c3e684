package steadfast

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/deshikart/deshikart-backend/pkg/config"
	pkgerrors "github.com/deshikart/deshikart-backend/pkg/errors"
)

const (
	maxRecipientNameLen    = 100
	maxRecipientAddressLen = 250

	responseBodyReadLimit int64 = 4096
)

// DeliveryTypeHome and DeliveryTypePoint are the courier's delivery_type flags.
const (
	DeliveryTypeHome  = 0
	DeliveryTypePoint = 1
)

// Client wraps the Steadfast courier HTTP API. A client built without
// credentials stays constructible but refuses every call with a
// courier-disabled error, so boot never depends on courier config.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	secretKey  string
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

// WithBaseURL overrides the configured courier base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// NewClient builds the courier client from configuration.
func NewClient(cfg config.SteadfastConfig, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimSpace(cfg.BaseURL),
		apiKey:     strings.TrimSpace(cfg.APIKey),
		secretKey:  strings.TrimSpace(cfg.SecretKey),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client
}

// Enabled reports whether both credentials are configured.
func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != "" && c.secretKey != ""
}

// CreateConsignmentRequest carries the order data the courier needs.
type CreateConsignmentRequest struct {
	Invoice          string
	RecipientName    string
	RecipientPhone   string
	RecipientAddress string
	CODAmount        decimal.Decimal
	AlternativePhone string
	RecipientEmail   string
	Note             string
	ItemDescription  string
	TotalLot         int
	DeliveryType     int
}

// Consignment is the courier-side shipment record returned on success.
type Consignment struct {
	ConsignmentID int64  `json:"consignment_id"`
	TrackingCode  string `json:"tracking_code"`
	Status        string `json:"status"`
}

type consignmentPayload struct {
	Invoice          string  `json:"invoice"`
	RecipientName    string  `json:"recipient_name"`
	RecipientPhone   string  `json:"recipient_phone"`
	RecipientAddress string  `json:"recipient_address"`
	CODAmount        float64 `json:"cod_amount"`
	AlternativePhone string  `json:"alternative_phone,omitempty"`
	RecipientEmail   string  `json:"recipient_email,omitempty"`
	Note             string  `json:"note,omitempty"`
	ItemDescription  string  `json:"item_description,omitempty"`
	TotalLot         *int    `json:"total_lot,omitempty"`
	DeliveryType     *int    `json:"delivery_type,omitempty"`
}

type createConsignmentResponse struct {
	Status      int             `json:"status"`
	Message     json.RawMessage `json:"message"`
	Consignment *Consignment    `json:"consignment"`
}

// CreateConsignment registers the order with the courier. Success requires
// a top-level status of 200 and a consignment object in the body; anything
// else, including timeouts, comes back as a courier error the caller can
// treat as non-fatal.
func (c *Client) CreateConsignment(ctx context.Context, req CreateConsignmentRequest) (*Consignment, error) {
	if !c.Enabled() {
		return nil, pkgerrors.New(pkgerrors.CodeCourierDisabled, "courier credentials not configured")
	}

	phone := NormalizePhone(strings.TrimSpace(req.RecipientPhone))
	if !ValidPhone(phone) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recipient phone must normalize to 11 digits")
	}

	payload := consignmentPayload{
		Invoice:          req.Invoice,
		RecipientName:    truncate(req.RecipientName, maxRecipientNameLen),
		RecipientPhone:   phone,
		RecipientAddress: truncate(req.RecipientAddress, maxRecipientAddressLen),
		CODAmount:        req.CODAmount.InexactFloat64(),
		RecipientEmail:   strings.TrimSpace(req.RecipientEmail),
		Note:             strings.TrimSpace(req.Note),
		ItemDescription:  strings.TrimSpace(req.ItemDescription),
	}
	if alt := NormalizePhone(strings.TrimSpace(req.AlternativePhone)); ValidPhone(alt) {
		payload.AlternativePhone = alt
	}
	if req.TotalLot > 0 {
		payload.TotalLot = &req.TotalLot
	}
	deliveryType := req.DeliveryType
	payload.DeliveryType = &deliveryType

	var apiResp createConsignmentResponse
	if err := c.postJSON(ctx, "create_order", payload, &apiResp); err != nil {
		return nil, err
	}

	if apiResp.Status != http.StatusOK || apiResp.Consignment == nil {
		return nil, pkgerrors.New(pkgerrors.CodeCourierError, providerMessage(apiResp.Status, apiResp.Message))
	}
	return apiResp.Consignment, nil
}

// DeliveryStatus is the courier's view of a shipment.
type DeliveryStatus struct {
	Status string `json:"delivery_status"`
}

type deliveryStatusResponse struct {
	Status         int             `json:"status"`
	Message        json.RawMessage `json:"message"`
	DeliveryStatus string          `json:"delivery_status"`
}

// StatusByConsignmentID fetches the current delivery status for a consignment.
func (c *Client) StatusByConsignmentID(ctx context.Context, consignmentID int64) (*DeliveryStatus, error) {
	return c.fetchStatus(ctx, fmt.Sprintf("status_by_cid/%d", consignmentID))
}

// StatusByInvoice fetches the current delivery status by invoice reference.
func (c *Client) StatusByInvoice(ctx context.Context, invoice string) (*DeliveryStatus, error) {
	trimmed := strings.TrimSpace(invoice)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice is required")
	}
	return c.fetchStatus(ctx, "status_by_invoice/"+trimmed)
}

// StatusByTrackingCode fetches the current delivery status by tracking code.
func (c *Client) StatusByTrackingCode(ctx context.Context, trackingCode string) (*DeliveryStatus, error) {
	trimmed := strings.TrimSpace(trackingCode)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tracking code is required")
	}
	return c.fetchStatus(ctx, "status_by_trackingcode/"+trimmed)
}

func (c *Client) fetchStatus(ctx context.Context, path string) (*DeliveryStatus, error) {
	if !c.Enabled() {
		return nil, pkgerrors.New(pkgerrors.CodeCourierDisabled, "courier credentials not configured")
	}
	var apiResp deliveryStatusResponse
	if err := c.getJSON(ctx, path, &apiResp); err != nil {
		return nil, err
	}
	if apiResp.Status != http.StatusOK {
		return nil, pkgerrors.New(pkgerrors.CodeCourierError, providerMessage(apiResp.Status, apiResp.Message))
	}
	return &DeliveryStatus{Status: apiResp.DeliveryStatus}, nil
}

// Balance is the courier account balance in BDT.
type Balance struct {
	CurrentBalance decimal.Decimal `json:"current_balance"`
}

type balanceResponse struct {
	Status         int             `json:"status"`
	Message        json.RawMessage `json:"message"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
}

// GetBalance fetches the courier account balance.
func (c *Client) GetBalance(ctx context.Context) (*Balance, error) {
	if !c.Enabled() {
		return nil, pkgerrors.New(pkgerrors.CodeCourierDisabled, "courier credentials not configured")
	}
	var apiResp balanceResponse
	if err := c.getJSON(ctx, "get_balance", &apiResp); err != nil {
		return nil, err
	}
	if apiResp.Status != http.StatusOK {
		return nil, pkgerrors.New(pkgerrors.CodeCourierError, providerMessage(apiResp.Status, apiResp.Message))
	}
	return &Balance{CurrentBalance: apiResp.CurrentBalance}, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeCourierError, err, "marshal courier request")
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.buildURL(path), bytes.NewReader(body))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeCourierError, err, "build courier request")
	}
	return c.do(httpReq, out)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.buildURL(path), nil)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeCourierError, err, "build courier request")
	}
	return c.do(httpReq, out)
}

func (c *Client) do(httpReq *http.Request, out any) error {
	httpReq.Header.Set("Api-Key", c.apiKey)
	httpReq.Header.Set("Secret-Key", c.secretKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeCourierError, err, "execute courier request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return pkgerrors.Wrap(
			pkgerrors.CodeCourierError,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))),
			"courier request failed",
		)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, responseBodyReadLimit)).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeCourierError, err, "decode courier response")
	}
	return nil
}

func (c *Client) buildURL(path string) string {
	return strings.TrimRight(c.baseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

func truncate(value string, max int) string {
	runes := []rune(value)
	if len(runes) <= max {
		return value
	}
	return string(runes[:max])
}

func providerMessage(status int, raw json.RawMessage) string {
	var msg string
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &msg); err != nil {
			msg = strings.TrimSpace(string(raw))
		}
	}
	if msg == "" {
		return fmt.Sprintf("courier rejected request with status %d", status)
	}
	return msg
}
