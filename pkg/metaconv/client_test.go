package metaconv

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deshikart/deshikart-backend/pkg/config"
)

func sha(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "rahim@example.com", NormalizeEmail("  Rahim@Example.COM "))
	assert.Equal(t, "", NormalizeEmail("   "))
}

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"01712345678", "8801712345678"},
		{"+880 1712-345678", "8801712345678"},
		{"8801712345678", "8801712345678"},
		{"1712345678", "8801712345678"},
		{"12345", ""},
		{"", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizePhone(tc.in), tc.in)
	}
}

func TestNormalizeFirstName(t *testing.T) {
	assert.Equal(t, "rahim", NormalizeFirstName("Rahim Uddin"))
	assert.Equal(t, "rahim", NormalizeFirstName("  RAHIM!  "))
	assert.Equal(t, "রাহিম", NormalizeFirstName("রাহিম উদ্দিন"))
	assert.Equal(t, "", NormalizeFirstName("   "))
}

func TestSendPurchaseHashesUserData(t *testing.T) {
	var capturedPath, capturedToken string
	var capturedBody struct {
		Data []map[string]any `json:"data"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedPath = r.URL.Path
		capturedToken = r.URL.Query().Get("access_token")
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &capturedBody))
		_, _ = w.Write([]byte(`{"events_received":1}`))
	}))
	defer srv.Close()

	fixed := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	client := NewClient(
		config.MetaConfig{PixelID: "123456", AccessToken: "token-abc", APIVersion: "v21.0"},
		WithBaseURL(srv.URL),
		WithClock(func() time.Time { return fixed }),
	)

	err := client.SendPurchase(context.Background(), PurchaseEvent{
		OrderID:       "ORD-42",
		Value:         decimal.RequireFromString("1498.005"),
		Currency:      "BDT",
		CustomerName:  "Rahim Uddin",
		CustomerPhone: "01712345678",
		CustomerEmail: " Rahim@Example.com ",
		ContentIDs:    []string{"p1", "p2"},
		NumItems:      2,
		Client:        ClientInfo{IPAddress: "203.0.113.9", UserAgent: "Mozilla/5.0", SourceURL: "https://shop.example/checkout"},
	})
	require.NoError(t, err)

	assert.Equal(t, "/v21.0/123456/events", capturedPath)
	assert.Equal(t, "token-abc", capturedToken)
	require.Len(t, capturedBody.Data, 1)

	ev := capturedBody.Data[0]
	assert.Equal(t, "Purchase", ev["event_name"])
	assert.Equal(t, float64(fixed.Unix()), ev["event_time"])
	assert.Equal(t, "website", ev["action_source"])
	assert.Equal(t, "https://shop.example/checkout", ev["event_source_url"])

	ud := ev["user_data"].(map[string]any)
	assert.Equal(t, []any{sha("rahim@example.com")}, ud["em"])
	assert.Equal(t, []any{sha("8801712345678")}, ud["ph"])
	assert.Equal(t, []any{sha("rahim")}, ud["fn"])
	assert.Equal(t, "203.0.113.9", ud["client_ip_address"])
	assert.Equal(t, "Mozilla/5.0", ud["client_user_agent"])

	cd := ev["custom_data"].(map[string]any)
	assert.Equal(t, "BDT", cd["currency"])
	assert.Equal(t, 1498.01, cd["value"])
	assert.Equal(t, "ORD-42", cd["order_id"])
	assert.Equal(t, "product", cd["content_type"])
	assert.Equal(t, 2.0, cd["num_items"])
}

func TestSendAddToCart(t *testing.T) {
	var capturedBody struct {
		Data []map[string]any `json:"data"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &capturedBody))
		_, _ = w.Write([]byte(`{"events_received":1}`))
	}))
	defer srv.Close()

	client := NewClient(
		config.MetaConfig{PixelID: "123456", AccessToken: "token-abc", TestEventCode: "TEST99"},
		WithBaseURL(srv.URL),
	)

	err := client.SendAddToCart(context.Background(), AddToCartEvent{
		ProductID: "prod-7",
		Client:    ClientInfo{IPAddress: "203.0.113.9"},
	})
	require.NoError(t, err)

	require.Len(t, capturedBody.Data, 1)
	ev := capturedBody.Data[0]
	assert.Equal(t, "AddToCart", ev["event_name"])
	assert.Equal(t, "TEST99", ev["test_event_code"])
	cd := ev["custom_data"].(map[string]any)
	assert.Equal(t, []any{"prod-7"}, cd["content_ids"])
}

func TestSendPurchaseAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid OAuth access token."}}`))
	}))
	defer srv.Close()

	client := NewClient(config.MetaConfig{PixelID: "1", AccessToken: "bad"}, WithBaseURL(srv.URL))
	err := client.SendPurchase(context.Background(), PurchaseEvent{OrderID: "ORD-1", Currency: "BDT"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid OAuth access token")
}

func TestSendPurchaseDisabled(t *testing.T) {
	client := NewClient(config.MetaConfig{})
	assert.False(t, client.Enabled())
	assert.Error(t, client.SendPurchase(context.Background(), PurchaseEvent{}))
}
