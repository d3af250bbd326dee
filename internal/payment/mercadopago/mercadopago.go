package mercadopago

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
)

var (
	ErrConfigInvalid   = errors.New("mercadopago config invalid")
	ErrRequestFailed   = errors.New("mercadopago request failed")
	ErrResponseInvalid = errors.New("mercadopago response invalid")
)

const (
	defaultBaseURL = "https://api.mercadopago.com"
	defaultTimeout = 12 * time.Second
)

// Config holds the Mercado Pago credentials.
type Config struct {
	AccessToken string `json:"access_token"`
	BaseURL     string `json:"base_url"`
	TimeoutMS   int    `json:"timeout_ms"`
}

// PreferenceInput is a checkout preference creation request.
type PreferenceInput struct {
	Title             string
	Quantity          int
	UnitPrice         int64
	Currency          string
	ExternalReference string // local payment id, echoed back on status queries
	PayerEmail        string
	NotificationURL   string
	SuccessURL        string
	FailureURL        string
	PendingURL        string
}

// PreferenceResult is a checkout preference creation response.
type PreferenceResult struct {
	PreferenceID string
	InitPoint    string
	Raw          map[string]interface{}
}

// PaymentStatus is the authoritative state of one provider payment.
type PaymentStatus struct {
	PaymentID         string
	Status            string // approved / rejected / cancelled / pending ...
	ExternalReference string
	TransactionAmount json.Number
	Raw               map[string]interface{}
}

// ParseConfig parses a raw channel config map.
func ParseConfig(raw map[string]interface{}) (*Config, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: empty config", ErrConfigInvalid)
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal config failed", ErrConfigInvalid)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: unmarshal config failed", ErrConfigInvalid)
	}
	cfg.normalize()
	return &cfg, nil
}

// ValidateConfig checks that the config is complete.
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: config is nil", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.AccessToken) == "" {
		return fmt.Errorf("%w: access_token is required", ErrConfigInvalid)
	}
	if _, err := url.ParseRequestURI(strings.TrimSpace(cfg.BaseURL)); err != nil {
		return fmt.Errorf("%w: base_url is invalid", ErrConfigInvalid)
	}
	return nil
}

// CreatePreference creates a checkout preference and returns the buyer
// redirect URL.
func CreatePreference(ctx context.Context, cfg *Config, input PreferenceInput) (*PreferenceResult, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	if input.Quantity <= 0 || input.UnitPrice <= 0 || strings.TrimSpace(input.ExternalReference) == "" {
		return nil, fmt.Errorf("%w: preference input is invalid", ErrConfigInvalid)
	}

	payload := map[string]interface{}{
		"items": []map[string]interface{}{
			{
				"title":       strings.TrimSpace(input.Title),
				"quantity":    input.Quantity,
				"unit_price":  input.UnitPrice,
				"currency_id": strings.ToUpper(strings.TrimSpace(input.Currency)),
			},
		},
		"external_reference": strings.TrimSpace(input.ExternalReference),
		"back_urls": map[string]string{
			"success": input.SuccessURL,
			"failure": input.FailureURL,
			"pending": input.PendingURL,
		},
		"auto_return":      "approved",
		"notification_url": input.NotificationURL,
	}
	if email := strings.TrimSpace(input.PayerEmail); email != "" {
		payload["payer"] = map[string]string{"email": email}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request failed", ErrRequestFailed)
	}

	respBody, statusCode, err := doJSONRequest(ctx, cfg, http.MethodPost, "/checkout/preferences", body)
	if err != nil {
		return nil, err
	}
	if statusCode < 200 || statusCode >= 300 {
		return nil, fmt.Errorf("%w: create preference status %d", ErrResponseInvalid, statusCode)
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(respBody, &raw); err != nil {
		return nil, fmt.Errorf("%w: decode response failed", ErrResponseInvalid)
	}

	result := &PreferenceResult{Raw: raw}
	if id, ok := raw["id"].(string); ok {
		result.PreferenceID = strings.TrimSpace(id)
	}
	if initPoint, ok := raw["init_point"].(string); ok {
		result.InitPoint = strings.TrimSpace(initPoint)
	}
	if result.PreferenceID == "" || result.InitPoint == "" {
		return nil, fmt.Errorf("%w: missing preference id or init_point", ErrResponseInvalid)
	}
	return result, nil
}

// GetPayment queries the authoritative status of one provider payment.
func GetPayment(ctx context.Context, cfg *Config, paymentID string) (*PaymentStatus, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return nil, fmt.Errorf("%w: payment id is empty", ErrConfigInvalid)
	}

	respBody, statusCode, err := doJSONRequest(ctx, cfg, http.MethodGet, "/v1/payments/"+url.PathEscape(paymentID), nil)
	if err != nil {
		return nil, err
	}
	if statusCode < 200 || statusCode >= 300 {
		return nil, fmt.Errorf("%w: get payment status %d", ErrResponseInvalid, statusCode)
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(respBody, &raw); err != nil {
		return nil, fmt.Errorf("%w: decode response failed", ErrResponseInvalid)
	}
	var resp struct {
		ID                json.Number `json:"id"`
		Status            string      `json:"status"`
		ExternalReference string      `json:"external_reference"`
		TransactionAmount json.Number `json:"transaction_amount"`
	}
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode response failed", ErrResponseInvalid)
	}
	if strings.TrimSpace(resp.Status) == "" {
		return nil, fmt.Errorf("%w: missing status", ErrResponseInvalid)
	}
	return &PaymentStatus{
		PaymentID:         resp.ID.String(),
		Status:            strings.TrimSpace(resp.Status),
		ExternalReference: strings.TrimSpace(resp.ExternalReference),
		TransactionAmount: resp.TransactionAmount,
		Raw:               raw,
	}, nil
}

// ExtractResourceID pulls the provider payment id out of a webhook
// notification. Mercado Pago delivers several shapes: the id may sit in
// the query string (?id=... or ?data.id=...) or in the JSON body under
// data.id or resource.
func ExtractResourceID(query url.Values, body []byte) string {
	if query != nil {
		for _, key := range []string{"data.id", "id"} {
			if v := strings.TrimSpace(query.Get(key)); v != "" {
				return v
			}
		}
	}
	if len(body) == 0 {
		return ""
	}
	var payload struct {
		Data struct {
			ID json.Number `json:"id"`
		} `json:"data"`
		Resource string `json:"resource"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if id := payload.Data.ID.String(); id != "" && id != "0" {
		return id
	}
	// resource may be a full URL ending in the payment id
	if payload.Resource != "" {
		parts := strings.Split(strings.TrimRight(payload.Resource, "/"), "/")
		return parts[len(parts)-1]
	}
	return ""
}

// IsPaymentTopic reports whether the notification concerns a payment
// resource rather than a merchant order or test ping.
func IsPaymentTopic(query url.Values, body []byte) bool {
	topic := strings.TrimSpace(query.Get("topic"))
	if topic == "" {
		topic = strings.TrimSpace(query.Get("type"))
	}
	if topic == "" && len(body) > 0 {
		var payload struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(body, &payload); err == nil {
			topic = strings.TrimSpace(payload.Type)
		}
	}
	return topic == "" || topic == "payment"
}

func (c *Config) normalize() {
	c.AccessToken = strings.TrimSpace(c.AccessToken)
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
}

func (c *Config) httpClient() *http.Client {
	timeout := defaultTimeout
	if c.TimeoutMS > 0 {
		timeout = time.Duration(c.TimeoutMS) * time.Millisecond
	}
	return &http.Client{Timeout: timeout}
}

func doJSONRequest(ctx context.Context, cfg *Config, method, endpoint string, body []byte) ([]byte, int, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, cfg.BaseURL+endpoint, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: build request failed", ErrRequestFailed)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+cfg.AccessToken)

	resp, err := cfg.httpClient().Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%w: read response failed", ErrRequestFailed)
	}
	return respBody, resp.StatusCode, nil
}
