package flow

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

var (
	ErrConfigInvalid    = errors.New("flow config invalid")
	ErrRequestFailed    = errors.New("flow request failed")
	ErrResponseInvalid  = errors.New("flow response invalid")
	ErrSignatureInvalid = errors.New("flow signature invalid")
)

const defaultTimeout = 10 * time.Second

// Config holds the Flow merchant credentials.
type Config struct {
	APIKey    string `json:"api_key"`
	SecretKey string `json:"secret_key"`
	BaseURL   string `json:"base_url"` // https://www.flow.cl/api or sandbox
	TimeoutMS int    `json:"timeout_ms"`
}

// CreateInput is a payment order creation request.
type CreateInput struct {
	CommerceOrder string // local correlation id, echoed back on getStatus
	Subject       string
	Amount        int64
	Currency      string
	PayerEmail    string
	ConfirmURL    string // webhook endpoint
	ReturnURL     string // buyer redirect after payment
}

// CreateResult is a payment order creation response.
type CreateResult struct {
	Token       string
	FlowOrder   int64
	RedirectURL string
	Raw         map[string]interface{}
}

// StatusResult is a payment status query response. Status values:
// 1 pending, 2 paid, 3 rejected, 4 canceled.
type StatusResult struct {
	FlowOrder     int64
	CommerceOrder string
	Status        int
	Amount        string
	Currency      string
	PayerEmail    string
	Raw           map[string]interface{}
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
	if strings.TrimSpace(cfg.APIKey) == "" {
		return fmt.Errorf("%w: api_key is required", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.SecretKey) == "" {
		return fmt.Errorf("%w: secret_key is required", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return fmt.Errorf("%w: base_url is required", ErrConfigInvalid)
	}
	if _, err := url.ParseRequestURI(strings.TrimSpace(cfg.BaseURL)); err != nil {
		return fmt.Errorf("%w: base_url is invalid", ErrConfigInvalid)
	}
	return nil
}

// CreatePayment creates a Flow payment order and returns the buyer
// redirect URL plus the token used later for status queries.
func CreatePayment(ctx context.Context, cfg *Config, input CreateInput) (*CreateResult, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.CommerceOrder) == "" || input.Amount <= 0 {
		return nil, fmt.Errorf("%w: payment input is invalid", ErrConfigInvalid)
	}

	params := map[string]string{
		"apiKey":          cfg.APIKey,
		"commerceOrder":   input.CommerceOrder,
		"subject":         input.Subject,
		"currency":        strings.ToUpper(strings.TrimSpace(input.Currency)),
		"amount":          fmt.Sprintf("%d", input.Amount),
		"email":           input.PayerEmail,
		"urlConfirmation": input.ConfirmURL,
		"urlReturn":       input.ReturnURL,
	}
	params["s"] = Sign(params, cfg.SecretKey)

	respBytes, err := postForm(ctx, cfg, "/payment/create", params)
	if err != nil {
		return nil, err
	}

	var raw map[string]interface{}
	_ = json.Unmarshal(respBytes, &raw)
	var resp struct {
		URL       string `json:"url"`
		Token     string `json:"token"`
		FlowOrder int64  `json:"flowOrder"`
	}
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode response failed", ErrResponseInvalid)
	}
	if strings.TrimSpace(resp.URL) == "" || strings.TrimSpace(resp.Token) == "" {
		return nil, fmt.Errorf("%w: missing url or token", ErrResponseInvalid)
	}
	return &CreateResult{
		Token:       strings.TrimSpace(resp.Token),
		FlowOrder:   resp.FlowOrder,
		RedirectURL: strings.TrimRight(resp.URL, "/") + "?token=" + url.QueryEscape(resp.Token),
		Raw:         raw,
	}, nil
}

// GetStatus queries the authoritative payment status for a token.
func GetStatus(ctx context.Context, cfg *Config, token string) (*StatusResult, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("%w: token is empty", ErrConfigInvalid)
	}

	params := map[string]string{
		"apiKey": cfg.APIKey,
		"token":  token,
	}
	params["s"] = Sign(params, cfg.SecretKey)

	query := url.Values{}
	for k, v := range params {
		query.Set(k, v)
	}
	respBytes, err := getJSON(ctx, cfg, "/payment/getStatus?"+query.Encode())
	if err != nil {
		return nil, err
	}

	var raw map[string]interface{}
	_ = json.Unmarshal(respBytes, &raw)
	var resp struct {
		FlowOrder     int64       `json:"flowOrder"`
		CommerceOrder string      `json:"commerceOrder"`
		Status        int         `json:"status"`
		Amount        json.Number `json:"amount"`
		Currency      string      `json:"currency"`
		Payer         string      `json:"payer"`
	}
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode response failed", ErrResponseInvalid)
	}
	if resp.Status == 0 {
		return nil, fmt.Errorf("%w: missing status", ErrResponseInvalid)
	}
	return &StatusResult{
		FlowOrder:     resp.FlowOrder,
		CommerceOrder: strings.TrimSpace(resp.CommerceOrder),
		Status:        resp.Status,
		Amount:        resp.Amount.String(),
		Currency:      strings.TrimSpace(resp.Currency),
		PayerEmail:    strings.TrimSpace(resp.Payer),
		Raw:           raw,
	}, nil
}

// Sign computes the Flow parameter signature: keys sorted, key and value
// concatenated pairwise, HMAC-SHA256 hex with the secret key. The s
// parameter itself is excluded.
func Sign(params map[string]string, secretKey string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if k == "s" || v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteString(params[k])
	}
	mac := hmac.New(sha256.New, []byte(secretKey))
	mac.Write([]byte(sb.String()))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks the s parameter of a callback form against the
// secret key.
func VerifySignature(cfg *Config, form map[string][]string) error {
	if cfg == nil {
		return ErrConfigInvalid
	}
	sign := strings.TrimSpace(firstValue(form, "s"))
	if sign == "" {
		return ErrSignatureInvalid
	}
	params := make(map[string]string, len(form))
	for key, values := range form {
		if len(values) == 0 {
			continue
		}
		params[key] = values[0]
	}
	expected := Sign(params, cfg.SecretKey)
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(sign))) {
		return ErrSignatureInvalid
	}
	return nil
}

func (c *Config) normalize() {
	c.APIKey = strings.TrimSpace(c.APIKey)
	c.SecretKey = strings.TrimSpace(c.SecretKey)
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.BaseURL == "" {
		c.BaseURL = "https://www.flow.cl/api"
	}
}

func (c *Config) httpClient() *http.Client {
	timeout := defaultTimeout
	if c.TimeoutMS > 0 {
		timeout = time.Duration(c.TimeoutMS) * time.Millisecond
	}
	return &http.Client{Timeout: timeout}
}

func postForm(ctx context.Context, cfg *Config, endpoint string, params map[string]string) ([]byte, error) {
	values := url.Values{}
	for k, v := range params {
		if v == "" {
			continue
		}
		values.Set(k, v)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.BaseURL+endpoint, strings.NewReader(values.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: build request failed", ErrRequestFailed)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	return doRequest(cfg, req)
}

func getJSON(ctx context.Context, cfg *Config, pathAndQuery string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.BaseURL+pathAndQuery, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request failed", ErrRequestFailed)
	}
	req.Header.Set("Accept", "application/json")
	return doRequest(cfg, req)
}

func doRequest(cfg *Config, req *http.Request) ([]byte, error) {
	resp, err := cfg.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response failed", ErrRequestFailed)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d", ErrResponseInvalid, resp.StatusCode)
	}
	return body, nil
}

func firstValue(form map[string][]string, key string) string {
	if values, ok := form[key]; ok && len(values) > 0 {
		return values[0]
	}
	return ""
}
