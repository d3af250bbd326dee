package mercadopago

import (
	"net/url"
	"testing"
)

func TestValidateConfig(t *testing.T) {
	cfg := &Config{
		AccessToken: "TEST-token",
		BaseURL:     "https://api.mercadopago.com",
	}
	if err := ValidateConfig(cfg); err != nil {
		t.Fatalf("ValidateConfig should pass, got: %v", err)
	}
	if err := ValidateConfig(&Config{BaseURL: "https://api.mercadopago.com"}); err == nil {
		t.Fatalf("missing access token should fail validation")
	}
}

func TestParseConfigAndNormalize(t *testing.T) {
	raw := map[string]interface{}{
		"access_token": " TEST-token ",
		"base_url":     "",
	}
	cfg, err := ParseConfig(raw)
	if err != nil {
		t.Fatalf("ParseConfig error: %v", err)
	}
	if cfg.AccessToken != "TEST-token" {
		t.Fatalf("access token not normalized, got: %s", cfg.AccessToken)
	}
	if cfg.BaseURL != "https://api.mercadopago.com" {
		t.Fatalf("empty base url should take the default, got: %s", cfg.BaseURL)
	}
}

func TestExtractResourceID(t *testing.T) {
	query := url.Values{}
	query.Set("id", "12345")
	if got := ExtractResourceID(query, nil); got != "12345" {
		t.Fatalf("query id not extracted, got: %s", got)
	}

	query = url.Values{}
	query.Set("data.id", "678")
	if got := ExtractResourceID(query, nil); got != "678" {
		t.Fatalf("data.id query param not extracted, got: %s", got)
	}

	body := []byte(`{"type":"payment","data":{"id":"999"}}`)
	if got := ExtractResourceID(url.Values{}, body); got != "999" {
		t.Fatalf("body data.id not extracted, got: %s", got)
	}

	body = []byte(`{"resource":"https://api.mercadopago.com/v1/payments/555","topic":"payment"}`)
	if got := ExtractResourceID(url.Values{}, body); got != "555" {
		t.Fatalf("resource url id not extracted, got: %s", got)
	}

	if got := ExtractResourceID(url.Values{}, nil); got != "" {
		t.Fatalf("empty notification should yield empty id, got: %s", got)
	}
}

func TestIsPaymentTopic(t *testing.T) {
	query := url.Values{}
	query.Set("topic", "payment")
	if !IsPaymentTopic(query, nil) {
		t.Fatalf("payment topic should be accepted")
	}

	query = url.Values{}
	query.Set("topic", "merchant_order")
	if IsPaymentTopic(query, nil) {
		t.Fatalf("merchant_order topic should be skipped")
	}

	if !IsPaymentTopic(url.Values{}, []byte(`{"type":"payment"}`)) {
		t.Fatalf("payment type in body should be accepted")
	}
}
