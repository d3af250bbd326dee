package flow

import "testing"

func TestValidateConfig(t *testing.T) {
	cfg := &Config{
		APIKey:    "key",
		SecretKey: "secret",
		BaseURL:   "https://sandbox.flow.cl/api",
	}
	if err := ValidateConfig(cfg); err != nil {
		t.Fatalf("ValidateConfig should pass, got: %v", err)
	}
}

func TestParseConfigAndNormalize(t *testing.T) {
	raw := map[string]interface{}{
		"api_key":    " key ",
		"secret_key": " secret ",
		"base_url":   "https://www.flow.cl/api/",
	}
	cfg, err := ParseConfig(raw)
	if err != nil {
		t.Fatalf("ParseConfig error: %v", err)
	}
	if cfg.APIKey != "key" {
		t.Fatalf("api key not normalized, got: %s", cfg.APIKey)
	}
	if cfg.BaseURL != "https://www.flow.cl/api" {
		t.Fatalf("base url not normalized, got: %s", cfg.BaseURL)
	}
}

func TestSignIsOrderIndependentAndExcludesS(t *testing.T) {
	a := Sign(map[string]string{"apiKey": "k", "token": "t"}, "secret")
	b := Sign(map[string]string{"token": "t", "apiKey": "k"}, "secret")
	if a != b {
		t.Fatalf("signature should not depend on map order: %s vs %s", a, b)
	}
	c := Sign(map[string]string{"apiKey": "k", "token": "t", "s": "garbage"}, "secret")
	if a != c {
		t.Fatalf("signature should exclude the s parameter: %s vs %s", a, c)
	}
	if Sign(map[string]string{"apiKey": "k"}, "other") == Sign(map[string]string{"apiKey": "k"}, "secret") {
		t.Fatalf("signature should depend on the secret key")
	}
}

func TestVerifySignature(t *testing.T) {
	cfg := &Config{APIKey: "key", SecretKey: "secret", BaseURL: "https://www.flow.cl/api"}
	params := map[string]string{"token": "abc", "apiKey": "key"}
	sign := Sign(params, cfg.SecretKey)

	form := map[string][]string{
		"token":  {"abc"},
		"apiKey": {"key"},
		"s":      {sign},
	}
	if err := VerifySignature(cfg, form); err != nil {
		t.Fatalf("valid signature rejected: %v", err)
	}

	form["s"] = []string{"deadbeef"}
	if err := VerifySignature(cfg, form); err == nil {
		t.Fatalf("tampered signature accepted")
	}
}
