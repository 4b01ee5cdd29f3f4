package core

import (
	"context"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

func validConfig() Config {
	cfg := DefaultConfig()
	cfg.PartnerID = "7790"
	cfg.APIKey = "secret-key"
	return cfg
}

func TestConfigValidate_RequiresCredentials(t *testing.T) {
	err := DefaultConfig().Validate()
	if err == nil {
		t.Fatalf("expected validation error for missing credentials")
	}
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.TextCode != ErrorConfigInvalid {
		t.Fatalf("expected %s, got %s", ErrorConfigInvalid, rich.TextCode)
	}
}

func TestConfigValidate_RejectsUnknownEnvironment(t *testing.T) {
	cfg := validConfig()
	cfg.Environment = "staging"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for unknown environment")
	}
	cfg.Environment = "PRODUCTION"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected case-insensitive environment, got %v", err)
	}
}

func TestConfigEndpoints_ByEnvironment(t *testing.T) {
	cfg := validConfig()
	sandbox := cfg.Endpoints()
	if sandbox.APIBaseURL != "https://testapi.smileidentity.com/v1/smile_links" {
		t.Fatalf("unexpected sandbox api url %q", sandbox.APIBaseURL)
	}
	if sandbox.LinkBaseURL != "https://links.sandbox.usesmileid.com" {
		t.Fatalf("unexpected sandbox link url %q", sandbox.LinkBaseURL)
	}

	cfg.Environment = EnvironmentProduction
	production := cfg.Endpoints()
	if production.APIBaseURL != "https://api.smileidentity.com/v1/smile_links" {
		t.Fatalf("unexpected production api url %q", production.APIBaseURL)
	}
	if production.LinkBaseURL != "https://links.usesmileid.com" {
		t.Fatalf("unexpected production link url %q", production.LinkBaseURL)
	}
}

func TestConfigDerivedDefaults(t *testing.T) {
	cfg := validConfig()
	specs := cfg.DefaultIDTypes()
	if len(specs) != 1 || specs[0] != (IDTypeSpec{Country: "NG", IDType: "IDENTITY_CARD", VerificationMethod: "doc_verification"}) {
		t.Fatalf("unexpected default id types %#v", specs)
	}
	now := time.Date(2026, 2, 13, 12, 0, 0, 0, time.UTC)
	if got := cfg.ExpiryFrom(now); !got.Equal(now.Add(24 * time.Hour)) {
		t.Fatalf("expected 24h expiry, got %s", got)
	}
	if cfg.BatchDelay() != 100*time.Millisecond {
		t.Fatalf("expected 100ms batch delay, got %s", cfg.BatchDelay())
	}
	if cfg.ListenAddr() != ":3000" {
		t.Fatalf("expected :3000, got %s", cfg.ListenAddr())
	}
	if cfg.CompanyName() != "Afrimobile Technologies Limited" {
		t.Fatalf("unexpected company name %q", cfg.CompanyName())
	}
}

func TestEnvConfigLoader_MapsBindings(t *testing.T) {
	env := map[string]string{
		"SMILE_PARTNER_ID":          "7790",
		"SMILE_API_KEY":             "secret-key",
		"WEBHOOK_PORT":              "8080",
		"WEBHOOK_REQUIRE_SIGNATURE": "true",
		"COMPANY_NAME":              " Acme ",
		"LINK_EXPIRY_HOURS":         "",
	}
	loader := &EnvConfigLoader{Lookup: func(name string) (string, bool) {
		value, ok := env[name]
		return value, ok
	}}
	raw, err := loader.LoadRaw(context.Background())
	if err != nil {
		t.Fatalf("load raw: %v", err)
	}
	if raw["partner_id"] != "7790" || raw["api_key"] != "secret-key" {
		t.Fatalf("unexpected credentials %#v", raw)
	}
	webhook, ok := raw["webhook"].(map[string]any)
	if !ok {
		t.Fatalf("expected webhook section, got %#v", raw["webhook"])
	}
	if webhook["port"] != 8080 || webhook["require_signature"] != true {
		t.Fatalf("unexpected webhook section %#v", webhook)
	}
	company := raw["company"].(map[string]any)
	if company["name"] != "Acme" {
		t.Fatalf("expected trimmed company name, got %#v", company["name"])
	}
	if _, ok := raw["link_expiry_hours"]; ok {
		t.Fatalf("expected empty variable to be skipped")
	}
}

func TestEnvConfigLoader_RejectsMalformedNumbers(t *testing.T) {
	loader := &EnvConfigLoader{Lookup: func(name string) (string, bool) {
		if name == "LINK_EXPIRY_HOURS" {
			return "a day", true
		}
		return "", false
	}}
	if _, err := loader.LoadRaw(context.Background()); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestNewRuntime_LayersLoadedAndRuntimeConfig(t *testing.T) {
	provider := NewCfgxConfigProvider(NewStaticConfigLoader(map[string]any{
		"partner_id":  "7790",
		"api_key":     "secret-key",
		"environment": "production",
	}))
	rt, err := NewRuntime(Config{PartnerID: "9000"}, WithConfigProvider(provider))
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	cfg := rt.Config()
	if cfg.PartnerID != "9000" {
		t.Fatalf("expected runtime partner id to win, got %q", cfg.PartnerID)
	}
	if cfg.APIKey != "secret-key" {
		t.Fatalf("expected loaded api key, got %q", cfg.APIKey)
	}
	if cfg.Environment != EnvironmentProduction {
		t.Fatalf("expected production, got %q", cfg.Environment)
	}
	if cfg.LinkExpiryHours != 24 {
		t.Fatalf("expected default expiry hours, got %d", cfg.LinkExpiryHours)
	}
	if rt.Logger() == nil || rt.Metrics() == nil {
		t.Fatalf("expected default logger and metrics")
	}
}

func TestNewRuntime_FailsValidation(t *testing.T) {
	if _, err := NewRuntime(Config{}); err == nil {
		t.Fatalf("expected missing credentials to fail")
	}
}

func TestMemoryReplayLedger_ClaimsOncePerWindow(t *testing.T) {
	now := time.Date(2026, 2, 13, 12, 0, 0, 0, time.UTC)
	ledger := NewMemoryReplayLedger(time.Minute, 2)
	ledger.Now = func() time.Time { return now }
	ctx := context.Background()

	first, err := ledger.Claim(ctx, "job-1", 0)
	if err != nil || !first {
		t.Fatalf("expected first claim, got %v %v", first, err)
	}
	again, _ := ledger.Claim(ctx, "job-1", 0)
	if again {
		t.Fatalf("expected duplicate claim to be rejected")
	}

	now = now.Add(2 * time.Minute)
	afterExpiry, _ := ledger.Claim(ctx, "job-1", 0)
	if !afterExpiry {
		t.Fatalf("expected claim after expiry")
	}

	_, _ = ledger.Claim(ctx, "job-2", 0)
	_, _ = ledger.Claim(ctx, "job-3", 0)
	if ledger.Len() != 2 {
		t.Fatalf("expected capacity bound of 2, got %d", ledger.Len())
	}
	if _, err := ledger.Claim(ctx, " ", 0); err == nil {
		t.Fatalf("expected error for empty key")
	}
}
