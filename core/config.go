package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	defaultCompanyName        = "Afrimobile Technologies Limited"
	defaultCountry            = "NG"
	defaultIDType             = "IDENTITY_CARD"
	defaultVerificationMethod = "doc_verification"
	defaultLinkExpiryHours    = 24
	defaultWebhookPort        = 3000
	defaultBatchDelayMS       = 100
	defaultHTTPTimeoutMS      = 30000
	defaultDatabaseDriver     = "sqlite3"
)

type Environment string

const (
	EnvironmentSandbox    Environment = "sandbox"
	EnvironmentProduction Environment = "production"
)

type Endpoints struct {
	APIBaseURL  string
	LinkBaseURL string
}

var environmentEndpoints = map[Environment]Endpoints{
	EnvironmentSandbox: {
		APIBaseURL:  "https://testapi.smileidentity.com/v1/smile_links",
		LinkBaseURL: "https://links.sandbox.usesmileid.com",
	},
	EnvironmentProduction: {
		APIBaseURL:  "https://api.smileidentity.com/v1/smile_links",
		LinkBaseURL: "https://links.usesmileid.com",
	},
}

type WebhookConfig struct {
	Port             int    `koanf:"port" mapstructure:"port"`
	URL              string `koanf:"url" mapstructure:"url"`
	RequireSignature bool   `koanf:"require_signature" mapstructure:"require_signature"`
}

type CompanyConfig struct {
	Name             string `koanf:"name" mapstructure:"name"`
	LogoURL          string `koanf:"logo_url" mapstructure:"logo_url"`
	PrivacyPolicyURL string `koanf:"privacy_policy_url" mapstructure:"privacy_policy_url"`
}

type DefaultsConfig struct {
	Country            string `koanf:"country" mapstructure:"country"`
	IDType             string `koanf:"id_type" mapstructure:"id_type"`
	VerificationMethod string `koanf:"verification_method" mapstructure:"verification_method"`
}

type DatabaseConfig struct {
	Driver string `koanf:"driver" mapstructure:"driver"`
	DSN    string `koanf:"dsn" mapstructure:"dsn"`
}

// Config is resolved once at startup and passed by value into every
// constructor. Nothing in this module reads the environment after that.
type Config struct {
	PartnerID       string         `koanf:"partner_id" mapstructure:"partner_id"`
	APIKey          string         `koanf:"api_key" mapstructure:"api_key"`
	Environment     Environment    `koanf:"environment" mapstructure:"environment"`
	Webhook         WebhookConfig  `koanf:"webhook" mapstructure:"webhook"`
	Company         CompanyConfig  `koanf:"company" mapstructure:"company"`
	Defaults        DefaultsConfig `koanf:"defaults" mapstructure:"defaults"`
	LinkExpiryHours int            `koanf:"link_expiry_hours" mapstructure:"link_expiry_hours"`
	BatchDelayMS    int            `koanf:"batch_delay_ms" mapstructure:"batch_delay_ms"`
	HTTPTimeoutMS   int            `koanf:"http_timeout_ms" mapstructure:"http_timeout_ms"`
	Database        DatabaseConfig `koanf:"database" mapstructure:"database"`
}

func DefaultConfig() Config {
	return Config{
		Environment: EnvironmentSandbox,
		Webhook: WebhookConfig{
			Port: defaultWebhookPort,
		},
		Company: CompanyConfig{
			Name: defaultCompanyName,
		},
		Defaults: DefaultsConfig{
			Country:            defaultCountry,
			IDType:             defaultIDType,
			VerificationMethod: defaultVerificationMethod,
		},
		LinkExpiryHours: defaultLinkExpiryHours,
		BatchDelayMS:    defaultBatchDelayMS,
		HTTPTimeoutMS:   defaultHTTPTimeoutMS,
		Database: DatabaseConfig{
			Driver: defaultDatabaseDriver,
		},
	}
}

func (c Config) Validate() error {
	var fields []string
	if strings.TrimSpace(c.PartnerID) == "" {
		fields = append(fields, "partner_id")
	}
	if strings.TrimSpace(c.APIKey) == "" {
		fields = append(fields, "api_key")
	}
	if len(fields) > 0 {
		return NewConfigError(fmt.Sprintf("core: %s is required", strings.Join(fields, ", ")), fields...)
	}
	if _, ok := environmentEndpoints[c.normalizedEnvironment()]; !ok {
		return NewConfigError(fmt.Sprintf("core: unsupported environment %q", c.Environment), "environment")
	}
	if c.LinkExpiryHours <= 0 {
		return NewConfigError("core: link_expiry_hours must be positive", "link_expiry_hours")
	}
	if c.BatchDelayMS < 0 {
		return NewConfigError("core: batch_delay_ms must not be negative", "batch_delay_ms")
	}
	if c.Webhook.Port < 0 || c.Webhook.Port > 65535 {
		return NewConfigError("core: webhook.port is out of range", "webhook.port")
	}
	return nil
}

func (c Config) normalizedEnvironment() Environment {
	env := Environment(strings.ToLower(strings.TrimSpace(string(c.Environment))))
	if env == "" {
		return EnvironmentSandbox
	}
	return env
}

// Endpoints returns the provider hosts for the configured environment.
// Anything other than production resolves to sandbox.
func (c Config) Endpoints() Endpoints {
	if c.normalizedEnvironment() == EnvironmentProduction {
		return environmentEndpoints[EnvironmentProduction]
	}
	return environmentEndpoints[EnvironmentSandbox]
}

func (c Config) Credentials() Credentials {
	return Credentials{
		PartnerID:   strings.TrimSpace(c.PartnerID),
		SecretKey:   c.APIKey,
		Environment: c.normalizedEnvironment(),
	}
}

func (c Config) DefaultIDTypes() []IDTypeSpec {
	return []IDTypeSpec{{
		Country:            firstNonEmpty(c.Defaults.Country, defaultCountry),
		IDType:             firstNonEmpty(c.Defaults.IDType, defaultIDType),
		VerificationMethod: firstNonEmpty(c.Defaults.VerificationMethod, defaultVerificationMethod),
	}}
}

func (c Config) LinkExpiry() time.Duration {
	hours := c.LinkExpiryHours
	if hours <= 0 {
		hours = defaultLinkExpiryHours
	}
	return time.Duration(hours) * time.Hour
}

// ExpiryFrom returns now plus the configured link lifetime.
func (c Config) ExpiryFrom(now time.Time) time.Time {
	return now.UTC().Add(c.LinkExpiry())
}

func (c Config) BatchDelay() time.Duration {
	if c.BatchDelayMS < 0 {
		return 0
	}
	return time.Duration(c.BatchDelayMS) * time.Millisecond
}

func (c Config) HTTPTimeout() time.Duration {
	if c.HTTPTimeoutMS <= 0 {
		return time.Duration(defaultHTTPTimeoutMS) * time.Millisecond
	}
	return time.Duration(c.HTTPTimeoutMS) * time.Millisecond
}

func (c Config) ListenAddr() string {
	port := c.Webhook.Port
	if port <= 0 {
		port = defaultWebhookPort
	}
	return fmt.Sprintf(":%d", port)
}

func (c Config) CompanyName() string {
	return firstNonEmpty(c.Company.Name, defaultCompanyName)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
