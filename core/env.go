package core

import (
	"context"
	"os"
	"strconv"
	"strings"
)

// EnvBinding maps one environment variable onto a dotted config key.
type EnvBinding struct {
	Name string
	Key  string
	Kind string
}

// DefaultEnvBindings is the environment surface of the link and webhook
// tooling.
var DefaultEnvBindings = []EnvBinding{
	{Name: "SMILE_PARTNER_ID", Key: "partner_id"},
	{Name: "SMILE_API_KEY", Key: "api_key"},
	{Name: "SMILE_ENVIRONMENT", Key: "environment"},
	{Name: "WEBHOOK_PORT", Key: "webhook.port", Kind: "int"},
	{Name: "WEBHOOK_URL", Key: "webhook.url"},
	{Name: "WEBHOOK_REQUIRE_SIGNATURE", Key: "webhook.require_signature", Kind: "bool"},
	{Name: "COMPANY_NAME", Key: "company.name"},
	{Name: "COMPANY_LOGO_URL", Key: "company.logo_url"},
	{Name: "PRIVACY_POLICY_URL", Key: "company.privacy_policy_url"},
	{Name: "DEFAULT_COUNTRY", Key: "defaults.country"},
	{Name: "DEFAULT_ID_TYPE", Key: "defaults.id_type"},
	{Name: "DEFAULT_VERIFICATION_METHOD", Key: "defaults.verification_method"},
	{Name: "LINK_EXPIRY_HOURS", Key: "link_expiry_hours", Kind: "int"},
	{Name: "SMILE_BATCH_DELAY_MS", Key: "batch_delay_ms", Kind: "int"},
	{Name: "SMILE_HTTP_TIMEOUT_MS", Key: "http_timeout_ms", Kind: "int"},
	{Name: "DATABASE_DRIVER", Key: "database.driver"},
	{Name: "DATABASE_DSN", Key: "database.dsn"},
}

// EnvConfigLoader builds the raw config map from environment variables.
// Unset and empty variables are left out so defaults apply.
type EnvConfigLoader struct {
	Bindings []EnvBinding
	Lookup   func(name string) (string, bool)
}

func NewEnvConfigLoader() *EnvConfigLoader {
	return &EnvConfigLoader{Bindings: DefaultEnvBindings, Lookup: os.LookupEnv}
}

func (l *EnvConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	raw := map[string]any{}
	if l == nil {
		return raw, nil
	}
	lookup := l.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	bindings := l.Bindings
	if len(bindings) == 0 {
		bindings = DefaultEnvBindings
	}
	for _, binding := range bindings {
		value, ok := lookup(binding.Name)
		value = strings.TrimSpace(value)
		if !ok || value == "" {
			continue
		}
		parsed, err := parseEnvValue(binding, value)
		if err != nil {
			return nil, err
		}
		setDotted(raw, binding.Key, parsed)
	}
	return raw, nil
}

func parseEnvValue(binding EnvBinding, value string) (any, error) {
	switch binding.Kind {
	case "int":
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return nil, NewConfigError("core: "+binding.Name+" must be an integer", binding.Key)
		}
		return parsed, nil
	case "bool":
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return nil, NewConfigError("core: "+binding.Name+" must be a boolean", binding.Key)
		}
		return parsed, nil
	default:
		return value, nil
	}
}

func setDotted(target map[string]any, key string, value any) {
	parts := strings.Split(key, ".")
	current := target
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			next = map[string]any{}
			current[part] = next
		}
		current = next
	}
	current[parts[len(parts)-1]] = value
}
