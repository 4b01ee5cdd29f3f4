package core

import "strings"

const RedactedValue = "[REDACTED]"

// Tokens are matched against keys with case, '_' and '-' folded away, so
// IDNumber, id_number and id-number all hit "idnumber".
var sensitiveKeyTokens = []string{
	"secret",
	"apikey",
	"signature",
	"authorization",
	"password",
	"token",
	"idnumber",
	"dob",
	"dateofbirth",
}

// RedactSensitiveMap returns a copy of metadata with credential and identity
// document values replaced by RedactedValue. Nested maps and slices are
// walked. Correlation keys such as job_id stay readable.
func RedactSensitiveMap(metadata map[string]any) map[string]any {
	if len(metadata) == 0 {
		return map[string]any{}
	}
	return redactSensitiveMap(metadata)
}

func redactSensitiveMap(source map[string]any) map[string]any {
	target := make(map[string]any, len(source))
	for key, value := range source {
		if shouldRedactKey(key) {
			target[key] = RedactedValue
			continue
		}
		target[key] = redactSensitiveValue(value)
	}
	return target
}

func redactSensitiveValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		return redactSensitiveMap(typed)
	case map[string]string:
		out := make(map[string]any, len(typed))
		for key, item := range typed {
			out[key] = item
		}
		return redactSensitiveMap(out)
	case []any:
		out := make([]any, len(typed))
		for i := range typed {
			out[i] = redactSensitiveValue(typed[i])
		}
		return out
	default:
		return value
	}
}

func shouldRedactKey(key string) bool {
	key = foldKey(key)
	if key == "" || isCorrelationKey(key) {
		return false
	}
	for _, token := range sensitiveKeyTokens {
		if strings.Contains(key, token) {
			return true
		}
	}
	return false
}

func foldKey(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	return strings.NewReplacer("_", "", "-", "").Replace(key)
}

func isCorrelationKey(key string) bool {
	switch key {
	case "partnerid",
		"userid",
		"jobid",
		"smilejobid",
		"linkid",
		"requestid",
		"idempotencykey",
		"signaturepresent",
		"requiresignature":
		return true
	default:
		return false
	}
}
