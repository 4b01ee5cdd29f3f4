package links

import (
	"fmt"
	"sort"
	"strings"
)

// LinkIDKeys lists the response fields that may carry the link identifier,
// in lookup order.
var LinkIDKeys = []string{"ref_id", "linkId", "id", "smile_link_id"}

// ErrorMessageKeys lists the fields searched for a provider error message.
var ErrorMessageKeys = []string{"message", "error", "code"}

const unknownErrorMessage = "Unknown error"

// ExtractLinkID returns the first present identifier from LinkIDKeys.
// Empty strings, zero numbers, false and null count as absent.
func ExtractLinkID(response map[string]any) (string, bool) {
	return firstPresent(response, LinkIDKeys)
}

// ExtractErrorMessage returns message, error, or code from a failed
// response, falling back to "Unknown error".
func ExtractErrorMessage(response map[string]any) string {
	if message, ok := firstPresent(response, ErrorMessageKeys); ok {
		return message
	}
	return unknownErrorMessage
}

// ResponseKeys lists the top-level keys of a response, sorted.
func ResponseKeys(response map[string]any) []string {
	keys := make([]string, 0, len(response))
	for key := range response {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func firstPresent(response map[string]any, keys []string) (string, bool) {
	for _, key := range keys {
		value, ok := response[key]
		if !ok || !present(value) {
			continue
		}
		return stringify(value), true
	}
	return "", false
}

func present(value any) bool {
	switch typed := value.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(typed) != ""
	case bool:
		return typed
	case float64:
		return typed != 0
	case int:
		return typed != 0
	default:
		return true
	}
}

func stringify(value any) string {
	switch typed := value.(type) {
	case string:
		return strings.TrimSpace(typed)
	case float64:
		if typed == float64(int64(typed)) {
			return fmt.Sprintf("%d", int64(typed))
		}
		return fmt.Sprint(typed)
	default:
		return fmt.Sprint(typed)
	}
}
