package redact

import "strings"

// Placeholder replaces sensitive values in debug output.
const Placeholder = "[REDACTED]"

// sensitiveKeyParts is matched case-insensitively as substrings of field
// names. Anything that looks like a credential, payment detail or personal
// datum is replaced before a rejected request may be echoed or logged.
var sensitiveKeyParts = []string{
	"authorization",
	"auth",
	"token",
	"password",
	"pass",
	"secret",
	"card",
	"cvv",
	"security_code",
	"email",
	"phone",
	"mobile",
	"address",
	"street",
	"city",
	"zip",
	"postal",
	"ssn",
	"dob",
	"birth",
	"bank",
	"iban",
	"routing",
	"account_number",
}

// IsSensitiveKey reports whether a field name matches the sensitive patterns.
func IsSensitiveKey(key string) bool {
	lowered := strings.ToLower(key)
	for _, part := range sensitiveKeyParts {
		if strings.Contains(lowered, part) {
			return true
		}
	}
	return false
}

// Params returns a copy of a decoded JSON object with sensitive-looking
// fields replaced by the placeholder, recursing into nested objects and
// arrays. The input is never modified.
func Params(params map[string]any) map[string]any {
	if params == nil {
		return nil
	}
	safe := make(map[string]any, len(params))
	for key, value := range params {
		if IsSensitiveKey(key) {
			safe[key] = Placeholder
			continue
		}
		safe[key] = redactValue(value)
	}
	return safe
}

func redactValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return Params(v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = redactValue(item)
		}
		return out
	default:
		return value
	}
}
