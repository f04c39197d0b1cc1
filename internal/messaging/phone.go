package messaging

import "strings"

// NormalizePhone canonicalizes a raw phone number into +-prefixed
// international form. Inputs that already carry a + keep their digits as-is;
// bare 10-digit local numbers get the default country code; any other digit
// string is only +-prefixed. Empty or digit-less input normalizes to "".
func NormalizePhone(raw, defaultCountryCode string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	digits := sanitizePhone(raw)
	if digits == "" {
		return ""
	}
	if strings.HasPrefix(raw, "+") {
		return "+" + digits
	}
	if len(digits) == 10 {
		return "+" + defaultCountryCode + digits
	}
	return "+" + digits
}

// WaID converts a phone number into the digits-only recipient id the cloud
// API expects.
func WaID(phone string) string {
	return sanitizePhone(phone)
}

func sanitizePhone(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
