package payment

import (
	"net/http"
	"regexp"
	"strings"
)

var phoneDigits = regexp.MustCompile(`^(\d{3})\d+(\d{3})$`)

// MaskPhone keeps the first and last three digits: 255754808161 -> 255******161.
func MaskPhone(phone string) string {
	if phone == "" {
		return "missing"
	}
	if !phoneDigits.MatchString(phone) {
		return strings.Repeat("*", len(phone))
	}
	m := phoneDigits.FindStringSubmatch(phone)
	return m[1] + strings.Repeat("*", len(phone)-6) + m[2]
}

var sensitiveHeaders = map[string]bool{
	"Authorization": true,
	"X-Api-Key":     true,
	"X-Signature":   true,
	"Digest":        true,
	"Cookie":        true,
}

// RedactHeaders flattens h for logging with credentials replaced.
func RedactHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		if sensitiveHeaders[http.CanonicalHeaderKey(k)] {
			out[k] = "<redacted>"
			continue
		}
		out[k] = strings.Join(v, ",")
	}
	return out
}
