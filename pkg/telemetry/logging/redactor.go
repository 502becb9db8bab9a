package logging

import (
	"log/slog"
	"regexp"
	"strings"
)

// Redactor masks personal data in log attributes. Attributes are redacted
// by key (names, dates of birth, document numbers, credentials) and string
// values are scanned for patterns such as e-mail addresses and MRZ lines.
type Redactor struct {
	patterns []*redactPattern
}

type redactPattern struct {
	regex       *regexp.Regexp
	replacement string
}

// sensitiveKeys are matched case-insensitively as substrings of the key,
// after removing '_' and '-'.
var sensitiveKeys = []string{
	"name", "givenname", "familyname",
	"dob", "dateofbirth", "birth",
	"docnumber", "documentnumber", "passport", "mrz",
	"address", "phone", "email",
	"password", "secret", "token", "apikey", "authorization",
}

// keysKept are exempt from key-based redaction even though they contain a
// sensitive substring.
var keysKept = map[string]bool{
	"listname": true, "filename": true, "listenaddress": true, "hostname": true,
}

// NewRedactor creates a redactor with the built-in patterns.
func NewRedactor() *Redactor {
	defs := []struct {
		regex       string
		replacement string
	}{
		// Machine readable zone lines of passports and ID cards
		{`\b[A-Z0-9<]{2}[A-Z<]{3}[A-Z0-9<]{25,39}`, "<mrz-redacted>"},
		// E-mail addresses
		{`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`, "***@***"},
		// IBANs
		{`\b[A-Z]{2}\d{2}[A-Z0-9]{11,30}\b`, "<iban-redacted>"},
		// Bearer tokens
		{`Bearer\s+[a-zA-Z0-9\-._~+/]+=*`, "Bearer ***"},
	}

	r := &Redactor{}
	for _, d := range defs {
		r.patterns = append(r.patterns, &redactPattern{
			regex:       regexp.MustCompile(d.regex),
			replacement: d.replacement,
		})
	}
	return r
}

// Attr returns a with sensitive values masked. Groups are redacted
// recursively.
func (r *Redactor) Attr(a slog.Attr) slog.Attr {
	v := a.Value.Resolve()

	if v.Kind() == slog.KindGroup {
		group := v.Group()
		redacted := make([]slog.Attr, len(group))
		for i, ga := range group {
			redacted[i] = r.Attr(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(redacted...)}
	}

	if IsSensitiveKey(a.Key) {
		return slog.String(a.Key, MaskValue(v.String()))
	}
	if v.Kind() == slog.KindString {
		return slog.String(a.Key, r.RedactString(v.String()))
	}
	return slog.Attr{Key: a.Key, Value: v}
}

// RedactString replaces every pattern match in value.
func (r *Redactor) RedactString(value string) string {
	if value == "" {
		return value
	}
	for _, p := range r.patterns {
		value = p.regex.ReplaceAllString(value, p.replacement)
	}
	return value
}

// IsSensitiveKey reports whether an attribute key names personal data.
func IsSensitiveKey(key string) bool {
	k := strings.ToLower(key)
	k = strings.NewReplacer("_", "", "-", "").Replace(k)
	if keysKept[k] {
		return false
	}
	for _, s := range sensitiveKeys {
		if strings.Contains(k, s) {
			return true
		}
	}
	return false
}

// MaskValue keeps the first character of values longer than four
// characters and masks the rest.
func MaskValue(v string) string {
	if v == "" {
		return ""
	}
	if len(v) <= 4 {
		return "***"
	}
	return v[:1] + "***"
}
