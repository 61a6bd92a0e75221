package logging

import (
	"regexp"
	"sort"
	"strings"
)

const redacted = "[REDACTED]"

// sensitiveSegments mark field names whose values are never logged, matched
// per segment so api_token and events-token match but tokenizer does not.
var sensitiveSegments = map[string]bool{
	"token":         true,
	"secret":        true,
	"password":      true,
	"authorization": true,
	"bearer":        true,
	"credential":    true,
	"cookie":        true,
	"auth":          true,
}

var (
	fieldSeparators = regexp.MustCompile(`[^a-z0-9]+`)
	bearerValue     = regexp.MustCompile(`(?i)\bbearer\s+[A-Za-z0-9._~+/=-]+`)
	// the events stream may authenticate with a query parameter
	tokenParam = regexp.MustCompile(`(?i)([?&](?:access_)?token=)[^&\s"]+`)
)

type redactor struct {
	secrets []string
}

func newRedactor(secrets ...string) *redactor {
	r := &redactor{}
	for _, s := range secrets {
		if s != "" {
			r.secrets = append(r.secrets, s)
		}
	}
	// longest first so a secret containing another is replaced whole
	sort.Slice(r.secrets, func(i, j int) bool { return len(r.secrets[i]) > len(r.secrets[j]) })
	return r
}

// redact returns a copy of the flattened key/value pairs with sensitive
// fields masked and string or error values scrubbed.
func (r *redactor) redact(pairs []any) []any {
	if len(pairs) == 0 {
		return pairs
	}
	out := make([]any, len(pairs))
	copy(out, pairs)
	for i := 0; i+1 < len(out); i += 2 {
		if key, ok := out[i].(string); ok && sensitiveKey(key) {
			out[i+1] = redacted
			continue
		}
		switch v := out[i+1].(type) {
		case string:
			out[i+1] = r.scrub(v)
		case error:
			out[i+1] = r.scrub(v.Error())
		}
	}
	return out
}

// scrub masks configured secrets, bearer credentials and token query
// parameters inside free text.
func (r *redactor) scrub(s string) string {
	for _, secret := range r.secrets {
		s = strings.ReplaceAll(s, secret, redacted)
	}
	s = bearerValue.ReplaceAllString(s, "Bearer "+redacted)
	return tokenParam.ReplaceAllString(s, "${1}"+redacted)
}

func sensitiveKey(key string) bool {
	for _, seg := range fieldSeparators.Split(strings.ToLower(key), -1) {
		if sensitiveSegments[seg] {
			return true
		}
	}
	return false
}
