package atsapi

import (
	"regexp"
	"strings"
)

// displayIDPattern matches public-facing short codes (e.g. "acme-c-1042").
// The same pattern is reused for non-candidate entities across providers, so
// a matching value is only trusted as an identity key when nothing else
// resolves.
var displayIDPattern = regexp.MustCompile(`(?i)^[a-z]{2,6}-c-\d{3,}$`)

// resolveIdentity picks a stable internal key from the given values, tried in
// order. Values matching the display-id pattern are skipped on the first pass
// and accepted only as a last resort. Returns false when nothing resolves.
func resolveIdentity(values ...string) (string, bool) {
	fallback := ""

	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if displayIDPattern.MatchString(v) {
			if fallback == "" {
				fallback = v
			}
			continue
		}
		return v, true
	}

	if fallback != "" {
		return fallback, true
	}

	return "", false
}
