// Package harvest reads candidate websites from spreadsheets and registers
// their domains as links.
package harvest

import (
	"net/url"
	"strings"
)

// ExtractDomain reduces a URL or bare host to its domain. A scheme is
// assumed when missing; "www." and any port are dropped. It returns "" when
// no host can be found.
func ExtractDomain(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}

	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	host = strings.TrimSuffix(host, ".")
	if !strings.Contains(host, ".") || strings.ContainsAny(host, " \t") {
		return ""
	}
	return host
}
