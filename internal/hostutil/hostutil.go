// Package hostutil normalizes Central API gateway URLs.
package hostutil

import (
	"fmt"
	"net/url"
	"strings"
)

// Normalize converts a host string to a full URL.
// - Empty string returns empty
// - localhost/127.0.0.1 defaults to http://
// - Other bare hostnames default to https://
// - Full URLs are used as-is
func Normalize(host string) string {
	host = strings.TrimSpace(host)
	if host == "" {
		return ""
	}
	if strings.HasPrefix(host, "http://") || strings.HasPrefix(host, "https://") {
		return host
	}
	if IsLocalhost(host) {
		return "http://" + host
	}
	return "https://" + host
}

// NormalizeBaseURL returns a validated API gateway base URL with no trailing
// slash. Plain http is only accepted for loopback hosts.
func NormalizeBaseURL(raw string) (string, error) {
	s := strings.TrimRight(Normalize(raw), "/")
	if s == "" {
		return "", fmt.Errorf("base_url is empty")
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid base_url %q: %w", raw, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid base_url %q: missing host", raw)
	}
	if u.Scheme == "http" && !IsLocalhost(u.Host) {
		return "", fmt.Errorf("base_url %q must use https", raw)
	}
	return s, nil
}

// IsLocalhost returns true if host is localhost, a .localhost subdomain,
// 127.0.0.1, or [::1] (with optional port).
func IsLocalhost(host string) bool {
	hostWithoutPort := host
	if idx := strings.LastIndex(host, ":"); idx != -1 {
		if !strings.HasPrefix(host, "[") || strings.HasPrefix(host, "[::1]:") {
			hostWithoutPort = host[:idx]
		}
	}

	if hostWithoutPort == "localhost" || strings.HasSuffix(hostWithoutPort, ".localhost") {
		return true
	}
	if hostWithoutPort == "127.0.0.1" {
		return true
	}
	return hostWithoutPort == "[::1]"
}
