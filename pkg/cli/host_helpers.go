package cli

import (
	"fmt"
	"net/url"
	"strings"
)

// normalizeHost checks a backend base URL and returns it without trailing
// slashes. A path prefix is kept for backends mounted behind a proxy.
func normalizeHost(host string) (string, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return "", fmt.Errorf("invalid host %q: host URL cannot be empty", host)
	}

	u, err := url.Parse(host)
	if err != nil {
		return "", fmt.Errorf("invalid host %q: %w", host, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid host %q: scheme must be http or https", host)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid host %q: missing host", host)
	}
	if u.User != nil {
		return "", fmt.Errorf("invalid host %q: credentials do not belong in the host URL", host)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return "", fmt.Errorf("invalid host %q: host must not include query or fragment", host)
	}
	if strings.HasPrefix(strings.TrimPrefix(u.Path, "/"), "api/") || u.Path == "/api" {
		return "", fmt.Errorf("invalid host %q: drop the /api suffix, endpoint paths already include it", host)
	}
	return strings.TrimRight(host, "/"), nil
}
