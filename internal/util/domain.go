package util

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// NormalizeDomain returns the comparable domain of a URL: lowercase host,
// without port and without a leading "www.".
func NormalizeDomain(rawURL string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("parse URL: %w", err)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("parse URL: missing host in %q", rawURL)
	}
	return NormalizeHost(parsed.Host), nil
}

// NormalizeHost applies the NormalizeDomain rules to a bare host
func NormalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.TrimSuffix(host, ".")
	return strings.TrimPrefix(host, "www.")
}
