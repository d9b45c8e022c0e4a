package shortcuts

import (
	"net"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/idna"
)

func hasHTTPScheme(raw string) bool {
	lower := strings.ToLower(raw)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// ValidateURL accepts a bare host, a host:port pair or an absolute http(s)
// URL. Input without a scheme is checked as if http:// had been prepended.
func ValidateURL(raw string) bool {
	candidate := strings.TrimSpace(raw)
	if candidate == "" {
		return false
	}
	if !hasHTTPScheme(candidate) {
		if strings.Contains(candidate, "://") {
			return false
		}
		candidate = "http://" + candidate
	}

	parsed, err := url.Parse(candidate)
	if err != nil || !validPort(parsed.Port()) {
		return false
	}
	return validHostname(parsed.Hostname())
}

func validPort(port string) bool {
	if port == "" {
		return true
	}
	n, err := strconv.Atoi(port)
	return err == nil && n >= 1 && n <= 65535
}

func validHostname(host string) bool {
	if host == "" {
		return false
	}
	if net.ParseIP(host) != nil {
		return true
	}
	if !isASCII(host) {
		ascii, err := idna.Lookup.ToASCII(host)
		if err != nil {
			return false
		}
		host = ascii
	}
	for _, label := range strings.Split(host, ".") {
		if label == "" || len(label) > 63 {
			return false
		}
		for _, r := range label {
			switch {
			case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			default:
				return false
			}
		}
	}
	return true
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// EnsureProtocol prefixes http:// when raw carries no http(s) scheme. The
// result is only used to build links; stored URLs keep the user's input.
func EnsureProtocol(raw string) string {
	if raw == "" || hasHTTPScheme(raw) {
		return raw
	}
	return "http://" + raw
}

// DisplayURL strips the http(s) scheme for display.
func DisplayURL(raw string) string {
	lower := strings.ToLower(raw)
	switch {
	case strings.HasPrefix(lower, "https://"):
		return raw[len("https://"):]
	case strings.HasPrefix(lower, "http://"):
		return raw[len("http://"):]
	}
	return raw
}
