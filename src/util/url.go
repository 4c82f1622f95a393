package util

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	absoluteURL       = regexp.MustCompile(`^https?:\/\/`)
	protocolLocalURL  = regexp.MustCompile(`^\/\/.`)
	loopbackHostnames = map[string]string{"": "127.0.0.1", "0.0.0.0": "127.0.0.1", "[::]": "[::1]"}
)

// NormalizeBaseURL turns a configured base URL into an absolute URL without a
// trailing slash. Accepted forms are "http://host:port/prefix",
// "//host:port/prefix" and ":port" or "host:port", the latter being expanded
// to plain HTTP.
func NormalizeBaseURL(base string) (string, error) {
	switch {
	case absoluteURL.MatchString(base):
	case protocolLocalURL.MatchString(base):
		// Assume plain HTTP. If you are smart enough to set up HTTPS you are
		// also smart enough to configure the scheme.
		base = "http:" + base
	case strings.Contains(base, ":") && !strings.Contains(base, "/"):
		i := strings.LastIndex(base, ":")
		host, port := base[:i], base[i+1:]
		if lo, ok := loopbackHostnames[host]; ok {
			host = lo
		}
		base = fmt.Sprintf("http://%s:%s", host, port)
	default:
		return "", fmt.Errorf("unsupported base URL format: %q", base)
	}

	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base URL %q: %w", base, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("base URL %q has no host", base)
	}
	return strings.TrimRight(u.String(), "/"), nil
}

// JoinURL appends an already escaped path to a normalized base URL. Exactly
// one slash separates the two, a trailing slash on the path is kept.
func JoinURL(base, escapedPath string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(escapedPath, "/")
}
