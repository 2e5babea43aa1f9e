package platform

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"

	"github.com/yuklab/yuklab-bot/internal/model"
)

// Limits on accepted input
const (
	MaxURLLength = 2048
)

// Resolution errors
var (
	ErrInvalidURL          = errors.New("invalid url")
	ErrUnsupportedPlatform = errors.New("unsupported platform")
)

// hostBlocklist contains hostnames that must never be passed to external
// tools (SSRF defense).
var hostBlocklist = map[string]struct{}{
	"localhost": {},
	"127.0.0.1": {},
	"0.0.0.0":   {},
	"::1":       {},
}

// platformDomains maps each platform to the domains it is served from. A
// hostname matches when it equals a domain or is a proper subdomain of one.
var platformDomains = map[model.Platform][]string{
	model.PlatformYouTube:   {"youtube.com", "youtu.be", "youtube-nocookie.com"},
	model.PlatformInstagram: {"instagram.com"},
	model.PlatformTikTok:    {"tiktok.com", "vm.tiktok.com"},
}

// hostnameLabel is a conservative grammar for one DNS label.
var hostnameLabel = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)

// Resolve classifies raw into a supported platform. It returns ErrInvalidURL
// for malformed or unsafe input and ErrUnsupportedPlatform for hosts outside
// the closed platform set.
func Resolve(raw string) (model.Platform, error) {
	parsed, err := validate(raw)
	if err != nil {
		return "", err
	}

	host := normalizeHost(parsed.Hostname())
	for platform, domains := range platformDomains {
		for _, domain := range domains {
			if matchesDomain(host, domain) {
				return platform, nil
			}
		}
	}

	return "", fmt.Errorf("%w: %s", ErrUnsupportedPlatform, host)
}

// Sanitize validates raw and returns its normalized form, safe to pass as a
// single argv element to external tools.
func Sanitize(raw string) (string, error) {
	parsed, err := validate(raw)
	if err != nil {
		return "", err
	}
	sanitized := parsed.String()
	if strings.ContainsAny(sanitized, "\r\n\t\x00") {
		return "", fmt.Errorf("%w: control characters in url", ErrInvalidURL)
	}
	return sanitized, nil
}

// validate runs the shared checks: length, scheme, hostname syntax and the
// private-address blocklist.
func validate(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty input", ErrInvalidURL)
	}
	if len(trimmed) > MaxURLLength {
		return nil, fmt.Errorf("%w: exceeds %d characters", ErrInvalidURL, MaxURLLength)
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("%w: scheme %q not allowed", ErrInvalidURL, parsed.Scheme)
	}

	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return nil, fmt.Errorf("%w: missing hostname", ErrInvalidURL)
	}
	if _, blocked := hostBlocklist[host]; blocked {
		return nil, fmt.Errorf("%w: blocked host", ErrInvalidURL)
	}
	if ip := net.ParseIP(host); ip != nil {
		if ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() {
			return nil, fmt.Errorf("%w: private address", ErrInvalidURL)
		}
	} else if !validHostname(host) {
		return nil, fmt.Errorf("%w: malformed hostname", ErrInvalidURL)
	}

	return parsed, nil
}

// validHostname checks every label of host against the label grammar.
func validHostname(host string) bool {
	labels := strings.Split(host, ".")
	if len(labels) < 2 {
		return false
	}
	for _, label := range labels {
		if !hostnameLabel.MatchString(label) {
			return false
		}
	}
	return true
}

// normalizeHost lowercases the hostname and strips one leading "www.".
func normalizeHost(host string) string {
	host = strings.ToLower(host)
	return strings.TrimPrefix(host, "www.")
}

// matchesDomain reports whether host equals domain or is a proper subdomain
// of it. Suffix matching requires the dot boundary, so
// "youtube.com.evil.com" does not match "youtube.com".
func matchesDomain(host, domain string) bool {
	if host == domain {
		return true
	}
	return strings.HasSuffix(host, "."+domain)
}
