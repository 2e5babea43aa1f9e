package platform

import (
	"errors"
	"strings"
	"testing"

	"github.com/yuklab/yuklab-bot/internal/model"
)

func TestResolveSupportedPlatforms(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected model.Platform
	}{
		{
			name:     "youtube watch url",
			url:      "https://youtube.com/watch?v=abc",
			expected: model.PlatformYouTube,
		},
		{
			name:     "youtube with www prefix",
			url:      "https://www.youtube.com/watch?v=abc",
			expected: model.PlatformYouTube,
		},
		{
			name:     "youtube mobile subdomain",
			url:      "https://m.youtube.com/watch?v=abc",
			expected: model.PlatformYouTube,
		},
		{
			name:     "youtube short link",
			url:      "https://youtu.be/abc",
			expected: model.PlatformYouTube,
		},
		{
			name:     "youtube nocookie",
			url:      "https://www.youtube-nocookie.com/embed/abc",
			expected: model.PlatformYouTube,
		},
		{
			name:     "instagram post",
			url:      "https://instagram.com/p/XYZ/",
			expected: model.PlatformInstagram,
		},
		{
			name:     "instagram www",
			url:      "https://www.instagram.com/reel/XYZ/",
			expected: model.PlatformInstagram,
		},
		{
			name:     "tiktok video",
			url:      "https://www.tiktok.com/@user/video/123",
			expected: model.PlatformTikTok,
		},
		{
			name:     "tiktok short link",
			url:      "https://vm.tiktok.com/ZM123/",
			expected: model.PlatformTikTok,
		},
		{
			name:     "uppercase host is normalized",
			url:      "https://WWW.YOUTUBE.COM/watch?v=abc",
			expected: model.PlatformYouTube,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.url)
			if err != nil {
				t.Fatalf("Resolve(%q) returned error: %v", tt.url, err)
			}
			if got != tt.expected {
				t.Errorf("Resolve(%q) = %q, want %q", tt.url, got, tt.expected)
			}
		})
	}
}

func TestResolveInvalidURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{name: "empty input", url: ""},
		{name: "whitespace only", url: "   "},
		{name: "ftp scheme", url: "ftp://youtube.com/watch?v=abc"},
		{name: "file scheme", url: "file:///etc/passwd"},
		{name: "no scheme", url: "youtube.com/watch?v=abc"},
		{name: "missing hostname", url: "https:///watch?v=abc"},
		{name: "localhost", url: "http://localhost/video"},
		{name: "loopback ip", url: "http://127.0.0.1/video"},
		{name: "unspecified ip", url: "http://0.0.0.0/video"},
		{name: "ipv6 loopback", url: "http://[::1]/video"},
		{name: "rfc1918 10.x", url: "http://10.0.0.5/video"},
		{name: "rfc1918 172.16.x", url: "http://172.16.1.1/video"},
		{name: "rfc1918 192.168.x", url: "http://192.168.0.10/video"},
		{name: "bare label hostname", url: "https://intranet/video"},
		{name: "label with underscore", url: "https://bad_host.youtube.com/watch"},
		{name: "overlong url", url: "https://youtube.com/watch?v=" + strings.Repeat("a", MaxURLLength)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(tt.url)
			if !errors.Is(err, ErrInvalidURL) {
				t.Errorf("Resolve(%q) error = %v, want ErrInvalidURL", tt.url, err)
			}
		})
	}
}

func TestResolveUnsupportedPlatform(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{name: "unknown host", url: "https://example.com/video"},
		{name: "suffix spoof", url: "https://youtube.com.evil.com/watch?v=abc"},
		{name: "prefix lookalike", url: "https://notyoutube.com/watch?v=abc"},
		{name: "tiktok spoof", url: "https://tiktok.com.attacker.net/@user"},
		{name: "public ip", url: "https://8.8.8.8/video"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(tt.url)
			if !errors.Is(err, ErrUnsupportedPlatform) {
				t.Errorf("Resolve(%q) error = %v, want ErrUnsupportedPlatform", tt.url, err)
			}
		})
	}
}

func TestSanitize(t *testing.T) {
	sanitized, err := Sanitize("  https://youtube.com/watch?v=abc ")
	if err != nil {
		t.Fatalf("Sanitize returned error: %v", err)
	}
	if sanitized != "https://youtube.com/watch?v=abc" {
		t.Errorf("Sanitize = %q, want trimmed url", sanitized)
	}

	if _, err := Sanitize("https://youtube.com/watch?v=a\nb"); !errors.Is(err, ErrInvalidURL) {
		t.Errorf("Sanitize with newline error = %v, want ErrInvalidURL", err)
	}
}
