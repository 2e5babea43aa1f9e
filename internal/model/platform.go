package model

// Platform identifies a supported media source.
type Platform string

const (
	PlatformYouTube   Platform = "youtube"
	PlatformInstagram Platform = "instagram"
	PlatformTikTok    Platform = "tiktok"
)

// String returns the string representation of Platform.
func (p Platform) String() string {
	return string(p)
}

// IsValid reports whether p is one of the supported platforms.
func (p Platform) IsValid() bool {
	switch p {
	case PlatformYouTube, PlatformInstagram, PlatformTikTok:
		return true
	}
	return false
}
