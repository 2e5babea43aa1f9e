package model

// MediaType classifies a deliverable artifact.
type MediaType string

const (
	MediaTypeVideo MediaType = "video"
	MediaTypeAudio MediaType = "audio"
	MediaTypeImage MediaType = "image"

	// MediaTypePost marks a multi-item carousel delivered from one URL.
	MediaTypePost MediaType = "post"

	// MediaTypeReel and MediaTypeStory are Instagram sub-variants. They are
	// collapsed to video or image before delivery and never carry a carousel.
	MediaTypeReel  MediaType = "reel"
	MediaTypeStory MediaType = "story"
)

// String returns the string representation of MediaType.
func (m MediaType) String() string {
	return string(m)
}

// Variant is the specific deliverable a user requested for a URL. Height is
// only meaningful for video variants; quality-less variants leave it zero and
// the dedup key omits it entirely.
type Variant struct {
	MediaType MediaType
	Height    int
}

// VideoVariant builds a video variant for the given vertical resolution.
func VideoVariant(height int) Variant {
	return Variant{MediaType: MediaTypeVideo, Height: height}
}

// AudioVariant builds the audio variant.
func AudioVariant() Variant {
	return Variant{MediaType: MediaTypeAudio}
}
