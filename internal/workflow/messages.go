package workflow

// User-facing notices. Technical failure detail goes to the log, never to
// the chat, except for the user-actionable URL errors.
const (
	msgAnalyzing   = "⏳ Analyzing link..."
	msgDownloading = "⬇️ Downloading..."
	msgInProgress  = "⚠️ An operation is already in progress. Finish or cancel it first."
	msgCancelled   = "Operation cancelled."
	msgInvalidURL  = "That link doesn't look right. Send a direct link to a video or post."
	msgUnsupported = "This platform isn't supported. Send a YouTube, Instagram or TikTok link."
	msgTooBig      = "The file is too large to deliver."
	msgFailed      = "Something went wrong. Please try again later."
)

// Inline button labels and callback payloads.
const (
	btnVideo  = "🎬 Video"
	btnAudio  = "🎵 Audio"
	btnCancel = "❌ Cancel"

	cbVideo       = "video"
	cbAudio       = "audio"
	cbCancel      = "cancel"
	cbQualityPref = "q:"
)
