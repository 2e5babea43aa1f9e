package extract

// ytdlpSafeArgs are shared by every yt-dlp invocation: a browser user agent
// and gentle request pacing keep extraction from tripping bot detection.
var ytdlpSafeArgs = []string{
	"--user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"--sleep-interval", "1",
	"--max-sleep-interval", "3",
	"--no-check-certificates",
	"--no-playlist",
}

// ytdlpInfoArgs request machine-readable metadata without downloading.
var ytdlpInfoArgs = []string{"-j"}

// outputTemplate caps the title length for filesystem compatibility.
const outputTemplate = "%(title).100s.%(ext)s"

// tiktokNoWatermarkArgs request the watermark-free rendition.
var tiktokNoWatermarkArgs = []string{
	"--extractor-args", "tiktok:api_hostname=api16-normal-c-useast1a.tiktokv.com",
}
