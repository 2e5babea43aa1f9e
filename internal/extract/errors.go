package extract

import "errors"

// Extraction failure classes. Process-level failures (timeout, buffer cap,
// spawn) are wrapped into these at the service boundary after working-folder
// cleanup has run.
var (
	ErrMetadataFetch = errors.New("metadata fetch failed")
	ErrDownload      = errors.New("download failed")
	ErrTranscode     = errors.New("transcode failed")
)
