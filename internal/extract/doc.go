package extract

// Package extract wraps the external extraction tools (yt-dlp, gallery-dl,
// ffmpeg) behind per-platform services. Each service fetches normalized
// metadata, downloads the chosen variant into an isolated working folder and
// guarantees removal of that folder on every failure path. Services hold no
// per-download mutable state; workflow steps pass values in and out.
