package bot

// Package bot glues the transport to the download workflow: it consumes
// inbound updates, applies per-user rate limits and hands URLs and button
// callbacks to the workflow manager.
