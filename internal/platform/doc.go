package platform

// Package platform classifies inbound URLs into the closed set of supported
// platforms. Validation is strict: scheme and length checks, a loopback and
// RFC1918 blocklist, conservative hostname grammar, and suffix-safe domain
// matching so lookalike hosts never resolve to a supported platform.
