package workflow

// Package workflow drives the per-conversation download wizard: URL intake,
// variant selection through inline buttons, cache lookup, extraction and
// delivery. A chat holds at most one active workflow; its state is an
// explicit phase value so illegal transitions are rejected instead of
// silently mutating shared step state.
