package model

// Package model defines domain data structures shared across the bot: the
// supported platform enum, media type and variant discriminators, and the
// persisted download/forward records with their dedup key semantics.
