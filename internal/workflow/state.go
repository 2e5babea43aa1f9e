package workflow

import (
	"github.com/yuklab/yuklab-bot/internal/extract"
	"github.com/yuklab/yuklab-bot/internal/model"
)

// Phase is the position of a workflow in its lifecycle. Terminal outcomes
// are not phases: a finished workflow is removed from the manager, which
// returns the chat to idle.
type Phase int

const (
	PhaseResolving Phase = iota
	PhaseVariantSelection
	PhaseCacheCheck
	PhaseExtracting
	PhaseDelivering
	PhasePersisting
)

func (p Phase) String() string {
	switch p {
	case PhaseResolving:
		return "resolving"
	case PhaseVariantSelection:
		return "variant_selection"
	case PhaseCacheCheck:
		return "cache_check"
	case PhaseExtracting:
		return "extracting"
	case PhaseDelivering:
		return "delivering"
	case PhasePersisting:
		return "persisting"
	default:
		return "unknown"
	}
}

// State is everything a workflow carries between transport updates: a plain
// value with metadata snapshots, never live process handles. Platform logic
// is stateless functions over this value.
type State struct {
	Phase     Phase
	ChatID    int64
	UserID    int64
	MessageID int
	URL       string
	Platform  model.Platform

	// Exactly one metadata snapshot is set once resolving completes,
	// matching the platform.
	Video *extract.VideoMetadata
	Short *extract.ShortVideoMetadata
	Post  *extract.PostMetadata

	// Variant is set once the user makes a choice.
	Variant model.Variant

	// PromptMessageID is the inline-button message awaiting a choice;
	// StatusMessageID is the progress notice. Both are deleted on exit.
	PromptMessageID int
	StatusMessageID int
}
