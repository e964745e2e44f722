// Package flow implements the per-user multi-flow conversational state
// machine at the heart of lifelog: the memo, life5 and review dialogue
// engines, the catalogs that define their questions, and the router that
// decides which flow claims an inbound event.
package flow

import (
	"context"

	"github.com/tsumugi-lab/lifelog/internal/models"
)

// StateManager defines the interface for managing flow state.
type StateManager interface {
	// GetCurrentState retrieves the current state for a user in a flow.
	// An empty state means the flow is not active for that user.
	GetCurrentState(ctx context.Context, userID string, flowType models.FlowType) (models.StateType, error)

	// SetCurrentState updates the current state for a user in a flow.
	SetCurrentState(ctx context.Context, userID string, flowType models.FlowType, state models.StateType) error

	// GetStateData retrieves additional data associated with the user's state.
	GetStateData(ctx context.Context, userID string, flowType models.FlowType, key models.DataKey) (string, error)

	// SetStateData stores additional data associated with the user's state.
	SetStateData(ctx context.Context, userID string, flowType models.FlowType, key models.DataKey, value string) error

	// TransitionState transitions from one state to another, verifying the
	// current state matches the expected fromState.
	TransitionState(ctx context.Context, userID string, flowType models.FlowType, fromState, toState models.StateType) error

	// ResetState removes all state data for a user in a flow.
	ResetState(ctx context.Context, userID string, flowType models.FlowType) error
}

// Messenger sends the reply for an inbound event. Flows send at most one
// reply per event, before reporting the event as handled.
type Messenger interface {
	Reply(ctx context.Context, replyToken, text string, choices []models.QuickReplyOption) error
}

// LanguageModel covers the best-effort text operations the flows delegate
// to a language model. Failures are recoverable: callers substitute a
// deterministic fallback and proceed.
type LanguageModel interface {
	// Summarize condenses text to roughly 200 characters.
	Summarize(ctx context.Context, text string) (string, error)

	// GenerateHint produces a single-line prompt hint for the given regret
	// theme, avoiding repetition of prior inputs and prior hints.
	GenerateHint(ctx context.Context, theme string, priorInputs, priorHints []string) (string, error)
}

// Recorder persists flow output to the external document store. All calls
// are best-effort from the flows' perspective: a failure is logged and the
// in-memory flow advances regardless.
type Recorder interface {
	// CreateLifeRecord creates a life5 row seeded with the Q1 summary and
	// returns its handle.
	CreateLifeRecord(ctx context.Context, userID, q1Summary string) (string, error)

	// CreateReviewRecord creates an empty review row and returns its handle.
	CreateReviewRecord(ctx context.Context, userID string) (string, error)

	// PatchRecord writes one field of an existing record. The key is the
	// flow-internal question key; the store maps it to its own field name.
	PatchRecord(ctx context.Context, recordID, key, value string) error

	// AppendMemo appends a memo entry under the destination for the given
	// category (and subcategory, where the category requires one).
	AppendMemo(ctx context.Context, category, subcategory, content string) error
}
