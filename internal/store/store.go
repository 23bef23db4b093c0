package store

import (
	"context"

	"github.com/hannysoft/mesa-client/internal/model"
)

// Store defines the local persistence interface. It backs the two pieces of
// client state that must survive reconciliation races or reloads: the
// per-user viewed flags and the ID-indexed chat message merge store.
type Store interface {
	// === Viewed flags ===

	// SetViewed persists the suppression flag for a (user, feature) pair.
	SetViewed(ctx context.Context, userID int, feature string) error

	// IsViewed reports whether the flag is set. Absence means "never viewed".
	IsViewed(ctx context.Context, userID int, feature string) (bool, error)

	// ClearViewed removes the flag so the badge surfaces again.
	ClearViewed(ctx context.Context, userID int, feature string) error

	// === Chat message merge store ===

	// MergeMessage inserts a message by ID, last-writer-wins on conflict.
	// It reports whether the ID was previously unseen, so callers can tell
	// a genuinely new arrival from a duplicate delivery.
	MergeMessage(ctx context.Context, counterpartID int, msg model.Message) (bool, error)

	// MergeMessages merges a full history reload for one conversation.
	MergeMessages(ctx context.Context, counterpartID int, msgs []model.Message) error

	// MessagesWith returns the merged thread with a counterpart, ordered by
	// creation time.
	MessagesWith(ctx context.Context, counterpartID int) ([]model.Message, error)
}
