package conversations

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"leadbox/internal/models"
	"leadbox/internal/store"
)

// Bulk operations supported by ApplyToSelection
const (
	BulkDelete       = "delete"
	BulkMarkComplete = "markComplete"
	BulkAddNote      = "addNote"
)

// ErrBulkInFlight is returned when a bulk operation is requested while a
// prior one has not settled. New bulk work is rejected, never queued, so
// interleaved optimistic states cannot corrupt a snapshot/rollback pair.
var ErrBulkInFlight = fmt.Errorf("a bulk operation is already in flight")

// BulkResult reports per-id outcomes; a failed id never aborts the batch
type BulkResult struct {
	Succeeded []string
	Failed    []string
}

// Coordinator applies optimistic mutations: the local view changes
// immediately, the remote write follows, and the outcome commits or rolls
// back to the exact pre-mutation snapshot. Failures surface as boolean
// results with a logged cause; nothing is thrown past this boundary.
type Coordinator struct {
	svc     *Service
	store   store.RecordStore
	logger  zerolog.Logger
	timeout time.Duration

	locks      sync.Map // conversation id -> *sync.Mutex
	processing atomic.Bool
}

// NewCoordinator creates a mutation coordinator over the service's view
func NewCoordinator(svc *Service, rs store.RecordStore, logger zerolog.Logger, timeout time.Duration) *Coordinator {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Coordinator{
		svc:     svc,
		store:   rs,
		logger:  logger.With().Str("component", "coordinator").Logger(),
		timeout: timeout,
	}
}

// IsProcessing reports whether a bulk operation is in flight
func (c *Coordinator) IsProcessing() bool {
	return c.processing.Load()
}

// MarkRead marks a conversation as read
func (c *Coordinator) MarkRead(ctx context.Context, conversationID string) bool {
	return c.apply(ctx, conversationID, func(models.Thread) map[string]interface{} {
		return map[string]interface{}{"is_read": true}
	})
}

// ToggleLCP flips the automated lead-conversation feature on a thread
func (c *Coordinator) ToggleLCP(ctx context.Context, conversationID string) bool {
	return c.apply(ctx, conversationID, func(t models.Thread) map[string]interface{} {
		return map[string]interface{}{"lcp_enabled": !t.LCPEnabled}
	})
}

// ToggleReviewOverride flips the review-checking override on a thread
func (c *Coordinator) ToggleReviewOverride(ctx context.Context, conversationID string) bool {
	return c.apply(ctx, conversationID, func(t models.Thread) map[string]interface{} {
		return map[string]interface{}{"flag_review_override": !t.FlagReviewOverride}
	})
}

// UnflagForReview clears the AI review flag
func (c *Coordinator) UnflagForReview(ctx context.Context, conversationID string) bool {
	return c.apply(ctx, conversationID, func(models.Thread) map[string]interface{} {
		return map[string]interface{}{"flag_for_review": false}
	})
}

// ClearCompletionFlag clears the ready-for-completion flag
func (c *Coordinator) ClearCompletionFlag(ctx context.Context, conversationID string) bool {
	return c.apply(ctx, conversationID, func(models.Thread) map[string]interface{} {
		return map[string]interface{}{"flag": false}
	})
}

// MarkNotSpam reopens a conversation that was marked as spam
func (c *Coordinator) MarkNotSpam(ctx context.Context, conversationID string) bool {
	return c.apply(ctx, conversationID, func(models.Thread) map[string]interface{} {
		return map[string]interface{}{"spam": false}
	})
}

// Complete closes a conversation with a reason and optional next steps,
// clearing the completion-ready flag in the same write
func (c *Coordinator) Complete(ctx context.Context, conversationID, reason, nextSteps string) bool {
	return c.apply(ctx, conversationID, func(t models.Thread) map[string]interface{} {
		return map[string]interface{}{
			"completed": true,
			"flag":      false,
			"notes":     appendCompletionNote(t.Notes, reason, nextSteps),
		}
	})
}

// SaveNotes replaces the agent notes on a conversation
func (c *Coordinator) SaveNotes(ctx context.Context, conversationID, notes string) bool {
	return c.apply(ctx, conversationID, func(models.Thread) map[string]interface{} {
		return map[string]interface{}{"notes": notes}
	})
}

// ApplyToSelection runs a bulk operation over a selection. Each id is
// attempted independently and reported individually; the batch never fails
// atomically. A second bulk call while one is in flight is rejected.
func (c *Coordinator) ApplyToSelection(ctx context.Context, ids []string, operation, note string) (BulkResult, error) {
	switch operation {
	case BulkDelete, BulkMarkComplete, BulkAddNote:
	default:
		return BulkResult{}, fmt.Errorf("unknown bulk operation: %s", operation)
	}

	if !c.processing.CompareAndSwap(false, true) {
		return BulkResult{}, ErrBulkInFlight
	}
	defer c.processing.Store(false)

	opID := uuid.NewString()
	result := BulkResult{Succeeded: []string{}, Failed: []string{}}

	for _, id := range ids {
		var ok bool
		switch operation {
		case BulkDelete:
			ok = c.deleteConversation(ctx, id)
		case BulkMarkComplete:
			ok = c.Complete(ctx, id, "Completed in bulk", "")
		case BulkAddNote:
			ok = c.apply(ctx, id, func(t models.Thread) map[string]interface{} {
				return map[string]interface{}{"notes": appendNote(t.Notes, note)}
			})
		}

		if ok {
			result.Succeeded = append(result.Succeeded, id)
		} else {
			result.Failed = append(result.Failed, id)
		}
	}

	c.logger.Info().
		Str("op_id", opID).
		Str("operation", operation).
		Int("succeeded", len(result.Succeeded)).
		Int("failed", len(result.Failed)).
		Msg("Bulk operation settled")

	return result, nil
}

// apply is the single-mutation path: serialize on the conversation, snapshot
// the current thread, compute the patch against it, and run the optimistic
// update. Unknown ids fail without touching any state.
func (c *Coordinator) apply(ctx context.Context, conversationID string, makePatch func(models.Thread) map[string]interface{}) bool {
	unlock := c.lock(conversationID)
	defer unlock()

	snapshot, ok := c.svc.Thread(conversationID)
	if !ok {
		c.logger.Warn().Str("conversation_id", conversationID).Msg("Mutation on unknown conversation")
		return false
	}

	patch := makePatch(snapshot)
	patched := applyPatch(snapshot, patch)

	return c.withOptimisticUpdate(ctx, conversationID, snapshot, patched, patch)
}

// withOptimisticUpdate is the snapshot/patch/commit-or-rollback primitive
// every mutation goes through. The local view reflects the patch before the
// network confirms; a failed write restores the snapshot exactly.
func (c *Coordinator) withOptimisticUpdate(ctx context.Context, conversationID string, snapshot, patched models.Thread, patch map[string]interface{}) bool {
	c.svc.ReplaceThread(patched)

	// A started write always settles to commit or rollback, even when the
	// caller has navigated away, so detach from the caller's cancellation
	// but keep an explicit timeout.
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	res, err := c.store.Update(wctx, store.UpdateParams{
		Table: store.TableThreads,
		Key:   "conversation_id",
		Value: conversationID,
		Patch: patch,
	})
	if err != nil || !res.Success {
		c.svc.ReplaceThread(snapshot)
		c.logger.Error().
			Err(err).
			Str("conversation_id", conversationID).
			Str("mutation_id", uuid.NewString()).
			Msg("Mutation failed, rolled back to snapshot")
		return false
	}

	return true
}

// deleteConversation removes a conversation optimistically; the store write
// is a soft-delete patch and a failure restores the record locally
func (c *Coordinator) deleteConversation(ctx context.Context, conversationID string) bool {
	unlock := c.lock(conversationID)
	defer unlock()

	snapshot, ok := c.svc.Thread(conversationID)
	if !ok {
		return false
	}

	c.svc.RemoveConversation(conversationID)

	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	res, err := c.store.Update(wctx, store.UpdateParams{
		Table: store.TableThreads,
		Key:   "conversation_id",
		Value: conversationID,
		Patch: map[string]interface{}{"deleted": true},
	})
	if err != nil || !res.Success {
		c.svc.ReplaceThread(snapshot)
		c.logger.Error().
			Err(err).
			Str("conversation_id", conversationID).
			Msg("Delete failed, conversation restored")
		return false
	}

	return true
}

// lock serializes mutations per conversation so a stale snapshot can never
// overwrite a newer optimistic state
func (c *Coordinator) lock(conversationID string) func() {
	muAny, _ := c.locks.LoadOrStore(conversationID, &sync.Mutex{})
	mu := muAny.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// applyPatch mirrors a store field patch onto the canonical thread shape
func applyPatch(t models.Thread, patch map[string]interface{}) models.Thread {
	for key, value := range patch {
		switch key {
		case "is_read":
			t.Read = value == true
		case "flag":
			t.Flag = value == true
		case "flag_for_review":
			t.FlagForReview = value == true
		case "flag_review_override":
			t.FlagReviewOverride = value == true
		case "busy":
			t.Busy = value == true
		case "spam":
			t.Spam = value == true
		case "lcp_enabled":
			t.LCPEnabled = value == true
		case "completed":
			t.Completed = value == true
		case "notes":
			if s, ok := value.(string); ok {
				t.Notes = s
			}
		}
	}
	return t
}

func appendCompletionNote(notes, reason, nextSteps string) string {
	var b strings.Builder
	if notes != "" {
		b.WriteString(notes)
		b.WriteString("\n")
	}
	b.WriteString("Completed: ")
	b.WriteString(reason)
	if nextSteps != "" {
		b.WriteString(" / Next steps: ")
		b.WriteString(nextSteps)
	}
	return b.String()
}

func appendNote(notes, note string) string {
	if notes == "" {
		return note
	}
	return notes + "\n" + note
}
