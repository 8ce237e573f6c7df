// Package conversations holds the conversation view model: aggregation of
// persisted threads and messages into processed conversations, metrics and
// trend reduction, the filter/sort pipeline, and the optimistic mutation
// coordinator that keeps the local view and the record store consistent.
package conversations

import (
	"fmt"
	"sort"
	"time"

	"leadbox/internal/models"
)

// Aggregate joins threads with their messages and derives the processed view.
// It is a pure function of its inputs plus the current clock; all I/O belongs
// to callers.
func Aggregate(threads []models.Thread, messagesByThread map[string][]models.Message) []models.ProcessedConversation {
	return AggregateAt(time.Now().UTC(), threads, messagesByThread)
}

// AggregateAt is Aggregate with an explicit clock. Calling it twice with the
// same inputs and instant yields deep-equal output.
func AggregateAt(now time.Time, threads []models.Thread, messagesByThread map[string][]models.Message) []models.ProcessedConversation {
	processed := make([]models.ProcessedConversation, 0, len(threads))
	for _, thread := range threads {
		processed = append(processed, processOne(now, thread, messagesByThread[thread.ConversationID]))
	}
	return processed
}

// Reprocess recomputes the derived fields for a single conversation after its
// underlying thread or messages changed. The result replaces the old record
// wholesale.
func Reprocess(now time.Time, thread models.Thread, messages []models.Message) models.ProcessedConversation {
	return processOne(now, thread, messages)
}

func processOne(now time.Time, thread models.Thread, messages []models.Message) models.ProcessedConversation {
	// Sort a copy ascending by timestamp; stable so same-instant messages
	// keep their insertion order
	sorted := make([]models.Message, len(messages))
	copy(sorted, messages)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	status := deriveStatus(thread, sorted)
	score := latestEVScore(sorted)

	lastMessageAt := thread.LastMessageAt
	if len(sorted) > 0 {
		lastMessageAt = sorted[len(sorted)-1].Timestamp
	}

	return models.ProcessedConversation{
		Conversation: models.Conversation{
			Thread:   thread,
			Messages: sorted,
		},
		Status:       status,
		EVScore:      copyScore(score),
		Priority:     derivePriority(now, status, score, lastMessageAt),
		LastActivity: FormatRelativeTime(now, lastMessageAt),
	}
}

// deriveStatus evaluates the status chain in strict priority order; the first
// match wins. This ordering is the core business rule of the inbox.
func deriveStatus(thread models.Thread, messages []models.Message) models.Status {
	switch {
	case thread.Spam:
		return models.StatusSpam
	case thread.FlagForReview && !thread.FlagReviewOverride:
		// an override silences the flag even if the AI set it
		return models.StatusFlagged
	case thread.Completed:
		return models.StatusCompleted
	case awaitingReply(thread, messages):
		return models.StatusPending
	default:
		return models.StatusActive
	}
}

// awaitingReply reports whether the lead is owed a response: the most recent
// message is inbound and no outbound send is already in flight
func awaitingReply(thread models.Thread, messages []models.Message) bool {
	if len(messages) == 0 {
		return false
	}
	return messages[len(messages)-1].Type == models.MessageInbound && !thread.Busy
}

// latestEVScore returns the score of the most recent evaluable message:
// scanning from the end, the first inbound message carrying a valid score.
// Outbound messages, unscored inbounds and out-of-range values are skipped,
// never substituted.
func latestEVScore(messages []models.Message) *float64 {
	for i := len(messages) - 1; i >= 0; i-- {
		m := messages[i]
		if m.Type != models.MessageInbound || m.EVScore == nil {
			continue
		}
		// the comparisons also reject NaN
		if s := *m.EVScore; s >= 0 && s <= 100 {
			return m.EVScore
		}
	}
	return nil
}

// derivePriority maps the EV score and pending-reply age onto a priority.
// An unscored conversation with no aging pending reply sits at normal.
func derivePriority(now time.Time, status models.Status, score *float64, lastMessageAt time.Time) models.Priority {
	var pendingAge time.Duration
	if status == models.StatusPending && !lastMessageAt.IsZero() {
		pendingAge = now.Sub(lastMessageAt)
	}

	ev := -1.0
	if score != nil {
		ev = *score
	}

	switch {
	case ev >= 85 || pendingAge > 48*time.Hour:
		return models.PriorityUrgent
	case ev >= 70 || pendingAge > 24*time.Hour:
		return models.PriorityHigh
	case ev >= 40 || ev < 0:
		return models.PriorityNormal
	default:
		return models.PriorityLow
	}
}

// FormatRelativeTime renders an instant relative to now for the inbox list
func FormatRelativeTime(now, t time.Time) string {
	if t.IsZero() {
		return "no activity"
	}

	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Format("Jan 2, 2006")
	}
}

func copyScore(score *float64) *float64 {
	if score == nil {
		return nil
	}
	v := *score
	return &v
}
