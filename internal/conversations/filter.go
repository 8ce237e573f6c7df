package conversations

import (
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"leadbox/internal/models"
)

// Filter applies the declarative filter spec to a processed view. Predicates
// are AND-combined across categories; statuses within the spec are
// OR-combined. The input slice is never mutated.
func Filter(items []models.ProcessedConversation, spec models.FilterSpec) []models.ProcessedConversation {
	fold := cases.Fold()
	query := strings.TrimSpace(fold.String(spec.SearchQuery))

	out := make([]models.ProcessedConversation, 0, len(items))
	for _, item := range items {
		if !matchesStatus(item, spec) {
			continue
		}
		if !matchesScoreRange(item, spec) {
			continue
		}
		if !matchesDateRange(item, spec) {
			continue
		}
		if spec.ShowPendingOnly && item.Status != models.StatusPending {
			continue
		}
		if query != "" && !matchesSearch(item, query) {
			continue
		}
		out = append(out, item)
	}
	return out
}

func matchesStatus(item models.ProcessedConversation, spec models.FilterSpec) bool {
	if len(spec.Statuses) == 0 {
		return true
	}
	for _, s := range spec.Statuses {
		if item.Status == s {
			return true
		}
	}
	return false
}

// matchesScoreRange applies the inclusive EV range. Nil bounds mean
// unbounded, so an explicit [0,0] request stays distinguishable from an
// unset range.
func matchesScoreRange(item models.ProcessedConversation, spec models.FilterSpec) bool {
	if spec.EVScoreMin == nil && spec.EVScoreMax == nil {
		return true
	}

	min, max := 0.0, 100.0
	if spec.EVScoreMin != nil {
		min = *spec.EVScoreMin
	}
	if spec.EVScoreMax != nil {
		max = *spec.EVScoreMax
	}

	if item.EVScore == nil {
		// unscored conversations pass only while the range spans the
		// whole scale; a narrowed range asks about scores
		return min <= 0 && max >= 100
	}
	return *item.EVScore >= min && *item.EVScore <= max
}

func matchesDateRange(item models.ProcessedConversation, spec models.FilterSpec) bool {
	t := lastActivityTime(item)
	if spec.DateFrom != nil && t.Before(*spec.DateFrom) {
		return false
	}
	if spec.DateTo != nil && t.After(*spec.DateTo) {
		return false
	}
	return true
}

// matchesSearch does a case-folded substring match against the lead name,
// email, conversation id and AI summary
func matchesSearch(item models.ProcessedConversation, foldedQuery string) bool {
	fold := cases.Fold()

	haystacks := []string{item.Thread.ConversationID}
	if item.Thread.Contact != nil {
		haystacks = append(haystacks, item.Thread.Contact.Name, item.Thread.Contact.Email)
	}
	if item.Thread.AISummary != nil {
		haystacks = append(haystacks, *item.Thread.AISummary)
	}

	for _, h := range haystacks {
		if strings.Contains(fold.String(h), foldedQuery) {
			return true
		}
	}
	return false
}

// Sort orders a processed view by the given spec. The sort is stable, so
// re-sorting unchanged data is idempotent and equal keys keep their prior
// relative order. The input slice is never mutated.
func Sort(items []models.ProcessedConversation, spec models.SortSpec) []models.ProcessedConversation {
	out := make([]models.ProcessedConversation, len(items))
	copy(out, items)

	desc := spec.Direction != models.SortAsc

	switch spec.Field {
	case models.SortByAIScore:
		sort.SliceStable(out, func(i, j int) bool {
			si, sj := out[i].EVScore, out[j].EVScore
			// nil scores sort last regardless of direction
			if si == nil || sj == nil {
				return si != nil && sj == nil
			}
			if desc {
				return *si > *sj
			}
			return *si < *sj
		})
	case models.SortByDate:
		sort.SliceStable(out, func(i, j int) bool {
			ti, tj := out[i].Thread.CreatedAt, out[j].Thread.CreatedAt
			if desc {
				return ti.After(tj)
			}
			return ti.Before(tj)
		})
	default: // SortByLastMessage
		sort.SliceStable(out, func(i, j int) bool {
			ti, tj := lastActivityTime(out[i]), lastActivityTime(out[j])
			if desc {
				return ti.After(tj)
			}
			return ti.Before(tj)
		})
	}

	return out
}

// lastActivityTime is the instant of the most recent message, falling back to
// the thread's own last-message stamp for threads with no loaded messages
func lastActivityTime(item models.ProcessedConversation) time.Time {
	if n := len(item.Messages); n > 0 {
		return item.Messages[n-1].Timestamp
	}
	return item.Thread.LastMessageAt
}
