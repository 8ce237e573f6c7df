package conversations

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadbox/internal/models"
)

func conv(id string, status models.Status, ev *float64, lastActivity time.Time) models.ProcessedConversation {
	return models.ProcessedConversation{
		Conversation: models.Conversation{
			Thread: models.Thread{
				ConversationID: id,
				CreatedAt:      lastActivity.Add(-24 * time.Hour),
				LastMessageAt:  lastActivity,
			},
		},
		Status:  status,
		EVScore: ev,
	}
}

func TestFilter_StatusesAreORCombined(t *testing.T) {
	items := []models.ProcessedConversation{
		conv("a", models.StatusActive, nil, testNow),
		conv("b", models.StatusPending, nil, testNow),
		conv("c", models.StatusSpam, nil, testNow),
	}

	out := Filter(items, models.FilterSpec{
		Statuses: []models.Status{models.StatusActive, models.StatusPending},
	})

	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].Thread.ConversationID)
	assert.Equal(t, "b", out[1].Thread.ConversationID)

	// empty status set means no status filter
	assert.Len(t, Filter(items, models.FilterSpec{}), 3)
}

func TestFilter_EVScoreRange(t *testing.T) {
	items := []models.ProcessedConversation{
		conv("low", models.StatusActive, score(10), testNow),
		conv("mid", models.StatusActive, score(50), testNow),
		conv("high", models.StatusActive, score(95), testNow),
		conv("unscored", models.StatusActive, nil, testNow),
	}

	// inclusive bounds
	out := Filter(items, models.FilterSpec{EVScoreMin: score(10), EVScoreMax: score(50)})
	require.Len(t, out, 2)
	assert.Equal(t, "low", out[0].Thread.ConversationID)
	assert.Equal(t, "mid", out[1].Thread.ConversationID)

	// a narrowed range excludes unscored conversations
	out = Filter(items, models.FilterSpec{EVScoreMax: score(99)})
	assert.Len(t, out, 3)

	// the full range keeps them
	out = Filter(items, models.FilterSpec{EVScoreMin: score(0), EVScoreMax: score(100)})
	assert.Len(t, out, 4)

	// nil bounds mean no range filter at all
	assert.Len(t, Filter(items, models.FilterSpec{}), 4)
}

func TestFilter_ExplicitZeroRange(t *testing.T) {
	items := []models.ProcessedConversation{
		conv("scored-zero", models.StatusActive, score(0), testNow),
		conv("scored-high", models.StatusActive, score(80), testNow),
		conv("unscored", models.StatusActive, nil, testNow),
	}

	// [0,0] is a real request for zero-scored conversations, not the unset
	// state; unscored and out-of-range items are excluded
	out := Filter(items, models.FilterSpec{EVScoreMin: score(0), EVScoreMax: score(0)})
	require.Len(t, out, 1)
	assert.Equal(t, "scored-zero", out[0].Thread.ConversationID)
}

func TestFilter_DateRange(t *testing.T) {
	old := testNow.Add(-72 * time.Hour)
	recent := testNow.Add(-time.Hour)
	items := []models.ProcessedConversation{
		conv("old", models.StatusActive, nil, old),
		conv("recent", models.StatusActive, nil, recent),
	}

	from := testNow.Add(-24 * time.Hour)
	out := Filter(items, models.FilterSpec{DateFrom: &from})
	require.Len(t, out, 1)
	assert.Equal(t, "recent", out[0].Thread.ConversationID)

	to := testNow.Add(-48 * time.Hour)
	out = Filter(items, models.FilterSpec{DateTo: &to})
	require.Len(t, out, 1)
	assert.Equal(t, "old", out[0].Thread.ConversationID)

	// inclusive boundary
	exact := recent
	out = Filter(items, models.FilterSpec{DateFrom: &exact, DateTo: &exact})
	require.Len(t, out, 1)
	assert.Equal(t, "recent", out[0].Thread.ConversationID)
}

func TestFilter_SearchQuery(t *testing.T) {
	summary := "Wants a waterfront condo in Vancouver"
	items := []models.ProcessedConversation{
		{
			Conversation: models.Conversation{Thread: models.Thread{
				ConversationID: "conv-1",
				Contact:        &models.Contact{Name: "João Silva", Email: "joao@example.com"},
				AISummary:      &summary,
			}},
			Status: models.StatusActive,
		},
		{
			Conversation: models.Conversation{Thread: models.Thread{
				ConversationID: "conv-2",
				Contact:        &models.Contact{Name: "Dana Fields", Email: "dana@example.com"},
			}},
			Status: models.StatusActive,
		},
	}

	tests := []struct {
		name     string
		query    string
		expected []string
	}{
		{"name case-insensitive", "JOÃO", []string{"conv-1"}},
		{"email substring", "dana@", []string{"conv-2"}},
		{"conversation id", "conv-2", []string{"conv-2"}},
		{"ai summary", "waterfront", []string{"conv-1"}},
		{"no match", "penthouse", nil},
		{"empty matches everything", "", []string{"conv-1", "conv-2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Filter(items, models.FilterSpec{SearchQuery: tt.query})
			var ids []string
			for _, item := range out {
				ids = append(ids, item.Thread.ConversationID)
			}
			assert.Equal(t, tt.expected, ids)
		})
	}
}

func TestFilter_ShowPendingOnly(t *testing.T) {
	items := []models.ProcessedConversation{
		conv("a", models.StatusActive, nil, testNow),
		conv("b", models.StatusPending, nil, testNow),
	}

	out := Filter(items, models.FilterSpec{ShowPendingOnly: true})
	require.Len(t, out, 1)
	assert.Equal(t, "b", out[0].Thread.ConversationID)
}

func TestSort_ByAIScore_NilsSortLast(t *testing.T) {
	items := []models.ProcessedConversation{
		conv("unscored", models.StatusActive, nil, testNow),
		conv("low", models.StatusActive, score(10), testNow),
		conv("high", models.StatusActive, score(90), testNow),
	}

	desc := Sort(items, models.SortSpec{Field: models.SortByAIScore, Direction: models.SortDesc})
	assert.Equal(t, "high", desc[0].Thread.ConversationID)
	assert.Equal(t, "low", desc[1].Thread.ConversationID)
	assert.Equal(t, "unscored", desc[2].Thread.ConversationID)

	// nils stay last regardless of direction
	asc := Sort(items, models.SortSpec{Field: models.SortByAIScore, Direction: models.SortAsc})
	assert.Equal(t, "low", asc[0].Thread.ConversationID)
	assert.Equal(t, "high", asc[1].Thread.ConversationID)
	assert.Equal(t, "unscored", asc[2].Thread.ConversationID)
}

func TestSort_StableAndIdempotent(t *testing.T) {
	// all equal keys: repeated sorting must preserve the sequence exactly
	items := []models.ProcessedConversation{
		conv("a", models.StatusActive, score(50), testNow),
		conv("b", models.StatusActive, score(50), testNow),
		conv("c", models.StatusActive, score(50), testNow),
	}

	spec := models.SortSpec{Field: models.SortByAIScore, Direction: models.SortDesc}
	once := Sort(items, spec)
	twice := Sort(once, spec)

	assert.Equal(t, once, twice)
	assert.Equal(t, "a", twice[0].Thread.ConversationID)
	assert.Equal(t, "b", twice[1].Thread.ConversationID)
	assert.Equal(t, "c", twice[2].Thread.ConversationID)
}

func TestSort_ByLastMessageAndDate(t *testing.T) {
	items := []models.ProcessedConversation{
		conv("older", models.StatusActive, nil, testNow.Add(-48*time.Hour)),
		conv("newer", models.StatusActive, nil, testNow.Add(-time.Hour)),
	}

	out := Sort(items, models.SortSpec{Field: models.SortByLastMessage, Direction: models.SortDesc})
	assert.Equal(t, "newer", out[0].Thread.ConversationID)

	out = Sort(items, models.SortSpec{Field: models.SortByDate, Direction: models.SortAsc})
	assert.Equal(t, "older", out[0].Thread.ConversationID)

	// input order untouched
	assert.Equal(t, "older", items[0].Thread.ConversationID)
}

func TestLastActivityTime_FallsBackToThread(t *testing.T) {
	item := conv("a", models.StatusActive, nil, testNow.Add(-time.Hour))
	assert.Equal(t, testNow.Add(-time.Hour), lastActivityTime(item))

	item.Messages = []models.Message{outbound("m1", testNow.Add(-10*time.Minute))}
	assert.Equal(t, testNow.Add(-10*time.Minute), lastActivityTime(item))
}
