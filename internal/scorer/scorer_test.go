package scorer

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadbox/internal/models"
	"leadbox/internal/store"
)

func TestParseScoreResponse(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		wantScore   float64
		wantSummary string
		wantErr     bool
	}{
		{
			name:        "plain json",
			content:     `{"score": 85, "summary": "Pre-approved buyer, wants showings this week"}`,
			wantScore:   85,
			wantSummary: "Pre-approved buyer, wants showings this week",
		},
		{
			name:        "code fenced",
			content:     "```json\n{\"score\": 40, \"summary\": \"Browsing\"}\n```",
			wantScore:   40,
			wantSummary: "Browsing",
		},
		{
			name:        "surrounding prose",
			content:     `Here is my assessment: {"score": 12.5, "summary": "Unsubscribe request"} Hope that helps!`,
			wantScore:   12.5,
			wantSummary: "Unsubscribe request",
		},
		{
			name:      "zero is valid",
			content:   `{"score": 0, "summary": ""}`,
			wantScore: 0,
		},
		{
			name:    "negative score rejected",
			content: `{"score": -5, "summary": "x"}`,
			wantErr: true,
		},
		{
			name:    "score above range rejected",
			content: `{"score": 101, "summary": "x"}`,
			wantErr: true,
		},
		{
			name:    "no json at all",
			content: "I cannot score this message.",
			wantErr: true,
		},
		{
			name:    "empty",
			content: "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, summary, err := ParseScoreResponse(tt.content)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantScore, score)
			assert.Equal(t, tt.wantSummary, summary)
		})
	}
}

func TestNewClient_RequiresKey(t *testing.T) {
	_, err := NewClient("", 0, zerolog.Nop())
	assert.Error(t, err)

	client, err := NewClient("sk-test", 0, zerolog.Nop())
	require.NoError(t, err)
	assert.NotNil(t, client)
}

// recordingStore is a minimal RecordStore used to drive the selection side of
// a rescore pass without hitting a real scorer.
type recordingStore struct {
	mu                sync.Mutex
	messages          []store.RawRecord
	updates           []store.UpdateParams
	selectHadDeadline bool
}

func (r *recordingStore) Select(ctx context.Context, p store.SelectParams) (*store.SelectResult, error) {
	r.mu.Lock()
	_, r.selectHadDeadline = ctx.Deadline()
	r.mu.Unlock()

	if p.Table == store.TableMessages {
		return &store.SelectResult{Items: r.messages}, nil
	}
	return &store.SelectResult{}, nil
}

func (r *recordingStore) Update(_ context.Context, p store.UpdateParams) (*store.UpdateResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, p)
	return &store.UpdateResult{Success: true}, nil
}

func TestRescoreUnscored_SkipsScoredAndOutbound(t *testing.T) {
	rs := &recordingStore{
		messages: []store.RawRecord{
			{"id": "m1", "conversation_id": "conv-1", "type": "inbound-email", "timestamp": "2024-06-01T10:00:00", "ev_score": 80},
			{"id": "m2", "conversation_id": "conv-1", "type": "outbound-email", "timestamp": "2024-06-01T11:00:00"},
		},
	}

	// no message qualifies, so the scorer is never called and a nil client
	// cannot be dereferenced
	scored, skipped, err := RescoreUnscored(context.Background(), rs, nil, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 0, scored)
	assert.Equal(t, 0, skipped)
	assert.Empty(t, rs.updates)

	// store calls are bounded even when the caller's context is not
	assert.True(t, rs.selectHadDeadline)
}

func TestFormatMessage(t *testing.T) {
	got := formatMessage(models.Message{
		SenderName:  "Dana Fields",
		SenderEmail: "dana@example.com",
		Subject:     "Condo viewing",
		Body:        "Can we see it Saturday?",
	})

	assert.Contains(t, got, "From: Dana Fields <dana@example.com>")
	assert.Contains(t, got, "Subject: Condo viewing")
	assert.Contains(t, got, "Can we see it Saturday?")
}
