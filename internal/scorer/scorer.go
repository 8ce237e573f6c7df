// Package scorer talks to the external AI scorer that assigns engagement
// value (EV) scores to inbound lead messages and produces one-line thread
// summaries. Scores are written back through the record store; the
// conversation core only ever sees them as persisted fields.
package scorer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"leadbox/internal/models"
	"leadbox/internal/normalize"
	"leadbox/internal/store"
)

const systemPrompt = "You score inbound emails from real-estate leads. " +
	"Given one email, reply with JSON only: " +
	`{"score": <0-100 engagement value>, "summary": "<one line>"}. ` +
	"High scores mean concrete budget, timeline and intent to transact."

// Client wraps the OpenAI API for EV scoring
type Client struct {
	api     *openai.Client
	model   string
	timeout time.Duration
	logger  zerolog.Logger
}

// NewClient creates a scorer client; the API key is required
func NewClient(apiKey string, timeout time.Duration, logger zerolog.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not configured")
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		api:     openai.NewClient(apiKey),
		model:   string(openai.GPT4oMini),
		timeout: timeout,
		logger:  logger.With().Str("component", "scorer").Logger(),
	}, nil
}

// ScoreMessage asks the model for an EV score and summary for one inbound
// message
func (c *Client) ScoreMessage(ctx context.Context, m models.Message) (float64, string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: formatMessage(m)},
		},
		MaxTokens:   200,
		Temperature: 0.2,
	})
	if err != nil {
		return 0, "", fmt.Errorf("scorer call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return 0, "", fmt.Errorf("scorer returned no choices")
	}

	return ParseScoreResponse(resp.Choices[0].Message.Content)
}

// ParseScoreResponse extracts the score and summary from a model reply,
// tolerating code fences and surrounding prose
func ParseScoreResponse(content string) (float64, string, error) {
	s := strings.TrimSpace(content)
	if start := strings.Index(s, "{"); start >= 0 {
		if end := strings.LastIndex(s, "}"); end > start {
			s = s[start : end+1]
		}
	}

	var parsed struct {
		Score   float64 `json:"score"`
		Summary string  `json:"summary"`
	}
	if err := json.Unmarshal([]byte(s), &parsed); err != nil {
		return 0, "", fmt.Errorf("unparseable scorer response: %w", err)
	}
	if parsed.Score < 0 || parsed.Score > 100 {
		return 0, "", fmt.Errorf("scorer returned out-of-range score %v", parsed.Score)
	}

	return parsed.Score, strings.TrimSpace(parsed.Summary), nil
}

func formatMessage(m models.Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s <%s>\n", m.SenderName, m.SenderEmail)
	fmt.Fprintf(&b, "Subject: %s\n\n", m.Subject)
	b.WriteString(m.Body)
	return b.String()
}

// storeCallTimeout bounds each individual record store call within a
// rescore pass; the pass itself can run much longer
const storeCallTimeout = 10 * time.Second

// RescoreUnscored scores every inbound message without an EV score and writes
// the score and thread summary back through the store. Per-message failures
// are skipped and counted, never fatal to the pass.
func RescoreUnscored(ctx context.Context, rs store.RecordStore, client *Client, logger zerolog.Logger) (scored, skipped int, err error) {
	sctx, cancel := context.WithTimeout(ctx, storeCallTimeout)
	result, err := rs.Select(sctx, store.SelectParams{Table: store.TableMessages})
	cancel()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to load messages for rescore: %w", err)
	}

	for _, raw := range result.Items {
		m := normalize.Message(raw)
		if m.Type != models.MessageInbound || m.EVScore != nil || m.ID == "" {
			continue
		}

		score, summary, serr := client.ScoreMessage(ctx, m)
		if serr != nil {
			logger.Warn().Err(serr).Str("message_id", m.ID).Msg("Scoring failed, skipping message")
			skipped++
			continue
		}

		uctx, ucancel := context.WithTimeout(ctx, storeCallTimeout)
		_, uerr := rs.Update(uctx, store.UpdateParams{
			Table: store.TableMessages,
			Key:   "id",
			Value: m.ID,
			Patch: map[string]interface{}{"ev_score": score},
		})
		ucancel()
		if uerr != nil {
			logger.Warn().Err(uerr).Str("message_id", m.ID).Msg("Failed to persist score")
			skipped++
			continue
		}

		if summary != "" && m.ConversationID != "" {
			// best effort; the score is already durable
			tctx, tcancel := context.WithTimeout(ctx, storeCallTimeout)
			_, _ = rs.Update(tctx, store.UpdateParams{
				Table: store.TableThreads,
				Key:   "conversation_id",
				Value: m.ConversationID,
				Patch: map[string]interface{}{"ai_summary": summary},
			})
			tcancel()
		}

		scored++
	}

	return scored, skipped, nil
}
