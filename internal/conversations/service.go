package conversations

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"leadbox/internal/models"
	"leadbox/internal/normalize"
	"leadbox/internal/store"
)

// Session identifies the agent on whose behalf the view is loaded. It is
// passed in explicitly so the service stays independently testable; nothing
// here reads ambient session state.
type Session struct {
	AgentID string
	Email   string
}

// Service owns the shared in-memory processed view. Only the service and the
// mutation coordinator write to it, and always by whole-record replacement,
// so concurrent readers see a consistent snapshot at any instant.
type Service struct {
	store   store.RecordStore
	session Session
	logger  zerolog.Logger
	timeout time.Duration

	mu       sync.RWMutex
	threads  map[string]models.Thread
	messages map[string][]models.Message
	view     []models.ProcessedConversation
}

// NewService creates a view service over the given record store
func NewService(rs store.RecordStore, session Session, logger zerolog.Logger, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Service{
		store:    rs,
		session:  session,
		logger:   logger.With().Str("component", "conversations").Logger(),
		timeout:  timeout,
		threads:  make(map[string]models.Thread),
		messages: make(map[string][]models.Message),
	}
}

// Refresh reloads raw records from the store, normalizes and aggregates them,
// and swaps the view wholesale. It is idempotent; overlapping refreshes
// collapse to whichever finishes last.
func (s *Service) Refresh(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	threadResult, err := s.store.Select(ctx, store.SelectParams{Table: store.TableThreads})
	if err != nil {
		return fmt.Errorf("failed to load threads: %w", err)
	}

	messageResult, err := s.store.Select(ctx, store.SelectParams{Table: store.TableMessages})
	if err != nil {
		return fmt.Errorf("failed to load messages: %w", err)
	}

	threads := normalize.Threads(threadResult.Items)
	messagesByThread := normalize.MessagesByThread(messageResult.Items)
	view := Aggregate(threads, messagesByThread)

	threadMap := make(map[string]models.Thread, len(threads))
	for _, t := range threads {
		threadMap[t.ConversationID] = t
	}

	s.mu.Lock()
	s.threads = threadMap
	s.messages = messagesByThread
	s.view = view
	s.mu.Unlock()

	s.logger.Info().
		Str("agent", s.session.AgentID).
		Int("threads", len(threads)).
		Int("conversations", len(view)).
		Msg("Conversation view refreshed")

	return nil
}

// Snapshot returns a copy of the current processed view
func (s *Service) Snapshot() []models.ProcessedConversation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.ProcessedConversation, len(s.view))
	copy(out, s.view)
	return out
}

// Get returns the processed conversation for an id
func (s *Service) Get(conversationID string) (models.ProcessedConversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, item := range s.view {
		if item.Thread.ConversationID == conversationID {
			return item, true
		}
	}
	return models.ProcessedConversation{}, false
}

// List applies the filter and sort pipelines to the current view and returns
// the ordered result plus the unfiltered total
func (s *Service) List(filter models.FilterSpec, sortSpec models.SortSpec) ([]models.ProcessedConversation, int) {
	snapshot := s.Snapshot()
	return Sort(Filter(snapshot, filter), sortSpec), len(snapshot)
}

// Metrics reduces the current view to aggregate counts
func (s *Service) Metrics() models.Metrics {
	return CalculateMetrics(s.Snapshot())
}

// Trends compares the current view across the given window and the preceding
// equal-length one
func (s *Service) Trends(windowStart, windowEnd time.Time) models.Trends {
	return CalculateTrends(s.Snapshot(), windowStart, windowEnd)
}

// Thread returns the raw thread backing a conversation; used by the
// coordinator to snapshot pre-mutation state
func (s *Service) Thread(conversationID string) (models.Thread, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.threads[conversationID]
	return t, ok
}

// ReplaceThread swaps in a new thread record and recomputes its processed
// conversation wholesale. A thread unknown to the view is re-inserted, which
// is how a rolled-back delete comes back.
func (s *Service) ReplaceThread(thread models.Thread) {
	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	_, existed := s.threads[thread.ConversationID]
	s.threads[thread.ConversationID] = thread
	updated := Reprocess(now, thread, s.messages[thread.ConversationID])

	view := make([]models.ProcessedConversation, len(s.view))
	copy(view, s.view)

	if existed {
		for i := range view {
			if view[i].Thread.ConversationID == thread.ConversationID {
				view[i] = updated
				break
			}
		}
	} else {
		view = append(view, updated)
	}
	s.view = view
}

// RemoveConversation drops a conversation from the local view. Its messages
// stay cached so a rollback can restore the record exactly.
func (s *Service) RemoveConversation(conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.threads, conversationID)

	view := make([]models.ProcessedConversation, 0, len(s.view))
	for _, item := range s.view {
		if item.Thread.ConversationID != conversationID {
			view = append(view, item)
		}
	}
	s.view = view
}
