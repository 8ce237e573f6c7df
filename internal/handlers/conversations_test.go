package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadbox/internal/conversations"
	"leadbox/internal/models"
	"leadbox/internal/store"
)

// stubStore serves canned raw records; failUpdates turns every write into a
// rollback so handler error paths can be exercised.
type stubStore struct {
	mu          sync.Mutex
	threads     []store.RawRecord
	messages    []store.RawRecord
	failUpdates bool
	updateGate  chan struct{} // when set, Update blocks until the gate closes
}

func (s *stubStore) Select(_ context.Context, p store.SelectParams) (*store.SelectResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch p.Table {
	case store.TableThreads:
		return &store.SelectResult{Items: s.threads}, nil
	case store.TableMessages:
		return &store.SelectResult{Items: s.messages}, nil
	}
	return &store.SelectResult{}, nil
}

func (s *stubStore) Update(_ context.Context, _ store.UpdateParams) (*store.UpdateResult, error) {
	s.mu.Lock()
	gate := s.updateGate
	fail := s.failUpdates
	s.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if fail {
		return nil, errors.New("store unavailable")
	}
	return &store.UpdateResult{Success: true}, nil
}

func newHandlerFixture(t *testing.T) (*conversations.Service, *conversations.Coordinator, *stubStore) {
	t.Helper()

	st := &stubStore{
		threads: []store.RawRecord{
			{"conversation_id": "conv-1", "contact_name": "Dana Fields", "contact_email": "dana@example.com", "last_message_at": "2024-06-01T10:00:00"},
			{"conversation_id": "conv-2", "spam": true, "last_message_at": "2024-06-01T09:00:00"},
		},
		messages: []store.RawRecord{
			{"id": "m1", "conversation_id": "conv-1", "type": "inbound-email", "timestamp": "2024-06-01T10:00:00", "ev_score": 82},
		},
	}

	svc := conversations.NewService(st, conversations.Session{AgentID: "agent-1"}, zerolog.Nop(), time.Second)
	require.NoError(t, svc.Refresh(context.Background()))

	return svc, conversations.NewCoordinator(svc, st, zerolog.Nop(), time.Second), st
}

func getRequest(t *testing.T, handler echo.HandlerFunc, target string) *httptest.ResponseRecorder {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, handler(c))
	return rec
}

func TestConversationsHandler_ListsView(t *testing.T) {
	svc, _, _ := newHandlerFixture(t)

	rec := getRequest(t, ConversationsHandler(svc), "/api/conversations")
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp models.ConversationsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.True(t, resp.Success)
	assert.Equal(t, 2, resp.Total)
	require.Len(t, resp.Conversations, 2)
	// default sort: last message descending
	assert.Equal(t, "conv-1", resp.Conversations[0].Thread.ConversationID)
}

func TestConversationsHandler_FilterAndSortParams(t *testing.T) {
	svc, _, _ := newHandlerFixture(t)

	rec := getRequest(t, ConversationsHandler(svc), "/api/conversations?status=spam&sort=aiScore&direction=asc")

	var resp models.ConversationsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	// total counts the unfiltered view
	assert.Equal(t, 2, resp.Total)
	require.Len(t, resp.Conversations, 1)
	assert.Equal(t, "conv-2", resp.Conversations[0].Thread.ConversationID)
}

func TestConversationsHandler_SearchParam(t *testing.T) {
	svc, _, _ := newHandlerFixture(t)

	rec := getRequest(t, ConversationsHandler(svc), "/api/conversations?q=DANA")

	var resp models.ConversationsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	require.Len(t, resp.Conversations, 1)
	assert.Equal(t, "conv-1", resp.Conversations[0].Thread.ConversationID)
}

func TestConversationHandler_FoundAndMissing(t *testing.T) {
	svc, _, _ := newHandlerFixture(t)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/conversations/conv-1", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("conv-1")

	require.NoError(t, ConversationHandler(svc)(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp models.ConversationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Conversation)
	assert.Equal(t, "conv-1", resp.Conversation.Thread.ConversationID)

	// unknown id
	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/api/conversations/ghost", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues("ghost")

	require.NoError(t, ConversationHandler(svc)(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestParseFilterSpec(t *testing.T) {
	e := echo.New()

	newCtx := func(query string) echo.Context {
		req := httptest.NewRequest(http.MethodGet, "/api/conversations?"+query, nil)
		return e.NewContext(req, httptest.NewRecorder())
	}

	t.Run("statuses drop unknown values", func(t *testing.T) {
		spec := parseFilterSpec(newCtx("status=active,bogus,spam"))
		assert.Equal(t, []models.Status{models.StatusActive, models.StatusSpam}, spec.Statuses)
	})

	t.Run("ev_min alone leaves the upper bound unset", func(t *testing.T) {
		spec := parseFilterSpec(newCtx("ev_min=40"))
		require.NotNil(t, spec.EVScoreMin)
		assert.Equal(t, 40.0, *spec.EVScoreMin)
		assert.Nil(t, spec.EVScoreMax)
	})

	t.Run("explicit range", func(t *testing.T) {
		spec := parseFilterSpec(newCtx("ev_min=40&ev_max=60"))
		require.NotNil(t, spec.EVScoreMin)
		require.NotNil(t, spec.EVScoreMax)
		assert.Equal(t, 40.0, *spec.EVScoreMin)
		assert.Equal(t, 60.0, *spec.EVScoreMax)
	})

	t.Run("ev_max zero is a real bound", func(t *testing.T) {
		spec := parseFilterSpec(newCtx("ev_max=0"))
		assert.Nil(t, spec.EVScoreMin)
		require.NotNil(t, spec.EVScoreMax)
		assert.Equal(t, 0.0, *spec.EVScoreMax)
	})

	t.Run("no range params leave both bounds unset", func(t *testing.T) {
		spec := parseFilterSpec(newCtx(""))
		assert.Nil(t, spec.EVScoreMin)
		assert.Nil(t, spec.EVScoreMax)
	})

	t.Run("dates must be RFC3339", func(t *testing.T) {
		spec := parseFilterSpec(newCtx("date_from=2024-06-01T00:00:00Z&date_to=yesterday"))
		require.NotNil(t, spec.DateFrom)
		assert.Nil(t, spec.DateTo)
	})

	t.Run("pending only", func(t *testing.T) {
		assert.True(t, parseFilterSpec(newCtx("pending_only=true")).ShowPendingOnly)
		assert.False(t, parseFilterSpec(newCtx("")).ShowPendingOnly)
	})
}

func TestParseSortSpec(t *testing.T) {
	e := echo.New()

	newCtx := func(query string) echo.Context {
		req := httptest.NewRequest(http.MethodGet, "/api/conversations?"+query, nil)
		return e.NewContext(req, httptest.NewRecorder())
	}

	spec := parseSortSpec(newCtx(""))
	assert.Equal(t, models.SortByLastMessage, spec.Field)
	assert.Equal(t, models.SortDesc, spec.Direction)

	spec = parseSortSpec(newCtx("sort=aiScore&direction=asc"))
	assert.Equal(t, models.SortByAIScore, spec.Field)
	assert.Equal(t, models.SortAsc, spec.Direction)

	// unrecognized values fall back to the defaults
	spec = parseSortSpec(newCtx("sort=subject&direction=sideways"))
	assert.Equal(t, models.SortByLastMessage, spec.Field)
	assert.Equal(t, models.SortDesc, spec.Direction)
}
