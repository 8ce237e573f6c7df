package models

import "time"

// HealthResponse represents a basic health check response
// @Description Health check response
type HealthResponse struct {
	Status    string    `json:"status" example:"healthy"`                 // Health status
	Timestamp time.Time `json:"timestamp" example:"2023-01-01T00:00:00Z"` // Timestamp of the check
	Version   string    `json:"version" example:"1.0.0"`                  // Application version
}

// DBHealthResponse represents a record store health check response
// @Description Record store health check response
type DBHealthResponse struct {
	Status    string        `json:"status" example:"healthy"`                   // Health status
	Timestamp time.Time     `json:"timestamp" example:"2023-01-01T00:00:00Z"`   // Timestamp of the check
	Connected bool          `json:"connected" example:"true"`                   // Store connection status
	Latency   time.Duration `json:"latency" swaggertype:"string" example:"1ms"` // Store ping latency
	Error     string        `json:"error,omitempty" example:""`                 // Error message if any
}

// ConversationsResponse represents the inbox listing response
// @Description Filtered and sorted conversation listing
type ConversationsResponse struct {
	Success       bool                    `json:"success" example:"true"`
	Conversations []ProcessedConversation `json:"conversations"`
	Total         int                     `json:"total" example:"42"` // count before filtering
	Error         string                  `json:"error,omitempty" example:""`
}

// ConversationResponse represents a single conversation response
// @Description Single conversation payload
type ConversationResponse struct {
	Success      bool                   `json:"success" example:"true"`
	Conversation *ProcessedConversation `json:"conversation,omitempty"`
	Error        string                 `json:"error,omitempty" example:""`
}

// MetricsResponse represents the aggregate metrics response
// @Description Aggregate conversation metrics
type MetricsResponse struct {
	Success bool     `json:"success" example:"true"`
	Metrics *Metrics `json:"metrics,omitempty"`
	Error   string   `json:"error,omitempty" example:""`
}

// TrendsResponse represents the trend comparison response
// @Description Per-metric trends across two time windows
type TrendsResponse struct {
	Success bool    `json:"success" example:"true"`
	Trends  *Trends `json:"trends,omitempty"`
	Error   string  `json:"error,omitempty" example:""`
}

// MutationResponse represents the outcome of a single optimistic mutation
// @Description Single mutation outcome
type MutationResponse struct {
	Success bool   `json:"success" example:"true"`
	Error   string `json:"error,omitempty" example:""`
}

// CompleteRequest carries the completion payload for a conversation
// @Description Conversation completion payload
type CompleteRequest struct {
	Reason    string `json:"reason" example:"Lead signed with agent"` // Completion reason
	NextSteps string `json:"next_steps,omitempty" example:"Archive"`  // Follow-up notes
}

// NotesRequest carries a notes update for a conversation
// @Description Notes update payload
type NotesRequest struct {
	Notes string `json:"notes"` // Free-text agent notes
}

// BulkRequest represents a bulk operation over a selection of conversations
// @Description Bulk operation request
type BulkRequest struct {
	IDs       []string `json:"ids"`                                                    // Selected conversation ids
	Operation string   `json:"operation" example:"markComplete"`                       // delete, markComplete or addNote
	Note      string   `json:"note,omitempty" example:"Followed up during open house"` // Note text for addNote
}

// BulkResponse reports per-id outcomes of a bulk operation
// @Description Bulk operation outcome
type BulkResponse struct {
	Success   bool     `json:"success" example:"true"` // true when every id succeeded
	Succeeded []string `json:"succeeded"`
	Failed    []string `json:"failed"`
	Error     string   `json:"error,omitempty" example:""`
}

// RescoreResponse reports the outcome of an admin rescore pass
// @Description Rescore pass outcome
type RescoreResponse struct {
	Success bool   `json:"success" example:"true"`
	Scored  int    `json:"scored" example:"7"` // messages scored in this pass
	Skipped int    `json:"skipped" example:"2"`
	Error   string `json:"error,omitempty" example:""`
}
