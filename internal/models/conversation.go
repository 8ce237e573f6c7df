package models

import "time"

// Status is the derived lifecycle state of a conversation
type Status string

// Conversation statuses, in derivation priority order
const (
	StatusSpam      Status = "spam"
	StatusFlagged   Status = "flagged"
	StatusCompleted Status = "completed"
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
)

// Priority is derived from the EV score and pending-reply age
type Priority string

// Conversation priorities
const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// MessageType distinguishes inbound lead emails from outbound agent replies
type MessageType string

// Message types
const (
	MessageInbound  MessageType = "inbound-email"
	MessageOutbound MessageType = "outbound-email"
)

// DefaultLCPFlagThreshold is the EV score above which automation flags a thread
const DefaultLCPFlagThreshold = 70

// Contact holds the lead's contact details attached to a thread
type Contact struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	Location string `json:"location,omitempty"`
}

// Thread represents one persisted lead conversation record
type Thread struct {
	ConversationID     string   `json:"conversation_id"`
	Contact            *Contact `json:"source_contact,omitempty"`
	Read               bool     `json:"read"`
	Flag               bool     `json:"flag"`                 // flagged ready for completion
	FlagForReview      bool     `json:"flag_for_review"`      // AI requested human review
	FlagReviewOverride bool     `json:"flag_review_override"` // review checking disabled by the agent
	Busy               bool     `json:"busy"`                 // outbound send in flight
	Spam               bool     `json:"spam"`
	LCPEnabled         bool     `json:"lcp_enabled"`
	Completed          bool     `json:"completed"`

	AISummary              *string `json:"ai_summary,omitempty"`
	BudgetRange            *string `json:"budget_range,omitempty"`
	PreferredPropertyTypes *string `json:"preferred_property_types,omitempty"`
	Timeline               *string `json:"timeline,omitempty"`

	LCPFlagThreshold float64 `json:"lcp_flag_threshold"`
	Notes            string  `json:"notes"`

	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	LastMessageAt time.Time `json:"last_message_at"`
}

// Message represents one inbound or outbound email within a thread
type Message struct {
	ID             string      `json:"id"`
	ConversationID string      `json:"conversation_id"`
	Type           MessageType `json:"type"`
	SenderName     string      `json:"sender_name"`
	SenderEmail    string      `json:"sender_email"`
	Subject        string      `json:"subject"`
	Body           string      `json:"body"`
	Timestamp      time.Time   `json:"timestamp"`
	EVScore        *float64    `json:"ev_score,omitempty"` // nil means not yet scored, never 0
}

// Conversation joins a thread with its ordered messages
type Conversation struct {
	Thread   Thread    `json:"thread"`
	Messages []Message `json:"messages"`
}

// ProcessedConversation is a Conversation plus derived, read-only fields.
// Instances are replaced wholesale on every recomputation, never mutated in place.
type ProcessedConversation struct {
	Conversation
	Status       Status   `json:"status"`
	EVScore      *float64 `json:"ev_score,omitempty"` // most recent evaluable inbound score
	Priority     Priority `json:"priority"`
	LastActivity string   `json:"last_activity"` // human-relative rendering of the latest message time
}

// Metrics aggregates a set of processed conversations
type Metrics struct {
	Active         int     `json:"active"`
	Pending        int     `json:"pending"`
	Completed      int     `json:"completed"`
	Flagged        int     `json:"flagged"`
	Spam           int     `json:"spam"`
	Total          int     `json:"total"`
	AverageEVScore float64 `json:"average_ev_score"`
}

// TrendData compares one metric across the current and previous windows.
// PercentChange is nil when the previous window had no baseline for the metric.
type TrendData struct {
	Current       float64  `json:"current"`
	Previous      float64  `json:"previous"`
	PercentChange *float64 `json:"percent_change,omitempty"`
	Direction     string   `json:"direction"` // up, down or stable
}

// Trends holds per-metric trend data for a window pair
type Trends struct {
	WindowStart    time.Time `json:"window_start"`
	WindowEnd      time.Time `json:"window_end"`
	Total          TrendData `json:"total"`
	Active         TrendData `json:"active"`
	Pending        TrendData `json:"pending"`
	Completed      TrendData `json:"completed"`
	Flagged        TrendData `json:"flagged"`
	Spam           TrendData `json:"spam"`
	AverageEVScore TrendData `json:"average_ev_score"`
}

// FilterSpec is the declarative filter configuration applied by the pipeline.
// Predicates are AND-combined across categories; statuses are OR-combined.
type FilterSpec struct {
	Statuses        []Status   `json:"statuses,omitempty"`     // empty means no status filter
	EVScoreMin      *float64   `json:"ev_score_min,omitempty"` // inclusive, nil means 0
	EVScoreMax      *float64   `json:"ev_score_max,omitempty"` // inclusive, nil means 100
	DateFrom        *time.Time `json:"date_from,omitempty"`    // nil means unbounded
	DateTo          *time.Time `json:"date_to,omitempty"`      // nil means unbounded
	SearchQuery     string     `json:"search_query,omitempty"` // case-insensitive substring match
	ShowPendingOnly bool       `json:"show_pending_only"`
}

// SortField selects the key used by the sort pipeline
type SortField string

// Supported sort fields
const (
	SortByLastMessage SortField = "lastMessage"
	SortByAIScore     SortField = "aiScore"
	SortByDate        SortField = "date"
)

// SortDirection selects ascending or descending order
type SortDirection string

// Sort directions
const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// SortSpec configures the sort pipeline
type SortSpec struct {
	Field     SortField     `json:"field"`
	Direction SortDirection `json:"direction"`
}
