// Package normalize is the single coercion boundary between the loosely-typed
// records the store returns and the canonical model types. Raw values never
// cross into the aggregation or metrics layers without passing through here.
// Recovery is always local: invalid booleans become false, invalid scores
// become nil, bare timestamps are read as UTC. Nothing in this package
// returns an error.
package normalize

import (
	"math"
	"strconv"
	"strings"
	"time"

	"leadbox/internal/models"
	"leadbox/internal/store"
)

// Timestamp layouts accepted from the store. A layout without a zone suffix
// is interpreted as UTC; this is a documented assumption about the store's
// legacy writers, not something re-derived per record.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Bool coerces a boolean-ish store value to a strict boolean.
// Absent or unrecognized values are false.
func Bool(v interface{}) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		s := strings.TrimSpace(strings.ToLower(val))
		return s == "true" || s == "1"
	case int:
		return val == 1
	case int64:
		return val == 1
	case float64:
		return val == 1
	default:
		return false
	}
}

// Score coerces a store value to an EV score. Only finite numbers in [0,100]
// qualify; everything else is nil, never zero.
func Score(v interface{}) *float64 {
	var f float64
	switch val := v.(type) {
	case float64:
		f = val
	case float32:
		f = float64(val)
	case int:
		f = float64(val)
	case int64:
		f = float64(val)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}

	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f > 100 {
		return nil
	}
	return &f
}

// Float coerces a numeric store value, falling back to def
func Float(v interface{}, def float64) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case float32:
		return float64(val)
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case string:
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return parsed
		}
	}
	return def
}

// Timestamp coerces a store value to a zone-qualified instant.
// Unparseable values yield the zero time.
func Timestamp(v interface{}) time.Time {
	switch val := v.(type) {
	case time.Time:
		return val
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return time.Time{}
		}
		for _, layout := range timestampLayouts {
			// time.Parse reads zone-less layouts as UTC, which is
			// exactly the documented assumption for bare timestamps
			if t, err := time.Parse(layout, s); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}

// String coerces a store value to a string, empty when absent
func String(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// StringPtr coerces a store value to an optional string; empty means absent
func StringPtr(v interface{}) *string {
	s := String(v)
	if s == "" {
		return nil
	}
	return &s
}

// field returns the first present key from the record; store versions disagree
// on field naming so every lookup carries its known aliases
func field(raw store.RawRecord, names ...string) interface{} {
	for _, name := range names {
		if v, ok := raw[name]; ok && v != nil {
			return v
		}
	}
	return nil
}

// Thread converts a raw thread record to the canonical shape
func Thread(raw store.RawRecord) models.Thread {
	t := models.Thread{
		ConversationID:     String(field(raw, "conversation_id", "conversationId", "id")),
		Read:               Bool(field(raw, "is_read", "read")),
		Flag:               Bool(field(raw, "flag", "flagged")),
		FlagForReview:      Bool(field(raw, "flag_for_review", "flagForReview")),
		FlagReviewOverride: Bool(field(raw, "flag_review_override", "flagReviewOverride")),
		Busy:               Bool(field(raw, "busy", "is_busy")),
		Spam:               Bool(field(raw, "spam", "is_spam")),
		LCPEnabled:         Bool(field(raw, "lcp_enabled", "lcpEnabled")),
		Completed:          Bool(field(raw, "completed", "is_completed")),

		AISummary:              StringPtr(field(raw, "ai_summary", "aiSummary")),
		BudgetRange:            StringPtr(field(raw, "budget_range", "budgetRange")),
		PreferredPropertyTypes: StringPtr(field(raw, "preferred_property_types", "preferredPropertyTypes")),
		Timeline:               StringPtr(field(raw, "timeline")),

		LCPFlagThreshold: Float(field(raw, "lcp_flag_threshold", "lcpFlagThreshold"), models.DefaultLCPFlagThreshold),
		Notes:            String(field(raw, "notes")),

		CreatedAt:     Timestamp(field(raw, "created_at", "createdAt")),
		UpdatedAt:     Timestamp(field(raw, "updated_at", "updatedAt")),
		LastMessageAt: Timestamp(field(raw, "last_message_at", "lastMessageAt")),
	}

	contact := models.Contact{
		Name:     String(field(raw, "contact_name", "name")),
		Email:    String(field(raw, "contact_email", "email")),
		Phone:    String(field(raw, "contact_phone", "phone")),
		Location: String(field(raw, "contact_location", "location")),
	}
	if contact != (models.Contact{}) {
		t.Contact = &contact
	}

	return t
}

// Message converts a raw message record to the canonical shape
func Message(raw store.RawRecord) models.Message {
	return models.Message{
		ID:             String(field(raw, "id", "message_id", "messageId")),
		ConversationID: String(field(raw, "conversation_id", "conversationId", "thread_id")),
		Type:           messageType(field(raw, "type", "message_type")),
		SenderName:     String(field(raw, "sender_name", "senderName", "from_name")),
		SenderEmail:    String(field(raw, "sender_email", "senderEmail", "from_addr")),
		Subject:        String(field(raw, "subject")),
		Body:           String(field(raw, "body", "content")),
		Timestamp:      Timestamp(field(raw, "timestamp", "sent_at", "date")),
		EVScore:        Score(field(raw, "ev_score", "evScore")),
	}
}

// messageType maps type variants onto the two canonical values; anything
// unrecognized is treated as outbound so it can never become evaluable
func messageType(v interface{}) models.MessageType {
	switch strings.TrimSpace(strings.ToLower(String(v))) {
	case string(models.MessageInbound), "inbound":
		return models.MessageInbound
	default:
		return models.MessageOutbound
	}
}

// Threads converts raw thread records, dropping soft-deleted ones
func Threads(items []store.RawRecord) []models.Thread {
	threads := make([]models.Thread, 0, len(items))
	for _, raw := range items {
		if Bool(field(raw, "deleted", "is_deleted")) {
			continue
		}
		t := Thread(raw)
		if t.ConversationID == "" {
			continue
		}
		threads = append(threads, t)
	}
	return threads
}

// MessagesByThread converts raw message records and groups them by owning
// thread, preserving the store's insertion order within each group
func MessagesByThread(items []store.RawRecord) map[string][]models.Message {
	grouped := make(map[string][]models.Message)
	for _, raw := range items {
		m := Message(raw)
		if m.ConversationID == "" {
			continue
		}
		grouped[m.ConversationID] = append(grouped[m.ConversationID], m)
	}
	return grouped
}
