package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// EventType enumerates the activity events recorded per form.
type EventType string

const (
	EventFormCreated         EventType = "created"
	EventStatusChanged       EventType = "status_changed"
	EventSettingsUpdated     EventType = "settings_updated"
	EventResponseReceived    EventType = "response_received"
	EventSubmissionInitiated EventType = "submission_initiated"
	EventSubmissionUndone    EventType = "submission_undone"
)

// Known reports whether the event type is part of the closed enumeration.
func (t EventType) Known() bool {
	switch t {
	case EventFormCreated, EventStatusChanged, EventSettingsUpdated,
		EventResponseReceived, EventSubmissionInitiated, EventSubmissionUndone:
		return true
	}
	return false
}

// EventMetadata holds free-form context attached to an activity event.
type EventMetadata map[string]interface{}

// Value implements driver.Valuer for the JSONB metadata column.
func (m EventMetadata) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner for the JSONB metadata column.
func (m *EventMetadata) Scan(src interface{}) error {
	if src == nil {
		*m = nil
		return nil
	}
	raw, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("event metadata: unsupported scan type %T", src)
	}
	return json.Unmarshal(raw, m)
}

// ActivityEvent is an append-only log entry scoped to a form. Events are
// never mutated or deleted.
type ActivityEvent struct {
	ID          string        `db:"id" json:"id"`
	FormID      string        `db:"form_id" json:"formId"`
	EventType   EventType     `db:"event_type" json:"eventType"`
	Description string        `db:"description" json:"description"`
	Metadata    EventMetadata `db:"metadata" json:"metadata,omitempty"`
	Timestamp   time.Time     `db:"timestamp" json:"timestamp"`
}
