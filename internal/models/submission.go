package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// DeviceClass is the coarse device category resolved from the user agent.
type DeviceClass string

const (
	DeviceMobile  DeviceClass = "mobile"
	DeviceTablet  DeviceClass = "tablet"
	DeviceDesktop DeviceClass = "desktop"
	DeviceUnknown DeviceClass = "unknown"
)

// Fingerprint is the coarse requester identity used for the edit window and
// the single-submission marker. It is IP + user agent, nothing stronger.
type Fingerprint struct {
	IP        string
	UserAgent string
}

// AnswerSet maps field ids to submitted values. Values are strings,
// []string for checkbox groups, or nil for absent optional answers.
type AnswerSet map[string]interface{}

// Value implements driver.Valuer for the JSONB answers column.
func (a AnswerSet) Value() (driver.Value, error) {
	if a == nil {
		a = AnswerSet{}
	}
	return json.Marshal(a)
}

// Scan implements sql.Scanner for the JSONB answers column.
func (a *AnswerSet) Scan(src interface{}) error {
	raw, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("answer set: unsupported scan type %T", src)
	}
	return json.Unmarshal(raw, a)
}

// LocationData carries a best-effort resolved submission location.
type LocationData struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	City      string    `json:"city,omitempty"`
	Country   string    `json:"country,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Value implements driver.Valuer for the JSONB location column.
func (l LocationData) Value() (driver.Value, error) {
	return json.Marshal(l)
}

// Scan implements sql.Scanner for the JSONB location column.
func (l *LocationData) Scan(src interface{}) error {
	raw, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("location: unsupported scan type %T", src)
	}
	return json.Unmarshal(raw, l)
}

// SubmissionMetadata records requester context captured at admission time.
type SubmissionMetadata struct {
	IP        string      `db:"ip" json:"ip"`
	UserAgent string      `db:"user_agent" json:"userAgent"`
	Device    DeviceClass `db:"device" json:"device"`
}

// Submission is a persisted response. Created by the submission resolver and
// mutated only by the resolver while the edit window is open.
type Submission struct {
	ID          string             `db:"id" json:"id"`
	FormID      string             `db:"form_id" json:"formId"`
	Answers     AnswerSet          `db:"answers" json:"answers"`
	Metadata    SubmissionMetadata `json:"metadata"`
	Location    *LocationData      `db:"location" json:"location,omitempty"`
	SubmittedAt time.Time          `db:"submitted_at" json:"submittedAt"`
	CreatedAt   time.Time          `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time          `db:"updated_at" json:"updatedAt"`
}

// SubmissionFilter filters dashboard submission listings.
type SubmissionFilter struct {
	FormID   string
	Page     int
	PageSize int
}
