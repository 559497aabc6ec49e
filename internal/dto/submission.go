package dto

import (
	"github.com/formhive/formhive-api/internal/models"
)

// RawLocation is the optional geolocation payload accompanying a submission.
type RawLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address,omitempty"`
}

// SubmitRequest is the public submission payload. SessionID scopes the
// review-window attempt; a new submit from the same session replaces any
// attempt still pending.
type SubmitRequest struct {
	SessionID string           `json:"sessionId"`
	Answers   models.AnswerSet `json:"answers" validate:"required"`
	Location  *RawLocation     `json:"location,omitempty"`
}
