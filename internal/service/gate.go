package service

import (
	"time"

	"github.com/formhive/formhive-api/internal/models"
	appErrors "github.com/formhive/formhive-api/pkg/errors"
)

// GateReason enumerates admission decisions for a new submission attempt.
type GateReason string

const (
	GateAllowed          GateReason = "allowed"
	GateAlreadySubmitted GateReason = "already_submitted"
	GateClosed           GateReason = "closed"
	GateDeactivated      GateReason = "deactivated"
	GateExpired          GateReason = "expired"
	GateLimitReached     GateReason = "limit_reached"
)

// GateResult is the admission decision plus the creator-facing closure
// message when the attempt is rejected.
type GateResult struct {
	Reason        GateReason `json:"reason"`
	ClosedMessage string     `json:"closedMessage,omitempty"`
}

// Allowed reports whether the submission attempt may proceed.
func (r GateResult) Allowed() bool {
	return r.Reason == GateAllowed
}

// Err maps a rejection to its typed error; nil when allowed.
func (r GateResult) Err() error {
	switch r.Reason {
	case GateAllowed:
		return nil
	case GateAlreadySubmitted:
		return appErrors.ErrAlreadySubmitted
	case GateClosed:
		return appErrors.Clone(appErrors.ErrFormClosed, r.ClosedMessage)
	case GateDeactivated:
		return appErrors.Clone(appErrors.ErrFormInactive, r.ClosedMessage)
	case GateExpired:
		return appErrors.Clone(appErrors.ErrFormExpired, r.ClosedMessage)
	case GateLimitReached:
		return appErrors.Clone(appErrors.ErrLimitReached, r.ClosedMessage)
	}
	return appErrors.ErrForbidden
}

// EvaluateGate is the single decision point for "can a new submission be
// admitted right now". It is pure: callers record the prior-submission marker
// after a successful commit, and callers re-check at persistence time to close
// the render-to-commit race.
//
// Decision order, first match wins:
// AlreadySubmitted → Closed → Deactivated → Expired → LimitReached → Allowed.
// The requester-specific check runs first so a respondent who already holds a
// completed record is told so instead of seeing a global closure message.
//
// The response count is read without a transactional guarantee; right at the
// limit boundary concurrent submissions can push past MaxResponses.
func EvaluateGate(settings models.Settings, responseCount int, now time.Time, priorMarker bool) GateResult {
	closed := settings.ClosedMessage
	if closed == "" {
		closed = models.DefaultClosedMessage
	}

	if settings.SingleSubmission && priorMarker {
		return GateResult{Reason: GateAlreadySubmitted, ClosedMessage: closed}
	}
	if settings.Status == models.StatusClosed {
		return GateResult{Reason: GateClosed, ClosedMessage: closed}
	}
	if !settings.IsActive {
		return GateResult{Reason: GateDeactivated, ClosedMessage: closed}
	}
	if settings.ExpiryDate != nil && !now.Before(*settings.ExpiryDate) {
		return GateResult{Reason: GateExpired, ClosedMessage: closed}
	}
	if settings.MaxResponses > 0 && responseCount >= settings.MaxResponses {
		return GateResult{Reason: GateLimitReached, ClosedMessage: closed}
	}

	return GateResult{Reason: GateAllowed}
}
