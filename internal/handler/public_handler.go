package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/formhive/formhive-api/internal/dto"
	"github.com/formhive/formhive-api/internal/models"
	"github.com/formhive/formhive-api/internal/service"
	"github.com/formhive/formhive-api/pkg/config"
	appErrors "github.com/formhive/formhive-api/pkg/errors"
	"github.com/formhive/formhive-api/pkg/response"
)

const (
	markerCookiePrefix = "fh_marker_"
	unlockCookiePrefix = "fh_unlock_"
	unlockCookieTTL    = 12 * time.Hour
)

// PublicHandler exposes the respondent-facing endpoints.
type PublicHandler struct {
	intake *service.IntakeService
	forms  *service.FormService
	cfg    config.SubmissionConfig
}

// NewPublicHandler constructs PublicHandler.
func NewPublicHandler(intake *service.IntakeService, forms *service.FormService, cfg config.SubmissionConfig) *PublicHandler {
	return &PublicHandler{intake: intake, forms: forms, cfg: cfg}
}

// View godoc
// @Summary Render a public form
// @Tags Public
// @Produce json
// @Param id path string true "Form ID"
// @Success 200 {object} response.Envelope
// @Router /f/{id} [get]
func (h *PublicHandler) View(c *gin.Context) {
	formID := c.Param("id")
	fp := fingerprint(c)
	marker, _ := c.Cookie(markerCookiePrefix + formID)

	view, err := h.intake.View(c.Request.Context(), formID, fp, marker, h.unlocked(c, formID))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Unlock godoc
// @Summary Unlock a password-protected form
// @Tags Public
// @Accept json
// @Produce json
// @Param id path string true "Form ID"
// @Param payload body dto.UnlockFormRequest true "Password"
// @Success 200 {object} response.Envelope
// @Router /f/{id}/unlock [post]
func (h *PublicHandler) Unlock(c *gin.Context) {
	var req dto.UnlockFormRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	formID := c.Param("id")
	if err := h.forms.Unlock(c.Request.Context(), formID, req.Password); err != nil {
		response.Error(c, err)
		return
	}

	token, err := h.signUnlock(formID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.SetCookie(unlockCookiePrefix+formID, token, int(unlockCookieTTL.Seconds()), "/", "", false, true)
	response.JSON(c, http.StatusOK, gin.H{"unlocked": true}, nil)
}

// Submit godoc
// @Summary Submit a response
// @Tags Public
// @Accept json
// @Produce json
// @Param id path string true "Form ID"
// @Param payload body dto.SubmitRequest true "Answers"
// @Success 202 {object} response.Envelope
// @Router /f/{id}/submissions [post]
func (h *PublicHandler) Submit(c *gin.Context) {
	var req dto.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	formID := c.Param("id")
	marker, _ := c.Cookie(markerCookiePrefix + formID)
	view, err := h.intake.Initiate(c.Request.Context(), formID, req.SessionID, fingerprint(c), marker, req.Answers, req.Location)
	if err != nil {
		var fieldErrs service.FieldErrors
		if errors.As(err, &fieldErrs) {
			c.Header("Cache-Control", "no-store")
			c.JSON(http.StatusBadRequest, response.Envelope{
				Error: appErrors.ErrValidation,
				Meta:  map[string]interface{}{"fields": fieldErrs},
			})
			return
		}
		response.Error(c, err)
		return
	}

	h.setMarker(c, formID, view)
	meta := map[string]interface{}{
		"sessionId":   req.SessionID,
		"reviewDelay": h.cfg.ReviewDelay.Seconds(),
	}
	response.JSON(c, http.StatusAccepted, view, nil, meta)
}

// Cancel godoc
// @Summary Cancel a pending submission attempt
// @Tags Public
// @Produce json
// @Param id path string true "Form ID"
// @Param attemptId path string true "Attempt ID"
// @Success 204
// @Router /f/{id}/submissions/{attemptId} [delete]
func (h *PublicHandler) Cancel(c *gin.Context) {
	if err := h.intake.Cancel(c.Request.Context(), c.Param("attemptId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Status godoc
// @Summary Submission attempt status
// @Tags Public
// @Produce json
// @Param id path string true "Form ID"
// @Param attemptId path string true "Attempt ID"
// @Success 200 {object} response.Envelope
// @Router /f/{id}/submissions/{attemptId} [get]
func (h *PublicHandler) Status(c *gin.Context) {
	view, err := h.intake.Status(c.Request.Context(), c.Param("attemptId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.setMarker(c, c.Param("id"), view)
	response.JSON(c, http.StatusOK, view, nil)
}

// Retry godoc
// @Summary Retry a failed submission attempt
// @Tags Public
// @Produce json
// @Param id path string true "Form ID"
// @Param attemptId path string true "Attempt ID"
// @Success 200 {object} response.Envelope
// @Router /f/{id}/submissions/{attemptId}/retry [post]
func (h *PublicHandler) Retry(c *gin.Context) {
	view, err := h.intake.Retry(c.Request.Context(), c.Param("attemptId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

func (h *PublicHandler) setMarker(c *gin.Context, formID string, view *service.AttemptView) {
	if view == nil || view.MarkerToken == "" {
		return
	}
	c.SetCookie(markerCookiePrefix+formID, view.MarkerToken, int(h.cfg.MarkerTTL.Seconds()), "/", "", false, true)
}

func (h *PublicHandler) signUnlock(formID string) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   "unlock:" + formID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(unlockCookieTTL)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(h.cfg.MarkerSecret))
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "failed to sign unlock token")
	}
	return token, nil
}

func (h *PublicHandler) unlocked(c *gin.Context, formID string) bool {
	raw, err := c.Cookie(unlockCookiePrefix + formID)
	if err != nil || raw == "" {
		return false
	}
	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(h.cfg.MarkerSecret), nil
	})
	return err == nil && token.Valid && claims.Subject == "unlock:"+formID
}

func fingerprint(c *gin.Context) models.Fingerprint {
	return models.Fingerprint{IP: c.ClientIP(), UserAgent: c.Request.UserAgent()}
}
