package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/formhive/formhive-api/internal/dto"
	"github.com/formhive/formhive-api/internal/models"
	"github.com/formhive/formhive-api/internal/service"
	appErrors "github.com/formhive/formhive-api/pkg/errors"
	"github.com/formhive/formhive-api/pkg/response"
)

// FormHandler exposes the dashboard form endpoints.
type FormHandler struct {
	forms       *service.FormService
	activity    *service.ActivityService
	submissions *service.SubmissionService
	analytics   *service.AnalyticsService
}

// NewFormHandler constructs FormHandler.
func NewFormHandler(forms *service.FormService, activity *service.ActivityService, submissions *service.SubmissionService, analytics *service.AnalyticsService) *FormHandler {
	return &FormHandler{forms: forms, activity: activity, submissions: submissions, analytics: analytics}
}

// Create godoc
// @Summary Create form
// @Tags Forms
// @Accept json
// @Produce json
// @Param payload body dto.CreateFormRequest true "Form payload"
// @Success 201 {object} response.Envelope
// @Router /forms [post]
func (h *FormHandler) Create(c *gin.Context) {
	var req dto.CreateFormRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	form, err := h.forms.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, form)
}

// List godoc
// @Summary List forms
// @Tags Forms
// @Produce json
// @Param search query string false "Search by title"
// @Param creatorId query string false "Filter by creator"
// @Param folder query string false "Filter by folder"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /forms [get]
func (h *FormHandler) List(c *gin.Context) {
	var filter models.FormFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	filter.CreatorID = c.Query("creatorId")
	filter.FolderName = c.Query("folder")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	forms, pagination, err := h.forms.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, forms, pagination)
}

// Get godoc
// @Summary Get form detail
// @Tags Forms
// @Produce json
// @Param id path string true "Form ID"
// @Success 200 {object} response.Envelope
// @Router /forms/{id} [get]
func (h *FormHandler) Get(c *gin.Context) {
	form, err := h.forms.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, form, nil)
}

// UpdateFields godoc
// @Summary Replace form fields
// @Tags Forms
// @Accept json
// @Produce json
// @Param id path string true "Form ID"
// @Param payload body dto.UpdateFieldsRequest true "Field list"
// @Success 200 {object} response.Envelope
// @Router /forms/{id}/fields [put]
func (h *FormHandler) UpdateFields(c *gin.Context) {
	var req dto.UpdateFieldsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	form, err := h.forms.UpdateFields(c.Request.Context(), c.Param("id"), req.Fields)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, form, nil)
}

// UpdateSettings godoc
// @Summary Update form settings
// @Tags Forms
// @Accept json
// @Produce json
// @Param id path string true "Form ID"
// @Param payload body dto.UpdateSettingsRequest true "Partial settings"
// @Success 200 {object} response.Envelope
// @Router /forms/{id}/settings [patch]
func (h *FormHandler) UpdateSettings(c *gin.Context) {
	var req dto.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	form, err := h.forms.UpdateSettings(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, form, nil)
}

// Delete godoc
// @Summary Delete form
// @Tags Forms
// @Produce json
// @Param id path string true "Form ID"
// @Success 204
// @Router /forms/{id} [delete]
func (h *FormHandler) Delete(c *gin.Context) {
	if err := h.forms.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Activity godoc
// @Summary List form activity
// @Tags Forms
// @Produce json
// @Param id path string true "Form ID"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /forms/{id}/activity [get]
func (h *FormHandler) Activity(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	events, pagination, err := h.activity.List(c.Request.Context(), c.Param("id"), page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events, pagination)
}

// Analytics godoc
// @Summary Form analytics
// @Tags Forms
// @Produce json
// @Param id path string true "Form ID"
// @Success 200 {object} response.Envelope
// @Router /forms/{id}/analytics [get]
func (h *FormHandler) Analytics(c *gin.Context) {
	stats, err := h.analytics.ForForm(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// Submissions godoc
// @Summary List form submissions
// @Tags Forms
// @Produce json
// @Param id path string true "Form ID"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /forms/{id}/submissions [get]
func (h *FormHandler) Submissions(c *gin.Context) {
	var filter models.SubmissionFilter
	filter.FormID = c.Param("id")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	submissions, pagination, err := h.submissions.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submissions, pagination)
}
