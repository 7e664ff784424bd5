package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/learnpath-api/internal/dto"
	"github.com/noah-isme/learnpath-api/internal/models"
	"github.com/noah-isme/learnpath-api/pkg/response"
)

type classService interface {
	CreateLive(ctx context.Context, req dto.CreateLiveClassRequest) (*dto.LiveClassResponse, error)
	GetLive(ctx context.Context, id string) (*dto.LiveClassResponse, error)
	ListUpcoming(ctx context.Context, filter models.ClassFilter) ([]dto.LiveClassResponse, *models.Pagination, error)
	UpdateLive(ctx context.Context, id string, req dto.UpdateLiveClassRequest) (*dto.LiveClassResponse, error)
	DeleteLive(ctx context.Context, id string) error
	CreateRecorded(ctx context.Context, req dto.CreateRecordedClassRequest) (*models.RecordedClass, error)
	GetRecorded(ctx context.Context, id string) (*models.RecordedClass, error)
	ListRecorded(ctx context.Context, filter models.ClassFilter) ([]models.RecordedClass, *models.Pagination, error)
	UpdateRecorded(ctx context.Context, id string, req dto.UpdateRecordedClassRequest) (*models.RecordedClass, error)
	DeleteRecorded(ctx context.Context, id string) error
}

// ClassHandler exposes live and recorded class endpoints.
type ClassHandler struct {
	service classService
}

// NewClassHandler constructs ClassHandler.
func NewClassHandler(svc classService) *ClassHandler {
	return &ClassHandler{service: svc}
}

func classFilter(c *gin.Context) models.ClassFilter {
	return models.ClassFilter{ListParams: listParams(c), Stack: c.Query("stack")}
}

// CreateLive godoc
// @Summary Schedule a live class
// @Description start_date is YYYY-MM-DD, start_time and end_time are HH:mm in the server timezone
// @Tags Classes
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body dto.CreateLiveClassRequest true "Live class"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /classes/live [post]
func (h *ClassHandler) CreateLive(c *gin.Context) {
	var req dto.CreateLiveClassRequest
	if !bindJSON(c, &req, "invalid live class payload") {
		return
	}
	class, err := h.service.CreateLive(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, class)
}

// ListLive godoc
// @Summary List upcoming live classes
// @Tags Classes
// @Security BearerAuth
// @Produce json
// @Param stack query string false "Stack"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /classes/live [get]
func (h *ClassHandler) ListLive(c *gin.Context) {
	classes, pagination, err := h.service.ListUpcoming(c.Request.Context(), classFilter(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classes, pagination)
}

// GetLive godoc
// @Summary Get a live class
// @Tags Classes
// @Security BearerAuth
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classes/live/{id} [get]
func (h *ClassHandler) GetLive(c *gin.Context) {
	class, err := h.service.GetLive(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, class, nil)
}

// UpdateLive godoc
// @Summary Update a live class
// @Description Any subset of fields. Changing a schedule field revalidates the whole window.
// @Tags Classes
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body dto.UpdateLiveClassRequest true "Changes"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /classes/live/{id} [patch]
func (h *ClassHandler) UpdateLive(c *gin.Context) {
	var req dto.UpdateLiveClassRequest
	if !bindJSON(c, &req, "invalid live class payload") {
		return
	}
	class, err := h.service.UpdateLive(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, class, nil)
}

// DeleteLive godoc
// @Summary Delete a live class
// @Tags Classes
// @Security BearerAuth
// @Param id path string true "Class ID"
// @Success 204
// @Router /classes/live/{id} [delete]
func (h *ClassHandler) DeleteLive(c *gin.Context) {
	if err := h.service.DeleteLive(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// CreateRecorded godoc
// @Summary Publish a recorded class
// @Tags Classes
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body dto.CreateRecordedClassRequest true "Recorded class"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /classes/recorded [post]
func (h *ClassHandler) CreateRecorded(c *gin.Context) {
	var req dto.CreateRecordedClassRequest
	if !bindJSON(c, &req, "invalid recorded class payload") {
		return
	}
	class, err := h.service.CreateRecorded(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, class)
}

// ListRecorded godoc
// @Summary List recorded classes
// @Tags Classes
// @Security BearerAuth
// @Produce json
// @Param stack query string false "Stack"
// @Success 200 {object} response.Envelope
// @Router /classes/recorded [get]
func (h *ClassHandler) ListRecorded(c *gin.Context) {
	classes, pagination, err := h.service.ListRecorded(c.Request.Context(), classFilter(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classes, pagination)
}

// GetRecorded godoc
// @Summary Get a recorded class
// @Tags Classes
// @Security BearerAuth
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/recorded/{id} [get]
func (h *ClassHandler) GetRecorded(c *gin.Context) {
	class, err := h.service.GetRecorded(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, class, nil)
}

// UpdateRecorded godoc
// @Summary Update a recorded class
// @Tags Classes
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body dto.UpdateRecordedClassRequest true "Changes"
// @Success 200 {object} response.Envelope
// @Router /classes/recorded/{id} [patch]
func (h *ClassHandler) UpdateRecorded(c *gin.Context) {
	var req dto.UpdateRecordedClassRequest
	if !bindJSON(c, &req, "invalid recorded class payload") {
		return
	}
	class, err := h.service.UpdateRecorded(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, class, nil)
}

// DeleteRecorded godoc
// @Summary Delete a recorded class
// @Tags Classes
// @Security BearerAuth
// @Param id path string true "Class ID"
// @Success 204
// @Router /classes/recorded/{id} [delete]
func (h *ClassHandler) DeleteRecorded(c *gin.Context) {
	if err := h.service.DeleteRecorded(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
