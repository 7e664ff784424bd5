package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/learnpath-api/internal/dto"
	"github.com/noah-isme/learnpath-api/internal/middleware"
	"github.com/noah-isme/learnpath-api/internal/models"
	"github.com/noah-isme/learnpath-api/internal/service"
	"github.com/noah-isme/learnpath-api/pkg/export"
	"github.com/noah-isme/learnpath-api/pkg/response"
)

type learningPathService interface {
	Create(ctx context.Context, req dto.CreateLearningPathRequest) (*models.LearningPath, error)
	Get(ctx context.Context, id string) (*models.LearningPath, error)
	List(ctx context.Context, filter models.LearningPathFilter) ([]models.LearningPath, *models.Pagination, error)
	Update(ctx context.Context, id string, req dto.UpdateLearningPathRequest) (*models.LearningPath, error)
	Delete(ctx context.Context, id string) error
	ListLessons(ctx context.Context, pathID string) ([]models.Lesson, error)
	AddLesson(ctx context.Context, pathID string, req dto.LessonRequest) (*models.Lesson, error)
	UpdateLesson(ctx context.Context, pathID, lessonID string, req dto.UpdateLessonRequest) (*models.Lesson, error)
	ToggleLesson(ctx context.Context, pathID, lessonID string) (*models.Lesson, error)
	DeleteLesson(ctx context.Context, pathID, lessonID string) error
	ImportLessons(ctx context.Context, pathID string, upload service.Upload, actor *models.JWTClaims, meta models.RequestMeta) (*dto.ImportResult[models.Lesson, int], error)
	ExportLessons(ctx context.Context, pathID, format string) (*export.Document, error)
}

// LearningPathHandler exposes learning path and lesson endpoints.
type LearningPathHandler struct {
	service   learningPathService
	maxUpload int64
}

// NewLearningPathHandler constructs LearningPathHandler.
func NewLearningPathHandler(svc learningPathService, maxUpload int64) *LearningPathHandler {
	return &LearningPathHandler{service: svc, maxUpload: maxUpload}
}

// Create godoc
// @Summary Create a learning path
// @Tags LearningPaths
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body dto.CreateLearningPathRequest true "Learning path"
// @Success 201 {object} response.Envelope
// @Router /learning-paths [post]
func (h *LearningPathHandler) Create(c *gin.Context) {
	var req dto.CreateLearningPathRequest
	if !bindJSON(c, &req, "invalid learning path payload") {
		return
	}
	path, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, path)
}

// List godoc
// @Summary List learning paths
// @Tags LearningPaths
// @Security BearerAuth
// @Produce json
// @Param stack query string false "Stack"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /learning-paths [get]
func (h *LearningPathHandler) List(c *gin.Context) {
	filter := models.LearningPathFilter{ListParams: listParams(c), Stack: c.Query("stack")}
	paths, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, paths, pagination)
}

// Get godoc
// @Summary Get a learning path with its lessons
// @Tags LearningPaths
// @Security BearerAuth
// @Produce json
// @Param id path string true "Learning path ID"
// @Success 200 {object} response.Envelope
// @Router /learning-paths/{id} [get]
func (h *LearningPathHandler) Get(c *gin.Context) {
	path, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, path, nil)
}

// Update godoc
// @Summary Update a learning path
// @Tags LearningPaths
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Learning path ID"
// @Param payload body dto.UpdateLearningPathRequest true "Changes"
// @Success 200 {object} response.Envelope
// @Router /learning-paths/{id} [patch]
func (h *LearningPathHandler) Update(c *gin.Context) {
	var req dto.UpdateLearningPathRequest
	if !bindJSON(c, &req, "invalid learning path payload") {
		return
	}
	path, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, path, nil)
}

// Delete godoc
// @Summary Delete a learning path and its lessons
// @Tags LearningPaths
// @Security BearerAuth
// @Param id path string true "Learning path ID"
// @Success 204
// @Router /learning-paths/{id} [delete]
func (h *LearningPathHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListLessons godoc
// @Summary List lessons ordered by week
// @Tags LearningPaths
// @Security BearerAuth
// @Produce json
// @Param id path string true "Learning path ID"
// @Success 200 {object} response.Envelope
// @Router /learning-paths/{id}/lessons [get]
func (h *LearningPathHandler) ListLessons(c *gin.Context) {
	lessons, err := h.service.ListLessons(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lessons, nil)
}

// AddLesson godoc
// @Summary Add a lesson
// @Tags LearningPaths
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Learning path ID"
// @Param payload body dto.LessonRequest true "Lesson"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /learning-paths/{id}/lessons [post]
func (h *LearningPathHandler) AddLesson(c *gin.Context) {
	var req dto.LessonRequest
	if !bindJSON(c, &req, "invalid lesson payload") {
		return
	}
	lesson, err := h.service.AddLesson(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, lesson)
}

// UpdateLesson godoc
// @Summary Update a lesson
// @Tags LearningPaths
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Learning path ID"
// @Param lessonId path string true "Lesson ID"
// @Param payload body dto.UpdateLessonRequest true "Changes"
// @Success 200 {object} response.Envelope
// @Router /learning-paths/{id}/lessons/{lessonId} [patch]
func (h *LearningPathHandler) UpdateLesson(c *gin.Context) {
	var req dto.UpdateLessonRequest
	if !bindJSON(c, &req, "invalid lesson payload") {
		return
	}
	lesson, err := h.service.UpdateLesson(c.Request.Context(), c.Param("id"), c.Param("lessonId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lesson, nil)
}

// ToggleLesson godoc
// @Summary Flip the completed flag of a lesson
// @Tags LearningPaths
// @Security BearerAuth
// @Produce json
// @Param id path string true "Learning path ID"
// @Param lessonId path string true "Lesson ID"
// @Success 200 {object} response.Envelope
// @Router /learning-paths/{id}/lessons/{lessonId}/toggle [put]
func (h *LearningPathHandler) ToggleLesson(c *gin.Context) {
	lesson, err := h.service.ToggleLesson(c.Request.Context(), c.Param("id"), c.Param("lessonId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lesson, nil)
}

// DeleteLesson godoc
// @Summary Delete a lesson
// @Tags LearningPaths
// @Security BearerAuth
// @Param id path string true "Learning path ID"
// @Param lessonId path string true "Lesson ID"
// @Success 204
// @Router /learning-paths/{id}/lessons/{lessonId} [delete]
func (h *LearningPathHandler) DeleteLesson(c *gin.Context) {
	if err := h.service.DeleteLesson(c.Request.Context(), c.Param("id"), c.Param("lessonId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// UploadLessons godoc
// @Summary Bulk add lessons from a spreadsheet
// @Tags LearningPaths
// @Security BearerAuth
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Learning path ID"
// @Param file formData file true "Lesson plan spreadsheet"
// @Success 201 {object} response.Envelope
// @Router /learning-paths/{id}/lessons/upload [post]
func (h *LearningPathHandler) UploadLessons(c *gin.Context) {
	upload, ok := readUpload(c, h.maxUpload)
	if !ok {
		return
	}
	result, err := h.service.ImportLessons(c.Request.Context(), c.Param("id"), upload, claimsFromContext(c), middleware.RequestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// ExportLessons godoc
// @Summary Download the lesson plan
// @Tags LearningPaths
// @Security BearerAuth
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Learning path ID"
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Router /learning-paths/{id}/lessons/export [get]
func (h *LearningPathHandler) ExportLessons(c *gin.Context) {
	doc, err := h.service.ExportLessons(c.Request.Context(), c.Param("id"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, doc.Filename, doc.ContentType, doc.Body)
}
