package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/learnpath-api/internal/dto"
	"github.com/noah-isme/learnpath-api/internal/middleware"
	"github.com/noah-isme/learnpath-api/internal/models"
	"github.com/noah-isme/learnpath-api/internal/service"
	"github.com/noah-isme/learnpath-api/pkg/response"
)

type studentService interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error)
	GetByEmail(ctx context.Context, email string) (*models.Student, error)
	Import(ctx context.Context, upload service.Upload, actor *models.JWTClaims, meta models.RequestMeta) (*dto.ImportResult[models.Student, string], error)
}

// StudentHandler exposes the admin side of student management.
type StudentHandler struct {
	students  studentService
	maxUpload int64
}

// NewStudentHandler constructs StudentHandler. maxUpload caps roster uploads
// in bytes.
func NewStudentHandler(students studentService, maxUpload int64) *StudentHandler {
	return &StudentHandler{students: students, maxUpload: maxUpload}
}

// List godoc
// @Summary List students
// @Tags Students
// @Security BearerAuth
// @Produce json
// @Param search query string false "Search by name or email"
// @Param stack query string false "frontend, backend or product_design"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Param sort query string false "Sort column"
// @Param order query string false "asc or desc"
// @Success 200 {object} response.Envelope
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	filter := models.StudentFilter{
		ListParams: listParams(c),
		Stack:      c.Query("stack"),
		Search:     strings.TrimSpace(c.Query("search")),
	}
	students, pagination, err := h.students.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, pagination)
}

// Get godoc
// @Summary Get a student by email
// @Tags Students
// @Security BearerAuth
// @Produce json
// @Param email path string true "Student email"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{email} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	student, err := h.students.GetByEmail(c.Request.Context(), c.Param("email"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Upload godoc
// @Summary Bulk create students from a spreadsheet
// @Description Accepts xlsx or csv. Rows are split into created, duplicates and invalid rows.
// @Tags Students
// @Security BearerAuth
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Roster spreadsheet"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /students/upload [post]
func (h *StudentHandler) Upload(c *gin.Context) {
	upload, ok := readUpload(c, h.maxUpload)
	if !ok {
		return
	}
	result, err := h.students.Import(c.Request.Context(), upload, claimsFromContext(c), middleware.RequestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}
