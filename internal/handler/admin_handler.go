package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/learnpath-api/internal/middleware"
	"github.com/noah-isme/learnpath-api/internal/models"
	"github.com/noah-isme/learnpath-api/pkg/response"
)

type adminService interface {
	Register(ctx context.Context, actor *models.JWTClaims, req models.RegisterAdminRequest, meta models.RequestMeta) (*models.Admin, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error)
	RefreshToken(ctx context.Context, req models.RefreshTokenRequest, meta models.RequestMeta) (*models.LoginResponse, error)
	Logout(ctx context.Context, claims *models.JWTClaims, meta models.RequestMeta) error
	Profile(ctx context.Context, userID string) (*models.Admin, error)
	List(ctx context.Context, params models.ListParams, role string) ([]models.Admin, *models.Pagination, error)
	ChangePassword(ctx context.Context, claims *models.JWTClaims, req models.ChangePasswordRequest, meta models.RequestMeta) error
	ForgotPassword(ctx context.Context, req models.EmailRequest) error
	VerifyResetCode(ctx context.Context, req models.VerifyResetCodeRequest) error
	ResetPassword(ctx context.Context, req models.ResetPasswordRequest, meta models.RequestMeta) error
}

// AdminHandler exposes staff account endpoints.
type AdminHandler struct {
	service adminService
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(svc adminService) *AdminHandler {
	return &AdminHandler{service: svc}
}

// Register godoc
// @Summary Create a staff account
// @Description Admin only. A password is generated and emailed when omitted.
// @Tags Admins
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body models.RegisterAdminRequest true "Admin payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admins [post]
func (h *AdminHandler) Register(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req models.RegisterAdminRequest
	if !bindJSON(c, &req, "invalid admin payload") {
		return
	}
	admin, err := h.service.Register(c.Request.Context(), claims, req, middleware.RequestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, admin)
}

// List godoc
// @Summary List staff accounts
// @Tags Admins
// @Security BearerAuth
// @Produce json
// @Param role query string false "admin or instructor"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admins [get]
func (h *AdminHandler) List(c *gin.Context) {
	admins, pagination, err := h.service.List(c.Request.Context(), listParams(c), strings.TrimSpace(c.Query("role")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, admins, pagination)
}

// Login godoc
// @Summary Authenticate a staff member
// @Tags Admins
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /admins/login [post]
func (h *AdminHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if !bindJSON(c, &req, "invalid login payload") {
		return
	}
	req.IP = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	res, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Refresh godoc
// @Summary Refresh a staff access token
// @Tags Admins
// @Accept json
// @Produce json
// @Param payload body models.RefreshTokenRequest true "Refresh payload"
// @Success 200 {object} response.Envelope
// @Router /admins/refresh [post]
func (h *AdminHandler) Refresh(c *gin.Context) {
	var req models.RefreshTokenRequest
	if !bindJSON(c, &req, "invalid refresh payload") {
		return
	}
	res, err := h.service.RefreshToken(c.Request.Context(), req, middleware.RequestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Logout godoc
// @Summary Logout a staff session
// @Tags Admins
// @Security BearerAuth
// @Success 204
// @Router /admins/logout [post]
func (h *AdminHandler) Logout(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	if err := h.service.Logout(c.Request.Context(), claims, middleware.RequestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Profile godoc
// @Summary Current staff profile
// @Tags Admins
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admins/profile [get]
func (h *AdminHandler) Profile(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	admin, err := h.service.Profile(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, admin, nil)
}

// ChangePassword godoc
// @Summary Change a staff password
// @Tags Admins
// @Security BearerAuth
// @Accept json
// @Param payload body models.ChangePasswordRequest true "Change password"
// @Success 204
// @Router /admins/change-password [post]
func (h *AdminHandler) ChangePassword(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req models.ChangePasswordRequest
	if !bindJSON(c, &req, "invalid payload") {
		return
	}
	if err := h.service.ChangePassword(c.Request.Context(), claims, req, middleware.RequestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ForgotPassword godoc
// @Summary Request a staff password reset code
// @Tags Admins
// @Accept json
// @Param payload body models.EmailRequest true "Email"
// @Success 200 {object} response.Envelope
// @Router /admins/forgot-password [post]
func (h *AdminHandler) ForgotPassword(c *gin.Context) {
	var req models.EmailRequest
	if !bindJSON(c, &req, "invalid payload") {
		return
	}
	if err := h.service.ForgotPassword(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "if the email is registered, a reset code has been sent", nil)
}

// VerifyResetCode godoc
// @Summary Check a staff password reset code
// @Tags Admins
// @Accept json
// @Param payload body models.VerifyResetCodeRequest true "Email and code"
// @Success 200 {object} response.Envelope
// @Router /admins/verify-reset-code [post]
func (h *AdminHandler) VerifyResetCode(c *gin.Context) {
	var req models.VerifyResetCodeRequest
	if !bindJSON(c, &req, "invalid payload") {
		return
	}
	if err := h.service.VerifyResetCode(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "reset code is valid", nil)
}

// ResetPassword godoc
// @Summary Reset a staff password with a code
// @Tags Admins
// @Accept json
// @Param payload body models.ResetPasswordRequest true "Reset payload"
// @Success 200 {object} response.Envelope
// @Router /admins/reset-password [post]
func (h *AdminHandler) ResetPassword(c *gin.Context) {
	var req models.ResetPasswordRequest
	if !bindJSON(c, &req, "invalid payload") {
		return
	}
	if err := h.service.ResetPassword(c.Request.Context(), req, middleware.RequestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "password has been reset", nil)
}
