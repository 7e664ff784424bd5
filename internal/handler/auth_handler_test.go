package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/learnpath-api/internal/models"
	appErrors "github.com/noah-isme/learnpath-api/pkg/errors"
)

type fakeAuthService struct {
	login     models.LoginRequest
	loginErr  error
	logoutFor string
	meta      models.RequestMeta
	forgot    []string
	register  models.RegisterStudentRequest
}

func (f *fakeAuthService) Register(_ context.Context, req models.RegisterStudentRequest) (*models.Student, error) {
	f.register = req
	return &models.Student{ID: "s-1", Email: req.Email}, nil
}

func (f *fakeAuthService) SendVerification(context.Context, models.EmailRequest) error { return nil }

func (f *fakeAuthService) ResendVerification(context.Context, models.EmailRequest) error {
	return appErrors.Clone(appErrors.ErrTooManyRequests, "resend limit reached")
}

func (f *fakeAuthService) VerifyEmail(context.Context, models.VerifyEmailRequest) error { return nil }

func (f *fakeAuthService) SetPassword(context.Context, models.SetPasswordRequest) error { return nil }

func (f *fakeAuthService) Login(_ context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	f.login = req
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &models.LoginResponse{AccessToken: "access", RefreshToken: "refresh", ExpiresIn: 3600}, nil
}

func (f *fakeAuthService) RefreshToken(_ context.Context, _ models.RefreshTokenRequest, meta models.RequestMeta) (*models.LoginResponse, error) {
	f.meta = meta
	return &models.LoginResponse{AccessToken: "next"}, nil
}

func (f *fakeAuthService) Logout(_ context.Context, userID string, meta models.RequestMeta) error {
	f.logoutFor = userID
	f.meta = meta
	return nil
}

func (f *fakeAuthService) Profile(_ context.Context, userID string) (*models.Student, error) {
	return &models.Student{ID: userID}, nil
}

func (f *fakeAuthService) ChangePassword(context.Context, string, models.ChangePasswordRequest, models.RequestMeta) error {
	return nil
}

func (f *fakeAuthService) ForgotPassword(_ context.Context, req models.EmailRequest) error {
	f.forgot = append(f.forgot, req.Email)
	return nil
}

func (f *fakeAuthService) VerifyResetCode(context.Context, models.VerifyResetCodeRequest) error {
	return nil
}

func (f *fakeAuthService) ResetPassword(context.Context, models.ResetPasswordRequest, models.RequestMeta) error {
	return nil
}

func TestAuthHandlerLoginPassesClientDetails(t *testing.T) {
	svc := &fakeAuthService{}
	handler := NewAuthHandler(svc)

	c, rec := newTestContext(http.MethodPost, "/auth/login", []byte(`{"email":"ada@example.com","password":"Secret1!"}`))
	c.Request.Header.Set("User-Agent", "mobile-app/2.1")
	handler.Login(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ada@example.com", svc.login.Email)
	assert.Equal(t, "mobile-app/2.1", svc.login.UserAgent)
	assert.NotEmpty(t, svc.login.IP)
	assert.Contains(t, string(decodeEnvelope(t, rec).Data), `"access_token":"access"`)
}

func TestAuthHandlerLoginMapsServiceErrors(t *testing.T) {
	handler := NewAuthHandler(&fakeAuthService{loginErr: appErrors.Clone(appErrors.ErrEmailNotVerified, "")})

	c, rec := newTestContext(http.MethodPost, "/auth/login", []byte(`{"email":"ada@example.com","password":"x"}`))
	handler.Login(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "EMAIL_NOT_VERIFIED", decodeEnvelope(t, rec).Error.Code)
}

func TestAuthHandlerRejectsMalformedJSON(t *testing.T) {
	handler := NewAuthHandler(&fakeAuthService{})

	c, rec := newTestContext(http.MethodPost, "/auth/register", []byte(`{"email":`))
	handler.Register(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeEnvelope(t, rec).Error.Code)
}

func TestAuthHandlerRegisterCreates(t *testing.T) {
	svc := &fakeAuthService{}
	handler := NewAuthHandler(svc)

	c, rec := newTestContext(http.MethodPost, "/auth/register", []byte(`{"firstname":"Ada","lastname":"Lovelace","email":"ada@example.com","gender":"female","stack":"backend"}`))
	handler.Register(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "backend", svc.register.Stack)
}

func TestAuthHandlerResendSurfaces429(t *testing.T) {
	handler := NewAuthHandler(&fakeAuthService{})

	c, rec := newTestContext(http.MethodPost, "/auth/verification/resend", []byte(`{"email":"ada@example.com"}`))
	handler.ResendVerification(c)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestAuthHandlerLogoutUsesClaims(t *testing.T) {
	svc := &fakeAuthService{}
	handler := NewAuthHandler(svc)

	c, rec := newTestContext(http.MethodPost, "/auth/logout", nil)
	handler.Logout(c)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	c, rec = newTestContext(http.MethodPost, "/auth/logout", nil)
	withClaims(c, "s-7", models.RoleStudent)
	handler.Logout(c)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "s-7", svc.logoutFor)
}

func TestAuthHandlerForgotPasswordIsUniform(t *testing.T) {
	svc := &fakeAuthService{}
	handler := NewAuthHandler(svc)

	c, rec := newTestContext(http.MethodPost, "/auth/forgot-password", []byte(`{"email":"ghost@example.com"}`))
	handler.ForgotPassword(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"ghost@example.com"}, svc.forgot)
	assert.Contains(t, decodeEnvelope(t, rec).Message, "if the email is registered")
}
