package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/learnpath-api/internal/models"
	appErrors "github.com/noah-isme/learnpath-api/pkg/errors"
	"github.com/noah-isme/learnpath-api/pkg/mailer"
	"github.com/noah-isme/learnpath-api/pkg/validation"
)

type fakeStudentRepo struct {
	byEmail   map[string]*models.Student
	activated []string
}

func newFakeStudentRepo(students ...*models.Student) *fakeStudentRepo {
	repo := &fakeStudentRepo{byEmail: map[string]*models.Student{}}
	for _, s := range students {
		repo.byEmail[s.Email] = s
	}
	return repo
}

func (f *fakeStudentRepo) FindByEmail(_ context.Context, email string) (*models.Student, error) {
	if s, ok := f.byEmail[email]; ok {
		clone := *s
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStudentRepo) FindByID(_ context.Context, id string) (*models.Student, error) {
	for _, s := range f.byEmail {
		if s.ID == id {
			clone := *s
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStudentRepo) Create(_ context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = "s-" + student.Email
	}
	clone := *student
	f.byEmail[student.Email] = &clone
	return nil
}

func (f *fakeStudentRepo) MarkVerified(_ context.Context, id string) error {
	for _, s := range f.byEmail {
		if s.ID == id {
			s.IsEmailVerified = true
		}
	}
	return nil
}

func (f *fakeStudentRepo) UpdatePassword(_ context.Context, id, hash string) error {
	for _, s := range f.byEmail {
		if s.ID == id {
			h := hash
			s.PasswordHash = &h
		}
	}
	return nil
}

func (f *fakeStudentRepo) Activate(_ context.Context, id string) error {
	f.activated = append(f.activated, id)
	for _, s := range f.byEmail {
		if s.ID == id {
			s.Status = models.StatusActive
		}
	}
	return nil
}

type authFixture struct {
	svc      *AuthService
	repo     *fakeStudentRepo
	store    *fakeTokenStore
	notifier *fakeNotifier
	audit    *fakeAudit
	cache    *memoryCache
}

func newAuthFixture(t *testing.T, students ...*models.Student) authFixture {
	t.Helper()
	f := authFixture{
		repo:     newFakeStudentRepo(students...),
		store:    newFakeTokenStore(),
		notifier: &fakeNotifier{},
		audit:    &fakeAudit{},
		cache:    newMemoryCache(),
	}
	cache := NewCacheService(f.cache, nil, 0, zap.NewNop(), true)
	f.svc = NewAuthService(f.repo, f.store, testIssuer(), f.notifier, f.audit, cache, validation.New(), zap.NewNop(), AuthConfig{
		VerificationTTL: 30 * time.Minute,
		ResendLimit:     2,
		VerifyURL:       "http://app.local/verify-email",
		ResetTTL:        15 * time.Minute,
		ResetURL:        "http://app.local/reset-password",
	})
	return f
}

func verifiedStudent(t *testing.T, password string) *models.Student {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	h := string(hash)
	return &models.Student{
		ID:              "s-1",
		Firstname:       "Ada",
		Lastname:        "Obi",
		Email:           "ada@example.com",
		Gender:          "female",
		Stack:           models.StackBackend,
		PasswordHash:    &h,
		IsEmailVerified: true,
		Status:          models.StatusInactive,
	}
}

func TestAuthServiceRegisterQueuesVerificationCode(t *testing.T) {
	f := newAuthFixture(t)
	f.cache.entries[cacheKeyDashboard] = []byte(`{}`)

	student, err := f.svc.Register(context.Background(), models.RegisterStudentRequest{
		Firstname: "Ada",
		Lastname:  "Obi",
		Email:     "Ada@Example.com",
		Gender:    "female",
		Stack:     "backend",
	})
	require.NoError(t, err)

	assert.Equal(t, "ada@example.com", student.Email)
	assert.False(t, student.IsEmailVerified)
	assert.Equal(t, models.StatusInactive, student.Status)

	sent := f.notifier.last()
	assert.Equal(t, mailer.TemplateVerification, sent.template)
	assert.Len(t, sent.data["Code"], 6)
	assert.Equal(t, f.store.verification["ada@example.com"], sent.data["Code"])
	assert.NotContains(t, f.cache.entries, cacheKeyDashboard)
}

func TestAuthServiceRegisterRejectsDuplicateEmail(t *testing.T) {
	f := newAuthFixture(t, verifiedStudent(t, "Secret#123"))

	_, err := f.svc.Register(context.Background(), models.RegisterStudentRequest{
		Firstname: "Ada", Lastname: "Obi", Email: "ada@example.com", Gender: "female", Stack: "backend",
	})
	assert.ErrorIs(t, err, appErrors.ErrConflict)
}

func TestAuthServiceRegisterValidatesPayload(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.Register(context.Background(), models.RegisterStudentRequest{Firstname: "Ada", Email: "nope", Gender: "x", Stack: "devops"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Contains(t, appErr.Details, "email")
	assert.Contains(t, appErr.Details, "stack")
	assert.Contains(t, appErr.Details, "lastname")
}

func TestAuthServiceResendVerificationIsLimited(t *testing.T) {
	student := &models.Student{ID: "s-2", Firstname: "Bo", Lastname: "Li", Email: "bo@example.com", Stack: models.StackFrontend}
	f := newAuthFixture(t, student)
	ctx := context.Background()

	require.NoError(t, f.svc.ResendVerification(ctx, models.EmailRequest{Email: "bo@example.com"}))
	require.NoError(t, f.svc.ResendVerification(ctx, models.EmailRequest{Email: "bo@example.com"}))
	err := f.svc.ResendVerification(ctx, models.EmailRequest{Email: "bo@example.com"})

	assert.ErrorIs(t, err, appErrors.ErrTooManyRequests)
	assert.Len(t, f.notifier.sent, 2)
}

func TestAuthServiceSendVerificationRejectsVerifiedAndUnknown(t *testing.T) {
	f := newAuthFixture(t, verifiedStudent(t, "Secret#123"))

	err := f.svc.SendVerification(context.Background(), models.EmailRequest{Email: "ada@example.com"})
	assert.ErrorIs(t, err, appErrors.ErrBadInput)

	err = f.svc.SendVerification(context.Background(), models.EmailRequest{Email: "ghost@example.com"})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestAuthServiceVerifyEmail(t *testing.T) {
	student := &models.Student{ID: "s-2", Firstname: "Bo", Lastname: "Li", Email: "bo@example.com", Stack: models.StackFrontend}
	f := newAuthFixture(t, student)
	ctx := context.Background()
	f.store.verification["bo@example.com"] = "123456"

	err := f.svc.VerifyEmail(ctx, models.VerifyEmailRequest{Email: "bo@example.com", Code: "654321"})
	assert.ErrorIs(t, err, appErrors.ErrBadInput)
	assert.False(t, f.repo.byEmail["bo@example.com"].IsEmailVerified)

	require.NoError(t, f.svc.VerifyEmail(ctx, models.VerifyEmailRequest{Email: "bo@example.com", Code: "123456"}))
	assert.True(t, f.repo.byEmail["bo@example.com"].IsEmailVerified)
	assert.NotContains(t, f.store.verification, "bo@example.com")
}

func TestAuthServiceSetPasswordRequiresVerification(t *testing.T) {
	student := &models.Student{ID: "s-2", Firstname: "Bo", Lastname: "Li", Email: "bo@example.com", Stack: models.StackFrontend}
	f := newAuthFixture(t, student)
	req := models.SetPasswordRequest{Email: "bo@example.com", Password: "Secret#123", ConfirmPassword: "Secret#123"}

	err := f.svc.SetPassword(context.Background(), req)
	assert.ErrorIs(t, err, appErrors.ErrEmailNotVerified)

	f.repo.byEmail["bo@example.com"].IsEmailVerified = true
	require.NoError(t, f.svc.SetPassword(context.Background(), req))
	assert.True(t, f.repo.byEmail["bo@example.com"].HasPassword())

	err = f.svc.SetPassword(context.Background(), req)
	assert.ErrorIs(t, err, appErrors.ErrConflict)
}

func TestAuthServiceLoginGuards(t *testing.T) {
	unverified := &models.Student{ID: "s-2", Email: "bo@example.com", Stack: models.StackFrontend}
	noPassword := &models.Student{ID: "s-3", Email: "cy@example.com", Stack: models.StackFrontend, IsEmailVerified: true}
	f := newAuthFixture(t, verifiedStudent(t, "Secret#123"), unverified, noPassword)
	ctx := context.Background()

	_, err := f.svc.Login(ctx, models.LoginRequest{Email: "bo@example.com", Password: "whatever"})
	assert.ErrorIs(t, err, appErrors.ErrEmailNotVerified)

	_, err = f.svc.Login(ctx, models.LoginRequest{Email: "cy@example.com", Password: "whatever"})
	assert.ErrorIs(t, err, appErrors.ErrPasswordNotSet)

	_, err = f.svc.Login(ctx, models.LoginRequest{Email: "ada@example.com", Password: "Wrong#123"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)

	_, err = f.svc.Login(ctx, models.LoginRequest{Email: "ghost@example.com", Password: "Wrong#123"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)
}

func TestAuthServiceLoginActivatesAndRotatesRefreshToken(t *testing.T) {
	f := newAuthFixture(t, verifiedStudent(t, "Secret#123"))
	ctx := context.Background()

	resp, err := f.svc.Login(ctx, models.LoginRequest{Email: "ADA@example.com", Password: "Secret#123", IP: "10.0.0.1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"s-1"}, f.repo.activated)
	assert.Equal(t, models.StackBackend, resp.User.Stack)
	assert.Equal(t, resp.RefreshToken, f.store.refresh["s-1"])
	assert.Equal(t, []string{models.AuditActionLogin}, f.audit.actions())

	rotated, err := f.svc.RefreshToken(ctx, models.RefreshTokenRequest{RefreshToken: resp.RefreshToken}, models.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, rotated.RefreshToken, f.store.refresh["s-1"])

	f.store.refresh["s-1"] = "something-else"
	_, err = f.svc.RefreshToken(ctx, models.RefreshTokenRequest{RefreshToken: rotated.RefreshToken}, models.RequestMeta{})
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	require.NoError(t, f.svc.Logout(ctx, "s-1", models.RequestMeta{}))
	assert.NotContains(t, f.store.refresh, "s-1")
}

func TestAuthServiceForgotPasswordHidesUnknownEmail(t *testing.T) {
	f := newAuthFixture(t)

	require.NoError(t, f.svc.ForgotPassword(context.Background(), models.EmailRequest{Email: "ghost@example.com"}))
	assert.Empty(t, f.notifier.sent)
}

func TestAuthServiceResetPasswordFlow(t *testing.T) {
	f := newAuthFixture(t, verifiedStudent(t, "Secret#123"))
	ctx := context.Background()
	f.store.refresh["s-1"] = "live-token"

	require.NoError(t, f.svc.ForgotPassword(ctx, models.EmailRequest{Email: "ada@example.com"}))
	code := f.notifier.last().data["Code"]
	require.Len(t, code, resetCodeDigits)
	assert.Equal(t, mailer.TemplatePasswordReset, f.notifier.last().template)

	require.NoError(t, f.svc.VerifyResetCode(ctx, models.VerifyResetCodeRequest{Email: "ada@example.com", Code: code}))

	wrong := "0000000"
	if code == wrong {
		wrong = "1111111"
	}
	err := f.svc.ResetPassword(ctx, models.ResetPasswordRequest{Email: "ada@example.com", Code: wrong, NewPassword: "Newer#456", ConfirmPassword: "Newer#456"}, models.RequestMeta{})
	assert.ErrorIs(t, err, appErrors.ErrBadInput)

	require.NoError(t, f.svc.ResetPassword(ctx, models.ResetPasswordRequest{Email: "ada@example.com", Code: code, NewPassword: "Newer#456", ConfirmPassword: "Newer#456"}, models.RequestMeta{}))
	assert.NotContains(t, f.store.reset, "ada@example.com")
	assert.NotContains(t, f.store.refresh, "s-1")
	assert.Contains(t, f.audit.actions(), models.AuditActionPasswordReset)

	_, err = f.svc.Login(ctx, models.LoginRequest{Email: "ada@example.com", Password: "Newer#456"})
	require.NoError(t, err)
}

func TestAuthServiceChangePasswordChecksOldPassword(t *testing.T) {
	f := newAuthFixture(t, verifiedStudent(t, "Secret#123"))
	ctx := context.Background()

	err := f.svc.ChangePassword(ctx, "s-1", models.ChangePasswordRequest{OldPassword: "Wrong#123", NewPassword: "Newer#456", ConfirmPassword: "Newer#456"}, models.RequestMeta{})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	require.NoError(t, f.svc.ChangePassword(ctx, "s-1", models.ChangePasswordRequest{OldPassword: "Secret#123", NewPassword: "Newer#456", ConfirmPassword: "Newer#456"}, models.RequestMeta{}))
	assert.Equal(t, []string{models.AuditActionPasswordChange}, f.audit.actions())
}
