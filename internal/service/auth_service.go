package service

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"net/mail"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/learnpath-api/internal/models"
	"github.com/noah-isme/learnpath-api/internal/repository"
	appErrors "github.com/noah-isme/learnpath-api/pkg/errors"
	"github.com/noah-isme/learnpath-api/pkg/mailer"
	"github.com/noah-isme/learnpath-api/pkg/validation"
)

const verificationCodeDigits = 6

type authStudentRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.Student, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	MarkVerified(ctx context.Context, id string) error
	UpdatePassword(ctx context.Context, id, hash string) error
	Activate(ctx context.Context, id string) error
}

// AuthConfig defines the code lifetimes and links used by the account flows.
type AuthConfig struct {
	VerificationTTL time.Duration
	ResendLimit     int
	ResendWindow    time.Duration
	VerifyURL       string
	ResetTTL        time.Duration
	ResetURL        string
}

// AuthService provides the student account use cases: sign up, email
// verification, sessions and password management.
type AuthService struct {
	repo      authStudentRepository
	store     tokenStore
	notifier  Notifier
	cache     *CacheService
	validator *validation.Validator
	logger    *zap.Logger
	config    AuthConfig
	sessions  *sessions
	reset     *resetCodes
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(repo authStudentRepository, store tokenStore, issuer *TokenIssuer, notifier Notifier, audit auditRecorder, cache *CacheService, validate *validation.Validator, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validation.New()
	}
	if config.ResendLimit <= 0 {
		config.ResendLimit = 3
	}
	if config.ResendWindow <= 0 {
		config.ResendWindow = time.Hour
	}
	return &AuthService{
		repo:      repo,
		store:     store,
		notifier:  notifier,
		cache:     cache,
		validator: validate,
		logger:    logger,
		config:    config,
		sessions:  &sessions{issuer: issuer, store: store, audit: audit, logger: logger},
		reset:     &resetCodes{store: store, notifier: notifier, ttl: config.ResetTTL, link: config.ResetURL, logger: logger},
	}
}

// Register creates an unverified student without a password and mails a
// verification code.
func (s *AuthService) Register(ctx context.Context, req models.RegisterStudentRequest) (*models.Student, error) {
	if err := validate(s.validator, req, "invalid registration payload"); err != nil {
		return nil, err
	}

	email := normalizeEmail(req.Email)
	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email is already registered")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, internalError(err, "failed to check email")
	}

	student := &models.Student{
		Firstname: req.Firstname,
		Lastname:  req.Lastname,
		Email:     email,
		Phone:     req.Phone,
		Gender:    req.Gender,
		Stack:     models.Stack(req.Stack),
		Status:    models.StatusInactive,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, writeError(err, "email is already registered", "failed to create student")
	}
	s.cache.Invalidate(ctx, cachePatternDashboard)

	if err := s.sendVerification(ctx, student); err != nil {
		s.logger.Warn("failed to send verification code after registration", zap.String("email", email), zap.Error(err))
	}
	return student, nil
}

// SendVerification mails a new verification code.
func (s *AuthService) SendVerification(ctx context.Context, req models.EmailRequest) error {
	student, err := s.unverified(ctx, req)
	if err != nil {
		return err
	}
	return s.sendVerification(ctx, student)
}

// ResendVerification mails a new verification code, limited per email within
// the resend window.
func (s *AuthService) ResendVerification(ctx context.Context, req models.EmailRequest) error {
	student, err := s.unverified(ctx, req)
	if err != nil {
		return err
	}

	count, err := s.store.IncrementResend(ctx, student.Email, s.config.ResendWindow)
	if err != nil {
		return internalError(err, "failed to track resend attempts")
	}
	if count > int64(s.config.ResendLimit) {
		return appErrors.Clone(appErrors.ErrTooManyRequests, "verification code resend limit reached, try again later")
	}
	return s.sendVerification(ctx, student)
}

// VerifyEmail confirms the code and marks the email verified.
func (s *AuthService) VerifyEmail(ctx context.Context, req models.VerifyEmailRequest) error {
	if err := validate(s.validator, req, "invalid verification payload"); err != nil {
		return err
	}
	student, err := s.unverified(ctx, models.EmailRequest{Email: req.Email})
	if err != nil {
		return err
	}

	stored, err := s.store.VerificationCode(ctx, student.Email)
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return appErrors.Clone(appErrors.ErrBadInput, "verification code is invalid or has expired")
		}
		return internalError(err, "failed to load verification code")
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(req.Code)) != 1 {
		return appErrors.Clone(appErrors.ErrBadInput, "verification code is invalid or has expired")
	}

	if err := s.repo.MarkVerified(ctx, student.ID); err != nil {
		return internalError(err, "failed to verify email")
	}
	if err := s.store.ClearVerification(ctx, student.Email); err != nil {
		s.logger.Warn("failed to clear verification code", zap.String("email", student.Email), zap.Error(err))
	}
	return nil
}

// SetPassword sets the first password of a verified student.
func (s *AuthService) SetPassword(ctx context.Context, req models.SetPasswordRequest) error {
	if err := validate(s.validator, req, "invalid password payload"); err != nil {
		return err
	}

	student, err := s.repo.FindByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		return lookupError(err, "student not found", "failed to fetch student")
	}
	if !student.IsEmailVerified {
		return appErrors.Clone(appErrors.ErrEmailNotVerified, "verify your email before setting a password")
	}
	if student.HasPassword() {
		return appErrors.Clone(appErrors.ErrConflict, "password has already been set")
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePassword(ctx, student.ID, hash); err != nil {
		return internalError(err, "failed to set password")
	}
	return nil
}

// Login authenticates a student and returns issued tokens. The first
// successful login activates the account.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := validate(s.validator, req, "invalid login payload"); err != nil {
		return nil, err
	}

	student, err := s.repo.FindByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
		}
		return nil, internalError(err, "failed to fetch student")
	}
	if !student.IsEmailVerified {
		return nil, appErrors.Clone(appErrors.ErrEmailNotVerified, "")
	}
	if !student.HasPassword() {
		return nil, appErrors.Clone(appErrors.ErrPasswordNotSet, "")
	}
	if !passwordMatches(*student.PasswordHash, req.Password) {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
	}

	if student.Status != models.StatusActive {
		if err := s.repo.Activate(ctx, student.ID); err != nil && !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("failed to activate student", zap.String("student_id", student.ID), zap.Error(err))
		} else {
			student.Status = models.StatusActive
		}
	}

	return s.sessions.open(ctx, studentInfo(student), models.RequestMeta{IP: req.IP, UserAgent: req.UserAgent})
}

// RefreshToken exchanges a refresh token for a new pair.
func (s *AuthService) RefreshToken(ctx context.Context, req models.RefreshTokenRequest, meta models.RequestMeta) (*models.LoginResponse, error) {
	if err := validate(s.validator, req, "invalid refresh payload"); err != nil {
		return nil, err
	}
	return s.sessions.rotate(ctx, req.RefreshToken, func(ctx context.Context, id string) (models.UserInfo, error) {
		student, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return models.UserInfo{}, err
		}
		return studentInfo(student), nil
	}, meta)
}

// Logout revokes the student's refresh token.
func (s *AuthService) Logout(ctx context.Context, userID string, meta models.RequestMeta) error {
	return s.sessions.close(ctx, userID, models.RoleStudent, meta)
}

// Profile returns the authenticated student.
func (s *AuthService) Profile(ctx context.Context, userID string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, lookupError(err, "student not found", "failed to fetch student")
	}
	return student, nil
}

// ChangePassword changes the password of the authenticated student.
func (s *AuthService) ChangePassword(ctx context.Context, userID string, req models.ChangePasswordRequest, meta models.RequestMeta) error {
	if err := validate(s.validator, req, "invalid change password payload"); err != nil {
		return err
	}

	student, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return lookupError(err, "student not found", "failed to fetch student")
	}
	if !student.HasPassword() || !passwordMatches(*student.PasswordHash, req.OldPassword) {
		return appErrors.Clone(appErrors.ErrForbidden, "old password does not match")
	}

	hash, err := hashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePassword(ctx, userID, hash); err != nil {
		return internalError(err, "failed to update password")
	}

	recordAudit(ctx, s.sessions.audit, s.logger, models.AuditLog{
		ActorID:    &userID,
		ActorRole:  string(models.RoleStudent),
		Action:     models.AuditActionPasswordChange,
		Resource:   "auth",
		ResourceID: &userID,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}, nil)
	return nil
}

// ForgotPassword mails a reset code when the email belongs to a student. The
// outcome is the same for unknown emails.
func (s *AuthService) ForgotPassword(ctx context.Context, req models.EmailRequest) error {
	if err := validate(s.validator, req, "invalid forgot password payload"); err != nil {
		return err
	}
	student, err := s.repo.FindByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return internalError(err, "failed to fetch student")
	}
	return s.reset.send(ctx, studentInfo(student))
}

// VerifyResetCode checks a reset code without consuming it.
func (s *AuthService) VerifyResetCode(ctx context.Context, req models.VerifyResetCodeRequest) error {
	if err := validate(s.validator, req, "invalid reset code payload"); err != nil {
		return err
	}
	return s.reset.check(ctx, normalizeEmail(req.Email), req.Code)
}

// ResetPassword sets a new password after a matching reset code.
func (s *AuthService) ResetPassword(ctx context.Context, req models.ResetPasswordRequest, meta models.RequestMeta) error {
	if err := validate(s.validator, req, "invalid reset password payload"); err != nil {
		return err
	}
	email := normalizeEmail(req.Email)
	if err := s.reset.check(ctx, email, req.Code); err != nil {
		return err
	}

	student, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return lookupError(err, "student not found", "failed to fetch student")
	}
	hash, err := hashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePassword(ctx, student.ID, hash); err != nil {
		return internalError(err, "failed to update password")
	}
	s.reset.consume(ctx, email, student.ID)

	recordAudit(ctx, s.sessions.audit, s.logger, models.AuditLog{
		ActorID:    &student.ID,
		ActorRole:  string(models.RoleStudent),
		Action:     models.AuditActionPasswordReset,
		Resource:   "auth",
		ResourceID: &student.ID,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}, nil)
	return nil
}

// ValidateToken parses an access token for the JWT middleware.
func (s *AuthService) ValidateToken(token string) (*models.JWTClaims, error) {
	return s.sessions.issuer.ValidateToken(token)
}

// unverified loads the student behind req and rejects verified accounts.
func (s *AuthService) unverified(ctx context.Context, req models.EmailRequest) (*models.Student, error) {
	if err := validate(s.validator, req, "invalid email payload"); err != nil {
		return nil, err
	}
	student, err := s.repo.FindByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		return nil, lookupError(err, "no account is registered with this email", "failed to fetch student")
	}
	if student.IsEmailVerified {
		return nil, appErrors.Clone(appErrors.ErrBadInput, "email is already verified")
	}
	return student, nil
}

func (s *AuthService) sendVerification(ctx context.Context, student *models.Student) error {
	code, err := numericCode(verificationCodeDigits)
	if err != nil {
		return internalError(err, "failed to generate verification code")
	}
	if err := s.store.SaveVerificationCode(ctx, student.Email, code, s.config.VerificationTTL); err != nil {
		return internalError(err, "failed to store verification code")
	}
	to := mail.Address{Name: student.FullName(), Address: student.Email}
	if err := s.notifier.Notify(ctx, mailer.TemplateVerification, to, map[string]string{
		"Name":      student.Firstname,
		"Code":      code,
		"ExpiresIn": s.config.VerificationTTL.String(),
		"Link":      s.config.VerifyURL + "?email=" + url.QueryEscape(student.Email),
	}); err != nil {
		return internalError(err, "failed to queue verification email")
	}
	return nil
}

func studentInfo(student *models.Student) models.UserInfo {
	return models.UserInfo{
		ID:       student.ID,
		Email:    student.Email,
		FullName: student.FullName(),
		Role:     models.RoleStudent,
		Stack:    student.Stack,
	}
}
