package service

import (
	"context"
	"database/sql"
	"errors"
	"net/mail"

	"go.uber.org/zap"

	"github.com/noah-isme/learnpath-api/internal/models"
	appErrors "github.com/noah-isme/learnpath-api/pkg/errors"
	"github.com/noah-isme/learnpath-api/pkg/mailer"
	"github.com/noah-isme/learnpath-api/pkg/validation"
)

const generatedPasswordLength = 12

type adminRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.Admin, error)
	FindByID(ctx context.Context, id string) (*models.Admin, error)
	List(ctx context.Context, params models.ListParams, role string) ([]models.Admin, int, error)
	Create(ctx context.Context, admin *models.Admin) error
	UpdatePassword(ctx context.Context, id, hash string) error
}

// AdminService manages staff accounts and their sessions.
type AdminService struct {
	repo      adminRepository
	notifier  Notifier
	audit     auditRecorder
	cache     *CacheService
	validator *validation.Validator
	logger    *zap.Logger
	loginURL  string
	sessions  *sessions
	reset     *resetCodes
}

// NewAdminService constructs the admin service. store must be namespaced apart
// from the student token store.
func NewAdminService(repo adminRepository, store tokenStore, issuer *TokenIssuer, notifier Notifier, audit auditRecorder, cache *CacheService, validate *validation.Validator, logger *zap.Logger, config AuthConfig, loginURL string) *AdminService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validation.New()
	}
	return &AdminService{
		repo:      repo,
		notifier:  notifier,
		audit:     audit,
		cache:     cache,
		validator: validate,
		logger:    logger,
		loginURL:  loginURL,
		sessions:  &sessions{issuer: issuer, store: store, audit: audit, logger: logger},
		reset:     &resetCodes{store: store, notifier: notifier, ttl: config.ResetTTL, link: config.ResetURL, logger: logger},
	}
}

// Register creates a staff account. Without a supplied password one is
// generated and mailed to the new account.
func (s *AdminService) Register(ctx context.Context, actor *models.JWTClaims, req models.RegisterAdminRequest, meta models.RequestMeta) (*models.Admin, error) {
	if err := validate(s.validator, req, "invalid admin payload"); err != nil {
		return nil, err
	}

	email := normalizeEmail(req.Email)
	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email is already registered")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, internalError(err, "failed to check email")
	}

	role := models.RoleInstructor
	if req.Role != "" {
		role = models.UserRole(req.Role)
	}

	password := req.Password
	generated := password == ""
	if generated {
		var err error
		if password, err = generatePassword(generatedPasswordLength); err != nil {
			return nil, internalError(err, "failed to generate password")
		}
	}
	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	admin := &models.Admin{
		Firstname:      req.Firstname,
		Lastname:       req.Lastname,
		Email:          email,
		Phone:          req.Phone,
		Role:           role,
		ProfilePicture: req.ProfilePicture,
		PasswordHash:   hash,
	}
	if err := s.repo.Create(ctx, admin); err != nil {
		return nil, writeError(err, "email is already registered", "failed to create admin")
	}
	s.cache.Invalidate(ctx, cachePatternDashboard)

	if generated {
		err := s.notifier.Notify(ctx, mailer.TemplateAdminWelcome, mail.Address{Name: admin.FullName(), Address: admin.Email}, map[string]string{
			"Name":     admin.Firstname,
			"Role":     string(admin.Role),
			"Email":    admin.Email,
			"Password": password,
			"Link":     s.loginURL,
		})
		if err != nil {
			s.logger.Warn("failed to queue admin welcome email", zap.String("email", admin.Email), zap.Error(err))
		}
	}

	var actorID *string
	actorRole := ""
	if actor != nil {
		actorID = &actor.UserID
		actorRole = string(actor.Role)
	}
	recordAudit(ctx, s.audit, s.logger, models.AuditLog{
		ActorID:    actorID,
		ActorRole:  actorRole,
		Action:     models.AuditActionAdminCreate,
		Resource:   "admins",
		ResourceID: &admin.ID,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}, map[string]interface{}{"role": admin.Role, "generated_password": generated})

	return admin, nil
}

// Login authenticates a staff account.
func (s *AdminService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := validate(s.validator, req, "invalid login payload"); err != nil {
		return nil, err
	}

	admin, err := s.repo.FindByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
		}
		return nil, internalError(err, "failed to fetch admin")
	}
	if !passwordMatches(admin.PasswordHash, req.Password) {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
	}

	return s.sessions.open(ctx, adminInfo(admin), models.RequestMeta{IP: req.IP, UserAgent: req.UserAgent})
}

// RefreshToken exchanges a refresh token for a new pair.
func (s *AdminService) RefreshToken(ctx context.Context, req models.RefreshTokenRequest, meta models.RequestMeta) (*models.LoginResponse, error) {
	if err := validate(s.validator, req, "invalid refresh payload"); err != nil {
		return nil, err
	}
	return s.sessions.rotate(ctx, req.RefreshToken, func(ctx context.Context, id string) (models.UserInfo, error) {
		admin, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return models.UserInfo{}, err
		}
		return adminInfo(admin), nil
	}, meta)
}

// Logout revokes the account's refresh token.
func (s *AdminService) Logout(ctx context.Context, claims *models.JWTClaims, meta models.RequestMeta) error {
	return s.sessions.close(ctx, claims.UserID, claims.Role, meta)
}

// Profile returns the authenticated staff account.
func (s *AdminService) Profile(ctx context.Context, userID string) (*models.Admin, error) {
	admin, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, lookupError(err, "admin not found", "failed to fetch admin")
	}
	return admin, nil
}

// List returns staff accounts, optionally filtered by role.
func (s *AdminService) List(ctx context.Context, params models.ListParams, role string) ([]models.Admin, *models.Pagination, error) {
	params.Normalize(100)
	if role != "" && role != string(models.RoleAdmin) && role != string(models.RoleInstructor) {
		return nil, nil, appErrors.Validation(nil, "invalid role filter", map[string]string{"role": "role must be one of admin, instructor"})
	}
	admins, total, err := s.repo.List(ctx, params, role)
	if err != nil {
		return nil, nil, internalError(err, "failed to list admins")
	}
	return admins, models.NewPagination(params.Page, params.PageSize, total), nil
}

// ChangePassword changes the password of the authenticated staff account.
func (s *AdminService) ChangePassword(ctx context.Context, claims *models.JWTClaims, req models.ChangePasswordRequest, meta models.RequestMeta) error {
	if err := validate(s.validator, req, "invalid change password payload"); err != nil {
		return err
	}

	admin, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil {
		return lookupError(err, "admin not found", "failed to fetch admin")
	}
	if !passwordMatches(admin.PasswordHash, req.OldPassword) {
		return appErrors.Clone(appErrors.ErrForbidden, "old password does not match")
	}

	hash, err := hashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePassword(ctx, admin.ID, hash); err != nil {
		return internalError(err, "failed to update password")
	}

	recordAudit(ctx, s.audit, s.logger, models.AuditLog{
		ActorID:    &admin.ID,
		ActorRole:  string(admin.Role),
		Action:     models.AuditActionPasswordChange,
		Resource:   "auth",
		ResourceID: &admin.ID,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}, nil)
	return nil
}

// ForgotPassword mails a reset code when the email belongs to a staff account.
func (s *AdminService) ForgotPassword(ctx context.Context, req models.EmailRequest) error {
	if err := validate(s.validator, req, "invalid forgot password payload"); err != nil {
		return err
	}
	admin, err := s.repo.FindByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return internalError(err, "failed to fetch admin")
	}
	return s.reset.send(ctx, adminInfo(admin))
}

// VerifyResetCode checks a reset code without consuming it.
func (s *AdminService) VerifyResetCode(ctx context.Context, req models.VerifyResetCodeRequest) error {
	if err := validate(s.validator, req, "invalid reset code payload"); err != nil {
		return err
	}
	return s.reset.check(ctx, normalizeEmail(req.Email), req.Code)
}

// ResetPassword sets a new password after a matching reset code.
func (s *AdminService) ResetPassword(ctx context.Context, req models.ResetPasswordRequest, meta models.RequestMeta) error {
	if err := validate(s.validator, req, "invalid reset password payload"); err != nil {
		return err
	}
	email := normalizeEmail(req.Email)
	if err := s.reset.check(ctx, email, req.Code); err != nil {
		return err
	}

	admin, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return lookupError(err, "admin not found", "failed to fetch admin")
	}
	hash, err := hashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePassword(ctx, admin.ID, hash); err != nil {
		return internalError(err, "failed to update password")
	}
	s.reset.consume(ctx, email, admin.ID)

	recordAudit(ctx, s.audit, s.logger, models.AuditLog{
		ActorID:    &admin.ID,
		ActorRole:  string(admin.Role),
		Action:     models.AuditActionPasswordReset,
		Resource:   "auth",
		ResourceID: &admin.ID,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}, nil)
	return nil
}

func adminInfo(admin *models.Admin) models.UserInfo {
	return models.UserInfo{
		ID:       admin.ID,
		Email:    admin.Email,
		FullName: admin.FullName(),
		Role:     admin.Role,
	}
}
