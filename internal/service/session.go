package service

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"net/mail"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/learnpath-api/internal/models"
	"github.com/noah-isme/learnpath-api/internal/repository"
	appErrors "github.com/noah-isme/learnpath-api/pkg/errors"
	"github.com/noah-isme/learnpath-api/pkg/mailer"
)

const resetCodeDigits = 7

// sessions issues and rotates token pairs for one kind of account. The refresh
// token currently valid for an account is the one held in the token store.
type sessions struct {
	issuer *TokenIssuer
	store  tokenStore
	audit  auditRecorder
	logger *zap.Logger
}

func (s *sessions) open(ctx context.Context, user models.UserInfo, meta models.RequestMeta) (*models.LoginResponse, error) {
	pair, err := s.issuer.Issue(user)
	if err != nil {
		return nil, internalError(err, "failed to create tokens")
	}
	if err := s.store.SaveRefreshToken(ctx, user.ID, pair.RefreshToken, s.issuer.RefreshExpiry()); err != nil {
		return nil, internalError(err, "failed to persist refresh token")
	}

	recordAudit(ctx, s.audit, s.logger, models.AuditLog{
		ActorID:    &user.ID,
		ActorRole:  string(user.Role),
		Action:     models.AuditActionLogin,
		Resource:   "auth",
		ResourceID: &user.ID,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}, nil)

	return &models.LoginResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
		IssuedAt:     pair.IssuedAt,
		User:         user,
	}, nil
}

// rotate exchanges a refresh token for a new pair. load resolves the account
// named by the token and may reject it.
func (s *sessions) rotate(ctx context.Context, raw string, load func(context.Context, string) (models.UserInfo, error), meta models.RequestMeta) (*models.LoginResponse, error) {
	claims, err := s.issuer.ParseRefresh(raw)
	if err != nil {
		return nil, err
	}

	stored, err := s.store.RefreshToken(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "refresh token is expired or revoked")
		}
		return nil, internalError(err, "failed to load refresh token")
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(raw)) != 1 {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "refresh token is expired or revoked")
	}

	user, err := load(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "associated account no longer exists")
		}
		return nil, err
	}
	return s.open(ctx, user, meta)
}

func (s *sessions) close(ctx context.Context, userID string, role models.UserRole, meta models.RequestMeta) error {
	if err := s.store.ClearRefreshToken(ctx, userID); err != nil {
		return internalError(err, "failed to revoke refresh token")
	}
	recordAudit(ctx, s.audit, s.logger, models.AuditLog{
		ActorID:    &userID,
		ActorRole:  string(role),
		Action:     models.AuditActionLogout,
		Resource:   "auth",
		ResourceID: &userID,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}, nil)
	return nil
}

// resetCodes runs the forgot/verify/reset password flow for one kind of account.
type resetCodes struct {
	store    tokenStore
	notifier Notifier
	ttl      time.Duration
	link     string
	logger   *zap.Logger
}

// send mails a fresh code. Callers skip it for unknown emails so the response
// does not reveal which addresses exist.
func (r *resetCodes) send(ctx context.Context, user models.UserInfo) error {
	code, err := numericCode(resetCodeDigits)
	if err != nil {
		return internalError(err, "failed to generate reset code")
	}
	if err := r.store.SaveResetCode(ctx, user.Email, code, r.ttl); err != nil {
		return internalError(err, "failed to store reset code")
	}
	err = r.notifier.Notify(ctx, mailer.TemplatePasswordReset, mail.Address{Name: user.FullName, Address: user.Email}, map[string]string{
		"Name":      user.FullName,
		"Code":      code,
		"ExpiresIn": r.ttl.String(),
		"Link":      r.link,
	})
	if err != nil {
		r.logger.Warn("failed to queue password reset email", zap.String("email", user.Email), zap.Error(err))
	}
	return nil
}

func (r *resetCodes) check(ctx context.Context, email, code string) error {
	stored, err := r.store.ResetCode(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return appErrors.Clone(appErrors.ErrBadInput, "reset code is invalid or has expired")
		}
		return internalError(err, "failed to load reset code")
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(code)) != 1 {
		return appErrors.Clone(appErrors.ErrBadInput, "reset code is invalid or has expired")
	}
	return nil
}

// consume clears the code and any live session once the password changed.
func (r *resetCodes) consume(ctx context.Context, email, userID string) {
	if err := r.store.ClearResetCode(ctx, email); err != nil {
		r.logger.Warn("failed to clear reset code", zap.String("email", email), zap.Error(err))
	}
	if err := r.store.ClearRefreshToken(ctx, userID); err != nil {
		r.logger.Warn("failed to revoke refresh token after reset", zap.String("user_id", userID), zap.Error(err))
	}
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", internalError(err, "failed to hash password")
	}
	return string(hash), nil
}

func passwordMatches(hash, password string) bool {
	return hash != "" && bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
