package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"errors"
	"math/big"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/learnpath-api/internal/models"
	"github.com/noah-isme/learnpath-api/internal/repository"
	appErrors "github.com/noah-isme/learnpath-api/pkg/errors"
	"github.com/noah-isme/learnpath-api/pkg/validation"
)

const passwordAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz23456789"

// Notifier queues a templated email for one recipient.
type Notifier interface {
	Notify(ctx context.Context, template string, to mail.Address, data map[string]string) error
}

type auditRecorder interface {
	Create(ctx context.Context, log *models.AuditLog) error
}

// tokenStore holds verification codes, reset codes and refresh tokens.
type tokenStore interface {
	SaveVerificationCode(ctx context.Context, email, code string, ttl time.Duration) error
	VerificationCode(ctx context.Context, email string) (string, error)
	ClearVerification(ctx context.Context, email string) error
	IncrementResend(ctx context.Context, email string, window time.Duration) (int64, error)
	SaveResetCode(ctx context.Context, email, code string, ttl time.Duration) error
	ResetCode(ctx context.Context, email string) (string, error)
	ClearResetCode(ctx context.Context, email string) error
	SaveRefreshToken(ctx context.Context, userID, token string, ttl time.Duration) error
	RefreshToken(ctx context.Context, userID string) (string, error)
	ClearRefreshToken(ctx context.Context, userID string) error
}

func validate(v *validation.Validator, payload interface{}, message string) error {
	if err := v.Struct(payload); err != nil {
		return appErrors.Validation(err, message, v.Details(err))
	}
	return nil
}

func internalError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

// lookupError maps a repository read error to not found or internal.
func lookupError(err error, notFound, failure string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	return internalError(err, failure)
}

// writeError maps a repository write error, turning stale and duplicate writes
// into conflicts.
func writeError(err error, conflict, failure string) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Clone(appErrors.ErrNotFound, "")
	case errors.Is(err, repository.ErrStaleWrite):
		return appErrors.Clone(appErrors.ErrConflict, "record was modified by another request, reload and try again")
	case errors.Is(err, repository.ErrDuplicate):
		return appErrors.Clone(appErrors.ErrConflict, conflict)
	}
	return internalError(err, failure)
}

// numericCode returns a random code of n decimal digits.
func numericCode(n int) (string, error) {
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		d, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + d.Int64()))
	}
	return b.String(), nil
}

// generatePassword returns a random alphanumeric password of length n.
func generatePassword(n int) (string, error) {
	out := make([]byte, n)
	max := big.NewInt(int64(len(passwordAlphabet)))
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = passwordAlphabet[idx.Int64()]
	}
	return string(out), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func recordAudit(ctx context.Context, repo auditRecorder, logger *zap.Logger, entry models.AuditLog, metadata map[string]interface{}) {
	if repo == nil {
		return
	}
	if metadata != nil {
		entry.Metadata, _ = json.Marshal(metadata)
	}
	if err := repo.Create(ctx, &entry); err != nil {
		logger.Warn("failed to record audit log", zap.String("action", entry.Action), zap.Error(err))
	}
}
