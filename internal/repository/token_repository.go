package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrTokenNotFound reports a missing or expired code or token.
var ErrTokenNotFound = errors.New("token not found")

const (
	keyVerification  = "STUDENT_VERIFICATION_LINK:"
	keyResendCount   = "STUDENT_VERIFICATION_RESEND_COUNT:"
	keyPasswordReset = "PASSWORD_RESET:"
	keyRefreshToken  = "USER_REFRESH_TOKEN:"
)

// TokenRepository keeps short-lived codes and refresh tokens in Redis. The
// prefix namespaces accounts of different kinds (students use "", admins use
// "ADMIN_").
type TokenRepository struct {
	client redis.UniversalClient
	prefix string
}

// NewTokenRepository constructs a TokenRepository.
func NewTokenRepository(client redis.UniversalClient, prefix string) *TokenRepository {
	return &TokenRepository{client: client, prefix: prefix}
}

func (r *TokenRepository) key(kind, id string) string {
	return r.prefix + kind + id
}

// SaveVerificationCode stores the sign up verification code for email.
func (r *TokenRepository) SaveVerificationCode(ctx context.Context, email, code string, ttl time.Duration) error {
	return r.set(ctx, r.key(keyVerification, email), code, ttl)
}

// VerificationCode returns the pending verification code for email.
func (r *TokenRepository) VerificationCode(ctx context.Context, email string) (string, error) {
	return r.get(ctx, r.key(keyVerification, email))
}

// ClearVerification removes the code and the resend counter.
func (r *TokenRepository) ClearVerification(ctx context.Context, email string) error {
	return r.del(ctx, r.key(keyVerification, email), r.key(keyResendCount, email))
}

// IncrementResend bumps the resend counter, starting its window on first use,
// and returns the new count.
func (r *TokenRepository) IncrementResend(ctx context.Context, email string, window time.Duration) (int64, error) {
	k := r.key(keyResendCount, email)
	count, err := r.client.Incr(ctx, k).Result()
	if err != nil {
		return 0, fmt.Errorf("redis incr %s: %w", k, err)
	}
	if count == 1 {
		if err := r.client.Expire(ctx, k, window).Err(); err != nil {
			return 0, fmt.Errorf("redis expire %s: %w", k, err)
		}
	}
	return count, nil
}

// SaveResetCode stores a password reset code.
func (r *TokenRepository) SaveResetCode(ctx context.Context, email, code string, ttl time.Duration) error {
	return r.set(ctx, r.key(keyPasswordReset, email), code, ttl)
}

// ResetCode returns the pending reset code for email.
func (r *TokenRepository) ResetCode(ctx context.Context, email string) (string, error) {
	return r.get(ctx, r.key(keyPasswordReset, email))
}

// ClearResetCode removes the reset code.
func (r *TokenRepository) ClearResetCode(ctx context.Context, email string) error {
	return r.del(ctx, r.key(keyPasswordReset, email))
}

// SaveRefreshToken records the single live refresh token of a user.
func (r *TokenRepository) SaveRefreshToken(ctx context.Context, userID, token string, ttl time.Duration) error {
	return r.set(ctx, r.key(keyRefreshToken, userID), token, ttl)
}

// RefreshToken returns the live refresh token of a user.
func (r *TokenRepository) RefreshToken(ctx context.Context, userID string) (string, error) {
	return r.get(ctx, r.key(keyRefreshToken, userID))
}

// ClearRefreshToken revokes the user's refresh token.
func (r *TokenRepository) ClearRefreshToken(ctx context.Context, userID string) error {
	return r.del(ctx, r.key(keyRefreshToken, userID))
}

func (r *TokenRepository) set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *TokenRepository) get(ctx context.Context, key string) (string, error) {
	value, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrTokenNotFound
		}
		return "", fmt.Errorf("redis get %s: %w", key, err)
	}
	return value, nil
}

func (r *TokenRepository) del(ctx context.Context, keys ...string) error {
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", strconv.Quote(keys[0]), err)
	}
	return nil
}
