package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/noah-isme/learnpath-api/internal/models"
	appErrors "github.com/noah-isme/learnpath-api/pkg/errors"
)

// TokenConfig defines signing material and lifetimes for issued tokens.
type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	Issuer        string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
}

// TokenIssuer signs and parses access and refresh JWTs.
type TokenIssuer struct {
	config TokenConfig
	now    func() time.Time
}

// NewTokenIssuer constructs a TokenIssuer.
func NewTokenIssuer(config TokenConfig) *TokenIssuer {
	if config.AccessExpiry <= 0 {
		config.AccessExpiry = time.Hour
	}
	if config.RefreshExpiry <= 0 {
		config.RefreshExpiry = 7 * 24 * time.Hour
	}
	if config.RefreshSecret == "" {
		config.RefreshSecret = config.AccessSecret + ":refresh"
	}
	return &TokenIssuer{config: config, now: time.Now}
}

// RefreshExpiry is how long an issued refresh token stays valid.
func (t *TokenIssuer) RefreshExpiry() time.Duration {
	return t.config.RefreshExpiry
}

// Issue signs a fresh access/refresh pair for user.
func (t *TokenIssuer) Issue(user models.UserInfo) (*models.TokenPair, error) {
	issuedAt := t.now().UTC()
	access, err := t.sign(user, models.TokenAccess, issuedAt, t.config.AccessExpiry, t.config.AccessSecret)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := t.sign(user, models.TokenRefresh, issuedAt, t.config.RefreshExpiry, t.config.RefreshSecret)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}
	return &models.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(t.config.AccessExpiry.Seconds()),
		IssuedAt:     issuedAt,
	}, nil
}

// ValidateToken parses an access token and returns its claims.
func (t *TokenIssuer) ValidateToken(token string) (*models.JWTClaims, error) {
	return t.parse(token, models.TokenAccess, t.config.AccessSecret)
}

// ParseRefresh parses a refresh token and returns its claims.
func (t *TokenIssuer) ParseRefresh(token string) (*models.JWTClaims, error) {
	return t.parse(token, models.TokenRefresh, t.config.RefreshSecret)
}

func (t *TokenIssuer) sign(user models.UserInfo, kind models.TokenKind, issuedAt time.Time, ttl time.Duration, secret string) (string, error) {
	claims := &models.JWTClaims{
		UserID:   user.ID,
		Role:     user.Role,
		Email:    user.Email,
		FullName: user.FullName,
		Kind:     kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    t.config.Issuer,
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func (t *TokenIssuer) parse(raw string, kind models.TokenKind, secret string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(raw, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithTimeFunc(t.now))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid || claims.Kind != kind {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	return claims, nil
}
