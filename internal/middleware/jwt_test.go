package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/learnpath-api/internal/models"
	appErrors "github.com/noah-isme/learnpath-api/pkg/errors"
)

type stubValidator map[string]*models.JWTClaims

func (s stubValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	if claims, ok := s[token]; ok {
		return claims, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
}

func protectedRouter(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handlers := append(mw, func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil {
			c.String(http.StatusOK, "anonymous")
			return
		}
		c.String(http.StatusOK, claims.UserID)
	})
	router.GET("/resource/:id", handlers...)
	return router
}

func serve(router *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/resource/42", nil)
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

var tokens = stubValidator{
	"admin-token":   {UserID: "admin-1", Role: models.RoleAdmin},
	"teach-token":   {UserID: "inst-1", Role: models.RoleInstructor},
	"student-token": {UserID: "stu-1", Role: models.RoleStudent},
}

func TestJWTRequiresBearerToken(t *testing.T) {
	router := protectedRouter(JWT(tokens))

	assert.Equal(t, http.StatusUnauthorized, serve(router, "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(router, "Basic abc").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(router, "Bearer ").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(router, "Bearer forged").Code)

	rec := serve(router, "bearer admin-token")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "admin-1", rec.Body.String())
}

func TestOptionalJWTNeverBlocks(t *testing.T) {
	router := protectedRouter(OptionalJWT(tokens))

	assert.Equal(t, "anonymous", serve(router, "Bearer forged").Body.String())
	assert.Equal(t, "stu-1", serve(router, "Bearer student-token").Body.String())
}

func TestRBAC(t *testing.T) {
	admin := protectedRouter(JWT(tokens), RequireAdmin())
	staff := protectedRouter(JWT(tokens), RequireStaff())
	students := protectedRouter(JWT(tokens), RBAC(models.RoleStudent))

	assert.Equal(t, http.StatusOK, serve(admin, "Bearer admin-token").Code)
	assert.Equal(t, http.StatusForbidden, serve(admin, "Bearer teach-token").Code)
	assert.Equal(t, http.StatusOK, serve(staff, "Bearer teach-token").Code)
	assert.Equal(t, http.StatusForbidden, serve(staff, "Bearer student-token").Code)
	assert.Equal(t, http.StatusOK, serve(students, "Bearer student-token").Code)

	unauthenticated := protectedRouter(RequireAdmin())
	assert.Equal(t, http.StatusUnauthorized, serve(unauthenticated, "").Code)
}
