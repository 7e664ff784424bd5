package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/learnpath-api/internal/middleware"
	"github.com/noah-isme/learnpath-api/internal/models"
	"github.com/noah-isme/learnpath-api/internal/service"
	appErrors "github.com/noah-isme/learnpath-api/pkg/errors"
	"github.com/noah-isme/learnpath-api/pkg/response"
)

// DefaultMaxUploadBytes bounds import uploads when no limit is configured.
const DefaultMaxUploadBytes int64 = 5 << 20

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.Claims(c)
}

// requireClaims writes 401 and returns nil when the request is anonymous.
func requireClaims(c *gin.Context) *models.JWTClaims {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
	}
	return claims
}

// bindJSON decodes the body into dest and writes a validation error on failure.
func bindJSON(c *gin.Context, dest interface{}, message string) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message))
		return false
	}
	return true
}

func parseQueryInt(c *gin.Context, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return val
}

func listParams(c *gin.Context) models.ListParams {
	return models.ListParams{
		Page:      parseQueryInt(c, "page", 1),
		PageSize:  parseQueryInt(c, "page_size", 10),
		SortBy:    strings.TrimSpace(c.Query("sort")),
		SortOrder: strings.TrimSpace(c.Query("order")),
	}
}

// readUpload reads the multipart "file" field, refusing bodies over limit.
func readUpload(c *gin.Context, limit int64) (service.Upload, bool) {
	if limit <= 0 {
		limit = DefaultMaxUploadBytes
	}
	if c.Request.ContentLength > limit {
		response.Error(c, appErrors.ErrPayloadTooLarge)
		return service.Upload{}, false
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, appErrors.ErrPayloadTooLarge)
			return service.Upload{}, false
		}
		response.Error(c, appErrors.Validation(err, "a spreadsheet is required", map[string]string{"file": "file is required"}))
		return service.Upload{}, false
	}
	if header.Size > limit {
		response.Error(c, appErrors.ErrPayloadTooLarge)
		return service.Upload{}, false
	}

	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrBadInput.Code, appErrors.ErrBadInput.Status, "could not open the uploaded file"))
		return service.Upload{}, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrBadInput.Code, appErrors.ErrBadInput.Status, "could not read the uploaded file"))
		return service.Upload{}, false
	}
	return service.Upload{Filename: header.Filename, Data: data}, true
}
