package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/learnpath-api/internal/dto"
	"github.com/noah-isme/learnpath-api/internal/middleware"
)

type fakeDashboardSrv struct {
	summary *dto.DashboardSummary
	hit     bool
	err     error
}

func (f *fakeDashboardSrv) Summary(context.Context) (*dto.DashboardSummary, bool, error) {
	return f.summary, f.hit, f.err
}

func TestDashboardHandlerSummaryReportsCacheHit(t *testing.T) {
	handler := NewDashboardHandler(&fakeDashboardSrv{
		summary: &dto.DashboardSummary{TotalAdmins: 3, Students: dto.StudentStats{Total: 7, ByStack: map[string]int{"backend": 7}}},
		hit:     true,
	})

	c, rec := newTestContext(http.MethodGet, "/dashboard", nil)
	middleware.WithResponseMeta()(c)
	handler.Summary(c)

	require.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, true, envelope.Meta["cache_hit"])
	assert.Contains(t, string(envelope.Data), `"total_admins":3`)
	assert.Contains(t, string(envelope.Data), `"by_stack":{"backend":7}`)
}

func TestDashboardHandlerSummaryFailure(t *testing.T) {
	handler := NewDashboardHandler(&fakeDashboardSrv{err: errors.New("db down")})

	c, rec := newTestContext(http.MethodGet, "/dashboard", nil)
	handler.Summary(c)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "INTERNAL_ERROR", decodeEnvelope(t, rec).Error.Code)
}
