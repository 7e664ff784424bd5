package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/learnpath-api/internal/models"
)

var liveClassRowColumns = []string{"id", "title", "description", "stack", "location", "class_link", "start_at", "end_at", "created_at", "updated_at"}

func TestClassRepositoryListUpcoming(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	from := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)
	start := from.Add(time.Hour)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT "+liveClassColumns+" FROM live_classes WHERE start_at >= $1 AND stack = $2 ORDER BY start_at ASC LIMIT 10 OFFSET 0")).
		WithArgs(from, "frontend").
		WillReturnRows(sqlmock.NewRows(liveClassRowColumns).
			AddRow("c-1", "CSS grid", "Layouts", "frontend", "Lab 2", "https://meet.example/c1", start, start.Add(time.Hour), from, from))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM live_classes WHERE start_at >= $1 AND stack = $2")).
		WithArgs(from, "frontend").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	classes, total, err := repo.ListUpcoming(context.Background(), models.ClassFilter{From: from, Stack: "frontend"})
	require.NoError(t, err)
	require.Len(t, classes, 1)
	assert.Equal(t, start, classes[0].StartAt)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryUpdateOptimistic(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	prev := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	class := &models.LiveClass{ID: "c-1", Title: "t", Timestamps: models.Timestamps{UpdatedAt: prev}}

	mock.ExpectExec("UPDATE live_classes SET").
		WithArgs("c-1", "t", "", "", "", "", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), prev).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Update(context.Background(), class))
	assert.True(t, class.UpdatedAt.After(prev))

	mock.ExpectExec("UPDATE live_classes SET").
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Update(context.Background(), class), ErrStaleWrite)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryDeleteMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM live_classes WHERE id = $1")).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), "missing"), sql.ErrNoRows)
}

func TestRecordedClassRepositoryExistsVideoLinkExcludingID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRecordedClassRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM recorded_classes WHERE stack = $1 AND video_link = $2 AND id <> $3 LIMIT 1")).
		WithArgs("backend", "https://video.example/1", "r-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM recorded_classes WHERE stack = $1 AND video_link = $2 LIMIT 1")).
		WithArgs("backend", "https://video.example/2").
		WillReturnError(sql.ErrNoRows)

	exists, err := repo.ExistsVideoLink(context.Background(), "backend", "https://video.example/1", "r-1")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsVideoLink(context.Background(), "backend", "https://video.example/2", "")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordedClassRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRecordedClassRepository(db)

	day := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM recorded_classes ORDER BY class_date DESC, created_at DESC LIMIT 10 OFFSET 0")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "description", "class_date", "stack", "video_link", "created_at", "updated_at"}).
			AddRow("r-1", "Week 1", "Recap", day, "backend", "https://video.example/1", day, day))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM recorded_classes")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	classes, total, err := repo.List(context.Background(), models.ClassFilter{})
	require.NoError(t, err)
	assert.Len(t, classes, 1)
	assert.Equal(t, 1, total)
}
