package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/learnpath-api/internal/models"
)

var lessonRowColumns = []string{"id", "learning_path_id", "week", "title", "description", "completed", "created_at", "updated_at"}

func TestLearningPathRepositoryListLessons(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewLearningPathRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + lessonColumns + " FROM lessons WHERE learning_path_id = $1 ORDER BY week ASC")).
		WithArgs("lp-1").
		WillReturnRows(sqlmock.NewRows(lessonRowColumns).
			AddRow("l-1", "lp-1", 1, "Intro", "Setup", false, now, now).
			AddRow("l-2", "lp-1", 2, "HTTP", "Requests", true, now, now))

	lessons, err := repo.ListLessons(context.Background(), "lp-1")
	require.NoError(t, err)
	require.Len(t, lessons, 2)
	assert.Equal(t, 2, lessons[1].Week)
	assert.True(t, lessons[1].Completed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLearningPathRepositoryExistingWeeks(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewLearningPathRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT week FROM lessons WHERE learning_path_id = $1 AND week = ANY($2)")).
		WithArgs("lp-1", pq.Array([]int64{1, 2, 3})).
		WillReturnRows(sqlmock.NewRows([]string{"week"}).AddRow(2))

	weeks, err := repo.ExistingWeeks(context.Background(), "lp-1", []int{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, []int{2}, weeks)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLearningPathRepositoryCreateLessonsTransaction(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewLearningPathRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO lessons").
		WithArgs(sqlmock.AnyArg(), "lp-1", 4, "Queues", "Workers", false, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO lessons").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "lessons_learning_path_id_week_key"})
	mock.ExpectRollback()

	err := repo.CreateLessons(context.Background(), []models.Lesson{
		{LearningPathID: "lp-1", Week: 4, Title: "Queues", Description: "Workers"},
		{LearningPathID: "lp-1", Week: 4, Title: "Again", Description: "Dup"},
	})
	assert.True(t, errors.Is(err, ErrDuplicate))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLearningPathRepositoryToggleLesson(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewLearningPathRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE lessons SET completed = NOT completed")).
		WithArgs("lp-1", "l-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(lessonRowColumns).AddRow("l-1", "lp-1", 1, "Intro", "Setup", true, now, now))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE lessons SET completed = NOT completed")).
		WithArgs("lp-1", "missing", sqlmock.AnyArg()).
		WillReturnError(sql.ErrNoRows)

	lesson, err := repo.ToggleLesson(context.Background(), "lp-1", "l-1")
	require.NoError(t, err)
	assert.True(t, lesson.Completed)

	_, err = repo.ToggleLesson(context.Background(), "lp-1", "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLearningPathRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewLearningPathRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM learning_paths WHERE id = $1")).
		WithArgs("lp-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "lp-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
