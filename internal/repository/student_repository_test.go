package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/learnpath-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var studentRowColumns = []string{"id", "firstname", "lastname", "email", "phone", "gender", "stack", "password_hash", "is_email_verified", "status", "created_at", "updated_at"}

func TestStudentRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(studentRowColumns).
		AddRow("s-1", "Ada", "Obi", "ada@example.com", "", "female", "backend", nil, true, "active", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT "+studentColumns+" FROM students WHERE 1=1 AND stack = $1 AND (LOWER(firstname) LIKE $2 OR LOWER(lastname) LIKE $2 OR email LIKE $2) ORDER BY email ASC LIMIT 10 OFFSET 10")).
		WithArgs("backend", "%ada%").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM students WHERE 1=1 AND stack = $1")).
		WithArgs("backend", "%ada%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))

	students, total, err := repo.List(context.Background(), models.StudentFilter{
		ListParams: models.ListParams{Page: 2, SortBy: "email", SortOrder: "asc"},
		Stack:      "backend",
		Search:     "Ada",
	})
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, models.StackBackend, students[0].Stack)
	assert.False(t, students[0].HasPassword())
	assert.Equal(t, 11, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryListRejectsUnknownSort(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC LIMIT 10 OFFSET 0")).
		WillReturnRows(sqlmock.NewRows(studentRowColumns))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM students WHERE 1=1")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	_, _, err := repo.List(context.Background(), models.StudentFilter{ListParams: models.ListParams{SortBy: "password_hash; DROP TABLE"}})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryFindByEmailLowercases(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery("FROM students WHERE email = \\$1").
		WithArgs("ada@example.com").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByEmail(context.Background(), "Ada@Example.com")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestStudentRepositoryExistingEmails(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT email FROM students WHERE email = ANY($1)")).
		WithArgs(pq.Array([]string{"a@x.io", "b@x.io"})).
		WillReturnRows(sqlmock.NewRows([]string{"email"}).AddRow("b@x.io"))

	found, err := repo.ExistingEmails(context.Background(), []string{"a@x.io", "b@x.io"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b@x.io"}, found)

	found, err = repo.ExistingEmails(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreateManyCommits(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO students").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO students").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	students := []models.Student{{Email: " A@X.io "}, {Email: "b@x.io"}}
	require.NoError(t, repo.CreateMany(context.Background(), students))
	assert.Equal(t, "a@x.io", students[0].Email)
	assert.NotEmpty(t, students[0].ID)
	assert.Equal(t, models.StatusInactive, students[1].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreateManyRollsBack(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO students").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO students").WillReturnError(errors.New("unique violation"))
	mock.ExpectRollback()

	err := repo.CreateMany(context.Background(), []models.Student{{Email: "a@x.io"}, {Email: "b@x.io"}})
	assert.ErrorContains(t, err, "b@x.io")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryActivate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE students SET status = $2, updated_at = $3 WHERE id = $1 AND status = $4")).
		WithArgs("s-1", models.StatusActive, sqlmock.AnyArg(), models.StatusInactive).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Activate(context.Background(), "s-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
