package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pfe-match/pfe-match-api/internal/models"
)

func newStudentMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func studentRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "matricule", "first_name", "last_name", "specialty", "average", "email", "phone", "created_at", "updated_at"}).
		AddRow("student-1", "M100", "Amine", "B", "GL", 14.5, "", "", time.Now(), time.Now())
}

func TestStudentRepositoryFindByMatricules(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery("SELECT .+ FROM students WHERE matricule IN").
		WithArgs("M100", "M200").
		WillReturnRows(studentRows())

	found, err := repo.FindByMatricules(context.Background(), []string{"M100", "M200"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Amine", found["M100"].FirstName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO students")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	student := &models.Student{Matricule: "M100", FirstName: "Amine", LastName: "B", Specialty: "GL", Average: 14.5}
	err := repo.Upsert(context.Background(), student)
	require.NoError(t, err)
	assert.NotEmpty(t, student.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM students WHERE id = $1")).
		WithArgs("student-1").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Delete(context.Background(), "student-1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
