package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func newDirectoryRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestDirectoryRepositoryLookupStudent(t *testing.T) {
	db, mock, cleanup := newDirectoryRepoMock(t)
	defer cleanup()

	repo := NewDirectoryRepository(db)
	rows := sqlmock.NewRows([]string{"id", "nis", "full_name", "class_id", "class_name", "guardian_phone", "active", "created_at"}).
		AddRow("student-1", "2024001", "Siti Aminah", "class-10a", "X-A", "08123456789", true, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT s.id, s.nis")).
		WithArgs("student-1").
		WillReturnRows(rows)

	student, err := repo.LookupStudent(context.Background(), "student-1")
	require.NoError(t, err)
	require.Equal(t, "Siti Aminah", student.FullName)
	require.NotNil(t, student.ClassID)
	require.Equal(t, "class-10a", *student.ClassID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDirectoryRepositoryLookupStudentNotFound(t *testing.T) {
	db, mock, cleanup := newDirectoryRepoMock(t)
	defer cleanup()

	repo := NewDirectoryRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT s.id, s.nis")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.LookupStudent(context.Background(), "missing")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDirectoryRepositoryLookupStudentsByClass(t *testing.T) {
	db, mock, cleanup := newDirectoryRepoMock(t)
	defer cleanup()

	repo := NewDirectoryRepository(db)
	rows := sqlmock.NewRows([]string{"id", "nis", "full_name", "class_id", "class_name", "guardian_phone", "active", "created_at"}).
		AddRow("student-1", "2024001", "Agus", "class-10a", "X-A", "08123456789", true, time.Now()).
		AddRow("student-2", "2024002", "Siti", "class-10a", "X-A", "08198765432", true, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT s.id, s.nis")).
		WithArgs("class-10a").
		WillReturnRows(rows)

	students, err := repo.LookupStudentsByClass(context.Background(), "class-10a")
	require.NoError(t, err)
	require.Len(t, students, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDirectoryRepositoryLookupEmployee(t *testing.T) {
	db, mock, cleanup := newDirectoryRepoMock(t)
	defer cleanup()

	repo := NewDirectoryRepository(db)
	rows := sqlmock.NewRows([]string{"id", "nip", "full_name", "department", "phone", "active", "created_at"}).
		AddRow("emp-1", "19880101", "Pak Joko", "Administration", "08111222333", true, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, nip")).
		WithArgs("emp-1").
		WillReturnRows(rows)

	employee, err := repo.LookupEmployee(context.Background(), "emp-1")
	require.NoError(t, err)
	require.Equal(t, "Pak Joko", employee.FullName)
	require.NoError(t, mock.ExpectationsWereMet())
}
