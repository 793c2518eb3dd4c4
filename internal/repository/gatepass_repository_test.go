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

	"github.com/noah-isme/sma-gatepass-api/internal/models"
)

func newGatePassRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestGatePassRepositoryCreateAllocatesNumber(t *testing.T) {
	db, mock, cleanup := newGatePassRepoMock(t)
	defer cleanup()

	repo := NewGatePassRepository(db, NewPassSequenceRepository())

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO pass_sequences")).
		WithArgs("MAIN").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(int64(42)))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO gate_passes")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	name := "Budi"
	pass := &models.GatePass{
		Scope:       "MAIN",
		Type:        models.PassTypeVisitor,
		VisitorName: &name,
		Reason:      "delivery",
		IssuedBy:    "fo-1",
	}
	require.NoError(t, repo.Create(context.Background(), pass, "GP"))
	require.Equal(t, "GP-MAIN-000042", pass.PassNo)
	require.NotEmpty(t, pass.ID)
	require.Equal(t, models.PassStatusIssued, pass.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGatePassRepositoryCreateRollsBackOnInsertError(t *testing.T) {
	db, mock, cleanup := newGatePassRepoMock(t)
	defer cleanup()

	repo := NewGatePassRepository(db, NewPassSequenceRepository())

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO pass_sequences")).
		WithArgs("MAIN").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(int64(7)))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO gate_passes")).
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	pass := &models.GatePass{Scope: "MAIN", Type: models.PassTypeVisitor, Reason: "delivery", IssuedBy: "fo-1"}
	require.Error(t, repo.Create(context.Background(), pass, "GP"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGatePassRepositoryTransitionGuarded(t *testing.T) {
	db, mock, cleanup := newGatePassRepoMock(t)
	defer cleanup()

	repo := NewGatePassRepository(db, NewPassSequenceRepository())

	mock.ExpectExec(regexp.QuoteMeta("UPDATE gate_passes SET")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	err := repo.Transition(context.Background(), TransitionParams{
		ID:   "pass-1",
		From: models.PassStatusIssued,
		To:   models.PassStatusOut,
		At:   time.Now().UTC(),
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGatePassRepositoryTransitionLostRace(t *testing.T) {
	db, mock, cleanup := newGatePassRepoMock(t)
	defer cleanup()

	repo := NewGatePassRepository(db, NewPassSequenceRepository())

	mock.ExpectExec(regexp.QuoteMeta("UPDATE gate_passes SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.Transition(context.Background(), TransitionParams{
		ID:   "pass-1",
		From: models.PassStatusIssued,
		To:   models.PassStatusOut,
		At:   time.Now().UTC(),
	})
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGatePassRepositoryUpdateDetailsStatusGuard(t *testing.T) {
	db, mock, cleanup := newGatePassRepoMock(t)
	defer cleanup()

	repo := NewGatePassRepository(db, NewPassSequenceRepository())

	mock.ExpectExec(regexp.QuoteMeta("UPDATE gate_passes SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	reason := "updated reason"
	err := repo.UpdateDetails(context.Background(), EditParams{
		ID:              "pass-1",
		Reason:          &reason,
		AllowedStatuses: []models.PassStatus{models.PassStatusIssued},
	})
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGatePassRepositoryListWithFilters(t *testing.T) {
	db, mock, cleanup := newGatePassRepoMock(t)
	defer cleanup()

	repo := NewGatePassRepository(db, NewPassSequenceRepository())

	now := time.Now().UTC()
	listRows := sqlmock.NewRows([]string{
		"id", "pass_no", "scope", "type", "student_id", "employee_id",
		"visitor_name", "visitor_phone", "reason", "destination", "status",
		"issued_by", "issued_at", "out_at", "in_at", "cancelled_at", "cancel_reason",
		"person_name", "person_phone", "class_name",
	}).AddRow(
		"pass-1", "GP-MAIN-000001", "MAIN", "VISITOR", nil, nil,
		"Budi", "08123456789", "delivery", nil, "OUT",
		"fo-1", now, now, nil, nil, nil,
		"Budi", "08123456789", nil,
	)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT gp.id, gp.pass_no")).
		WithArgs(models.PassStatusOut, models.PassTypeVisitor).
		WillReturnRows(listRows)

	countRows := sqlmock.NewRows([]string{"issued", "out", "in", "cancelled", "total"}).
		AddRow(0, 1, 0, 0, 1)
	mock.ExpectQuery(regexp.QuoteMeta("COUNT(*) FILTER")).
		WithArgs(models.PassStatusOut, models.PassTypeVisitor).
		WillReturnRows(countRows)

	passes, counts, err := repo.List(context.Background(), models.GatePassFilter{
		Status: models.PassStatusOut,
		Type:   models.PassTypeVisitor,
	})
	require.NoError(t, err)
	require.Len(t, passes, 1)
	require.Equal(t, "GP-MAIN-000001", passes[0].PassNo)
	require.Equal(t, "Budi", passes[0].PersonName)
	require.Equal(t, 1, counts.Out)
	require.Equal(t, 1, counts.Total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGatePassRepositoryDashboardCounts(t *testing.T) {
	db, mock, cleanup := newGatePassRepoMock(t)
	defer cleanup()

	repo := NewGatePassRepository(db, NewPassSequenceRepository())

	dayStart := time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)
	rows := sqlmock.NewRows([]string{"issued_today", "currently_out", "returned_today", "cancelled_today", "visitors_on_site"}).
		AddRow(12, 3, 8, 1, 2)
	mock.ExpectQuery(regexp.QuoteMeta("COUNT(*) FILTER")).
		WithArgs(dayStart, dayEnd).
		WillReturnRows(rows)

	counts, err := repo.DashboardCounts(context.Background(), dayStart, dayEnd)
	require.NoError(t, err)
	require.Equal(t, 12, counts.IssuedToday)
	require.Equal(t, 3, counts.CurrentlyOut)
	require.Equal(t, 2, counts.VisitorsOnSite)
	require.NoError(t, mock.ExpectationsWereMet())
}
