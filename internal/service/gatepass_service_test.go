package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-gatepass-api/internal/dto"
	"github.com/noah-isme/sma-gatepass-api/internal/models"
	"github.com/noah-isme/sma-gatepass-api/internal/repository"
	appErrors "github.com/noah-isme/sma-gatepass-api/pkg/errors"
)

type gatePassRepoStub struct {
	passes map[string]*models.GatePass
	seq    int64
	filter models.GatePassFilter
}

func newGatePassRepoStub() *gatePassRepoStub {
	return &gatePassRepoStub{passes: make(map[string]*models.GatePass)}
}

func (s *gatePassRepoStub) Create(ctx context.Context, pass *models.GatePass, numberPrefix string) error {
	s.seq++
	if pass.ID == "" {
		pass.ID = fmt.Sprintf("pass-%d", s.seq)
	}
	pass.PassNo = fmt.Sprintf("%s-%s-%06d", numberPrefix, pass.Scope, s.seq)
	stored := *pass
	s.passes[pass.ID] = &stored
	return nil
}

func (s *gatePassRepoStub) GetByID(ctx context.Context, id string) (*models.GatePass, error) {
	if pass, ok := s.passes[id]; ok {
		copy := *pass
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (s *gatePassRepoStub) GetDetail(ctx context.Context, id string) (*models.GatePassDetail, error) {
	if pass, ok := s.passes[id]; ok {
		return &models.GatePassDetail{GatePass: *pass}, nil
	}
	return nil, sql.ErrNoRows
}

func (s *gatePassRepoStub) List(ctx context.Context, filter models.GatePassFilter) ([]models.GatePassDetail, models.PassStatusCounts, error) {
	s.filter = filter
	result := make([]models.GatePassDetail, 0, len(s.passes))
	counts := models.PassStatusCounts{}
	for _, pass := range s.passes {
		result = append(result, models.GatePassDetail{GatePass: *pass})
		counts.Total++
	}
	return result, counts, nil
}

// Transition mirrors the compare-and-swap semantics of the real repository:
// it only applies when the stored status still matches params.From.
func (s *gatePassRepoStub) Transition(ctx context.Context, params repository.TransitionParams) error {
	pass, ok := s.passes[params.ID]
	if !ok || pass.Status != params.From {
		return sql.ErrNoRows
	}
	pass.Status = params.To
	at := params.At
	switch params.To {
	case models.PassStatusOut:
		pass.OutAt = &at
	case models.PassStatusIn:
		pass.InAt = &at
	case models.PassStatusCancelled:
		pass.CancelledAt = &at
		pass.CancelReason = params.CancelReason
	}
	return nil
}

func (s *gatePassRepoStub) UpdateDetails(ctx context.Context, params repository.EditParams) error {
	pass, ok := s.passes[params.ID]
	if !ok {
		return sql.ErrNoRows
	}
	allowed := false
	for _, status := range params.AllowedStatuses {
		if pass.Status == status {
			allowed = true
		}
	}
	if !allowed {
		return sql.ErrNoRows
	}
	if params.Reason != nil {
		pass.Reason = *params.Reason
	}
	if params.Destination != nil {
		pass.Destination = params.Destination
	}
	if params.VisitorName != nil {
		pass.VisitorName = params.VisitorName
	}
	if params.VisitorPhone != nil {
		pass.VisitorPhone = params.VisitorPhone
	}
	return nil
}

type directoryStub struct {
	students  map[string]*models.Student
	employees map[string]*models.Employee
}

func newDirectoryStub() *directoryStub {
	return &directoryStub{
		students:  make(map[string]*models.Student),
		employees: make(map[string]*models.Employee),
	}
}

func (d *directoryStub) LookupStudent(ctx context.Context, id string) (*models.Student, error) {
	if student, ok := d.students[id]; ok {
		return student, nil
	}
	return nil, sql.ErrNoRows
}

func (d *directoryStub) LookupStudentsByClass(ctx context.Context, classID string) ([]models.Student, error) {
	result := make([]models.Student, 0)
	for _, student := range d.students {
		if student.ClassID != nil && *student.ClassID == classID {
			result = append(result, *student)
		}
	}
	return result, nil
}

func (d *directoryStub) LookupEmployee(ctx context.Context, id string) (*models.Employee, error) {
	if employee, ok := d.employees[id]; ok {
		return employee, nil
	}
	return nil, sql.ErrNoRows
}

type auditStub struct {
	logs []*models.AuditLog
}

func (a *auditStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

func newTestService(repo *gatePassRepoStub, directory *directoryStub, audit *auditStub) *GatePassService {
	return NewGatePassService(repo, directory, audit, nil, GatePassServiceConfig{
		Scope:        "MAIN",
		NumberPrefix: "GP",
		EditWhileOut: true,
	})
}

func frontOffice() *models.JWTClaims {
	return &models.JWTClaims{UserID: "fo-1", Role: models.RoleFrontOffice}
}

func requireAppError(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, appErrors.FromError(err).Code)
}

func TestGatePassServiceIssueVisitor(t *testing.T) {
	repo := newGatePassRepoStub()
	audit := &auditStub{}
	svc := newTestService(repo, newDirectoryStub(), audit)

	pass, err := svc.Issue(context.Background(), dto.IssueGatePassRequest{
		Type:         models.PassTypeVisitor,
		VisitorName:  "Budi Santoso",
		VisitorPhone: "0812-3456-789",
		Reason:       "vendor meeting",
	}, frontOffice())
	require.NoError(t, err)
	require.Equal(t, models.PassStatusIssued, pass.Status)
	require.Equal(t, "GP-MAIN-000001", pass.PassNo)
	require.NotNil(t, pass.VisitorPhone)
	require.Equal(t, "08123456789", *pass.VisitorPhone)
	require.Len(t, audit.logs, 1)
	require.Equal(t, models.AuditActionPassIssue, audit.logs[0].Action)
}

func TestGatePassServiceIssueVisitorPhoneTooShort(t *testing.T) {
	svc := newTestService(newGatePassRepoStub(), newDirectoryStub(), &auditStub{})

	_, err := svc.Issue(context.Background(), dto.IssueGatePassRequest{
		Type:         models.PassTypeVisitor,
		VisitorName:  "Budi",
		VisitorPhone: "0812-345",
		Reason:       "delivery",
	}, frontOffice())
	requireAppError(t, err, appErrors.ErrValidation.Code)
}

func TestGatePassServiceIssueStudentClassMismatch(t *testing.T) {
	directory := newDirectoryStub()
	classID := "class-10a"
	directory.students["student-1"] = &models.Student{ID: "student-1", ClassID: &classID}
	svc := newTestService(newGatePassRepoStub(), directory, &auditStub{})

	_, err := svc.Issue(context.Background(), dto.IssueGatePassRequest{
		Type:      models.PassTypeStudent,
		ClassID:   "class-11b",
		StudentID: "student-1",
		Reason:    "sick",
	}, frontOffice())
	requireAppError(t, err, appErrors.ErrValidation.Code)
}

func TestGatePassServiceIssueStudentNotFound(t *testing.T) {
	svc := newTestService(newGatePassRepoStub(), newDirectoryStub(), &auditStub{})

	_, err := svc.Issue(context.Background(), dto.IssueGatePassRequest{
		Type:      models.PassTypeStudent,
		ClassID:   "class-10a",
		StudentID: "missing",
		Reason:    "sick",
	}, frontOffice())
	requireAppError(t, err, appErrors.ErrNotFound.Code)
}

func TestGatePassServiceSecurityCannotIssue(t *testing.T) {
	svc := newTestService(newGatePassRepoStub(), newDirectoryStub(), &auditStub{})

	_, err := svc.Issue(context.Background(), dto.IssueGatePassRequest{
		Type:        models.PassTypeVisitor,
		VisitorName: "Budi",
		Reason:      "delivery",
	}, &models.JWTClaims{UserID: "sec-1", Role: models.RoleSecurity})
	requireAppError(t, err, appErrors.ErrForbidden.Code)
}

func TestGatePassServiceRoundTripTimestampsOrdered(t *testing.T) {
	repo := newGatePassRepoStub()
	svc := newTestService(repo, newDirectoryStub(), &auditStub{})
	actor := frontOffice()

	pass, err := svc.Issue(context.Background(), dto.IssueGatePassRequest{
		Type:        models.PassTypeVisitor,
		VisitorName: "Budi",
		Reason:      "delivery",
	}, actor)
	require.NoError(t, err)

	out, err := svc.MarkOut(context.Background(), pass.ID, actor)
	require.NoError(t, err)
	require.Equal(t, models.PassStatusOut, out.Status)
	require.NotNil(t, out.OutAt)

	in, err := svc.MarkIn(context.Background(), pass.ID, actor)
	require.NoError(t, err)
	require.Equal(t, models.PassStatusIn, in.Status)
	require.NotNil(t, in.InAt)
	require.False(t, out.OutAt.Before(pass.IssuedAt))
	require.False(t, in.InAt.Before(*out.OutAt))
}

func TestGatePassServiceMarkInFromIssuedRejected(t *testing.T) {
	repo := newGatePassRepoStub()
	svc := newTestService(repo, newDirectoryStub(), &auditStub{})
	actor := frontOffice()

	pass, err := svc.Issue(context.Background(), dto.IssueGatePassRequest{
		Type:        models.PassTypeVisitor,
		VisitorName: "Budi",
		Reason:      "delivery",
	}, actor)
	require.NoError(t, err)

	_, err = svc.MarkIn(context.Background(), pass.ID, actor)
	requireAppError(t, err, appErrors.ErrInvalidTransition.Code)
}

func TestGatePassServiceMarkOutLosesRace(t *testing.T) {
	repo := newGatePassRepoStub()
	svc := newTestService(repo, newDirectoryStub(), &auditStub{})
	actor := frontOffice()

	pass, err := svc.Issue(context.Background(), dto.IssueGatePassRequest{
		Type:        models.PassTypeVisitor,
		VisitorName: "Budi",
		Reason:      "delivery",
	}, actor)
	require.NoError(t, err)

	// Simulate another operator winning the compare-and-swap between our
	// read and our update.
	repo.passes[pass.ID].Status = models.PassStatusCancelled

	_, err = svc.MarkOut(context.Background(), pass.ID, actor)
	requireAppError(t, err, appErrors.ErrInvalidTransition.Code)
	require.Contains(t, appErrors.FromError(err).Message, "CANCELLED")
}

func TestGatePassServiceCancelIdempotent(t *testing.T) {
	repo := newGatePassRepoStub()
	svc := newTestService(repo, newDirectoryStub(), &auditStub{})
	actor := frontOffice()

	pass, err := svc.Issue(context.Background(), dto.IssueGatePassRequest{
		Type:        models.PassTypeVisitor,
		VisitorName: "Budi",
		Reason:      "delivery",
	}, actor)
	require.NoError(t, err)

	first, err := svc.Cancel(context.Background(), pass.ID, dto.CancelGatePassRequest{CancelReason: "duplicate"}, actor)
	require.NoError(t, err)
	require.False(t, first.AlreadyCancelled)
	require.NotNil(t, first.Pass.CancelledAt)

	second, err := svc.Cancel(context.Background(), pass.ID, dto.CancelGatePassRequest{CancelReason: "again"}, actor)
	require.NoError(t, err)
	require.True(t, second.AlreadyCancelled)
	require.Equal(t, *first.Pass.CancelledAt, *second.Pass.CancelledAt)
	require.Equal(t, "duplicate", *second.Pass.CancelReason)
}

func TestGatePassServiceCancelAfterReturnRejected(t *testing.T) {
	repo := newGatePassRepoStub()
	svc := newTestService(repo, newDirectoryStub(), &auditStub{})
	actor := frontOffice()

	pass, err := svc.Issue(context.Background(), dto.IssueGatePassRequest{
		Type:        models.PassTypeVisitor,
		VisitorName: "Budi",
		Reason:      "delivery",
	}, actor)
	require.NoError(t, err)
	_, err = svc.MarkOut(context.Background(), pass.ID, actor)
	require.NoError(t, err)
	_, err = svc.MarkIn(context.Background(), pass.ID, actor)
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), pass.ID, dto.CancelGatePassRequest{}, actor)
	requireAppError(t, err, appErrors.ErrInvalidTransition.Code)
}

func TestGatePassServiceEditWhileOut(t *testing.T) {
	repo := newGatePassRepoStub()
	svc := newTestService(repo, newDirectoryStub(), &auditStub{})
	actor := frontOffice()

	pass, err := svc.Issue(context.Background(), dto.IssueGatePassRequest{
		Type:        models.PassTypeVisitor,
		VisitorName: "Budi",
		Reason:      "delivery",
	}, actor)
	require.NoError(t, err)
	_, err = svc.MarkOut(context.Background(), pass.ID, actor)
	require.NoError(t, err)

	reason := "delivery and pickup"
	updated, err := svc.Edit(context.Background(), pass.ID, dto.EditGatePassRequest{Reason: &reason}, actor)
	require.NoError(t, err)
	require.Equal(t, reason, updated.Reason)
	require.Equal(t, reason, repo.passes[pass.ID].Reason)
}

func TestGatePassServiceEditAfterReturnRejected(t *testing.T) {
	repo := newGatePassRepoStub()
	svc := newTestService(repo, newDirectoryStub(), &auditStub{})
	actor := frontOffice()

	pass, err := svc.Issue(context.Background(), dto.IssueGatePassRequest{
		Type:        models.PassTypeVisitor,
		VisitorName: "Budi",
		Reason:      "delivery",
	}, actor)
	require.NoError(t, err)
	_, err = svc.MarkOut(context.Background(), pass.ID, actor)
	require.NoError(t, err)
	_, err = svc.MarkIn(context.Background(), pass.ID, actor)
	require.NoError(t, err)

	reason := "late edit"
	_, err = svc.Edit(context.Background(), pass.ID, dto.EditGatePassRequest{Reason: &reason}, actor)
	requireAppError(t, err, appErrors.ErrInvalidTransition.Code)
}

func TestGatePassServiceEditVisitorFieldsOnStudentPass(t *testing.T) {
	repo := newGatePassRepoStub()
	directory := newDirectoryStub()
	classID := "class-10a"
	directory.students["student-1"] = &models.Student{ID: "student-1", ClassID: &classID}
	svc := newTestService(repo, directory, &auditStub{})
	actor := frontOffice()

	pass, err := svc.Issue(context.Background(), dto.IssueGatePassRequest{
		Type:      models.PassTypeStudent,
		ClassID:   classID,
		StudentID: "student-1",
		Reason:    "sick",
	}, actor)
	require.NoError(t, err)

	name := "someone"
	_, err = svc.Edit(context.Background(), pass.ID, dto.EditGatePassRequest{VisitorName: &name}, actor)
	requireAppError(t, err, appErrors.ErrValidation.Code)
}

func TestGatePassServiceListRejectsUnknownStatus(t *testing.T) {
	svc := newTestService(newGatePassRepoStub(), newDirectoryStub(), &auditStub{})

	_, err := svc.List(context.Background(), dto.GatePassQuery{Status: "GONE"}, frontOffice())
	requireAppError(t, err, appErrors.ErrValidation.Code)
}

func TestGatePassServiceListPassesFilterThrough(t *testing.T) {
	repo := newGatePassRepoStub()
	svc := newTestService(repo, newDirectoryStub(), &auditStub{})

	_, err := svc.List(context.Background(), dto.GatePassQuery{
		Status: "out",
		Type:   "visitor",
		Q:      "budi",
		Limit:  25,
	}, &models.JWTClaims{UserID: "sec-1", Role: models.RoleSecurity})
	require.NoError(t, err)
	require.Equal(t, models.PassStatusOut, repo.filter.Status)
	require.Equal(t, models.PassTypeVisitor, repo.filter.Type)
	require.Equal(t, "budi", repo.filter.Query)
	require.Equal(t, 25, repo.filter.Limit)
}
