package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-gatepass-api/internal/dto"
	"github.com/noah-isme/sma-gatepass-api/internal/models"
	"github.com/noah-isme/sma-gatepass-api/internal/repository"
	appErrors "github.com/noah-isme/sma-gatepass-api/pkg/errors"
)

type gatePassStore interface {
	Create(ctx context.Context, pass *models.GatePass, numberPrefix string) error
	GetByID(ctx context.Context, id string) (*models.GatePass, error)
	GetDetail(ctx context.Context, id string) (*models.GatePassDetail, error)
	List(ctx context.Context, filter models.GatePassFilter) ([]models.GatePassDetail, models.PassStatusCounts, error)
	Transition(ctx context.Context, params repository.TransitionParams) error
	UpdateDetails(ctx context.Context, params repository.EditParams) error
}

type directoryLookup interface {
	LookupStudent(ctx context.Context, id string) (*models.Student, error)
	LookupStudentsByClass(ctx context.Context, classID string) ([]models.Student, error)
	LookupEmployee(ctx context.Context, id string) (*models.Employee, error)
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// GatePassServiceConfig tunes issuance policy.
type GatePassServiceConfig struct {
	// Scope is the issuing-authority scope; pass numbers are unique and
	// ordered within it.
	Scope string
	// NumberPrefix leads every rendered pass number.
	NumberPrefix string
	// EditWhileOut also allows edits after markOut, not only while ISSUED.
	EditWhileOut bool
}

// GatePassService owns the gate pass lifecycle: issuance, transitions,
// edits and the read models consumed by the front desk.
type GatePassService struct {
	repo      gatePassStore
	directory directoryLookup
	audit     auditLogger
	metrics   *MetricsService
	logger    *zap.Logger
	now       func() time.Time
	cfg       GatePassServiceConfig
}

// NewGatePassService constructs the service.
func NewGatePassService(repo gatePassStore, directory directoryLookup, audit auditLogger, logger *zap.Logger, cfg GatePassServiceConfig) *GatePassService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Scope == "" {
		cfg.Scope = "MAIN"
	}
	if cfg.NumberPrefix == "" {
		cfg.NumberPrefix = "GP"
	}
	return &GatePassService{
		repo:      repo,
		directory: directory,
		audit:     audit,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
		cfg:       cfg,
	}
}

// WithMetrics attaches the transition counters.
func (s *GatePassService) WithMetrics(metrics *MetricsService) *GatePassService {
	s.metrics = metrics
	return s
}

// Issue validates the subject per pass type and creates a new ISSUED pass.
func (s *GatePassService) Issue(ctx context.Context, req dto.IssueGatePassRequest, actor *models.JWTClaims) (*models.GatePass, error) {
	if err := requireTransitionRole(actor); err != nil {
		return nil, err
	}

	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "reason is required")
	}

	pass := &models.GatePass{
		Scope:    s.cfg.Scope,
		Type:     models.PassType(strings.ToUpper(string(req.Type))),
		Reason:   reason,
		Status:   models.PassStatusIssued,
		IssuedBy: actor.UserID,
		IssuedAt: s.now(),
	}
	if destination := strings.TrimSpace(req.Destination); destination != "" {
		pass.Destination = &destination
	}

	switch pass.Type {
	case models.PassTypeStudent:
		if req.ClassID == "" || req.StudentID == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "classId and studentId are required for student passes")
		}
		student, err := s.directory.LookupStudent(ctx, req.StudentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
			}
			return nil, storageError(err, "failed to resolve student")
		}
		if student.ClassID == nil || *student.ClassID != req.ClassID {
			return nil, appErrors.Clone(appErrors.ErrValidation, "student does not belong to the given class")
		}
		pass.StudentID = &student.ID
	case models.PassTypeEmployee:
		if req.EmployeeID == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "employeeId is required for employee passes")
		}
		employee, err := s.directory.LookupEmployee(ctx, req.EmployeeID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "employee not found")
			}
			return nil, storageError(err, "failed to resolve employee")
		}
		pass.EmployeeID = &employee.ID
	case models.PassTypeVisitor:
		name := strings.TrimSpace(req.VisitorName)
		if name == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "visitorName is required for visitor passes")
		}
		pass.VisitorName = &name
		if req.VisitorPhone != "" {
			phone, err := normalizePhone(req.VisitorPhone)
			if err != nil {
				return nil, err
			}
			pass.VisitorPhone = &phone
		}
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "type must be STUDENT, EMPLOYEE or VISITOR")
	}

	if err := s.repo.Create(ctx, pass, s.cfg.NumberPrefix); err != nil {
		return nil, storageError(err, "failed to issue gate pass")
	}

	s.metrics.RecordPassTransition(string(models.PassStatusIssued))
	s.emitAudit(ctx, actor, models.AuditActionPassIssue, pass.ID, nil, pass)
	return pass, nil
}

// MarkOut records the person leaving through the gate.
func (s *GatePassService) MarkOut(ctx context.Context, id string, actor *models.JWTClaims) (*models.GatePass, error) {
	return s.transition(ctx, id, actor, models.PassStatusOut, models.AuditActionPassOut, nil)
}

// MarkIn records the person returning through the gate.
func (s *GatePassService) MarkIn(ctx context.Context, id string, actor *models.JWTClaims) (*models.GatePass, error) {
	return s.transition(ctx, id, actor, models.PassStatusIn, models.AuditActionPassIn, nil)
}

// Cancel voids a pass that has not completed its round trip. Cancelling an
// already cancelled pass is reported as an idempotent success, not an error.
func (s *GatePassService) Cancel(ctx context.Context, id string, req dto.CancelGatePassRequest, actor *models.JWTClaims) (*dto.CancelGatePassResult, error) {
	if err := requireTransitionRole(actor); err != nil {
		return nil, err
	}

	pass, err := s.getPass(ctx, id)
	if err != nil {
		return nil, err
	}
	if pass.Status == models.PassStatusCancelled {
		return &dto.CancelGatePassResult{Pass: pass, AlreadyCancelled: true}, nil
	}

	var cancelReason *string
	if trimmed := strings.TrimSpace(req.CancelReason); trimmed != "" {
		cancelReason = &trimmed
	}

	updated, err := s.transitionFrom(ctx, pass, actor, models.PassStatusCancelled, models.AuditActionPassCancel, cancelReason)
	if err != nil {
		// Another operator may have cancelled it between our read and the
		// guarded update; normalize that race to the idempotent success.
		var appErr *appErrors.Error
		if errors.As(err, &appErr) && appErr.Code == appErrors.ErrInvalidTransition.Code {
			if current, readErr := s.repo.GetByID(ctx, id); readErr == nil && current.Status == models.PassStatusCancelled {
				return &dto.CancelGatePassResult{Pass: current, AlreadyCancelled: true}, nil
			}
		}
		return nil, err
	}
	return &dto.CancelGatePassResult{Pass: updated}, nil
}

// Edit mutates reason, destination and visitor fields while the pass is
// still editable. Type, subject reference and pass number never change.
func (s *GatePassService) Edit(ctx context.Context, id string, req dto.EditGatePassRequest, actor *models.JWTClaims) (*models.GatePass, error) {
	if err := requireTransitionRole(actor); err != nil {
		return nil, err
	}

	pass, err := s.getPass(ctx, id)
	if err != nil {
		return nil, err
	}

	allowed := s.editableStatuses()
	if !statusIn(pass.Status, allowed) {
		return nil, invalidTransition(pass.Status, "edit")
	}

	params := repository.EditParams{ID: pass.ID, AllowedStatuses: allowed}
	before := *pass

	if req.Reason != nil {
		reason := strings.TrimSpace(*req.Reason)
		if reason == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "reason must not be empty")
		}
		params.Reason = &reason
		pass.Reason = reason
	}
	if req.Destination != nil {
		destination := strings.TrimSpace(*req.Destination)
		params.Destination = &destination
		pass.Destination = &destination
	}
	if req.VisitorName != nil || req.VisitorPhone != nil {
		if pass.Type != models.PassTypeVisitor {
			return nil, appErrors.Clone(appErrors.ErrValidation, "visitor fields only apply to visitor passes")
		}
		if req.VisitorName != nil {
			name := strings.TrimSpace(*req.VisitorName)
			if name == "" {
				return nil, appErrors.Clone(appErrors.ErrValidation, "visitorName must not be empty")
			}
			params.VisitorName = &name
			pass.VisitorName = &name
		}
		if req.VisitorPhone != nil {
			phone, err := normalizePhone(*req.VisitorPhone)
			if err != nil {
				return nil, err
			}
			params.VisitorPhone = &phone
			pass.VisitorPhone = &phone
		}
	}

	if params.Reason == nil && params.Destination == nil && params.VisitorName == nil && params.VisitorPhone == nil {
		return pass, nil
	}

	if err := s.repo.UpdateDetails(ctx, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Lost a race against a transition into a terminal state.
			if current, readErr := s.repo.GetByID(ctx, id); readErr == nil {
				return nil, invalidTransition(current.Status, "edit")
			}
			return nil, appErrors.ErrNotFound
		}
		return nil, storageError(err, "failed to edit gate pass")
	}

	s.emitAudit(ctx, actor, models.AuditActionPassEdit, pass.ID, &before, pass)
	return pass, nil
}

// Get returns a pass with its person identity resolved from the directory.
func (s *GatePassService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.GatePassDetail, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	detail, err := s.repo.GetDetail(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, storageError(err, "failed to load gate pass")
	}
	return detail, nil
}

// List returns the filtered register plus status counts derived from the
// same filtered set.
func (s *GatePassService) List(ctx context.Context, query dto.GatePassQuery, actor *models.JWTClaims) (*dto.GatePassListResponse, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}

	filter := models.GatePassFilter{
		Query:  strings.TrimSpace(query.Q),
		Limit:  query.Limit,
		Offset: query.Offset,
	}
	if query.Status != "" {
		status := models.PassStatus(strings.ToUpper(strings.TrimSpace(query.Status)))
		switch status {
		case models.PassStatusIssued, models.PassStatusOut, models.PassStatusIn, models.PassStatusCancelled:
			filter.Status = status
		default:
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status filter: %s", query.Status))
		}
	}
	if query.Type != "" {
		passType := models.PassType(strings.ToUpper(strings.TrimSpace(query.Type)))
		switch passType {
		case models.PassTypeStudent, models.PassTypeEmployee, models.PassTypeVisitor:
			filter.Type = passType
		default:
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown type filter: %s", query.Type))
		}
	}

	items, counts, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, storageError(err, "failed to list gate passes")
	}
	return &dto.GatePassListResponse{Items: items, Counts: counts}, nil
}

// ClassRoster exposes the directory's class roster for issuance forms.
func (s *GatePassService) ClassRoster(ctx context.Context, classID string, actor *models.JWTClaims) ([]models.Student, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if classID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "classId is required")
	}
	students, err := s.directory.LookupStudentsByClass(ctx, classID)
	if err != nil {
		return nil, storageError(err, "failed to load class roster")
	}
	return students, nil
}

func (s *GatePassService) transition(ctx context.Context, id string, actor *models.JWTClaims, to models.PassStatus, auditAction string, cancelReason *string) (*models.GatePass, error) {
	if err := requireTransitionRole(actor); err != nil {
		return nil, err
	}
	pass, err := s.getPass(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.transitionFrom(ctx, pass, actor, to, auditAction, cancelReason)
}

func (s *GatePassService) transitionFrom(ctx context.Context, pass *models.GatePass, actor *models.JWTClaims, to models.PassStatus, auditAction string, cancelReason *string) (*models.GatePass, error) {
	if !pass.Status.CanTransitionTo(to) {
		return nil, invalidTransition(pass.Status, string(to))
	}

	at := s.now()
	before := *pass
	err := s.repo.Transition(ctx, repository.TransitionParams{
		ID:           pass.ID,
		From:         pass.Status,
		To:           to,
		At:           at,
		CancelReason: cancelReason,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// The guarded update matched nothing: a concurrent operator
			// changed the status first. Report their state, not ours.
			current, readErr := s.repo.GetByID(ctx, pass.ID)
			if readErr != nil {
				if errors.Is(readErr, sql.ErrNoRows) {
					return nil, appErrors.ErrNotFound
				}
				return nil, storageError(readErr, "failed to reload gate pass")
			}
			return nil, invalidTransition(current.Status, string(to))
		}
		return nil, storageError(err, "failed to apply transition")
	}

	pass.Status = to
	switch to {
	case models.PassStatusOut:
		pass.OutAt = &at
	case models.PassStatusIn:
		pass.InAt = &at
	case models.PassStatusCancelled:
		pass.CancelledAt = &at
		pass.CancelReason = cancelReason
	}

	s.metrics.RecordPassTransition(string(to))
	s.emitAudit(ctx, actor, auditAction, pass.ID, &before, pass)
	return pass, nil
}

func (s *GatePassService) getPass(ctx context.Context, id string) (*models.GatePass, error) {
	pass, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, storageError(err, "failed to load gate pass")
	}
	return pass, nil
}

func (s *GatePassService) editableStatuses() []models.PassStatus {
	if s.cfg.EditWhileOut {
		return []models.PassStatus{models.PassStatusIssued, models.PassStatusOut}
	}
	return []models.PassStatus{models.PassStatusIssued}
}

func (s *GatePassService) emitAudit(ctx context.Context, actor *models.JWTClaims, action, passID string, before, after *models.GatePass) {
	if s.audit == nil {
		return
	}
	log := &models.AuditLog{
		Action:     action,
		Resource:   "gate_pass",
		ResourceID: &passID,
		IPAddress:  "system",
		UserAgent:  "gatepass-service",
	}
	if actor != nil {
		userID := actor.UserID
		log.UserID = &userID
	}
	if before != nil {
		log.OldValues, _ = json.Marshal(before)
	}
	if after != nil {
		log.NewValues, _ = json.Marshal(after)
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}

func requireTransitionRole(actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if !actor.Role.CanTransitionPasses() {
		return appErrors.Clone(appErrors.ErrForbidden, "role may not transition gate passes")
	}
	return nil
}

func invalidTransition(current models.PassStatus, attempted string) error {
	return appErrors.Clone(appErrors.ErrInvalidTransition,
		fmt.Sprintf("cannot apply %s: pass is %s", strings.ToLower(attempted), current))
}

func statusIn(status models.PassStatus, set []models.PassStatus) bool {
	for _, candidate := range set {
		if candidate == status {
			return true
		}
	}
	return false
}

// normalizePhone strips every non-digit character and requires the result to
// be 10 to 15 digits long.
func normalizePhone(raw string) (string, error) {
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	normalized := digits.String()
	if len(normalized) < 10 || len(normalized) > 15 {
		return "", appErrors.Clone(appErrors.ErrValidation, "visitorPhone must contain 10 to 15 digits")
	}
	return normalized, nil
}

func storageError(err error, message string) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return appErrors.Wrap(err, appErrors.ErrTransient.Code, appErrors.ErrTransient.Status, message)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}
