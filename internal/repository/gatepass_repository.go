package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-gatepass-api/internal/models"
)

const gatePassColumns = `gp.id, gp.pass_no, gp.scope, gp.type, gp.student_id, gp.employee_id,
       gp.visitor_name, gp.visitor_phone, gp.reason, gp.destination, gp.status,
       gp.issued_by, gp.issued_at, gp.out_at, gp.in_at, gp.cancelled_at, gp.cancel_reason`

// detailColumns resolve the person identity from the directory at query time.
const detailColumns = gatePassColumns + `,
       COALESCE(s.full_name, e.full_name, gp.visitor_name, '') AS person_name,
       COALESCE(s.guardian_phone, e.phone, gp.visitor_phone) AS person_phone,
       c.name AS class_name`

const detailJoins = ` FROM gate_passes gp
	LEFT JOIN students s ON s.id = gp.student_id
	LEFT JOIN employees e ON e.id = gp.employee_id
	LEFT JOIN classes c ON c.id = s.class_id`

// GatePassRepository is the authoritative store for the gate pass ledger.
type GatePassRepository struct {
	db  *sqlx.DB
	seq *PassSequenceRepository
}

// NewGatePassRepository constructs the repository.
func NewGatePassRepository(db *sqlx.DB, seq *PassSequenceRepository) *GatePassRepository {
	return &GatePassRepository{db: db, seq: seq}
}

// Create inserts a new gate pass, allocating its pass number inside the same
// transaction. The allocated number is rendered as <prefix>-<scope>-<seq>
// and written back onto the record.
func (r *GatePassRepository) Create(ctx context.Context, pass *models.GatePass, numberPrefix string) error {
	if pass.ID == "" {
		pass.ID = uuid.NewString()
	}
	if pass.Status == "" {
		pass.Status = models.PassStatusIssued
	}
	if pass.IssuedAt.IsZero() {
		pass.IssuedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin issue tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	seq, err := r.seq.Next(ctx, tx, pass.Scope)
	if err != nil {
		return err
	}
	pass.PassNo = fmt.Sprintf("%s-%s-%06d", numberPrefix, pass.Scope, seq)

	const query = `INSERT INTO gate_passes
	(id, pass_no, scope, type, student_id, employee_id, visitor_name, visitor_phone,
	 reason, destination, status, issued_by, issued_at)
	VALUES (:id, :pass_no, :scope, :type, :student_id, :employee_id, :visitor_name, :visitor_phone,
	 :reason, :destination, :status, :issued_by, :issued_at)`
	if _, err := tx.NamedExecContext(ctx, query, pass); err != nil {
		return fmt.Errorf("create gate pass: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit issue tx: %w", err)
	}
	return nil
}

// GetByID fetches a ledger row by identifier.
func (r *GatePassRepository) GetByID(ctx context.Context, id string) (*models.GatePass, error) {
	query := `SELECT ` + gatePassColumns + ` FROM gate_passes gp WHERE gp.id = $1`
	var pass models.GatePass
	if err := r.db.GetContext(ctx, &pass, query, id); err != nil {
		return nil, err
	}
	return &pass, nil
}

// GetDetail fetches a pass with the person identity resolved from the directory.
func (r *GatePassRepository) GetDetail(ctx context.Context, id string) (*models.GatePassDetail, error) {
	query := `SELECT ` + detailColumns + detailJoins + ` WHERE gp.id = $1`
	var detail models.GatePassDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// List returns passes matching the filter, newest issued first, together
// with status counts computed over the same filtered set.
func (r *GatePassRepository) List(ctx context.Context, filter models.GatePassFilter) ([]models.GatePassDetail, models.PassStatusCounts, error) {
	conditions := make([]string, 0, 3)
	args := make([]interface{}, 0, 3)

	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("gp.status = $%d", len(args)))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		conditions = append(conditions, fmt.Sprintf("gp.type = $%d", len(args)))
	}
	if filter.Query != "" {
		args = append(args, "%"+strings.ToLower(filter.Query)+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf(
			`(LOWER(gp.pass_no) LIKE $%d OR LOWER(gp.reason) LIKE $%d
			  OR LOWER(COALESCE(s.full_name, e.full_name, gp.visitor_name, '')) LIKE $%d
			  OR COALESCE(s.guardian_phone, e.phone, gp.visitor_phone, '') LIKE $%d)`, n, n, n, n))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	listQuery := fmt.Sprintf("SELECT %s%s%s ORDER BY gp.issued_at DESC LIMIT %d OFFSET %d",
		detailColumns, detailJoins, where, limit, offset)

	var passes []models.GatePassDetail
	if err := r.db.SelectContext(ctx, &passes, listQuery, args...); err != nil {
		return nil, models.PassStatusCounts{}, fmt.Errorf("list gate passes: %w", err)
	}

	countQuery := `SELECT
		COUNT(*) FILTER (WHERE gp.status = 'ISSUED') AS issued,
		COUNT(*) FILTER (WHERE gp.status = 'OUT') AS "out",
		COUNT(*) FILTER (WHERE gp.status = 'IN') AS "in",
		COUNT(*) FILTER (WHERE gp.status = 'CANCELLED') AS cancelled,
		COUNT(*) AS total` + detailJoins + where
	var counts models.PassStatusCounts
	if err := r.db.GetContext(ctx, &counts, countQuery, args...); err != nil {
		return nil, models.PassStatusCounts{}, fmt.Errorf("count gate passes: %w", err)
	}

	return passes, counts, nil
}

// DashboardCounts aggregates the KPI tiles for the [dayStart, dayEnd) window.
func (r *GatePassRepository) DashboardCounts(ctx context.Context, dayStart, dayEnd time.Time) (models.GateDashboardCounts, error) {
	const query = `SELECT
		COUNT(*) FILTER (WHERE issued_at >= $1 AND issued_at < $2) AS issued_today,
		COUNT(*) FILTER (WHERE status = 'OUT') AS currently_out,
		COUNT(*) FILTER (WHERE in_at >= $1 AND in_at < $2) AS returned_today,
		COUNT(*) FILTER (WHERE cancelled_at >= $1 AND cancelled_at < $2) AS cancelled_today,
		COUNT(*) FILTER (WHERE status = 'OUT' AND type = 'VISITOR') AS visitors_on_site
	FROM gate_passes`
	var counts models.GateDashboardCounts
	if err := r.db.GetContext(ctx, &counts, query, dayStart, dayEnd); err != nil {
		return models.GateDashboardCounts{}, fmt.Errorf("dashboard counts: %w", err)
	}
	return counts, nil
}

// TransitionParams groups the columns written by a lifecycle transition.
type TransitionParams struct {
	ID           string
	From         models.PassStatus
	To           models.PassStatus
	At           time.Time
	CancelReason *string
}

// Transition applies a compare-and-swap status update. Status, timestamp and
// any transition-specific field are written in one statement guarded by the
// expected current status; when another operator won the race the update
// matches zero rows and sql.ErrNoRows is returned.
func (r *GatePassRepository) Transition(ctx context.Context, params TransitionParams) error {
	setParts := []string{"status = :to"}
	switch params.To {
	case models.PassStatusOut:
		setParts = append(setParts, "out_at = :at")
	case models.PassStatusIn:
		setParts = append(setParts, "in_at = :at")
	case models.PassStatusCancelled:
		setParts = append(setParts, "cancelled_at = :at")
		if params.CancelReason != nil {
			setParts = append(setParts, "cancel_reason = :cancel_reason")
		}
	}

	query := fmt.Sprintf("UPDATE gate_passes SET %s WHERE id = :id AND status = :from",
		strings.Join(setParts, ", "))
	result, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"id":            params.ID,
		"from":          params.From,
		"to":            params.To,
		"at":            params.At,
		"cancel_reason": params.CancelReason,
	})
	if err != nil {
		return fmt.Errorf("transition gate pass: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check transition rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// EditParams groups the mutable columns of an issued pass.
type EditParams struct {
	ID           string
	Reason       *string
	Destination  *string
	VisitorName  *string
	VisitorPhone *string
	// AllowedStatuses guards the update: the edit only applies while the
	// pass is still in one of these states.
	AllowedStatuses []models.PassStatus
}

// UpdateDetails mutates reason/destination/visitor fields. Type, subject
// reference and pass number are never touched. The status guard makes the
// edit race-safe against a concurrent transition into a terminal state.
func (r *GatePassRepository) UpdateDetails(ctx context.Context, params EditParams) error {
	setParts := make([]string, 0, 4)
	if params.Reason != nil {
		setParts = append(setParts, "reason = :reason")
	}
	if params.Destination != nil {
		setParts = append(setParts, "destination = :destination")
	}
	if params.VisitorName != nil {
		setParts = append(setParts, "visitor_name = :visitor_name")
	}
	if params.VisitorPhone != nil {
		setParts = append(setParts, "visitor_phone = :visitor_phone")
	}
	if len(setParts) == 0 {
		return nil
	}

	statuses := make([]string, 0, len(params.AllowedStatuses))
	for _, status := range params.AllowedStatuses {
		statuses = append(statuses, fmt.Sprintf("'%s'", status))
	}

	query := fmt.Sprintf("UPDATE gate_passes SET %s WHERE id = :id AND status IN (%s)",
		strings.Join(setParts, ", "), strings.Join(statuses, ","))
	result, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"id":            params.ID,
		"reason":        params.Reason,
		"destination":   params.Destination,
		"visitor_name":  params.VisitorName,
		"visitor_phone": params.VisitorPhone,
	})
	if err != nil {
		return fmt.Errorf("update gate pass details: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check edit rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
