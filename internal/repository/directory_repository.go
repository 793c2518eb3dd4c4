package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-gatepass-api/internal/models"
)

// DirectoryRepository provides read-only lookups into the student and
// employee directories. The gate pass ledger stores only references into
// these tables, never denormalized copies.
type DirectoryRepository struct {
	db *sqlx.DB
}

// NewDirectoryRepository constructs the repository.
func NewDirectoryRepository(db *sqlx.DB) *DirectoryRepository {
	return &DirectoryRepository{db: db}
}

// LookupStudent fetches a student with its current class name.
func (r *DirectoryRepository) LookupStudent(ctx context.Context, id string) (*models.Student, error) {
	const query = `SELECT s.id, s.nis, s.full_name, s.class_id, c.name AS class_name,
	       s.guardian_phone, s.active, s.created_at
	FROM students s
	LEFT JOIN classes c ON c.id = s.class_id
	WHERE s.id = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// LookupStudentsByClass returns the active roster of a class.
func (r *DirectoryRepository) LookupStudentsByClass(ctx context.Context, classID string) ([]models.Student, error) {
	const query = `SELECT s.id, s.nis, s.full_name, s.class_id, c.name AS class_name,
	       s.guardian_phone, s.active, s.created_at
	FROM students s
	LEFT JOIN classes c ON c.id = s.class_id
	WHERE s.class_id = $1 AND s.active = TRUE
	ORDER BY s.full_name ASC`
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, classID); err != nil {
		return nil, err
	}
	return students, nil
}

// LookupEmployee fetches an employee record.
func (r *DirectoryRepository) LookupEmployee(ctx context.Context, id string) (*models.Employee, error) {
	const query = `SELECT id, nip, full_name, department, phone, active, created_at
	FROM employees WHERE id = $1`
	var employee models.Employee
	if err := r.db.GetContext(ctx, &employee, query, id); err != nil {
		return nil, err
	}
	return &employee, nil
}
