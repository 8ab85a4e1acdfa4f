package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/studisys/docshare-api/internal/models"
)

// AssignmentRepository tracks the teacher set under active module leader
// assignments.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs the repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

func (r *AssignmentRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// AddTeacher appends the teacher to the active assignment for
// (course, academicYear, semester). The append is guarded in-store, so it is
// a no-op when no active assignment exists or the teacher is already present.
func (r *AssignmentRepository) AddTeacher(ctx context.Context, exec sqlx.ExtContext, courseID string, academicYear int, semester, teacherID string) error {
	const query = `
UPDATE module_leader_assignments
SET assigned_teachers = array_append(assigned_teachers, $4), updated_at = now()
WHERE course_id = $1 AND academic_year = $2 AND semester = $3 AND is_active
  AND NOT ($4 = ANY(assigned_teachers))`
	if _, err := r.exec(exec).ExecContext(ctx, query, courseID, academicYear, semester, teacherID); err != nil {
		return fmt.Errorf("add teacher to assignment: %w", err)
	}
	return nil
}

// FindActive loads the active assignment for (course, academicYear, semester).
func (r *AssignmentRepository) FindActive(ctx context.Context, courseID string, academicYear int, semester string) (*models.ModuleLeaderAssignment, error) {
	const query = `SELECT * FROM module_leader_assignments
		WHERE course_id = $1 AND academic_year = $2 AND semester = $3 AND is_active`
	var assignment models.ModuleLeaderAssignment
	if err := r.db.GetContext(ctx, &assignment, query, courseID, academicYear, semester); err != nil {
		return nil, err
	}
	return &assignment, nil
}
