package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/studisys/docshare-api/internal/models"
)

// ApprovalParams carries everything the approval transaction writes.
type ApprovalParams struct {
	RequestID       string
	ResponderID     string
	ResponseMessage *string
	CourseID        string
	Semester        string
	Year            int
	Batch           int
	TeacherID       string
	Section         string
}

// ApprovalRepository applies the approval of an access request as one
// transaction: the compare-and-set status transition, the grant set-union
// upsert, and the assignment-registry append either all commit or none do.
type ApprovalRepository struct {
	db          *sqlx.DB
	grants      *GrantRepository
	assignments *AssignmentRepository
}

// NewApprovalRepository constructs the repository.
func NewApprovalRepository(db *sqlx.DB, grants *GrantRepository, assignments *AssignmentRepository) *ApprovalRepository {
	return &ApprovalRepository{db: db, grants: grants, assignments: assignments}
}

// Approve runs the approval transaction. Returns ErrNotPending when the
// request was already responded to, which callers surface as a conflict.
func (r *ApprovalRepository) Approve(ctx context.Context, p ApprovalParams) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin approval transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := respondExec(ctx, tx, p.RequestID, models.AccessRequestApproved, p.ResponderID, p.ResponseMessage); err != nil {
		return err
	}
	if err := r.grants.Upsert(ctx, tx, p.CourseID, p.Semester, p.Year, p.Batch, p.TeacherID, p.Section, p.ResponderID); err != nil {
		return err
	}
	if err := r.assignments.AddTeacher(ctx, tx, p.CourseID, p.Year, p.Semester, p.TeacherID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit approval transaction: %w", err)
	}
	return nil
}
