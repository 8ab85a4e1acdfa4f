package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/studisys/docshare-api/internal/models"
)

// ErrNotPending is returned when a status transition finds the request no
// longer in the PENDING state. The compare-and-set guarding the transition
// makes concurrent double-responses lose with this error.
var ErrNotPending = errors.New("access request is not pending")

// ErrDuplicatePending is returned when a second pending request for the same
// (course, teacher) pair hits the partial unique index.
var ErrDuplicatePending = errors.New("a pending access request already exists for this course and teacher")

const pqUniqueViolation = "23505"

// AccessRequestRepository persists course access requests.
type AccessRequestRepository struct {
	db *sqlx.DB
}

// NewAccessRequestRepository constructs the repository.
func NewAccessRequestRepository(db *sqlx.DB) *AccessRequestRepository {
	return &AccessRequestRepository{db: db}
}

// Create inserts a new pending request. The partial unique index on
// (course_id, teacher_id) WHERE status='PENDING' backs the at-most-one
// pending invariant even under concurrent creates.
func (r *AccessRequestRepository) Create(ctx context.Context, req *models.AccessRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if req.RequestDate.IsZero() {
		req.RequestDate = now
	}
	req.Status = models.AccessRequestPending
	req.CreatedAt = now
	req.UpdatedAt = now
	const query = `INSERT INTO access_requests
		(id, course_id, teacher_id, module_leader_id, batch, semester, section, message, status, request_date, created_at, updated_at)
		VALUES (:id, :course_id, :teacher_id, :module_leader_id, :batch, :semester, :section, :message, :status, :request_date, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return ErrDuplicatePending
		}
		return fmt.Errorf("create access request: %w", err)
	}
	return nil
}

// FindByID returns the request with the given ID.
func (r *AccessRequestRepository) FindByID(ctx context.Context, id string) (*models.AccessRequest, error) {
	const query = `SELECT * FROM access_requests WHERE id = $1`
	var req models.AccessRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		return nil, err
	}
	return &req, nil
}

// ExistsPending checks whether a pending request exists for the pair.
func (r *AccessRequestRepository) ExistsPending(ctx context.Context, courseID, teacherID string) (bool, error) {
	const query = `SELECT 1 FROM access_requests WHERE course_id = $1 AND teacher_id = $2 AND status = 'PENDING' LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, courseID, teacherID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check pending access request: %w", err)
	}
	return true, nil
}

// Respond applies the terminal transition with a compare-and-set guarded by
// status='PENDING'. Used for rejections; approvals go through
// ApprovalRepository so the grant side effects share the same transaction.
func (r *AccessRequestRepository) Respond(ctx context.Context, id string, status models.AccessRequestStatus, responderID string, responseMessage *string) error {
	return respondExec(ctx, r.db, id, status, responderID, responseMessage)
}

func respondExec(ctx context.Context, exec sqlx.ExtContext, id string, status models.AccessRequestStatus, responderID string, responseMessage *string) error {
	const query = `UPDATE access_requests
		SET status = $2, response_date = $3, response_message = $4, responded_by = $5, updated_at = $3
		WHERE id = $1 AND status = 'PENDING'`
	result, err := exec.ExecContext(ctx, query, id, status, time.Now().UTC(), responseMessage, responderID)
	if err != nil {
		return fmt.Errorf("respond to access request: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check responded rows: %w", err)
	}
	if affected == 0 {
		return ErrNotPending
	}
	return nil
}

// ListByTeacher returns the teacher's requests joined with course metadata.
func (r *AccessRequestRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.AccessRequestDetail, error) {
	const query = `
SELECT ar.*, c.code AS course_code, c.name AS course_name
FROM access_requests ar
JOIN courses c ON c.id = ar.course_id
WHERE ar.teacher_id = $1
ORDER BY ar.request_date DESC`
	var requests []models.AccessRequestDetail
	if err := r.db.SelectContext(ctx, &requests, query, teacherID); err != nil {
		return nil, fmt.Errorf("list access requests by teacher: %w", err)
	}
	return requests, nil
}

// ListByModuleLeader returns requests addressed to the module leader,
// optionally filtered by status.
func (r *AccessRequestRepository) ListByModuleLeader(ctx context.Context, moduleLeaderID string, status models.AccessRequestStatus) ([]models.AccessRequestDetail, error) {
	query := `
SELECT ar.*, c.code AS course_code, c.name AS course_name, u.full_name AS teacher_name
FROM access_requests ar
JOIN courses c ON c.id = ar.course_id
JOIN users u ON u.id = ar.teacher_id
WHERE ar.module_leader_id = $1`
	args := []interface{}{moduleLeaderID}
	if status != "" {
		query += ` AND ar.status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY ar.request_date DESC`

	var requests []models.AccessRequestDetail
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, fmt.Errorf("list access requests by module leader: %w", err)
	}
	return requests, nil
}
