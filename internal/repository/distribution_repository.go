package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/studisys/docshare-api/internal/models"
)

// ErrInvalidStatusTransition is returned when a lifecycle transition checked
// against the row-locked status turns out to be disallowed. Concurrent
// double-transitions lose with this error instead of re-applying.
var ErrInvalidStatusTransition = errors.New("invalid distribution status transition")

// DistributionRepository persists document distributions. All mutations are
// either single-statement in-store updates or row-locked transactions, so
// concurrent actors (viewers tracking access, the owner editing) never lose
// appends to the audit trail, file list, or analytics log.
type DistributionRepository struct {
	db *sqlx.DB
}

// NewDistributionRepository constructs the repository.
func NewDistributionRepository(db *sqlx.DB) *DistributionRepository {
	return &DistributionRepository{db: db}
}

// Create inserts a fully initialized distribution row.
func (r *DistributionRepository) Create(ctx context.Context, dist *models.DocumentDistribution) error {
	now := time.Now().UTC()
	dist.CreatedAt = now
	dist.UpdatedAt = now
	const query = `INSERT INTO distributions
	(id, course_id, title, description, module_leader_id, module_leader_name, storage_folder_id,
	 files, file_count, total_file_size, permissions, status,
	 total_views, total_downloads, unique_viewers, unique_downloaders, access_log,
	 audit_trail, version, created_at, updated_at)
	VALUES (:id, :course_id, :title, :description, :module_leader_id, :module_leader_name, :storage_folder_id,
	 :files, :file_count, :total_file_size, :permissions, :status,
	 :total_views, :total_downloads, :unique_viewers, :unique_downloaders, :access_log,
	 :audit_trail, :version, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, dist); err != nil {
		return fmt.Errorf("create distribution: %w", err)
	}
	return nil
}

// FindByID returns the distribution with the given ID.
func (r *DistributionRepository) FindByID(ctx context.Context, id string) (*models.DocumentDistribution, error) {
	const query = `SELECT * FROM distributions WHERE id = $1`
	var dist models.DocumentDistribution
	if err := r.db.GetContext(ctx, &dist, query, id); err != nil {
		return nil, err
	}
	return &dist, nil
}

// ListByOwner returns distributions owned by the module leader.
func (r *DistributionRepository) ListByOwner(ctx context.Context, moduleLeaderID string) ([]models.DocumentDistribution, error) {
	const query = `SELECT * FROM distributions WHERE module_leader_id = $1 ORDER BY created_at DESC`
	var dists []models.DocumentDistribution
	if err := r.db.SelectContext(ctx, &dists, query, moduleLeaderID); err != nil {
		return nil, fmt.Errorf("list distributions by owner: %w", err)
	}
	return dists, nil
}

// ListByCourse returns distributions for a course, newest first.
func (r *DistributionRepository) ListByCourse(ctx context.Context, courseID string) ([]models.DocumentDistribution, error) {
	const query = `SELECT * FROM distributions WHERE course_id = $1 ORDER BY created_at DESC`
	var dists []models.DocumentDistribution
	if err := r.db.SelectContext(ctx, &dists, query, courseID); err != nil {
		return nil, fmt.Errorf("list distributions by course: %w", err)
	}
	return dists, nil
}

// AddFiles appends file metadata, recomputes the derived counters in-store,
// and records a file-added audit entry capturing the prior file list. The
// row lock keeps the captured previous state consistent with the append.
func (r *DistributionRepository) AddFiles(ctx context.Context, id, actorID, actorName string, files models.FileList) (*models.DocumentDistribution, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin add files transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var previous models.FileList
	const lockQuery = `SELECT files FROM distributions WHERE id = $1 AND module_leader_id = $2 FOR UPDATE`
	if err := tx.GetContext(ctx, &previous, lockQuery, id, actorID); err != nil {
		return nil, err
	}

	previousJSON, err := json.Marshal(previous)
	if err != nil {
		return nil, fmt.Errorf("marshal previous file list: %w", err)
	}
	entry := models.AuditTrail{{
		Action:        models.AuditActionFileAdded,
		Timestamp:     time.Now().UTC(),
		ActorID:       actorID,
		ActorName:     actorName,
		Details:       fmt.Sprintf("added %d file(s)", len(files)),
		PreviousState: previousJSON,
	}}

	var totalSize int64
	for _, f := range files {
		totalSize += f.Size
	}

	const query = `
UPDATE distributions SET
	files = files || $2::jsonb,
	file_count = jsonb_array_length(files || $2::jsonb),
	total_file_size = total_file_size + $3,
	audit_trail = audit_trail || $4::jsonb,
	version = version + 1,
	updated_at = now()
WHERE id = $1
RETURNING *`
	var dist models.DocumentDistribution
	if err := tx.GetContext(ctx, &dist, query, id, files, totalSize, entry); err != nil {
		return nil, fmt.Errorf("append distribution files: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit add files transaction: %w", err)
	}
	return &dist, nil
}

// ShareWithTeacher merges the teacher into the additive shared_with list in
// one guarded statement. Returns false without error when the teacher was
// already present (idempotent no-op) or the actor does not own the row.
func (r *DistributionRepository) ShareWithTeacher(ctx context.Context, id, teacherID, actorID, actorName string) (bool, error) {
	entry := models.AuditTrail{{
		Action:    models.AuditActionPermissionChanged,
		Timestamp: time.Now().UTC(),
		ActorID:   actorID,
		ActorName: actorName,
		Details:   fmt.Sprintf("shared with teacher %s", teacherID),
	}}
	const query = `
UPDATE distributions SET
	permissions = jsonb_set(permissions, '{teachers,shared_with}',
		COALESCE(permissions#>'{teachers,shared_with}', '[]'::jsonb) || to_jsonb($2::text)),
	audit_trail = audit_trail || $3::jsonb,
	version = version + 1,
	updated_at = now()
WHERE id = $1 AND module_leader_id = $4
  AND NOT (COALESCE(permissions#>'{teachers,shared_with}', '[]'::jsonb) ? $2)`
	result, err := r.db.ExecContext(ctx, query, id, teacherID, entry, actorID)
	if err != nil {
		return false, fmt.Errorf("share distribution with teacher: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check shared rows: %w", err)
	}
	return affected > 0, nil
}

// UpdateStatus applies a lifecycle transition, stamping the state-specific
// fields and recording an audit entry describing old -> new. The transition
// rules are checked against the row-locked status, so a concurrent call that
// already moved the row makes this one fail with ErrInvalidStatusTransition
// instead of restamping.
func (r *DistributionRepository) UpdateStatus(ctx context.Context, id, actorID, actorName string, newStatus models.DistributionStatus, notes, reason *string) (*models.DocumentDistribution, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin status transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var oldStatus models.DistributionStatus
	const lockQuery = `SELECT status FROM distributions WHERE id = $1 AND module_leader_id = $2 FOR UPDATE`
	if err := tx.GetContext(ctx, &oldStatus, lockQuery, id, actorID); err != nil {
		return nil, err
	}

	if newStatus == oldStatus ||
		newStatus == models.DistributionPending ||
		(newStatus == models.DistributionDistributed && oldStatus != models.DistributionPending) {
		return nil, ErrInvalidStatusTransition
	}

	action := models.AuditActionUpdated
	switch newStatus {
	case models.DistributionDistributed:
		action = models.AuditActionDistributed
	case models.DistributionArchived:
		action = models.AuditActionArchived
	}
	entry := models.AuditTrail{{
		Action:    action,
		Timestamp: time.Now().UTC(),
		ActorID:   actorID,
		ActorName: actorName,
		Details:   fmt.Sprintf("%s → %s", oldStatus, newStatus),
	}}

	const query = `
UPDATE distributions SET
	status = $2,
	distributed_at = CASE WHEN $2 = 'DISTRIBUTED' THEN now() ELSE distributed_at END,
	distribution_notes = CASE WHEN $2 = 'DISTRIBUTED' THEN $3 ELSE distribution_notes END,
	archived_at = CASE WHEN $2 = 'ARCHIVED' THEN now() ELSE archived_at END,
	archived_by = CASE WHEN $2 = 'ARCHIVED' THEN $4 ELSE archived_by END,
	archive_reason = CASE WHEN $2 = 'ARCHIVED' THEN $5 ELSE archive_reason END,
	audit_trail = audit_trail || $6::jsonb,
	version = version + 1,
	updated_at = now()
WHERE id = $1
RETURNING *`
	var dist models.DocumentDistribution
	if err := tx.GetContext(ctx, &dist, query, id, newStatus, notes, actorID, reason, entry); err != nil {
		return nil, fmt.Errorf("update distribution status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit status transaction: %w", err)
	}
	return &dist, nil
}

// UpdatePermissions replaces the permission matrix, capturing the previous
// matrix in the audit entry. The additive shared_with list is carried forward
// from the row-locked matrix, so a share landing between the caller's read
// and this replacement is never silently revoked.
func (r *DistributionRepository) UpdatePermissions(ctx context.Context, id, actorID, actorName string, matrix models.PermissionMatrix) (*models.DocumentDistribution, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin permissions transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var previous models.PermissionMatrix
	const lockQuery = `SELECT permissions FROM distributions WHERE id = $1 AND module_leader_id = $2 FOR UPDATE`
	if err := tx.GetContext(ctx, &previous, lockQuery, id, actorID); err != nil {
		return nil, err
	}
	matrix.Teachers.SharedWith = mergeSharedWith(previous.Teachers.SharedWith, matrix.Teachers.SharedWith)

	previousJSON, err := json.Marshal(previous)
	if err != nil {
		return nil, fmt.Errorf("marshal previous permissions: %w", err)
	}
	entry := models.AuditTrail{{
		Action:        models.AuditActionPermissionChanged,
		Timestamp:     time.Now().UTC(),
		ActorID:       actorID,
		ActorName:     actorName,
		Details:       "permission matrix replaced",
		PreviousState: previousJSON,
	}}

	const query = `
UPDATE distributions SET
	permissions = $2,
	audit_trail = audit_trail || $3::jsonb,
	version = version + 1,
	updated_at = now()
WHERE id = $1
RETURNING *`
	var dist models.DocumentDistribution
	if err := tx.GetContext(ctx, &dist, query, id, matrix, entry); err != nil {
		return nil, fmt.Errorf("update distribution permissions: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit permissions transaction: %w", err)
	}
	return &dist, nil
}

func mergeSharedWith(previous, next []string) []string {
	if len(previous) == 0 {
		return next
	}
	merged := make([]string, 0, len(previous)+len(next))
	merged = append(merged, previous...)
	for _, teacherID := range next {
		seen := false
		for _, existing := range merged {
			if existing == teacherID {
				seen = true
				break
			}
		}
		if !seen {
			merged = append(merged, teacherID)
		}
	}
	return merged
}

// AppendAccess records one view/download/comment/edit event: conditional
// counter increments, unique-set union, bounded log append with front
// eviction once maxEntries is reached. One statement, safe under concurrent
// viewers.
func (r *DistributionRepository) AppendAccess(ctx context.Context, id string, entry models.AccessLogEntry, maxEntries int) error {
	if maxEntries <= 0 {
		maxEntries = models.MaxAccessLogEntries
	}
	logEntry := models.AccessLog{entry}
	const query = `
UPDATE distributions SET
	total_views = total_views + CASE WHEN $2 = 'view' THEN 1 ELSE 0 END,
	total_downloads = total_downloads + CASE WHEN $2 = 'download' THEN 1 ELSE 0 END,
	unique_viewers = CASE WHEN $2 = 'view' AND NOT ($3 = ANY(unique_viewers))
		THEN array_append(unique_viewers, $3) ELSE unique_viewers END,
	unique_downloaders = CASE WHEN $2 = 'download' AND NOT ($3 = ANY(unique_downloaders))
		THEN array_append(unique_downloaders, $3) ELSE unique_downloaders END,
	access_log = CASE WHEN jsonb_array_length(access_log || $4::jsonb) > $5
		THEN (access_log || $4::jsonb) - 0
		ELSE access_log || $4::jsonb END,
	last_accessed_at = now(),
	updated_at = now()
WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, string(entry.Action), entry.UserID, logEntry, maxEntries)
	if err != nil {
		return fmt.Errorf("append access event: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check tracked rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("append access event: distribution %s not found", id)
	}
	return nil
}
