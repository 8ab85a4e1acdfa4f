package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// DistributionStatus enumerates document distribution lifecycle states.
// Any state may move to ARCHIVED or EXPIRED; PENDING -> DISTRIBUTED is the
// only forward-progress transition.
type DistributionStatus string

const (
	DistributionPending     DistributionStatus = "PENDING"
	DistributionDistributed DistributionStatus = "DISTRIBUTED"
	DistributionArchived    DistributionStatus = "ARCHIVED"
	DistributionExpired     DistributionStatus = "EXPIRED"
)

// Audit actions recorded against a distribution.
const (
	AuditActionCreated           = "created"
	AuditActionUpdated           = "updated"
	AuditActionDistributed       = "distributed"
	AuditActionArchived          = "archived"
	AuditActionPermissionChanged = "permission-changed"
	AuditActionFileAdded         = "file-added"
	AuditActionFileRemoved       = "file-removed"
)

// AccessAction enumerates tracked access event kinds.
type AccessAction string

const (
	AccessView     AccessAction = "view"
	AccessDownload AccessAction = "download"
	AccessComment  AccessAction = "comment"
	AccessEdit     AccessAction = "edit"
)

// MaxAccessLogEntries bounds the per-distribution analytics log. Older
// entries are evicted front-first once the bound is reached.
const MaxAccessLogEntries = 1000

// FileMetadata describes one file carried by a distribution.
type FileMetadata struct {
	FileID     string    `json:"file_id"`
	Name       string    `json:"name"`
	MimeType   string    `json:"mime_type"`
	Size       int64     `json:"size"`
	StorageRef string    `json:"storage_ref,omitempty"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// FileList is an ordered list of file metadata stored as jsonb.
type FileList []FileMetadata

// TeacherPermissions is the teacher-facing slice of the permission matrix.
// SpecificTeachers, once non-empty, restricts the blanket role permission to
// only the listed identities; it is set only by an explicit permission
// update. SharedWith is additive: teachers granted access one by one during
// request approval, without narrowing anyone else's access.
type TeacherPermissions struct {
	CanView          bool     `json:"can_view"`
	CanDownload      bool     `json:"can_download"`
	CanComment       bool     `json:"can_comment"`
	CanEdit          bool     `json:"can_edit"`
	SpecificTeachers []string `json:"specific_teachers,omitempty"`
	SharedWith       []string `json:"shared_with,omitempty"`
}

// StudentPermissions is the student-facing slice of the permission matrix.
// Batch/section narrowing is persisted but not yet enforced by the evaluator.
type StudentPermissions struct {
	CanView          bool     `json:"can_view"`
	CanDownload      bool     `json:"can_download"`
	CanComment       bool     `json:"can_comment"`
	SpecificBatches  []int    `json:"specific_batches,omitempty"`
	SpecificSections []string `json:"specific_sections,omitempty"`
}

// PublicPermissions applies to any authenticated identity not matched above.
type PublicPermissions struct {
	CanView     bool `json:"can_view"`
	CanDownload bool `json:"can_download"`
}

// PermissionMatrix is the full audience permission configuration.
type PermissionMatrix struct {
	Teachers TeacherPermissions `json:"teachers"`
	Students StudentPermissions `json:"students"`
	Public   PublicPermissions  `json:"public"`
}

// DefaultPermissions is the matrix applied when a distribution is created
// without an explicit one: teachers may view and download, nobody else.
func DefaultPermissions() PermissionMatrix {
	return PermissionMatrix{
		Teachers: TeacherPermissions{CanView: true, CanDownload: true},
	}
}

// AuditEntry is one record of the append-only distribution audit trail.
type AuditEntry struct {
	Action        string          `json:"action"`
	Timestamp     time.Time       `json:"timestamp"`
	ActorID       string          `json:"actor_id"`
	ActorName     string          `json:"actor_name,omitempty"`
	Details       string          `json:"details,omitempty"`
	PreviousState json.RawMessage `json:"previous_state,omitempty"`
}

// AuditTrail is the ordered audit history stored as jsonb.
type AuditTrail []AuditEntry

// AccessLogEntry records one tracked view/download/comment/edit event.
type AccessLogEntry struct {
	UserID    string       `json:"user_id"`
	Action    AccessAction `json:"action"`
	Timestamp time.Time    `json:"timestamp"`
	IP        string       `json:"ip,omitempty"`
	UserAgent string       `json:"user_agent,omitempty"`
}

// AccessLog is the bounded FIFO analytics log stored as jsonb.
type AccessLog []AccessLogEntry

// DocumentDistribution is a shareable bundle of files plus its permission
// matrix, lifecycle status, analytics counters and audit trail. It is owned
// exclusively by ModuleLeaderID; only that identity may mutate it. A
// distribution is archived, never hard-deleted.
type DocumentDistribution struct {
	ID                string             `db:"id" json:"id"`
	CourseID          string             `db:"course_id" json:"course_id"`
	Title             string             `db:"title" json:"title"`
	Description       string             `db:"description" json:"description,omitempty"`
	ModuleLeaderID    string             `db:"module_leader_id" json:"module_leader_id"`
	ModuleLeaderName  string             `db:"module_leader_name" json:"module_leader_name"`
	StorageFolderID   *string            `db:"storage_folder_id" json:"storage_folder_id,omitempty"`
	Files             FileList           `db:"files" json:"files"`
	FileCount         int                `db:"file_count" json:"file_count"`
	TotalFileSize     int64              `db:"total_file_size" json:"total_file_size"`
	Permissions       PermissionMatrix   `db:"permissions" json:"permissions"`
	Status            DistributionStatus `db:"status" json:"status"`
	DistributedAt     *time.Time         `db:"distributed_at" json:"distributed_at,omitempty"`
	DistributionNotes *string            `db:"distribution_notes" json:"distribution_notes,omitempty"`
	ArchivedAt        *time.Time         `db:"archived_at" json:"archived_at,omitempty"`
	ArchivedBy        *string            `db:"archived_by" json:"archived_by,omitempty"`
	ArchiveReason     *string            `db:"archive_reason" json:"archive_reason,omitempty"`
	TotalViews        int                `db:"total_views" json:"total_views"`
	TotalDownloads    int                `db:"total_downloads" json:"total_downloads"`
	UniqueViewers     pq.StringArray     `db:"unique_viewers" json:"unique_viewers"`
	UniqueDownloaders pq.StringArray     `db:"unique_downloaders" json:"unique_downloaders"`
	AccessLog         AccessLog          `db:"access_log" json:"access_log"`
	LastAccessedAt    *time.Time         `db:"last_accessed_at" json:"last_accessed_at,omitempty"`
	AuditTrail        AuditTrail         `db:"audit_trail" json:"audit_trail"`
	Version           int                `db:"version" json:"version"`
	CreatedAt         time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time          `db:"updated_at" json:"updated_at"`
}

// Value implements driver.Valuer for jsonb storage.
func (f FileList) Value() (driver.Value, error) { return jsonbValue(f) }

// Scan implements sql.Scanner for jsonb retrieval.
func (f *FileList) Scan(src interface{}) error { return jsonbScan(src, f) }

// Value implements driver.Valuer for jsonb storage.
func (p PermissionMatrix) Value() (driver.Value, error) { return jsonbValue(p) }

// Scan implements sql.Scanner for jsonb retrieval.
func (p *PermissionMatrix) Scan(src interface{}) error { return jsonbScan(src, p) }

// Value implements driver.Valuer for jsonb storage.
func (a AuditTrail) Value() (driver.Value, error) { return jsonbValue(a) }

// Scan implements sql.Scanner for jsonb retrieval.
func (a *AuditTrail) Scan(src interface{}) error { return jsonbScan(src, a) }

// Value implements driver.Valuer for jsonb storage.
func (l AccessLog) Value() (driver.Value, error) { return jsonbValue(l) }

// Scan implements sql.Scanner for jsonb retrieval.
func (l *AccessLog) Scan(src interface{}) error { return jsonbScan(src, l) }

func jsonbValue(v interface{}) (driver.Value, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal jsonb column: %w", err)
	}
	return payload, nil
}

func jsonbScan(src, dest interface{}) error {
	if src == nil {
		return nil
	}
	var raw []byte
	switch s := src.(type) {
	case []byte:
		raw = s
	case string:
		raw = []byte(s)
	default:
		return fmt.Errorf("unsupported jsonb source type %T", src)
	}
	return json.Unmarshal(raw, dest)
}
