package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/studisys/docshare-api/internal/models"
	"github.com/studisys/docshare-api/internal/repository"
	appErrors "github.com/studisys/docshare-api/pkg/errors"
	"github.com/studisys/docshare-api/pkg/export"
)

type distributionRepo interface {
	Create(ctx context.Context, dist *models.DocumentDistribution) error
	FindByID(ctx context.Context, id string) (*models.DocumentDistribution, error)
	ListByOwner(ctx context.Context, moduleLeaderID string) ([]models.DocumentDistribution, error)
	ListByCourse(ctx context.Context, courseID string) ([]models.DocumentDistribution, error)
	AddFiles(ctx context.Context, id, actorID, actorName string, files models.FileList) (*models.DocumentDistribution, error)
	ShareWithTeacher(ctx context.Context, id, teacherID, actorID, actorName string) (bool, error)
	UpdateStatus(ctx context.Context, id, actorID, actorName string, newStatus models.DistributionStatus, notes, reason *string) (*models.DocumentDistribution, error)
	UpdatePermissions(ctx context.Context, id, actorID, actorName string, matrix models.PermissionMatrix) (*models.DocumentDistribution, error)
	AppendAccess(ctx context.Context, id string, entry models.AccessLogEntry, maxEntries int) error
}

type accessObserver interface {
	ObserveAccessDecision(allowed bool)
	ObserveTrackedEvent(action string)
}

// distributionStore is the document storage surface: folder provisioning for
// new distributions plus blob reads and writes for their files.
type distributionStore interface {
	CreateFolder(ctx context.Context, path string) (string, error)
	SaveStream(filename string, r io.Reader) (string, error)
	Open(filename string) (io.ReadCloser, error)
}

// DistributionConfig tunes distribution behavior.
type DistributionConfig struct {
	MaxAccessLogEntries int
	IDSuffixLength      int
}

// FileInput describes one file attached to a distribution.
type FileInput struct {
	Name       string `json:"name" validate:"required,max=255"`
	MimeType   string `json:"mime_type" validate:"required"`
	Size       int64  `json:"size" validate:"gte=0"`
	StorageRef string `json:"storage_ref"`
}

// CreateDistributionRequest creates a new distribution.
type CreateDistributionRequest struct {
	CourseID    string                   `json:"course_id" validate:"required"`
	Title       string                   `json:"title" validate:"required,min=3,max=200"`
	Description string                   `json:"description" validate:"omitempty,max=2000"`
	Files       []FileInput              `json:"files" validate:"omitempty,dive"`
	Permissions *models.PermissionMatrix `json:"permissions"`
}

// AddFilesRequest appends files to an existing distribution.
type AddFilesRequest struct {
	Files []FileInput `json:"files" validate:"required,min=1,dive"`
}

// UpdateStatusRequest transitions the distribution lifecycle.
type UpdateStatusRequest struct {
	Status string  `json:"status" validate:"required,oneof=PENDING DISTRIBUTED ARCHIVED EXPIRED"`
	Notes  *string `json:"notes" validate:"omitempty,max=2000"`
	Reason *string `json:"reason" validate:"omitempty,max=2000"`
}

// ShareRequest shares a distribution with a single teacher.
type ShareRequest struct {
	TeacherID string `json:"teacher_id" validate:"required"`
}

// TrackAccessRequest records one access event against a distribution.
type TrackAccessRequest struct {
	Action string `json:"action" validate:"required,oneof=view download comment edit"`
}

// DistributionService owns the distribution lifecycle, the permission
// evaluation on reads and the access analytics write path.
type DistributionService struct {
	distributions distributionRepo
	courses       courseReader
	store         distributionStore
	metrics       accessObserver
	csv           *export.CSVExporter
	pdf           *export.PDFExporter
	config        DistributionConfig
	validator     *validator.Validate
	logger        *zap.Logger
}

// NewDistributionService creates a service instance.
func NewDistributionService(
	distributions distributionRepo,
	courses courseReader,
	store distributionStore,
	metrics accessObserver,
	config DistributionConfig,
	validate *validator.Validate,
	logger *zap.Logger,
) *DistributionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.MaxAccessLogEntries <= 0 {
		config.MaxAccessLogEntries = models.MaxAccessLogEntries
	}
	if config.IDSuffixLength <= 0 {
		config.IDSuffixLength = 6
	}
	return &DistributionService{
		distributions: distributions,
		courses:       courses,
		store:         store,
		metrics:       metrics,
		csv:           export.NewCSVExporter(),
		pdf:           export.NewPDFExporter(),
		config:        config,
		validator:     validate,
		logger:        logger,
	}
}

// Create builds a new PENDING distribution owned by the caller. Storage
// folder provisioning is best-effort: on failure the distribution is still
// created and the degradation is logged.
func (s *DistributionService) Create(ctx context.Context, owner *models.JWTClaims, req CreateDistributionRequest) (*models.DocumentDistribution, error) {
	if owner == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "missing caller identity")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid distribution payload")
	}

	if _, err := s.courses.FindByID(ctx, req.CourseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	id, err := s.generateID()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate distribution id")
	}

	now := time.Now().UTC()
	files := buildFileList(req.Files, now)
	var totalSize int64
	for _, f := range files {
		totalSize += f.Size
	}

	permissions := models.DefaultPermissions()
	if req.Permissions != nil {
		permissions = *req.Permissions
	}

	var folderID *string
	if s.store != nil {
		ref, err := s.store.CreateFolder(ctx, id)
		if err != nil {
			s.logger.Warn("storage folder creation failed, distribution continues without one",
				zap.String("distribution_id", id), zap.Error(err))
		} else {
			folderID = &ref
		}
	}

	dist := &models.DocumentDistribution{
		ID:                id,
		CourseID:          req.CourseID,
		Title:             req.Title,
		Description:       req.Description,
		ModuleLeaderID:    owner.UserID,
		ModuleLeaderName:  owner.FullName,
		StorageFolderID:   folderID,
		Files:             files,
		FileCount:         len(files),
		TotalFileSize:     totalSize,
		Permissions:       permissions,
		Status:            models.DistributionPending,
		UniqueViewers:     []string{},
		UniqueDownloaders: []string{},
		AccessLog:         models.AccessLog{},
		AuditTrail: models.AuditTrail{{
			Action:    models.AuditActionCreated,
			Timestamp: now,
			ActorID:   owner.UserID,
			ActorName: owner.FullName,
			Details:   fmt.Sprintf("created with %d file(s)", len(files)),
		}},
		Version: 1,
	}

	if err := s.distributions.Create(ctx, dist); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create distribution")
	}
	return dist, nil
}

// Get returns the distribution when the identity passes the permission
// evaluation, recording a view event on every allowed read.
func (s *DistributionService) Get(ctx context.Context, id string, identity *models.JWTClaims) (*models.DocumentDistribution, error) {
	dist, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	allowed := EvaluateAccess(dist, identity)
	if s.metrics != nil {
		s.metrics.ObserveAccessDecision(allowed)
	}
	if !allowed {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you do not have access to this distribution")
	}

	s.recordAccess(ctx, dist.ID, identity, models.AccessView, "", "")
	return dist, nil
}

// TrackAccess records an explicit access event (download, comment, edit or
// an out-of-band view) after re-checking the permission evaluation.
func (s *DistributionService) TrackAccess(ctx context.Context, id string, identity *models.JWTClaims, req TrackAccessRequest, ip, userAgent string) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid access event payload")
	}

	dist, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	allowed := EvaluateAccess(dist, identity)
	if s.metrics != nil {
		s.metrics.ObserveAccessDecision(allowed)
	}
	if !allowed {
		return appErrors.Clone(appErrors.ErrForbidden, "you do not have access to this distribution")
	}

	entry := models.AccessLogEntry{
		UserID:    identity.UserID,
		Action:    models.AccessAction(req.Action),
		Timestamp: time.Now().UTC(),
		IP:        ip,
		UserAgent: userAgent,
	}
	if err := s.distributions.AppendAccess(ctx, dist.ID, entry, s.config.MaxAccessLogEntries); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record access event")
	}
	if s.metrics != nil {
		s.metrics.ObserveTrackedEvent(req.Action)
	}
	return nil
}

// AddFiles appends files to a distribution the caller owns.
func (s *DistributionService) AddFiles(ctx context.Context, id string, owner *models.JWTClaims, req AddFilesRequest) (*models.DocumentDistribution, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid files payload")
	}
	if _, err := s.loadOwned(ctx, id, owner); err != nil {
		return nil, err
	}

	files := buildFileList(req.Files, time.Now().UTC())
	dist, err := s.distributions.AddFiles(ctx, id, owner.UserID, owner.FullName, files)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add files")
	}
	return dist, nil
}

// UploadFileInput describes an uploaded file's metadata.
type UploadFileInput struct {
	Name     string `validate:"required,max=255"`
	MimeType string `validate:"required"`
	Size     int64  `validate:"gte=0"`
}

// UploadFile stores the file content in document storage under the
// distribution's folder and appends its metadata to the file list.
func (s *DistributionService) UploadFile(ctx context.Context, id string, owner *models.JWTClaims, in UploadFileInput, content io.Reader) (*models.DocumentDistribution, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid upload payload")
	}
	if s.store == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "document storage is not configured")
	}
	if _, err := s.loadOwned(ctx, id, owner); err != nil {
		return nil, err
	}

	fileID := uuid.NewString()
	ref, err := s.store.SaveStream(fmt.Sprintf("%s/%s", id, fileID), content)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store file content")
	}

	files := models.FileList{{
		FileID:     fileID,
		Name:       in.Name,
		MimeType:   in.MimeType,
		Size:       in.Size,
		StorageRef: ref,
		UploadedAt: time.Now().UTC(),
	}}
	dist, err := s.distributions.AddFiles(ctx, id, owner.UserID, owner.FullName, files)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add uploaded file")
	}
	return dist, nil
}

// DownloadFile streams a stored file to an identity that passes the download
// permission evaluation, recording a download event on success. The caller
// owns closing the returned reader.
func (s *DistributionService) DownloadFile(ctx context.Context, id, fileID string, identity *models.JWTClaims, ip, userAgent string) (io.ReadCloser, *models.FileMetadata, error) {
	if s.store == nil {
		return nil, nil, appErrors.Clone(appErrors.ErrInternal, "document storage is not configured")
	}
	dist, err := s.load(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	allowed := EvaluateDownload(dist, identity)
	if s.metrics != nil {
		s.metrics.ObserveAccessDecision(allowed)
	}
	if !allowed {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "you may not download from this distribution")
	}

	var file *models.FileMetadata
	for i := range dist.Files {
		if dist.Files[i].FileID == fileID {
			file = &dist.Files[i]
			break
		}
	}
	if file == nil {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "file not found in this distribution")
	}
	if file.StorageRef == "" {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "file has no stored content")
	}

	content, err := s.store.Open(file.StorageRef)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open stored file")
	}

	s.recordAccess(ctx, dist.ID, identity, models.AccessDownload, ip, userAgent)
	return content, file, nil
}

// ShareWithTeacher grants one teacher access additively. Sharing with a
// teacher who already has access is a no-op, not an error.
func (s *DistributionService) ShareWithTeacher(ctx context.Context, id string, owner *models.JWTClaims, req ShareRequest) (*models.DocumentDistribution, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid share payload")
	}
	if _, err := s.loadOwned(ctx, id, owner); err != nil {
		return nil, err
	}

	shared, err := s.distributions.ShareWithTeacher(ctx, id, req.TeacherID, owner.UserID, owner.FullName)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to share distribution")
	}
	if !shared {
		s.logger.Debug("share was a no-op, teacher already present",
			zap.String("distribution_id", id), zap.String("teacher_id", req.TeacherID))
	}

	return s.load(ctx, id)
}

// UpdateStatus applies a lifecycle transition. Archiving and expiring are
// allowed from any state; DISTRIBUTED is reachable only from PENDING. The
// pre-checks here give precise messages; the repository re-checks the rules
// against the row-locked status, so a concurrent transition surfaces as a
// conflict instead of being re-applied.
func (s *DistributionService) UpdateStatus(ctx context.Context, id string, owner *models.JWTClaims, req UpdateStatusRequest) (*models.DocumentDistribution, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	dist, err := s.loadOwned(ctx, id, owner)
	if err != nil {
		return nil, err
	}

	newStatus := models.DistributionStatus(req.Status)
	if newStatus == dist.Status {
		return nil, appErrors.Clone(appErrors.ErrConflict, "distribution is already in that status")
	}
	if newStatus == models.DistributionDistributed && dist.Status != models.DistributionPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "only a pending distribution can be distributed")
	}
	if newStatus == models.DistributionPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "distribution cannot return to pending")
	}

	updated, err := s.distributions.UpdateStatus(ctx, id, owner.UserID, owner.FullName, newStatus, req.Notes, req.Reason)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidStatusTransition) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "distribution status changed concurrently, transition is no longer allowed")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update status")
	}
	return updated, nil
}

// UpdatePermissions replaces the permission matrix. The additive shared_with
// list survives the replacement: the repository merges it forward from the
// row-locked matrix, so approval-time shares landing concurrently are never
// revoked by an unrelated permission edit.
func (s *DistributionService) UpdatePermissions(ctx context.Context, id string, owner *models.JWTClaims, matrix models.PermissionMatrix) (*models.DocumentDistribution, error) {
	if _, err := s.loadOwned(ctx, id, owner); err != nil {
		return nil, err
	}

	updated, err := s.distributions.UpdatePermissions(ctx, id, owner.UserID, owner.FullName, matrix)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update permissions")
	}
	return updated, nil
}

// List returns distributions visible to the identity: the caller's own when
// courseID is empty, otherwise the course's distributions filtered through
// the permission evaluation.
func (s *DistributionService) List(ctx context.Context, identity *models.JWTClaims, courseID string) ([]models.DocumentDistribution, error) {
	if identity == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "missing caller identity")
	}

	if courseID == "" {
		dists, err := s.distributions.ListByOwner(ctx, identity.UserID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list distributions")
		}
		return dists, nil
	}

	dists, err := s.distributions.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list distributions")
	}
	visible := make([]models.DocumentDistribution, 0, len(dists))
	for i := range dists {
		if EvaluateAccess(&dists[i], identity) {
			visible = append(visible, dists[i])
		}
	}
	return visible, nil
}

// ExportAccessReport renders the analytics summary and access log as a PDF.
// Only the owner may export.
func (s *DistributionService) ExportAccessReport(ctx context.Context, id string, owner *models.JWTClaims) ([]byte, error) {
	dist, err := s.loadOwned(ctx, id, owner)
	if err != nil {
		return nil, err
	}

	headers := []string{"User", "Action", "Timestamp", "IP"}
	rows := make([]map[string]string, 0, len(dist.AccessLog)+1)
	rows = append(rows, map[string]string{
		"User":      "summary",
		"Action":    fmt.Sprintf("%d views / %d downloads", dist.TotalViews, dist.TotalDownloads),
		"Timestamp": fmt.Sprintf("%d unique viewers", len(dist.UniqueViewers)),
		"IP":        fmt.Sprintf("%d unique downloaders", len(dist.UniqueDownloaders)),
	})
	for _, e := range dist.AccessLog {
		rows = append(rows, map[string]string{
			"User":      e.UserID,
			"Action":    string(e.Action),
			"Timestamp": e.Timestamp.UTC().Format(time.RFC3339),
			"IP":        e.IP,
		})
	}

	data, err := s.pdf.Render(export.Dataset{Headers: headers, Rows: rows}, fmt.Sprintf("Access report: %s", dist.Title))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render access report")
	}
	return data, nil
}

// ExportAuditTrail renders the audit trail as CSV. Only the owner may export.
func (s *DistributionService) ExportAuditTrail(ctx context.Context, id string, owner *models.JWTClaims) ([]byte, error) {
	dist, err := s.loadOwned(ctx, id, owner)
	if err != nil {
		return nil, err
	}

	headers := []string{"Action", "Timestamp", "Actor", "Details"}
	rows := make([]map[string]string, 0, len(dist.AuditTrail))
	for _, e := range dist.AuditTrail {
		rows = append(rows, map[string]string{
			"Action":    e.Action,
			"Timestamp": e.Timestamp.UTC().Format(time.RFC3339),
			"Actor":     e.ActorName,
			"Details":   e.Details,
		})
	}

	data, err := s.csv.Render(export.Dataset{Headers: headers, Rows: rows})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render audit trail")
	}
	return data, nil
}

func (s *DistributionService) load(ctx context.Context, id string) (*models.DocumentDistribution, error) {
	dist, err := s.distributions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "distribution not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load distribution")
	}
	return dist, nil
}

func (s *DistributionService) loadOwned(ctx context.Context, id string, owner *models.JWTClaims) (*models.DocumentDistribution, error) {
	if owner == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "missing caller identity")
	}
	dist, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if dist.ModuleLeaderID != owner.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the owning module leader may modify this distribution")
	}
	return dist, nil
}

// recordAccess logs a read-path view without failing the read.
func (s *DistributionService) recordAccess(ctx context.Context, id string, identity *models.JWTClaims, action models.AccessAction, ip, userAgent string) {
	entry := models.AccessLogEntry{
		UserID:    identity.UserID,
		Action:    action,
		Timestamp: time.Now().UTC(),
		IP:        ip,
		UserAgent: userAgent,
	}
	if err := s.distributions.AppendAccess(ctx, id, entry, s.config.MaxAccessLogEntries); err != nil {
		s.logger.Warn("failed to record view event", zap.String("distribution_id", id), zap.Error(err))
		return
	}
	if s.metrics != nil {
		s.metrics.ObserveTrackedEvent(string(action))
	}
}

const idSuffixCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// generateID builds a sortable distribution ID: a base36 millisecond
// timestamp plus a short random suffix.
func (s *DistributionService) generateID() (string, error) {
	ts := strings.ToUpper(strconv.FormatInt(time.Now().UTC().UnixMilli(), 36))
	suffix := make([]byte, s.config.IDSuffixLength)
	if _, err := rand.Read(suffix); err != nil {
		return "", fmt.Errorf("read random suffix: %w", err)
	}
	for i, b := range suffix {
		suffix[i] = idSuffixCharset[int(b)%len(idSuffixCharset)]
	}
	return fmt.Sprintf("DIST-%s-%s", ts, suffix), nil
}

func buildFileList(inputs []FileInput, uploadedAt time.Time) models.FileList {
	files := make(models.FileList, 0, len(inputs))
	for _, in := range inputs {
		files = append(files, models.FileMetadata{
			FileID:     uuid.NewString(),
			Name:       in.Name,
			MimeType:   in.MimeType,
			Size:       in.Size,
			StorageRef: in.StorageRef,
			UploadedAt: uploadedAt,
		})
	}
	return files
}
