package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studisys/docshare-api/internal/models"
	"github.com/studisys/docshare-api/internal/repository"
	appErrors "github.com/studisys/docshare-api/pkg/errors"
)

type stubDistRepo struct {
	items         map[string]*models.DocumentDistribution
	created       []*models.DocumentDistribution
	appended      []models.AccessLogEntry
	updatedMatrix *models.PermissionMatrix
	statusUpdates []models.DistributionStatus
	statusErr     error
}

func (m *stubDistRepo) Create(ctx context.Context, dist *models.DocumentDistribution) error {
	if m.items == nil {
		m.items = make(map[string]*models.DocumentDistribution)
	}
	cp := *dist
	m.items[dist.ID] = &cp
	m.created = append(m.created, &cp)
	return nil
}

func (m *stubDistRepo) FindByID(ctx context.Context, id string) (*models.DocumentDistribution, error) {
	if d, ok := m.items[id]; ok {
		cp := *d
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *stubDistRepo) ListByOwner(ctx context.Context, moduleLeaderID string) ([]models.DocumentDistribution, error) {
	var out []models.DocumentDistribution
	for _, d := range m.items {
		if d.ModuleLeaderID == moduleLeaderID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (m *stubDistRepo) ListByCourse(ctx context.Context, courseID string) ([]models.DocumentDistribution, error) {
	var out []models.DocumentDistribution
	for _, d := range m.items {
		if d.CourseID == courseID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (m *stubDistRepo) AddFiles(ctx context.Context, id, actorID, actorName string, files models.FileList) (*models.DocumentDistribution, error) {
	d, ok := m.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	d.Files = append(d.Files, files...)
	d.FileCount = len(d.Files)
	d.Version++
	cp := *d
	return &cp, nil
}

func (m *stubDistRepo) ShareWithTeacher(ctx context.Context, id, teacherID, actorID, actorName string) (bool, error) {
	d, ok := m.items[id]
	if !ok {
		return false, nil
	}
	if containsString(d.Permissions.Teachers.SharedWith, teacherID) {
		return false, nil
	}
	d.Permissions.Teachers.SharedWith = append(d.Permissions.Teachers.SharedWith, teacherID)
	d.Version++
	return true, nil
}

func (m *stubDistRepo) UpdateStatus(ctx context.Context, id, actorID, actorName string, newStatus models.DistributionStatus, notes, reason *string) (*models.DocumentDistribution, error) {
	if m.statusErr != nil {
		return nil, m.statusErr
	}
	d, ok := m.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	d.Status = newStatus
	d.Version++
	m.statusUpdates = append(m.statusUpdates, newStatus)
	cp := *d
	return &cp, nil
}

func (m *stubDistRepo) UpdatePermissions(ctx context.Context, id, actorID, actorName string, matrix models.PermissionMatrix) (*models.DocumentDistribution, error) {
	d, ok := m.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	// Same contract as the store: shared_with merges forward.
	for _, teacherID := range d.Permissions.Teachers.SharedWith {
		if !containsString(matrix.Teachers.SharedWith, teacherID) {
			matrix.Teachers.SharedWith = append(matrix.Teachers.SharedWith, teacherID)
		}
	}
	d.Permissions = matrix
	d.Version++
	m.updatedMatrix = &matrix
	cp := *d
	return &cp, nil
}

func (m *stubDistRepo) AppendAccess(ctx context.Context, id string, entry models.AccessLogEntry, maxEntries int) error {
	if _, ok := m.items[id]; !ok {
		return errors.New("not found")
	}
	m.appended = append(m.appended, entry)
	return nil
}

type stubFolders struct {
	fail    bool
	created []string
	blobs   map[string][]byte
}

func (m *stubFolders) CreateFolder(ctx context.Context, path string) (string, error) {
	if m.fail {
		return "", errors.New("storage unavailable")
	}
	m.created = append(m.created, path)
	return path, nil
}

func (m *stubFolders) SaveStream(filename string, r io.Reader) (string, error) {
	if m.fail {
		return "", errors.New("storage unavailable")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if m.blobs == nil {
		m.blobs = make(map[string][]byte)
	}
	m.blobs[filename] = data
	return filename, nil
}

func (m *stubFolders) Open(filename string) (io.ReadCloser, error) {
	data, ok := m.blobs[filename]
	if !ok {
		return nil, errors.New("stored file not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

type stubAccessObserver struct {
	decisions []bool
	tracked   []string
}

func (m *stubAccessObserver) ObserveAccessDecision(allowed bool) {
	m.decisions = append(m.decisions, allowed)
}

func (m *stubAccessObserver) ObserveTrackedEvent(action string) {
	m.tracked = append(m.tracked, action)
}

func newDistService(repo *stubDistRepo, folders *stubFolders, observer *stubAccessObserver) *DistributionService {
	courses := &stubCourses{items: map[string]*models.Course{
		"c1": {ID: "c1", Code: "CS101", Name: "Algorithms"},
	}}
	return NewDistributionService(repo, courses, folders, observer, DistributionConfig{}, nil, nil)
}

func ownedDist(id, owner string, matrix models.PermissionMatrix) *models.DocumentDistribution {
	return &models.DocumentDistribution{
		ID:             id,
		CourseID:       "c1",
		Title:          "Week 1 materials",
		ModuleLeaderID: owner,
		Permissions:    matrix,
		Status:         models.DistributionPending,
		Version:        1,
	}
}

func TestDistributionServiceCreateDefaults(t *testing.T) {
	repo := &stubDistRepo{}
	folders := &stubFolders{}
	svc := newDistService(repo, folders, &stubAccessObserver{})

	dist, err := svc.Create(context.Background(), leaderClaims("ml1"), CreateDistributionRequest{
		CourseID: "c1",
		Title:    "Week 1 materials",
		Files:    []FileInput{{Name: "notes.pdf", MimeType: "application/pdf", Size: 1024}},
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(dist.ID, "DIST-"))
	assert.Equal(t, models.DistributionPending, dist.Status)
	assert.Equal(t, 1, dist.Version)
	assert.Equal(t, 1, dist.FileCount)
	assert.Equal(t, int64(1024), dist.TotalFileSize)
	assert.Equal(t, models.DefaultPermissions(), dist.Permissions)
	require.Len(t, dist.AuditTrail, 1)
	assert.Equal(t, models.AuditActionCreated, dist.AuditTrail[0].Action)
	require.NotNil(t, dist.StorageFolderID)
	assert.Equal(t, []string{dist.ID}, folders.created)
}

func TestDistributionServiceCreateSurvivesStorageFailure(t *testing.T) {
	repo := &stubDistRepo{}
	svc := newDistService(repo, &stubFolders{fail: true}, &stubAccessObserver{})

	dist, err := svc.Create(context.Background(), leaderClaims("ml1"), CreateDistributionRequest{
		CourseID: "c1",
		Title:    "Week 1 materials",
	})
	require.NoError(t, err)
	assert.Nil(t, dist.StorageFolderID)
	assert.Len(t, repo.created, 1)
}

func TestDistributionServiceCreateUnknownCourse(t *testing.T) {
	svc := newDistService(&stubDistRepo{}, &stubFolders{}, &stubAccessObserver{})

	_, err := svc.Create(context.Background(), leaderClaims("ml1"), CreateDistributionRequest{
		CourseID: "missing",
		Title:    "Week 1 materials",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestDistributionServiceGetDenied(t *testing.T) {
	repo := &stubDistRepo{items: map[string]*models.DocumentDistribution{
		"d1": ownedDist("d1", "ml1", models.PermissionMatrix{}),
	}}
	observer := &stubAccessObserver{}
	svc := newDistService(repo, &stubFolders{}, observer)

	_, err := svc.Get(context.Background(), "d1", teacherClaims("t1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Equal(t, []bool{false}, observer.decisions)
	assert.Empty(t, repo.appended)
}

func TestDistributionServiceGetRecordsView(t *testing.T) {
	repo := &stubDistRepo{items: map[string]*models.DocumentDistribution{
		"d1": ownedDist("d1", "ml1", models.PermissionMatrix{
			Teachers: models.TeacherPermissions{CanView: true},
		}),
	}}
	observer := &stubAccessObserver{}
	svc := newDistService(repo, &stubFolders{}, observer)

	dist, err := svc.Get(context.Background(), "d1", teacherClaims("t1"))
	require.NoError(t, err)
	assert.Equal(t, "d1", dist.ID)
	require.Len(t, repo.appended, 1)
	assert.Equal(t, models.AccessView, repo.appended[0].Action)
	assert.Equal(t, "t1", repo.appended[0].UserID)
	assert.Equal(t, []string{"view"}, observer.tracked)
}

func TestDistributionServiceTrackAccessDownload(t *testing.T) {
	repo := &stubDistRepo{items: map[string]*models.DocumentDistribution{
		"d1": ownedDist("d1", "ml1", models.PermissionMatrix{
			Teachers: models.TeacherPermissions{CanView: true, CanDownload: true},
		}),
	}}
	observer := &stubAccessObserver{}
	svc := newDistService(repo, &stubFolders{}, observer)

	err := svc.TrackAccess(context.Background(), "d1", teacherClaims("t1"),
		TrackAccessRequest{Action: "download"}, "10.0.0.1", "test-agent")
	require.NoError(t, err)
	require.Len(t, repo.appended, 1)
	assert.Equal(t, models.AccessDownload, repo.appended[0].Action)
	assert.Equal(t, "10.0.0.1", repo.appended[0].IP)
}

func TestDistributionServiceUpdateStatusTransitions(t *testing.T) {
	repo := &stubDistRepo{items: map[string]*models.DocumentDistribution{
		"d1": ownedDist("d1", "ml1", models.PermissionMatrix{}),
	}}
	svc := newDistService(repo, &stubFolders{}, &stubAccessObserver{})
	owner := leaderClaims("ml1")

	// Same status is a conflict.
	_, err := svc.UpdateStatus(context.Background(), "d1", owner, UpdateStatusRequest{Status: "PENDING"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	dist, err := svc.UpdateStatus(context.Background(), "d1", owner, UpdateStatusRequest{Status: "DISTRIBUTED"})
	require.NoError(t, err)
	assert.Equal(t, models.DistributionDistributed, dist.Status)

	// DISTRIBUTED is only reachable from PENDING.
	repo.items["d1"].Status = models.DistributionArchived
	_, err = svc.UpdateStatus(context.Background(), "d1", owner, UpdateStatusRequest{Status: "DISTRIBUTED"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestDistributionServiceUpdateStatusLostRaceIsConflict(t *testing.T) {
	// The store's locked re-check rejects the transition even though the
	// service saw a PENDING row moments earlier.
	repo := &stubDistRepo{
		items: map[string]*models.DocumentDistribution{
			"d1": ownedDist("d1", "ml1", models.PermissionMatrix{}),
		},
		statusErr: repository.ErrInvalidStatusTransition,
	}
	svc := newDistService(repo, &stubFolders{}, &stubAccessObserver{})

	_, err := svc.UpdateStatus(context.Background(), "d1", leaderClaims("ml1"), UpdateStatusRequest{Status: "DISTRIBUTED"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.statusUpdates)
}

func TestDistributionServiceUpdateStatusNotOwner(t *testing.T) {
	repo := &stubDistRepo{items: map[string]*models.DocumentDistribution{
		"d1": ownedDist("d1", "ml1", models.PermissionMatrix{}),
	}}
	svc := newDistService(repo, &stubFolders{}, &stubAccessObserver{})

	_, err := svc.UpdateStatus(context.Background(), "d1", leaderClaims("ml2"), UpdateStatusRequest{Status: "ARCHIVED"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestDistributionServiceUpdatePermissionsKeepsShares(t *testing.T) {
	matrix := models.PermissionMatrix{
		Teachers: models.TeacherPermissions{CanView: true, SharedWith: []string{"t1", "t2"}},
	}
	repo := &stubDistRepo{items: map[string]*models.DocumentDistribution{
		"d1": ownedDist("d1", "ml1", matrix),
	}}
	svc := newDistService(repo, &stubFolders{}, &stubAccessObserver{})

	replacement := models.PermissionMatrix{
		Teachers: models.TeacherPermissions{CanView: true, SpecificTeachers: []string{"t9"}},
	}
	dist, err := svc.UpdatePermissions(context.Background(), "d1", leaderClaims("ml1"), replacement)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"t1", "t2"}, dist.Permissions.Teachers.SharedWith)
	assert.Equal(t, []string{"t9"}, dist.Permissions.Teachers.SpecificTeachers)
}

func TestDistributionServiceUploadFileStoresBlob(t *testing.T) {
	repo := &stubDistRepo{items: map[string]*models.DocumentDistribution{
		"d1": ownedDist("d1", "ml1", models.PermissionMatrix{}),
	}}
	folders := &stubFolders{}
	svc := newDistService(repo, folders, &stubAccessObserver{})

	dist, err := svc.UploadFile(context.Background(), "d1", leaderClaims("ml1"), UploadFileInput{
		Name:     "syllabus.pdf",
		MimeType: "application/pdf",
		Size:     11,
	}, strings.NewReader("pdf content"))
	require.NoError(t, err)
	require.Len(t, dist.Files, 1)

	file := dist.Files[0]
	assert.Equal(t, "syllabus.pdf", file.Name)
	assert.True(t, strings.HasPrefix(file.StorageRef, "d1/"))
	assert.Equal(t, []byte("pdf content"), folders.blobs[file.StorageRef])
}

func TestDistributionServiceUploadFileNotOwner(t *testing.T) {
	repo := &stubDistRepo{items: map[string]*models.DocumentDistribution{
		"d1": ownedDist("d1", "ml1", models.PermissionMatrix{}),
	}}
	folders := &stubFolders{}
	svc := newDistService(repo, folders, &stubAccessObserver{})

	_, err := svc.UploadFile(context.Background(), "d1", leaderClaims("ml2"), UploadFileInput{
		Name:     "syllabus.pdf",
		MimeType: "application/pdf",
		Size:     11,
	}, strings.NewReader("pdf content"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Empty(t, folders.blobs)
}

func TestDistributionServiceDownloadFileRecordsDownload(t *testing.T) {
	d := ownedDist("d1", "ml1", models.PermissionMatrix{
		Teachers: models.TeacherPermissions{CanView: true, CanDownload: true},
	})
	d.Files = models.FileList{{FileID: "f1", Name: "notes.pdf", MimeType: "application/pdf", Size: 11, StorageRef: "d1/f1"}}
	repo := &stubDistRepo{items: map[string]*models.DocumentDistribution{"d1": d}}
	folders := &stubFolders{blobs: map[string][]byte{"d1/f1": []byte("pdf content")}}
	svc := newDistService(repo, folders, &stubAccessObserver{})

	content, file, err := svc.DownloadFile(context.Background(), "d1", "f1", teacherClaims("t1"), "10.0.0.1", "test-agent")
	require.NoError(t, err)
	defer content.Close()

	data, err := io.ReadAll(content)
	require.NoError(t, err)
	assert.Equal(t, "pdf content", string(data))
	assert.Equal(t, "notes.pdf", file.Name)
	require.Len(t, repo.appended, 1)
	assert.Equal(t, models.AccessDownload, repo.appended[0].Action)
	assert.Equal(t, "10.0.0.1", repo.appended[0].IP)
}

func TestDistributionServiceDownloadFileViewOnlyDenied(t *testing.T) {
	d := ownedDist("d1", "ml1", models.PermissionMatrix{
		Teachers: models.TeacherPermissions{CanView: true},
	})
	d.Files = models.FileList{{FileID: "f1", Name: "notes.pdf", StorageRef: "d1/f1"}}
	repo := &stubDistRepo{items: map[string]*models.DocumentDistribution{"d1": d}}
	folders := &stubFolders{blobs: map[string][]byte{"d1/f1": []byte("pdf content")}}
	svc := newDistService(repo, folders, &stubAccessObserver{})

	_, _, err := svc.DownloadFile(context.Background(), "d1", "f1", teacherClaims("t1"), "", "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.appended)
}

func TestDistributionServiceDownloadFileUnknownFile(t *testing.T) {
	d := ownedDist("d1", "ml1", models.PermissionMatrix{})
	repo := &stubDistRepo{items: map[string]*models.DocumentDistribution{"d1": d}}
	svc := newDistService(repo, &stubFolders{}, &stubAccessObserver{})

	_, _, err := svc.DownloadFile(context.Background(), "d1", "missing", leaderClaims("ml1"), "", "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestDistributionServiceListByCourseFiltersVisibility(t *testing.T) {
	repo := &stubDistRepo{items: map[string]*models.DocumentDistribution{
		"d-open":   ownedDist("d-open", "ml1", models.PermissionMatrix{Teachers: models.TeacherPermissions{CanView: true}}),
		"d-closed": ownedDist("d-closed", "ml1", models.PermissionMatrix{}),
	}}
	svc := newDistService(repo, &stubFolders{}, &stubAccessObserver{})

	visible, err := svc.List(context.Background(), teacherClaims("t1"), "c1")
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, "d-open", visible[0].ID)
}
