package repository

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studisys/docshare-api/internal/models"
)

func TestDistributionShareWithTeacher(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDistributionRepository(db)

	mock.ExpectExec("UPDATE distributions").
		WithArgs("d1", "t1", sqlmock.AnyArg(), "ml1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	shared, err := repo.ShareWithTeacher(context.Background(), "d1", "t1", "ml1", "Leader")
	require.NoError(t, err)
	assert.True(t, shared)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDistributionShareWithTeacherAlreadyShared(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDistributionRepository(db)

	// The guard filters the row out, so sharing twice affects nothing.
	mock.ExpectExec("UPDATE distributions").
		WithArgs("d1", "t1", sqlmock.AnyArg(), "ml1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	shared, err := repo.ShareWithTeacher(context.Background(), "d1", "t1", "ml1", "Leader")
	require.NoError(t, err)
	assert.False(t, shared)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDistributionUpdateStatusAppliesLockedTransition(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDistributionRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM distributions").
		WithArgs("d1", "ml1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("PENDING"))
	mock.ExpectQuery("UPDATE distributions").
		WillReturnRows(sqlmock.NewRows([]string{"id", "status"}).AddRow("d1", "DISTRIBUTED"))
	mock.ExpectCommit()

	dist, err := repo.UpdateStatus(context.Background(), "d1", "ml1", "Leader", models.DistributionDistributed, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, models.DistributionDistributed, dist.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDistributionUpdateStatusLostRace(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDistributionRepository(db)

	// A concurrent call already moved the row to DISTRIBUTED; the locked
	// status makes this transition invalid and nothing is restamped.
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM distributions").
		WithArgs("d1", "ml1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("DISTRIBUTED"))
	mock.ExpectRollback()

	_, err := repo.UpdateStatus(context.Background(), "d1", "ml1", "Leader", models.DistributionDistributed, nil, nil)
	require.ErrorIs(t, err, ErrInvalidStatusTransition)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// matrixWithShares matches a permissions argument whose teacher shared_with
// list contains every listed teacher.
type matrixWithShares []string

func (m matrixWithShares) Match(v driver.Value) bool {
	var raw []byte
	switch s := v.(type) {
	case []byte:
		raw = s
	case string:
		raw = []byte(s)
	default:
		return false
	}
	var matrix models.PermissionMatrix
	if err := json.Unmarshal(raw, &matrix); err != nil {
		return false
	}
	for _, want := range m {
		found := false
		for _, got := range matrix.Teachers.SharedWith {
			if got == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func TestDistributionUpdatePermissionsKeepsLockedShares(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDistributionRepository(db)

	// The locked row carries a share ("t2") added after the caller's read.
	// The replacement must carry it forward.
	locked := []byte(`{"teachers":{"can_view":true,"shared_with":["t1","t2"]},"students":{},"public":{}}`)
	merged := []byte(`{"teachers":{"can_view":true,"specific_teachers":["t9"],"shared_with":["t1","t2"]},"students":{},"public":{}}`)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT permissions FROM distributions").
		WithArgs("d1", "ml1").
		WillReturnRows(sqlmock.NewRows([]string{"permissions"}).AddRow(locked))
	mock.ExpectQuery("UPDATE distributions").
		WithArgs("d1", matrixWithShares{"t1", "t2"}, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "permissions"}).AddRow("d1", merged))
	mock.ExpectCommit()

	dist, err := repo.UpdatePermissions(context.Background(), "d1", "ml1", "Leader", models.PermissionMatrix{
		Teachers: models.TeacherPermissions{CanView: true, SpecificTeachers: []string{"t9"}, SharedWith: []string{"t1"}},
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"t1", "t2"}, dist.Permissions.Teachers.SharedWith)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDistributionAppendAccess(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDistributionRepository(db)

	mock.ExpectExec("UPDATE distributions").
		WithArgs("d1", "view", "t1", sqlmock.AnyArg(), 1000).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.AppendAccess(context.Background(), "d1", models.AccessLogEntry{
		UserID:    "t1",
		Action:    models.AccessView,
		Timestamp: time.Now().UTC(),
	}, 1000)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDistributionAppendAccessNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDistributionRepository(db)

	mock.ExpectExec("UPDATE distributions").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.AppendAccess(context.Background(), "missing", models.AccessLogEntry{
		UserID: "t1",
		Action: models.AccessDownload,
	}, 1000)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
