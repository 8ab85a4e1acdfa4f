package repository

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studisys/docshare-api/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

func TestAccessRequestCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAccessRequestRepository(db)

	mock.ExpectExec("INSERT INTO access_requests").WillReturnResult(sqlmock.NewResult(0, 1))

	req := &models.AccessRequest{
		CourseID:       "c1",
		TeacherID:      "t1",
		ModuleLeaderID: "ml1",
		Batch:          30,
		Semester:       "FALL",
		Section:        "A",
		Message:        "please grant me access",
	}
	err := repo.Create(context.Background(), req)
	require.NoError(t, err)
	assert.NotEmpty(t, req.ID)
	assert.Equal(t, models.AccessRequestPending, req.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccessRequestCreateDuplicatePending(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAccessRequestRepository(db)

	mock.ExpectExec("INSERT INTO access_requests").
		WillReturnError(&pq.Error{Code: pqUniqueViolation})

	err := repo.Create(context.Background(), &models.AccessRequest{
		CourseID:  "c1",
		TeacherID: "t1",
	})
	assert.ErrorIs(t, err, ErrDuplicatePending)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccessRequestRespond(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAccessRequestRepository(db)

	mock.ExpectExec("UPDATE access_requests").
		WithArgs("req1", string(models.AccessRequestRejected), sqlmock.AnyArg(), nil, "ml1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Respond(context.Background(), "req1", models.AccessRequestRejected, "ml1", nil)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccessRequestRespondNotPending(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAccessRequestRepository(db)

	mock.ExpectExec("UPDATE access_requests").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Respond(context.Background(), "req1", models.AccessRequestApproved, "ml1", nil)
	assert.ErrorIs(t, err, ErrNotPending)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccessRequestExistsPending(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAccessRequestRepository(db)

	mock.ExpectQuery("SELECT 1 FROM access_requests").
		WithArgs("c1", "t1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.ExistsPending(context.Background(), "c1", "t1")
	require.NoError(t, err)
	assert.True(t, exists)

	mock.ExpectQuery("SELECT 1 FROM access_requests").
		WithArgs("c1", "t2").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	exists, err = repo.ExistsPending(context.Background(), "c1", "t2")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}
