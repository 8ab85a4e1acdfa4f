package repository

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssignmentAddTeacher(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectExec("UPDATE module_leader_assignments").
		WithArgs("c1", 2026, "FALL", "t1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.AddTeacher(context.Background(), nil, "c1", 2026, "FALL", "t1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentAddTeacherNoActiveAssignment(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	// No active assignment matches; the guarded append is a silent no-op.
	mock.ExpectExec("UPDATE module_leader_assignments").
		WithArgs("c1", 2026, "FALL", "t1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.AddTeacher(context.Background(), nil, "c1", 2026, "FALL", "t1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
