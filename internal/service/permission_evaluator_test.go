package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/studisys/docshare-api/internal/models"
)

func dist(matrix models.PermissionMatrix) *models.DocumentDistribution {
	return &models.DocumentDistribution{
		ID:             "d1",
		ModuleLeaderID: "owner",
		Permissions:    matrix,
	}
}

func identity(id string, role models.UserRole) *models.JWTClaims {
	return &models.JWTClaims{UserID: id, Role: role}
}

func TestEvaluateAccessOwnerAlwaysAllowed(t *testing.T) {
	// Everything off, owner still reads.
	d := dist(models.PermissionMatrix{})
	assert.True(t, EvaluateAccess(d, identity("owner", models.RoleModuleLeader)))
}

func TestEvaluateAccessSharedWithAllowed(t *testing.T) {
	d := dist(models.PermissionMatrix{
		Teachers: models.TeacherPermissions{
			CanView:          true,
			SpecificTeachers: []string{"someone-else"},
			SharedWith:       []string{"t1"},
		},
	})
	// The exclusive allow-list would deny t1, but the additive share wins.
	assert.True(t, EvaluateAccess(d, identity("t1", models.RoleTeacher)))
}

func TestEvaluateAccessSpecificTeachersExclusive(t *testing.T) {
	d := dist(models.PermissionMatrix{
		Teachers: models.TeacherPermissions{
			CanView:          true,
			SpecificTeachers: []string{"t1"},
		},
	})
	assert.True(t, EvaluateAccess(d, identity("t1", models.RoleTeacher)))
	assert.False(t, EvaluateAccess(d, identity("t2", models.RoleTeacher)))
}

func TestEvaluateAccessTeacherBlanket(t *testing.T) {
	d := dist(models.PermissionMatrix{
		Teachers: models.TeacherPermissions{CanView: true},
	})
	assert.True(t, EvaluateAccess(d, identity("any-teacher", models.RoleTeacher)))
	assert.False(t, EvaluateAccess(d, identity("s1", models.RoleStudent)))
}

func TestEvaluateAccessStudent(t *testing.T) {
	d := dist(models.PermissionMatrix{
		Students: models.StudentPermissions{CanView: true},
	})
	assert.True(t, EvaluateAccess(d, identity("s1", models.RoleStudent)))
	assert.False(t, EvaluateAccess(d, identity("t1", models.RoleTeacher)))
}

func TestEvaluateAccessPublicFallback(t *testing.T) {
	d := dist(models.PermissionMatrix{
		Public: models.PublicPermissions{CanView: true},
	})
	assert.True(t, EvaluateAccess(d, identity("anyone", models.RoleStudent)))
	assert.True(t, EvaluateAccess(d, identity("t1", models.RoleTeacher)))
}

func TestEvaluateAccessDenyByDefault(t *testing.T) {
	d := dist(models.PermissionMatrix{})
	assert.False(t, EvaluateAccess(d, identity("t1", models.RoleTeacher)))
	assert.False(t, EvaluateAccess(d, nil))
	assert.False(t, EvaluateAccess(nil, identity("t1", models.RoleTeacher)))
}

func TestEvaluateDownloadOwnerAlwaysAllowed(t *testing.T) {
	d := dist(models.PermissionMatrix{})
	assert.True(t, EvaluateDownload(d, identity("owner", models.RoleModuleLeader)))
}

func TestEvaluateDownloadSharedFollowsTeacherFlag(t *testing.T) {
	viewOnly := dist(models.PermissionMatrix{
		Teachers: models.TeacherPermissions{CanView: true, SharedWith: []string{"t1"}},
	})
	// A share grants viewing; downloading still needs the role flag.
	assert.True(t, EvaluateAccess(viewOnly, identity("t1", models.RoleTeacher)))
	assert.False(t, EvaluateDownload(viewOnly, identity("t1", models.RoleTeacher)))

	downloadable := dist(models.PermissionMatrix{
		Teachers: models.TeacherPermissions{CanView: true, CanDownload: true, SharedWith: []string{"t1"}},
	})
	assert.True(t, EvaluateDownload(downloadable, identity("t1", models.RoleTeacher)))
}

func TestEvaluateDownloadSpecificTeachersExclusive(t *testing.T) {
	d := dist(models.PermissionMatrix{
		Teachers: models.TeacherPermissions{CanView: true, CanDownload: true, SpecificTeachers: []string{"t1"}},
	})
	assert.True(t, EvaluateDownload(d, identity("t1", models.RoleTeacher)))
	assert.False(t, EvaluateDownload(d, identity("t2", models.RoleTeacher)))
}

func TestEvaluateDownloadStudentAndPublicFlags(t *testing.T) {
	d := dist(models.PermissionMatrix{
		Students: models.StudentPermissions{CanView: true, CanDownload: true},
	})
	assert.True(t, EvaluateDownload(d, identity("s1", models.RoleStudent)))
	assert.False(t, EvaluateDownload(d, identity("t1", models.RoleTeacher)))

	public := dist(models.PermissionMatrix{
		Public: models.PublicPermissions{CanView: true, CanDownload: true},
	})
	assert.True(t, EvaluateDownload(public, identity("anyone", models.RoleStudent)))
}

func TestEvaluateDownloadDenyByDefault(t *testing.T) {
	d := dist(models.PermissionMatrix{
		Teachers: models.TeacherPermissions{CanView: true},
	})
	assert.False(t, EvaluateDownload(d, identity("t1", models.RoleTeacher)))
	assert.False(t, EvaluateDownload(d, nil))
	assert.False(t, EvaluateDownload(nil, identity("t1", models.RoleTeacher)))
}
