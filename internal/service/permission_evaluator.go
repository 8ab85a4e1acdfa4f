package service

import "github.com/studisys/docshare-api/internal/models"

// EvaluateAccess decides whether the identity may read the distribution.
// Precedence is load-bearing and evaluated first match wins:
//
//  1. the owning module leader is always allowed, whatever the matrix says;
//  2. teachers the distribution was explicitly shared with are allowed;
//  3. the teacher role permission applies, where a non-empty specific_teachers
//     allow-list is exclusive rather than additive;
//  4. the student role permission applies (batch/section narrowing is a
//     persisted extension point, not enforced here);
//  5. the public permission applies;
//  6. otherwise deny.
func EvaluateAccess(dist *models.DocumentDistribution, identity *models.JWTClaims) bool {
	if dist == nil || identity == nil {
		return false
	}

	if identity.UserID == dist.ModuleLeaderID {
		return true
	}

	perms := dist.Permissions

	if identity.Role == models.RoleTeacher || identity.Role == models.RoleModuleLeader {
		if containsString(perms.Teachers.SharedWith, identity.UserID) {
			return true
		}
		if perms.Teachers.CanView {
			if len(perms.Teachers.SpecificTeachers) > 0 {
				return containsString(perms.Teachers.SpecificTeachers, identity.UserID)
			}
			return true
		}
	}

	if identity.Role == models.RoleStudent && perms.Students.CanView {
		return true
	}

	return perms.Public.CanView
}

// EvaluateDownload decides whether the identity may download file content.
// Precedence mirrors EvaluateAccess with the download flags: the owner always
// may, teachers on the shared_with list follow the teacher download flag, a
// non-empty specific_teachers allow-list stays exclusive, then the student
// and public flags apply.
func EvaluateDownload(dist *models.DocumentDistribution, identity *models.JWTClaims) bool {
	if dist == nil || identity == nil {
		return false
	}

	if identity.UserID == dist.ModuleLeaderID {
		return true
	}

	perms := dist.Permissions

	if identity.Role == models.RoleTeacher || identity.Role == models.RoleModuleLeader {
		if containsString(perms.Teachers.SharedWith, identity.UserID) {
			return perms.Teachers.CanDownload
		}
		if perms.Teachers.CanDownload {
			if len(perms.Teachers.SpecificTeachers) > 0 {
				return containsString(perms.Teachers.SpecificTeachers, identity.UserID)
			}
			return true
		}
	}

	if identity.Role == models.RoleStudent && perms.Students.CanDownload {
		return true
	}

	return perms.Public.CanDownload
}

func containsString(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
