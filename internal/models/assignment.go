package models

import (
	"time"

	"github.com/lib/pq"
)

// ModuleLeaderAssignment records which module leader runs a course offering
// and which teachers currently teach under it. At most one active assignment
// exists per (course, batch); the teacher set grows idempotently as access
// requests are approved.
type ModuleLeaderAssignment struct {
	ID               string         `db:"id" json:"id"`
	CourseID         string         `db:"course_id" json:"course_id"`
	ModuleLeaderID   string         `db:"module_leader_id" json:"module_leader_id"`
	AcademicYear     int            `db:"academic_year" json:"academic_year"`
	Semester         string         `db:"semester" json:"semester"`
	Batch            int            `db:"batch" json:"batch"`
	IsActive         bool           `db:"is_active" json:"is_active"`
	AssignedTeachers pq.StringArray `db:"assigned_teachers" json:"assigned_teachers"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updated_at"`
}
