package models

import (
	"time"

	"github.com/lib/pq"
)

// GrantStatus enumerates the lifecycle of a course access grant.
type GrantStatus string

const (
	GrantOngoing   GrantStatus = "ONGOING"
	GrantCompleted GrantStatus = "COMPLETED"
)

// CourseAccessGrant authorizes a set of teachers to operate within a course
// offering. Identity key is (course, semester, year, batch); the teacher and
// section sets only grow, via approval events, and never hold duplicates.
type CourseAccessGrant struct {
	ID             string         `db:"id" json:"id"`
	CourseID       string         `db:"course_id" json:"course_id"`
	Semester       string         `db:"semester" json:"semester"`
	Year           int            `db:"year" json:"year"`
	Batch          int            `db:"batch" json:"batch"`
	Teachers       pq.StringArray `db:"teachers" json:"teachers"`
	Sections       pq.StringArray `db:"sections" json:"sections"`
	ModuleLeaderID string         `db:"module_leader_id" json:"module_leader_id"`
	Status         GrantStatus    `db:"status" json:"status"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// AccessibleCourse is a grant joined with course metadata for listing the
// courses a teacher may operate in.
type AccessibleCourse struct {
	GrantID    string    `db:"grant_id" json:"grant_id"`
	CourseID   string    `db:"course_id" json:"course_id"`
	CourseCode string    `db:"course_code" json:"course_code"`
	CourseName string    `db:"course_name" json:"course_name"`
	Department string    `db:"department" json:"department"`
	Semester   string    `db:"semester" json:"semester"`
	Year       int       `db:"year" json:"year"`
	Batch      int       `db:"batch" json:"batch"`
	GrantedAt  time.Time `db:"granted_at" json:"granted_at"`
}
