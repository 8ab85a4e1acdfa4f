package models

import "time"

// AccessRequestStatus enumerates the request lifecycle states.
type AccessRequestStatus string

const (
	AccessRequestPending  AccessRequestStatus = "PENDING"
	AccessRequestApproved AccessRequestStatus = "APPROVED"
	AccessRequestRejected AccessRequestStatus = "REJECTED"
)

// AccessRequest is a teacher's request for access to a course, answered by
// the course's module leader. A request is mutated exactly once: the
// transition out of PENDING is terminal.
type AccessRequest struct {
	ID              string              `db:"id" json:"id"`
	CourseID        string              `db:"course_id" json:"course_id"`
	TeacherID       string              `db:"teacher_id" json:"teacher_id"`
	ModuleLeaderID  string              `db:"module_leader_id" json:"module_leader_id"`
	Batch           int                 `db:"batch" json:"batch"`
	Semester        string              `db:"semester" json:"semester"`
	Section         string              `db:"section" json:"section"`
	Message         string              `db:"message" json:"message"`
	Status          AccessRequestStatus `db:"status" json:"status"`
	RequestDate     time.Time           `db:"request_date" json:"request_date"`
	ResponseDate    *time.Time          `db:"response_date" json:"response_date,omitempty"`
	ResponseMessage *string             `db:"response_message" json:"response_message,omitempty"`
	RespondedBy     *string             `db:"responded_by" json:"responded_by,omitempty"`
	CreatedAt       time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time           `db:"updated_at" json:"updated_at"`
}

// AccessRequestDetail enriches a request with read-time joined names.
type AccessRequestDetail struct {
	AccessRequest
	CourseCode  string  `db:"course_code" json:"course_code"`
	CourseName  string  `db:"course_name" json:"course_name"`
	TeacherName *string `db:"teacher_name" json:"teacher_name,omitempty"`
}

// AccessRequestDecision is the module leader's answer to a request.
type AccessRequestDecision string

const (
	DecisionApproved AccessRequestDecision = "approved"
	DecisionRejected AccessRequestDecision = "rejected"
)
