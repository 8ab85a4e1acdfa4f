package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/studisys/docshare-api/internal/models"
)

// GrantRepository persists course access grants keyed by
// (course, semester, year, batch).
type GrantRepository struct {
	db *sqlx.DB
}

// NewGrantRepository constructs the repository.
func NewGrantRepository(db *sqlx.DB) *GrantRepository {
	return &GrantRepository{db: db}
}

func (r *GrantRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Upsert creates the grant for the key or merges the teacher and section
// into the existing record. The merge is a single statement using in-store
// set-union semantics, so concurrent approvals for the same key cannot lose
// updates or insert duplicates.
func (r *GrantRepository) Upsert(ctx context.Context, exec sqlx.ExtContext, courseID, semester string, year, batch int, teacherID, section, moduleLeaderID string) error {
	const query = `
INSERT INTO course_access_grants
	(id, course_id, semester, year, batch, teachers, sections, module_leader_id, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, ARRAY[$6]::text[], ARRAY[$7]::text[], $8, 'ONGOING', now(), now())
ON CONFLICT (course_id, semester, year, batch) DO UPDATE SET
	teachers = CASE WHEN $6 = ANY(course_access_grants.teachers)
		THEN course_access_grants.teachers
		ELSE array_append(course_access_grants.teachers, $6) END,
	sections = CASE WHEN $7 = ANY(course_access_grants.sections)
		THEN course_access_grants.sections
		ELSE array_append(course_access_grants.sections, $7) END,
	updated_at = now()`
	if _, err := r.exec(exec).ExecContext(ctx, query, uuid.NewString(), courseID, semester, year, batch, teacherID, section, moduleLeaderID); err != nil {
		return fmt.Errorf("upsert course access grant: %w", err)
	}
	return nil
}

// FindByKey loads a grant by its composite identity key.
func (r *GrantRepository) FindByKey(ctx context.Context, courseID, semester string, year, batch int) (*models.CourseAccessGrant, error) {
	const query = `SELECT * FROM course_access_grants WHERE course_id = $1 AND semester = $2 AND year = $3 AND batch = $4`
	var grant models.CourseAccessGrant
	if err := r.db.GetContext(ctx, &grant, query, courseID, semester, year, batch); err != nil {
		return nil, err
	}
	return &grant, nil
}

// ListAccessibleCourses returns the ongoing grants containing the teacher,
// joined with course metadata at read time.
func (r *GrantRepository) ListAccessibleCourses(ctx context.Context, teacherID string) ([]models.AccessibleCourse, error) {
	const query = `
SELECT g.id AS grant_id, g.course_id, c.code AS course_code, c.name AS course_name,
       c.department, g.semester, g.year, g.batch, g.updated_at AS granted_at
FROM course_access_grants g
JOIN courses c ON c.id = g.course_id
WHERE $1 = ANY(g.teachers) AND g.status = 'ONGOING'
ORDER BY g.year DESC, c.code ASC`
	var courses []models.AccessibleCourse
	if err := r.db.SelectContext(ctx, &courses, query, teacherID); err != nil {
		return nil, fmt.Errorf("list accessible courses: %w", err)
	}
	return courses, nil
}
