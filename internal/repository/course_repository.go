package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/studisys/docshare-api/internal/models"
)

// CourseRepository reads the course catalog. The catalog write side is
// managed by another part of the platform.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// FindByID returns the course with the given ID.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	const query = `SELECT * FROM courses WHERE id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// List returns the full catalog ordered by code.
func (r *CourseRepository) List(ctx context.Context) ([]models.Course, error) {
	const query = `SELECT * FROM courses ORDER BY code ASC`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}
