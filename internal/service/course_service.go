package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/studisys/docshare-api/internal/models"
	appErrors "github.com/studisys/docshare-api/pkg/errors"
)

type courseCatalog interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	List(ctx context.Context) ([]models.Course, error)
}

// CourseService serves the course catalog read side.
type CourseService struct {
	courses courseCatalog
}

// NewCourseService creates a service instance.
func NewCourseService(courses courseCatalog) *CourseService {
	return &CourseService{courses: courses}
}

// Get returns one course.
func (s *CourseService) Get(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

// List returns the full catalog.
func (s *CourseService) List(ctx context.Context) ([]models.Course, error) {
	courses, err := s.courses.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	return courses, nil
}
