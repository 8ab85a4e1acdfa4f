package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/studisys/docshare-api/internal/models"
	appErrors "github.com/studisys/docshare-api/pkg/errors"
)

type grantReader interface {
	ListAccessibleCourses(ctx context.Context, teacherID string) ([]models.AccessibleCourse, error)
}

type grantCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// GrantService serves the read side of course access grants.
type GrantService struct {
	grants   grantReader
	cache    grantCache
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewGrantService creates a service instance.
func NewGrantService(grants grantReader, cache grantCache, cacheTTL time.Duration, logger *zap.Logger) *GrantService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &GrantService{grants: grants, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

func accessibleCoursesKey(teacherID string) string {
	return fmt.Sprintf("grants:accessible:%s", teacherID)
}

// ListAccessibleCourses returns the ongoing courses the teacher has been
// granted access to, serving from cache when possible.
func (s *GrantService) ListAccessibleCourses(ctx context.Context, teacherID string) ([]models.AccessibleCourse, error) {
	key := accessibleCoursesKey(teacherID)
	if s.cache != nil {
		var cached []models.AccessibleCourse
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("accessible courses cache read failed", zap.Error(err))
		}
	}

	courses, err := s.grants.ListAccessibleCourses(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list accessible courses")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, courses, s.cacheTTL); err != nil {
			s.logger.Warn("accessible courses cache write failed", zap.Error(err))
		}
	}
	return courses, nil
}

// InvalidateTeacher drops the cached course list after a new approval.
func (s *GrantService) InvalidateTeacher(ctx context.Context, teacherID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, accessibleCoursesKey(teacherID)); err != nil {
		s.logger.Warn("accessible courses cache invalidation failed", zap.Error(err))
	}
}
