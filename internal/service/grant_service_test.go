package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studisys/docshare-api/internal/models"
	appErrors "github.com/studisys/docshare-api/pkg/errors"
)

type stubGrantReader struct {
	courses []models.AccessibleCourse
	calls   int
}

func (m *stubGrantReader) ListAccessibleCourses(ctx context.Context, teacherID string) ([]models.AccessibleCourse, error) {
	m.calls++
	return m.courses, nil
}

type stubCache struct {
	values  map[string][]byte
	deleted []string
}

func (m *stubCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *stubCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if m.values == nil {
		m.values = make(map[string][]byte)
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.values[key] = raw
	return nil
}

func (m *stubCache) Delete(ctx context.Context, key string) error {
	delete(m.values, key)
	m.deleted = append(m.deleted, key)
	return nil
}

func TestGrantServiceListCachesResult(t *testing.T) {
	reader := &stubGrantReader{courses: []models.AccessibleCourse{
		{GrantID: "g1", CourseID: "c1", CourseCode: "CS101"},
	}}
	cache := &stubCache{}
	svc := NewGrantService(reader, cache, time.Minute, nil)

	courses, err := svc.ListAccessibleCourses(context.Background(), "t1")
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, 1, reader.calls)

	// Second call is served from cache.
	courses, err = svc.ListAccessibleCourses(context.Background(), "t1")
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, "CS101", courses[0].CourseCode)
	assert.Equal(t, 1, reader.calls)
}

func TestGrantServiceInvalidateTeacher(t *testing.T) {
	reader := &stubGrantReader{}
	cache := &stubCache{}
	svc := NewGrantService(reader, cache, time.Minute, nil)

	_, err := svc.ListAccessibleCourses(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, 1, reader.calls)

	svc.InvalidateTeacher(context.Background(), "t1")
	assert.Equal(t, []string{"grants:accessible:t1"}, cache.deleted)

	_, err = svc.ListAccessibleCourses(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, 2, reader.calls)
}
