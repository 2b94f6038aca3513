package service

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"nextrole_backend/internal/config"
	"nextrole_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArchiveCourseWritesSnapshot(t *testing.T) {
	dir := t.TempDir()
	svc := &ArchiveService{Provider: &LocalArchiveProvider{
		Config: &config.StorageConfig{LocalPath: dir},
	}}

	course := &model.Course{
		Title:  "Go Mastery",
		Status: model.CourseCompleted,
		Modules: model.CourseModules{
			{ModuleTitle: "Getting Started", IsCompleted: true},
		},
	}
	course.ID = 42

	object, err := svc.ArchiveCourse(context.Background(), course)
	require.NoError(t, err)
	assert.Contains(t, object, "archives/courses/42_")

	data, err := os.ReadFile(filepath.Join(dir, object))
	require.NoError(t, err)

	var restored model.Course
	require.NoError(t, json.Unmarshal(data, &restored))
	assert.Equal(t, "Go Mastery", restored.Title)
	require.Len(t, restored.Modules, 1)
	assert.True(t, restored.Modules[0].IsCompleted)
}

func TestArchiveServiceFallsBackToLocal(t *testing.T) {
	cfg := &config.Config{}
	cfg.Storage.Type = "local"
	cfg.Storage.LocalPath = t.TempDir()

	svc := NewArchiveService(cfg)
	_, ok := svc.Provider.(*LocalArchiveProvider)
	assert.True(t, ok)
}
