package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"nextrole_backend/internal/model"
	"nextrole_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func searchServer(t *testing.T, results map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		videoID, ok := results[q]
		if !ok {
			json.NewEncoder(w).Encode(map[string]interface{}{"items": []interface{}{}})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"items": []map[string]interface{}{
				{
					"id": map[string]string{"videoId": videoID},
					"snippet": map[string]interface{}{
						"title":        "Video for " + q,
						"channelTitle": "TestChannel",
						"thumbnails":   map[string]interface{}{"high": map[string]string{"url": "http://img/" + videoID}},
					},
				},
			},
		})
	}))
}

func TestSearchReturnsPlaceholderWithoutAPIKey(t *testing.T) {
	svc := NewVideoService("", "http://unused", nil, nil)
	result := svc.Search(context.Background(), "go tutorial", "")
	assert.Equal(t, "dQw4w9WgXcQ", result.VideoID)
	assert.Equal(t, "Tutorial: go tutorial", result.Title)
	assert.Equal(t, "NextRole Navigator", result.ChannelTitle)
	assert.NotEmpty(t, result.Thumbnail)
}

func TestSearchPrimaryHit(t *testing.T) {
	srv := searchServer(t, map[string]string{"go concurrency": "abc123"})
	defer srv.Close()

	svc := NewVideoService("key", srv.URL, nil, nil)
	result := svc.Search(context.Background(), "go concurrency", "fallback query")
	assert.Equal(t, "abc123", result.VideoID)
	assert.Equal(t, "https://www.youtube.com/watch?v=abc123", result.URL)
	assert.Equal(t, "TestChannel", result.ChannelTitle)
}

func TestSearchFallsBackToSecondaryQuery(t *testing.T) {
	srv := searchServer(t, map[string]string{"Go Mastery tutorial": "xyz789"})
	defer srv.Close()

	svc := NewVideoService("key", srv.URL, nil, nil)
	result := svc.Search(context.Background(), "nonexistent query", "Go Mastery tutorial")
	assert.Equal(t, "xyz789", result.VideoID)
}

func TestSearchAllMissesReturnPlaceholder(t *testing.T) {
	srv := searchServer(t, nil)
	defer srv.Close()

	svc := NewVideoService("key", srv.URL, nil, nil)
	result := svc.Search(context.Background(), "nothing", "also nothing")
	assert.Equal(t, "dQw4w9WgXcQ", result.VideoID)
	// 占位标题描述的是主查询而非备用查询
	assert.Equal(t, "Tutorial: nothing", result.Title)
}

func TestSearchServerErrorReturnsPlaceholder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	svc := NewVideoService("key", srv.URL, nil, nil)
	result := svc.Search(context.Background(), "anything", "")
	assert.Equal(t, "dQw4w9WgXcQ", result.VideoID)
}

func TestResolveSubModuleVideoStoredURLShortCircuits(t *testing.T) {
	store := newFakeCourseStore()
	course := &model.Course{
		Title: "Go Mastery",
		Modules: model.CourseModules{
			{
				ModuleTitle: "Basics",
				SubModules:  []model.SubModule{{SubTitle: "S1", VideoURL: "https://www.youtube.com/watch?v=kept"}},
			},
		},
	}
	require.NoError(t, store.Create(course))

	svc := NewVideoService("", "http://unused", nil, store)
	result, err := svc.ResolveSubModuleVideo(context.Background(), course.ID, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "https://www.youtube.com/watch?v=kept", result.URL)
	assert.Zero(t, store.updates)
}

func TestResolveSubModuleVideoSearchesAndPersists(t *testing.T) {
	srv := searchServer(t, map[string]string{"go channels deep dive": "chan42"})
	defer srv.Close()

	store := newFakeCourseStore()
	course := &model.Course{
		Title: "Go Mastery",
		Modules: model.CourseModules{
			{
				ModuleTitle: "Basics",
				SubModules:  []model.SubModule{{SubTitle: "Channels", YoutubeQuery: "go channels deep dive"}},
			},
		},
	}
	require.NoError(t, store.Create(course))

	svc := NewVideoService("key", srv.URL, nil, store)
	result, err := svc.ResolveSubModuleVideo(context.Background(), course.ID, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "https://www.youtube.com/watch?v=chan42", result.URL)
	assert.Equal(t, 1, store.updates)

	stored, err := store.FindByID(course.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://www.youtube.com/watch?v=chan42", stored.Modules[0].SubModules[0].VideoURL)
}

func TestResolveSubModuleVideoErrors(t *testing.T) {
	store := newFakeCourseStore()
	course := &model.Course{Title: "T", Modules: model.CourseModules{{ModuleTitle: "Basics", SubModules: []model.SubModule{{SubTitle: "Section 1: S"}}}}}
	require.NoError(t, store.Create(course))

	svc := NewVideoService("", "http://unused", nil, store)

	_, err := svc.ResolveSubModuleVideo(context.Background(), 999, 0, 0)
	assert.ErrorIs(t, err, util.ErrCourseNotFound)

	_, err = svc.ResolveSubModuleVideo(context.Background(), course.ID, 3, 0)
	assert.Error(t, err)

	_, err = svc.ResolveSubModuleVideo(context.Background(), course.ID, 0, 3)
	assert.Error(t, err)
}
