package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"nextrole_backend/internal/util"
	"nextrole_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 检索不可用时的兜底视频，保证前端总有内容可渲染
const (
	placeholderVideoID = "dQw4w9WgXcQ"
	placeholderChannel = "NextRole Navigator"

	videoCacheTTL = 24 * time.Hour
)

// VideoResult 视频检索结果
type VideoResult struct {
	VideoID      string `json:"videoId"`
	Title        string `json:"title"`
	Thumbnail    string `json:"thumbnail"`
	ChannelTitle string `json:"channelTitle"`
	URL          string `json:"url"`
}

// VideoService YouTube 视频检索，带 redis 结果缓存。
// 检索从不向调用方返回错误，任何失败都降级为占位视频。
type VideoService struct {
	apiKey  string
	baseURL string
	httpCli *http.Client
	rdb     *redis.Client
	courses CourseStore
}

func NewVideoService(apiKey, baseURL string, rdb *redis.Client, courses CourseStore) *VideoService {
	return &VideoService{
		apiKey:  apiKey,
		baseURL: baseURL,
		httpCli: &http.Client{Timeout: 10 * time.Second},
		rdb:     rdb,
		courses: courses,
	}
}

// placeholderResult 占位视频仍然带上查询词，前端能看出原始意图
func placeholderResult(query string) *VideoResult {
	return &VideoResult{
		VideoID:      placeholderVideoID,
		Title:        "Tutorial: " + query,
		Thumbnail:    "https://img.youtube.com/vi/" + placeholderVideoID + "/0.jpg",
		ChannelTitle: placeholderChannel,
		URL:          "https://www.youtube.com/watch?v=" + placeholderVideoID,
	}
}

// Search 依次尝试主查询与备用查询，都失败时返回占位视频
func (s *VideoService) Search(ctx context.Context, primary, fallback string) *VideoResult {
	if s.apiKey == "" {
		return placeholderResult(primary)
	}
	if result := s.searchOne(ctx, primary); result != nil {
		return result
	}
	if fallback != "" && fallback != primary {
		if result := s.searchOne(ctx, fallback); result != nil {
			return result
		}
	}
	return placeholderResult(primary)
}

func (s *VideoService) searchOne(ctx context.Context, query string) *VideoResult {
	if query == "" {
		return nil
	}

	cacheKey := "video:query:" + query
	if s.rdb != nil {
		if cached, err := s.rdb.Get(ctx, cacheKey).Result(); err == nil {
			var result VideoResult
			if json.Unmarshal([]byte(cached), &result) == nil {
				return &result
			}
		}
	}

	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("q", query)
	params.Set("type", "video")
	params.Set("maxResults", "1")
	params.Set("key", s.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil
	}
	resp, err := s.httpCli.Do(req)
	if err != nil {
		logger.Log.Warn("video search request failed", zap.String("query", query), zap.Error(err))
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		logger.Log.Warn("video search returned non-200",
			zap.String("query", query), zap.Int("status", resp.StatusCode))
		return nil
	}

	var body struct {
		Items []struct {
			ID struct {
				VideoID string `json:"videoId"`
			} `json:"id"`
			Snippet struct {
				Title        string `json:"title"`
				ChannelTitle string `json:"channelTitle"`
				Thumbnails   struct {
					High struct {
						URL string `json:"url"`
					} `json:"high"`
				} `json:"thumbnails"`
			} `json:"snippet"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || len(body.Items) == 0 {
		return nil
	}

	item := body.Items[0]
	result := &VideoResult{
		VideoID:      item.ID.VideoID,
		Title:        item.Snippet.Title,
		Thumbnail:    item.Snippet.Thumbnails.High.URL,
		ChannelTitle: item.Snippet.ChannelTitle,
		URL:          "https://www.youtube.com/watch?v=" + item.ID.VideoID,
	}

	if s.rdb != nil {
		if data, err := json.Marshal(result); err == nil {
			if err := s.rdb.Set(ctx, cacheKey, data, videoCacheTTL).Err(); err != nil {
				logger.Log.Warn("failed to cache video result", zap.Error(err))
			}
		}
	}
	return result
}

// ResolveSubModuleVideo 懒加载小节视频：已有链接直接返回，
// 否则检索并回写课程记录。回写失败只记日志，视频仍然返回。
func (s *VideoService) ResolveSubModuleVideo(ctx context.Context, courseID uint, moduleIndex, subIndex int) (*VideoResult, error) {
	course, err := s.courses.FindByID(courseID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, util.ErrCourseNotFound
		}
		return nil, err
	}
	if moduleIndex >= len(course.Modules) {
		return nil, fmt.Errorf("module index %d out of range", moduleIndex)
	}
	mod := &course.Modules[moduleIndex]
	if subIndex >= len(mod.SubModules) {
		return nil, fmt.Errorf("sub-module index %d out of range", subIndex)
	}
	sub := &mod.SubModules[subIndex]

	if sub.VideoURL != "" {
		return &VideoResult{URL: sub.VideoURL, Title: sub.SubTitle}, nil
	}

	result := s.Search(ctx, sub.YoutubeQuery, course.Title+" tutorial")
	sub.VideoURL = result.URL
	if err := s.courses.Update(course); err != nil {
		logger.Log.Warn("failed to persist resolved video URL",
			zap.Uint("courseId", courseID), zap.Error(err))
	}
	return result, nil
}
