package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"nextrole_backend/internal/config"
	"nextrole_backend/internal/model"
	"nextrole_backend/pkg/logger"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// ArchiveProvider 归档存储接口
type ArchiveProvider interface {
	Put(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error
}

// LocalArchiveProvider 本地目录归档
type LocalArchiveProvider struct {
	Config *config.StorageConfig
}

func (p *LocalArchiveProvider) Put(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error {
	dst := filepath.Join(p.Config.LocalPath, objectName)
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, reader)
	return err
}

// MinioArchiveProvider MinIO 对象存储归档
type MinioArchiveProvider struct {
	Config *config.StorageConfig
	Client *minio.Client
}

func NewMinioArchiveProvider(cfg *config.StorageConfig) (*MinioArchiveProvider, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessID, cfg.MinioSecret, ""),
		Secure: false,
	})
	if err != nil {
		return nil, err
	}
	return &MinioArchiveProvider{Config: cfg, Client: client}, nil
}

func (p *MinioArchiveProvider) Put(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error {
	_, err := p.Client.PutObject(ctx, p.Config.MinioBucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

// ArchiveService 课程删除前的快照归档
type ArchiveService struct {
	Provider ArchiveProvider
}

func NewArchiveService(cfg *config.Config) *ArchiveService {
	var provider ArchiveProvider
	if cfg.Storage.Type == "minio" {
		p, err := NewMinioArchiveProvider(&cfg.Storage)
		if err == nil {
			provider = p
		} else {
			logger.Log.Warn("minio archive unavailable, falling back to local", zap.Error(err))
		}
	}
	if provider == nil {
		provider = &LocalArchiveProvider{Config: &cfg.Storage}
	}
	return &ArchiveService{Provider: provider}
}

// ArchiveCourse 把课程完整 JSON 快照写入归档存储。
// 对象名含课程 ID、时间戳与随机后缀，不会互相覆盖。
func (s *ArchiveService) ArchiveCourse(ctx context.Context, course *model.Course) (string, error) {
	data, err := json.MarshalIndent(course, "", "  ")
	if err != nil {
		return "", err
	}
	objectName := fmt.Sprintf("archives/courses/%d_%s_%s.json",
		course.ID,
		time.Now().UTC().Format("20060102T150405"),
		uuid.New().String()[:8],
	)
	if err := s.Provider.Put(ctx, objectName, bytes.NewReader(data), int64(len(data)), "application/json"); err != nil {
		return "", err
	}
	logger.Log.Info("course archived",
		zap.Uint("courseId", course.ID),
		zap.String("object", objectName),
	)
	return objectName, nil
}
