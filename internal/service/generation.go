package service

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"nextrole_backend/internal/util"
	"nextrole_backend/pkg/logger"
	"nextrole_backend/pkg/monitoring"

	"go.uber.org/zap"
)

// GenerationClient 带重试的生成客户端，是系统里唯一的重试边界。
// 下游各生成器把失败当作终态向上传播，不再各自重试。
type GenerationClient struct {
	generator   TextGenerator
	maxAttempts atomic.Int32
	sleep       func(ctx context.Context, d time.Duration) error
}

func NewGenerationClient(generator TextGenerator, maxAttempts int) *GenerationClient {
	c := &GenerationClient{
		generator: generator,
		sleep:     sleepContext,
	}
	c.SetMaxAttempts(maxAttempts)
	return c
}

// SetMaxAttempts 运行时调整重试上限，非法值回落到 2。配置热加载会调用。
func (c *GenerationClient) SetMaxAttempts(n int) {
	if n <= 0 {
		n = 2
	}
	c.maxAttempts.Store(int32(n))
}

// GenerateJSON 调用远端生成并把结果恢复为 out 指向的结构。
// 每次尝试：生成 -> ExtractJSON -> Unmarshal，任一步失败则进入下一次尝试；
// 配额类错误按 10s×(attempt+1) 退避，其余错误记录后立即重试。
// kind 仅用于日志与指标标签。
func (c *GenerationClient) GenerateJSON(ctx context.Context, kind string, prompt string, out interface{}) error {
	start := time.Now()
	defer func() {
		monitoring.GenerationDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}()

	maxAttempts := int(c.maxAttempts.Load())
	for attempt := 0; attempt < maxAttempts; attempt++ {
		raw, err := c.generator.Generate(ctx, prompt)
		if err != nil {
			monitoring.GenerationCounter.WithLabelValues(kind, "error").Inc()
			logger.Log.Warn("generation attempt failed",
				zap.String("kind", kind),
				zap.Int("attempt", attempt+1),
				zap.Int("maxAttempts", maxAttempts),
				zap.Error(err),
			)
			if IsQuotaError(err) {
				wait := time.Duration(10*(attempt+1)) * time.Second
				logger.Log.Warn("rate limit hit, backing off",
					zap.String("kind", kind),
					zap.Duration("wait", wait),
				)
				if err := c.sleep(ctx, wait); err != nil {
					return err
				}
			}
			continue
		}

		data := util.ExtractJSON(raw)
		if data == nil {
			monitoring.GenerationCounter.WithLabelValues(kind, "extract_failed").Inc()
			logger.Log.Warn("JSON extraction failed",
				zap.String("kind", kind),
				zap.Int("attempt", attempt+1),
				zap.String("head", head(raw, 100)),
			)
			continue
		}

		if err := json.Unmarshal(data, out); err != nil {
			monitoring.GenerationCounter.WithLabelValues(kind, "extract_failed").Inc()
			logger.Log.Warn("generated JSON does not match expected shape",
				zap.String("kind", kind),
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
			continue
		}

		monitoring.GenerationCounter.WithLabelValues(kind, "ok").Inc()
		return nil
	}

	return util.ErrGenerationFailed
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func head(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
