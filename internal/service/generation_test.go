package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"nextrole_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedGenerator 按脚本顺序返回预置应答
type scriptedGenerator struct {
	responses []string
	errs      []error
	calls     int
}

func (g *scriptedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	i := g.calls
	g.calls++
	var err error
	if i < len(g.errs) {
		err = g.errs[i]
	}
	var resp string
	if i < len(g.responses) {
		resp = g.responses[i]
	}
	return resp, err
}

func noSleep(t *testing.T) func(ctx context.Context, d time.Duration) error {
	t.Helper()
	return func(ctx context.Context, d time.Duration) error { return nil }
}

func TestGenerateJSONFirstAttemptSucceeds(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{`{"title": "SQL Basics"}`}}
	client := NewGenerationClient(gen, 2)
	client.sleep = noSleep(t)

	var out struct {
		Title string `json:"title"`
	}
	require.NoError(t, client.GenerateJSON(context.Background(), "outline", "p", &out))
	assert.Equal(t, "SQL Basics", out.Title)
	assert.Equal(t, 1, gen.calls)
}

func TestSetMaxAttemptsTakesEffectAtRuntime(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{
		"garbage",
		"garbage",
		`{"title": "Third Time Lucky"}`,
	}}
	client := NewGenerationClient(gen, 1)
	client.sleep = noSleep(t)

	var out struct {
		Title string `json:"title"`
	}
	// 上限 1 时第一次失败即放弃
	err := client.GenerateJSON(context.Background(), "outline", "p", &out)
	assert.ErrorIs(t, err, util.ErrGenerationFailed)
	assert.Equal(t, 1, gen.calls)

	// 配置热加载调大上限后同一个客户端可以继续重试
	client.SetMaxAttempts(3)
	require.NoError(t, client.GenerateJSON(context.Background(), "outline", "p", &out))
	assert.Equal(t, "Third Time Lucky", out.Title)
}

func TestGenerateJSONRetriesOnMalformedOutput(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{
		"sorry, I cannot do that",
		"```json\n{\"title\": \"Recovered\"}\n```",
	}}
	client := NewGenerationClient(gen, 2)
	client.sleep = noSleep(t)

	var out struct {
		Title string `json:"title"`
	}
	require.NoError(t, client.GenerateJSON(context.Background(), "outline", "p", &out))
	assert.Equal(t, "Recovered", out.Title)
	assert.Equal(t, 2, gen.calls)
}

func TestGenerateJSONExhaustsAttempts(t *testing.T) {
	gen := &scriptedGenerator{errs: []error{
		errors.New("boom"),
		errors.New("boom"),
		errors.New("boom"),
	}}
	client := NewGenerationClient(gen, 3)
	client.sleep = noSleep(t)

	var out map[string]interface{}
	err := client.GenerateJSON(context.Background(), "outline", "p", &out)
	assert.ErrorIs(t, err, util.ErrGenerationFailed)
	assert.Equal(t, 3, gen.calls)
}

func TestGenerateJSONQuotaBackoffIsLinear(t *testing.T) {
	gen := &scriptedGenerator{
		responses: []string{"", "", `{"ok": true}`},
		errs:      []error{errors.New("429 RESOURCE_EXHAUSTED"), errors.New("Quota exceeded"), nil},
	}
	client := NewGenerationClient(gen, 3)

	var waits []time.Duration
	client.sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}

	var out map[string]interface{}
	require.NoError(t, client.GenerateJSON(context.Background(), "outline", "p", &out))
	assert.Equal(t, []time.Duration{10 * time.Second, 20 * time.Second}, waits)
}

func TestGenerateJSONNonQuotaErrorDoesNotSleep(t *testing.T) {
	gen := &scriptedGenerator{
		responses: []string{"", `{"ok": true}`},
		errs:      []error{errors.New("connection reset"), nil},
	}
	client := NewGenerationClient(gen, 2)

	slept := false
	client.sleep = func(ctx context.Context, d time.Duration) error {
		slept = true
		return nil
	}

	var out map[string]interface{}
	require.NoError(t, client.GenerateJSON(context.Background(), "outline", "p", &out))
	assert.False(t, slept)
}

func TestGenerateJSONContextCancelledDuringBackoff(t *testing.T) {
	gen := &scriptedGenerator{errs: []error{errors.New("429 too many requests")}}
	client := NewGenerationClient(gen, 2)
	client.sleep = func(ctx context.Context, d time.Duration) error {
		return context.Canceled
	}

	var out map[string]interface{}
	err := client.GenerateJSON(context.Background(), "outline", "p", &out)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, gen.calls)
}

func TestIsQuotaError(t *testing.T) {
	assert.True(t, IsQuotaError(errors.New("429 too many requests")))
	assert.True(t, IsQuotaError(errors.New("Quota exceeded for quota metric")))
	assert.True(t, IsQuotaError(errors.New("RESOURCE_EXHAUSTED")))
	assert.True(t, IsQuotaError(&apiError{status: 429, body: "rate limited"}))
	assert.False(t, IsQuotaError(errors.New("connection refused")))
	assert.False(t, IsQuotaError(nil))
}
