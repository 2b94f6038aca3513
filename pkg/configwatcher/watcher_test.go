package configwatcher

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"nextrole_backend/internal/config"

	"github.com/stretchr/testify/require"
)

func writeTestConfig(t *testing.T, path string, maxAttempts int) {
	t.Helper()
	content := fmt.Sprintf(`server:
  port: "8080"
  mode: debug
generation:
  max_attempts: %d
  module_concurrency: 4
`, maxAttempts)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestWatchReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	writeTestConfig(t, file, 2)

	var got atomic.Int32
	require.NoError(t, Watch(file, func(cfg *config.Config) {
		got.Store(int32(cfg.Generation.MaxAttempts))
	}))

	writeTestConfig(t, file, 5)

	// 防抖 1 秒后才会触发重载
	require.Eventually(t, func() bool { return got.Load() == 5 }, 5*time.Second, 100*time.Millisecond)
}

func TestWatchMissingFileFails(t *testing.T) {
	err := Watch(filepath.Join(t.TempDir(), "absent.yaml"), func(*config.Config) {})
	require.Error(t, err)
}
