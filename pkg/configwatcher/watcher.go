package configwatcher

import (
	"path/filepath"
	"sync"
	"time"

	"nextrole_backend/internal/config"
	"nextrole_backend/pkg/logger"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ReloadFunc 在配置文件变更并成功重读后被调用
type ReloadFunc func(cfg *config.Config)

// Watch 监听配置文件的写事件，1 秒防抖后重新加载并回调。
// 启动失败返回错误，成功后监听循环在后台协程中运行。
func Watch(configFile string, reload ReloadFunc) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	absPath, err := filepath.Abs(configFile)
	if err != nil {
		watcher.Close()
		return err
	}
	if err := watcher.Add(absPath); err != nil {
		watcher.Close()
		return err
	}

	go run(watcher, absPath, reload)
	return nil
}

func run(watcher *fsnotify.Watcher, configFile string, reload ReloadFunc) {
	defer watcher.Close()

	var mu sync.Mutex
	timer := time.NewTimer(0)
	<-timer.C

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Write == fsnotify.Write {
				// 编辑器保存常触发连续多个写事件，合并为一次重载
				mu.Lock()
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(time.Second)
				mu.Unlock()
			}
		case <-timer.C:
			newCfg, err := config.LoadConfig(filepath.Dir(configFile))
			if err != nil {
				logger.Log.Error("config reload failed", zap.Error(err))
				continue
			}
			logger.Log.Info("config file changed, reloaded", zap.String("file", configFile))
			reload(newCfg)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Log.Error("config watcher error", zap.Error(err))
		}
	}
}
