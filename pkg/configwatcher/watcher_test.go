package configwatcher

import (
	"aptitude_backend/internal/config"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir string, maxRequests int) {
	t.Helper()
	body := []byte("server:\n  mode: debug\njwt:\n  secret: test\nrate_limit:\n  max_requests: " +
		strconv.Itoa(maxRequests) + "\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), body, 0o600))
}

func TestWatchConfigReloadsOnWrite(t *testing.T) {
	t.Setenv("SERVER_MODE", "")
	dir := t.TempDir()
	writeConfig(t, dir, 10)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *config.Config, 1)
	errCh := make(chan error, 1)
	go func() {
		errCh <- WatchConfig(ctx, dir, func(cfg *config.Config) {
			select {
			case reloaded <- cfg:
			default:
			}
		})
	}()

	// 等待 watcher 注册完成
	time.Sleep(100 * time.Millisecond)
	writeConfig(t, dir, 42)

	select {
	case cfg := <-reloaded:
		require.Equal(t, 42, cfg.RateLimit.MaxRequests)
	case <-time.After(5 * time.Second):
		t.Fatal("config was not reloaded")
	}

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatchConfigMissingDir(t *testing.T) {
	err := WatchConfig(context.Background(), filepath.Join(t.TempDir(), "nope"), func(*config.Config) {})
	require.Error(t, err)
}
