package service

import (
	"aptitude_backend/internal/model"
	"aptitude_backend/internal/util"
	"aptitude_backend/pkg/logger"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	submitLockPrefix    = "aptitude:submit:"
	startLockPrefix     = "aptitude:start:"
	activeSessionPrefix = "aptitude:active:"
	refreshTokenPrefix  = "aptitude:refresh:"
)

// startRetryInterval 等待开考锁时的轮询间隔
const startRetryInterval = 50 * time.Millisecond

// 只有持有者的令牌匹配时才删除锁
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// SessionGuard 基于 Redis 的会话辅助：提交锁、进行中会话缓存、刷新令牌登记
type SessionGuard struct {
	Redis *redis.Client
}

func NewSessionGuard(rdb *redis.Client) *SessionGuard {
	return &SessionGuard{Redis: rdb}
}

// tryLock SETNX 一个随机令牌；锁已被占用时返回 ok=false
func (g *SessionGuard) tryLock(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error) {
	token := model.NewID()
	ok, err = g.Redis.SetNX(ctx, key, token, ttl).Result()
	if err != nil || !ok {
		return nil, false, err
	}
	return func() {
		// 使用独立 context，请求取消后也要释放锁
		if err := unlockScript.Run(context.Background(), g.Redis, []string{key}, token).Err(); err != nil {
			logger.Log.Warn("release redis lock failed", zap.String("key", key), zap.Error(err))
		}
	}, true, nil
}

func (g *SessionGuard) AcquireSubmit(ctx context.Context, sessionID string, ttl time.Duration) (func(), error) {
	release, ok, err := g.tryLock(ctx, submitLockPrefix+sessionID, ttl)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, util.ErrSubmitInProgress
	}
	return release, nil
}

// AcquireStart 串行化同一学生同一试卷的开考请求，锁被占用时轮询等待，最长 ttl
func (g *SessionGuard) AcquireStart(ctx context.Context, studentID, testID string, ttl time.Duration) (func(), error) {
	key := fmt.Sprintf("%s%s:%s", startLockPrefix, studentID, testID)
	deadline := time.NewTimer(ttl)
	defer deadline.Stop()
	ticker := time.NewTicker(startRetryInterval)
	defer ticker.Stop()

	for {
		release, ok, err := g.tryLock(ctx, key, ttl)
		if err != nil {
			return nil, err
		}
		if ok {
			return release, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, util.ErrSessionStarting
		case <-ticker.C:
		}
	}
}

func activeKey(studentID, testID string) string {
	return fmt.Sprintf("%s%s:%s", activeSessionPrefix, studentID, testID)
}

func (g *SessionGuard) SetActiveSession(ctx context.Context, studentID, testID, sessionID string, ttl time.Duration) error {
	return g.Redis.Set(ctx, activeKey(studentID, testID), sessionID, ttl).Err()
}

func (g *SessionGuard) ActiveSession(ctx context.Context, studentID, testID string) (string, bool, error) {
	id, err := g.Redis.Get(ctx, activeKey(studentID, testID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

func (g *SessionGuard) ClearActiveSession(ctx context.Context, studentID, testID string) error {
	return g.Redis.Del(ctx, activeKey(studentID, testID)).Err()
}

func (g *SessionGuard) StoreRefresh(ctx context.Context, jti, studentID string, ttl time.Duration) error {
	return g.Redis.Set(ctx, refreshTokenPrefix+jti, studentID, ttl).Err()
}

// ConsumeRefresh 取出并删除刷新令牌登记，令牌只能使用一次
func (g *SessionGuard) ConsumeRefresh(ctx context.Context, jti string) (string, error) {
	studentID, err := g.Redis.GetDel(ctx, refreshTokenPrefix+jti).Result()
	if errors.Is(err, redis.Nil) {
		return "", util.ErrInvalidToken
	}
	return studentID, err
}
