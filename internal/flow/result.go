package flow

import (
	"aptitude_backend/pkg/apiclient"
	"sync"
	"time"

	"go.uber.org/zap"
)

// RedirectDelay 成绩页自动跳转的等待时间
const RedirectDelay = 60 * time.Second

// ResultView 成绩页。打开时尝试退出全屏并开始倒计时，任意按键立即跳转，跳转只发生一次
type ResultView struct {
	Result apiclient.SubmitResult

	mu       sync.Mutex
	closed   bool
	once     sync.Once
	cancel   func() bool
	redirect func()
}

func OpenResult(res apiclient.SubmitResult, screen Screen, clock Clock, redirect func(), log *zap.Logger) *ResultView {
	if screen == nil {
		screen = nopScreen{}
	}
	if clock == nil {
		clock = SystemClock
	}
	if log == nil {
		log = zap.NewNop()
	}

	v := &ResultView{Result: res, redirect: redirect}

	func() {
		defer func() {
			if r := recover(); r != nil {
				log.Warn("exit fullscreen panicked", zap.Any("recover", r))
			}
		}()
		if err := screen.ExitFullscreen(); err != nil {
			log.Debug("exit fullscreen failed", zap.Error(err))
		}
	}()

	v.mu.Lock()
	v.cancel = clock.AfterFunc(RedirectDelay, v.fire)
	v.mu.Unlock()
	return v
}

func (v *ResultView) fire() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	cancel := v.cancel
	v.mu.Unlock()

	v.once.Do(func() {
		if cancel != nil {
			cancel()
		}
		if v.redirect != nil {
			v.redirect()
		}
	})
}

// KeyPress 任意按键立即跳转
func (v *ResultView) KeyPress() {
	v.fire()
}

// Close 取消计时器和按键监听，之后不再跳转
func (v *ResultView) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.closed = true
	if v.cancel != nil {
		v.cancel()
	}
}
