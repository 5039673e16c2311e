package flow

import (
	"context"
	"sync"
	"time"
)

type Severity int

const (
	SeverityNormal Severity = iota
	SeverityWarning
	SeverityCritical
)

const (
	warningThreshold  = 600
	criticalThreshold = 300
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityCritical:
		return "critical"
	default:
		return "normal"
	}
}

// SeverityFor 仅用于展示
func SeverityFor(remaining int) Severity {
	switch {
	case remaining <= criticalThreshold:
		return SeverityCritical
	case remaining <= warningThreshold:
		return SeverityWarning
	default:
		return SeverityNormal
	}
}

// Countdown 秒级倒计时。归零时 onTimeUp 只触发一次，剩余时间不会小于 0
type Countdown struct {
	mu        sync.Mutex
	remaining int
	onTick    func(remaining int)
	onTimeUp  func()
	once      sync.Once
}

func NewCountdown(seconds int, onTimeUp func()) *Countdown {
	if seconds < 0 {
		seconds = 0
	}
	return &Countdown{remaining: seconds, onTimeUp: onTimeUp}
}

// OnTick 每次递减后回调，用于刷新显示
func (c *Countdown) OnTick(fn func(remaining int)) {
	c.mu.Lock()
	c.onTick = fn
	c.mu.Unlock()
}

func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

func (c *Countdown) Severity() Severity {
	return SeverityFor(c.Remaining())
}

func (c *Countdown) fire() {
	c.once.Do(func() {
		if c.onTimeUp != nil {
			c.onTimeUp()
		}
	})
}

// tick 递减一秒，返回是否已经归零
func (c *Countdown) tick() bool {
	c.mu.Lock()
	if c.remaining > 0 {
		c.remaining--
	}
	left := c.remaining
	onTick := c.onTick
	c.mu.Unlock()

	if onTick != nil {
		onTick(left)
	}
	return left == 0
}

// Run 阻塞消费 ticks 直到归零或 ctx 取消。取消时不会触发 onTimeUp
func (c *Countdown) Run(ctx context.Context, ticks <-chan time.Time) {
	if c.Remaining() == 0 {
		c.fire()
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticks:
			if ctx.Err() != nil {
				return
			}
			if c.tick() {
				c.fire()
				return
			}
		}
	}
}

// Start 在后台按 clock 每秒推进，返回的函数用于停止
func (c *Countdown) Start(ctx context.Context, clock Clock) context.CancelFunc {
	ctx, cancel := context.WithCancel(ctx)
	ticks, stop := clock.Ticker(time.Second)
	go func() {
		defer stop()
		c.Run(ctx, ticks)
	}()
	return cancel
}
