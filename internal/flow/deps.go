// Package flow 实现学生答题流程的客户端状态机：认证、说明、计时答题、成绩页
package flow

import (
	"aptitude_backend/pkg/apiclient"
	"context"
	"time"
)

// API 由 *apiclient.Client 实现
type API interface {
	Login(ctx context.Context, req apiclient.LoginRequest) (*apiclient.LoginResponse, error)
	Register(ctx context.Context, req apiclient.RegisterRequest) (*apiclient.RegisterResponse, error)
	GetTestDetails(ctx context.Context, testID string) (*apiclient.TestDetails, error)
	StartTest(ctx context.Context, testID string) (*apiclient.StartResponse, error)
	SaveAnswer(ctx context.Context, sessionID string, answer apiclient.Answer) error
	Submit(ctx context.Context, sessionID string, answers []apiclient.Answer) (*apiclient.SubmitResult, error)
}

// Notifier 对应界面上的 toast 提示
type Notifier interface {
	Success(msg string)
	Warning(msg string)
	Error(msg string)
}

// Screen 全屏控制，退出失败只记录日志
type Screen interface {
	ExitFullscreen() error
}

// Clock 抽象计时器来源，测试中可替换
type Clock interface {
	// Ticker 返回周期触发的通道和停止函数
	Ticker(d time.Duration) (<-chan time.Time, func())
	// AfterFunc 到期后执行 f，返回的函数用于取消
	AfterFunc(d time.Duration, f func()) func() bool
}

type realClock struct{}

func (realClock) Ticker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

func (realClock) AfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

// SystemClock 基于 time 包的实现
var SystemClock Clock = realClock{}

type nopNotifier struct{}

func (nopNotifier) Success(string) {}
func (nopNotifier) Warning(string) {}
func (nopNotifier) Error(string)   {}

type nopScreen struct{}

func (nopScreen) ExitFullscreen() error { return nil }
