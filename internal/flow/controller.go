package flow

import (
	"aptitude_backend/pkg/apiclient"
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

type Phase string

const (
	PhaseAuth         Phase = "auth"
	PhaseInstructions Phase = "instructions"
	PhaseTest         Phase = "test"
	PhaseResult       Phase = "result"
)

var ErrWrongPhase = errors.New("action not allowed in current phase")

// ErrStartInFlight 开考请求尚未返回时再次开考
var ErrStartInFlight = errors.New("test start already in progress")

const autosaveTimeout = 10 * time.Second

type Config struct {
	TestID    string
	CollegeID string

	API      API
	Tokens   TokenStore
	Notifier Notifier
	Screen   Screen
	Clock    Clock
	Logger   *zap.Logger

	// Redirect 成绩页结束后调用
	Redirect func()
	// Autosave 为 true 时每次作答后异步保存到服务端
	Autosave bool
}

// Controller 答题流程的顶层状态机：auth → instructions → test → result
type Controller struct {
	cfg Config
	log *zap.Logger

	mu           sync.Mutex
	phase        Phase
	starting     bool
	instructions *Instructions
	engine       *Engine
	countdown    *Countdown
	stopTimer    context.CancelFunc
	result       *ResultView
}

// New 创建流程。已有令牌时直接进入 instructions，调用方随后执行 LoadDetails
func New(cfg Config) *Controller {
	if cfg.Tokens == nil {
		cfg.Tokens = NewMemoryTokenStore()
	}
	if cfg.Notifier == nil {
		cfg.Notifier = nopNotifier{}
	}
	if cfg.Screen == nil {
		cfg.Screen = nopScreen{}
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	c := &Controller{
		cfg:   cfg,
		log:   cfg.Logger.With(zap.String("testId", cfg.TestID)),
		phase: PhaseAuth,
	}
	if _, ok := cfg.Tokens.Load(); ok {
		c.phase = PhaseInstructions
		c.instructions = loadingInstructions()
	}
	return c
}

func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

func (c *Controller) Instructions() *Instructions {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.instructions
}

func (c *Controller) Engine() *Engine {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine
}

func (c *Controller) Countdown() *Countdown {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.countdown
}

func (c *Controller) Result() *ResultView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}

func (c *Controller) inPhase(p Phase) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase == p
}

// Login 先做本地校验，失败不发请求；登录失败时停留在 auth 且不保存令牌
func (c *Controller) Login(ctx context.Context, form LoginForm) error {
	if !c.inPhase(PhaseAuth) {
		return ErrWrongPhase
	}
	if err := form.Validate(); err != nil {
		c.cfg.Notifier.Error(err.Error())
		return err
	}

	resp, err := c.cfg.API.Login(ctx, form.request(c.cfg.TestID, c.cfg.CollegeID))
	if err != nil {
		c.log.Info("student login failed", zap.Error(err))
		c.cfg.Notifier.Error(apiclient.ErrorText(err))
		return err
	}

	if err := c.cfg.Tokens.Save(Tokens{
		StudentID:    resp.StudentID,
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
	}); err != nil {
		c.cfg.Notifier.Error(apiclient.GenericErrorMessage)
		return err
	}
	if resp.Message != "" {
		c.cfg.Notifier.Success(resp.Message)
	}
	c.log.Info("student logged in", zap.String("studentId", resp.StudentID))

	c.enterInstructions()
	// 试卷信息加载失败已提示，认证本身成功
	_ = c.LoadDetails(ctx)
	return nil
}

// Register 校验通过后注册，成功时保存单个令牌并弹出成功提示
func (c *Controller) Register(ctx context.Context, form RegisterForm) error {
	if !c.inPhase(PhaseAuth) {
		return ErrWrongPhase
	}
	if err := form.Validate(); err != nil {
		c.cfg.Notifier.Error(err.Error())
		return err
	}

	resp, err := c.cfg.API.Register(ctx, form.request(c.cfg.TestID, c.cfg.CollegeID))
	if err != nil {
		c.log.Info("student registration failed", zap.Error(err))
		c.cfg.Notifier.Error(apiclient.ErrorText(err))
		return err
	}

	if err := c.cfg.Tokens.Save(Tokens{StudentID: resp.StudentID, AccessToken: resp.Token}); err != nil {
		c.cfg.Notifier.Error(apiclient.GenericErrorMessage)
		return err
	}
	c.cfg.Notifier.Success("Registration successful")
	c.log.Info("student registered", zap.String("studentId", resp.StudentID))

	c.enterInstructions()
	// 试卷信息加载失败已提示，认证本身成功
	_ = c.LoadDetails(ctx)
	return nil
}

func (c *Controller) enterInstructions() {
	c.mu.Lock()
	c.phase = PhaseInstructions
	c.instructions = loadingInstructions()
	c.mu.Unlock()
}

// LoadDetails 拉取试卷信息。失败时提示并保持当前阶段，可重试
func (c *Controller) LoadDetails(ctx context.Context) error {
	if !c.inPhase(PhaseInstructions) {
		return ErrWrongPhase
	}

	details, err := c.cfg.API.GetTestDetails(ctx, c.cfg.TestID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.instructions = &Instructions{}
		c.log.Warn("load test details failed", zap.Error(err))
		c.cfg.Notifier.Error(apiclient.MessageText(err))
		return err
	}
	c.instructions = NewInstructions(details)
	return nil
}

// BeginTest 创建会话并开始计时
func (c *Controller) BeginTest(ctx context.Context) error {
	c.mu.Lock()
	if c.phase != PhaseInstructions {
		c.mu.Unlock()
		return ErrWrongPhase
	}
	if c.starting {
		c.mu.Unlock()
		return ErrStartInFlight
	}
	c.starting = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.starting = false
		c.mu.Unlock()
	}()

	session, err := c.cfg.API.StartTest(ctx, c.cfg.TestID)
	if err != nil {
		c.log.Warn("start test failed", zap.Error(err))
		c.cfg.Notifier.Error(apiclient.MessageText(err))
		return err
	}

	engine := NewEngine(session, c.cfg.API, c.cfg.Notifier, c.log)
	if c.cfg.Autosave {
		engine.OnAnswer(c.autosave(session.SessionID))
	}

	remaining := session.RemainingSeconds
	if remaining <= 0 && !session.Resumed {
		remaining = session.DurationSeconds
	}
	countdown := NewCountdown(remaining, c.timeUp)

	c.mu.Lock()
	if c.phase != PhaseInstructions {
		c.mu.Unlock()
		return ErrWrongPhase
	}
	c.phase = PhaseTest
	c.engine = engine
	c.countdown = countdown
	c.stopTimer = countdown.Start(context.Background(), c.cfg.Clock)
	c.mu.Unlock()

	c.log.Info("test started",
		zap.String("sessionId", session.SessionID),
		zap.Int("questions", engine.Len()),
		zap.Int("remainingSeconds", remaining),
	)
	return nil
}

func (c *Controller) autosave(sessionID string) func(apiclient.Answer) {
	return func(a apiclient.Answer) {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), autosaveTimeout)
			defer cancel()
			if err := c.cfg.API.SaveAnswer(ctx, sessionID, a); err != nil {
				c.log.Debug("autosave answer failed", zap.String("questionId", a.QuestionID), zap.Error(err))
			}
		}()
	}
}

// SubmitTest 手动交卷；失败时停留在 test 阶段，确认框保持打开
func (c *Controller) SubmitTest(ctx context.Context) error {
	c.mu.Lock()
	engine := c.engine
	phase := c.phase
	c.mu.Unlock()
	if phase != PhaseTest || engine == nil {
		return ErrWrongPhase
	}

	res, err := engine.Submit(ctx)
	if err != nil {
		return err
	}
	c.finish(*res)
	return nil
}

// timeUp 倒计时归零时用当前答案自动交卷
func (c *Controller) timeUp() {
	c.log.Info("time is up, submitting automatically")
	if err := c.SubmitTest(context.Background()); err != nil && !errors.Is(err, ErrSubmitInFlight) {
		c.log.Warn("auto submit failed", zap.Error(err))
	}
}

func (c *Controller) finish(res apiclient.SubmitResult) {
	c.mu.Lock()
	if c.phase != PhaseTest {
		c.mu.Unlock()
		return
	}
	if c.stopTimer != nil {
		c.stopTimer()
		c.stopTimer = nil
	}
	c.phase = PhaseResult
	c.engine = nil
	c.mu.Unlock()

	view := OpenResult(res, c.cfg.Screen, c.cfg.Clock, c.cfg.Redirect, c.log)

	c.mu.Lock()
	c.result = view
	c.mu.Unlock()
}

// KeyPress 成绩页上的任意按键
func (c *Controller) KeyPress() {
	if v := c.Result(); v != nil {
		v.KeyPress()
	}
}

// Close 离开流程：停止计时并关闭成绩页
func (c *Controller) Close() {
	c.mu.Lock()
	stop := c.stopTimer
	c.stopTimer = nil
	view := c.result
	c.mu.Unlock()

	if stop != nil {
		stop()
	}
	if view != nil {
		view.Close()
	}
}
