package flow

import (
	"aptitude_backend/pkg/apiclient"
	"context"
	"fmt"
	"sync"
	"time"
)

type fakeAPI struct {
	mu sync.Mutex

	loginResp    *apiclient.LoginResponse
	loginErr     error
	registerResp *apiclient.RegisterResponse
	registerErr  error
	details      *apiclient.TestDetails
	detailsErr   error
	start        *apiclient.StartResponse
	startErr     error
	startGate    chan struct{}
	submitResult *apiclient.SubmitResult
	submitErr    error
	submitGate   chan struct{}

	loginCalls    int
	startCalls    int
	registerCalls int
	submitCalls   int
	submitted     [][]apiclient.Answer
	saved         []apiclient.Answer
}

func (f *fakeAPI) Login(ctx context.Context, req apiclient.LoginRequest) (*apiclient.LoginResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loginCalls++
	return f.loginResp, f.loginErr
}

func (f *fakeAPI) Register(ctx context.Context, req apiclient.RegisterRequest) (*apiclient.RegisterResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registerCalls++
	return f.registerResp, f.registerErr
}

func (f *fakeAPI) GetTestDetails(ctx context.Context, testID string) (*apiclient.TestDetails, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.details, f.detailsErr
}

func (f *fakeAPI) StartTest(ctx context.Context, testID string) (*apiclient.StartResponse, error) {
	f.mu.Lock()
	f.startCalls++
	gate := f.startGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.start, f.startErr
}

func (f *fakeAPI) SaveAnswer(ctx context.Context, sessionID string, answer apiclient.Answer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, answer)
	return nil
}

func (f *fakeAPI) Submit(ctx context.Context, sessionID string, answers []apiclient.Answer) (*apiclient.SubmitResult, error) {
	f.mu.Lock()
	f.submitCalls++
	f.submitted = append(f.submitted, answers)
	gate := f.submitGate
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitResult, f.submitErr
}

func (f *fakeAPI) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitCalls
}

func (f *fakeAPI) lastSubmitted() []apiclient.Answer {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.submitted) == 0 {
		return nil
	}
	return f.submitted[len(f.submitted)-1]
}

type recNotifier struct {
	mu       sync.Mutex
	success  []string
	warnings []string
	errors   []string
}

func (n *recNotifier) Success(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.success = append(n.success, msg)
}

func (n *recNotifier) Warning(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.warnings = append(n.warnings, msg)
}

func (n *recNotifier) Error(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, msg)
}

func (n *recNotifier) errorList() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.errors...)
}

type fakeTimer struct {
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

// fakeClock 手动推进的时钟；ticks 由测试逐个发送
type fakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	ticks  chan time.Time
	timers []*fakeTimer
}

func newFakeClock() *fakeClock {
	return &fakeClock{ticks: make(chan time.Time)}
}

func (c *fakeClock) Ticker(time.Duration) (<-chan time.Time, func()) {
	return c.ticks, func() {}
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) func() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{at: c.now + d, f: f}
	c.timers = append(c.timers, t)
	return func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		if t.stopped || t.fired {
			return false
		}
		t.stopped = true
		return true
	}
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && t.at <= c.now {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	for _, t := range due {
		t.f()
	}
}

func (c *fakeClock) tick() {
	c.ticks <- time.Time{}
}

type fakeScreen struct {
	calls int
	err   error
}

func (s *fakeScreen) ExitFullscreen() error {
	s.calls++
	return s.err
}

// newSession 生成 n 道四选项题目
func newSession(n int) *apiclient.StartResponse {
	qs := make([]apiclient.Question, n)
	for i := range qs {
		qs[i] = apiclient.Question{
			ID:             fmt.Sprintf("q%d", i+1),
			Question:       fmt.Sprintf("Question %d", i+1),
			Options:        []string{"A", "B", "C", "D"},
			SelectedAnswer: Unanswered,
		}
	}
	return &apiclient.StartResponse{
		SessionID:        "session-1",
		TestID:           "test-1",
		CollegeID:        "college-1",
		DurationSeconds:  3600,
		RemainingSeconds: 3600,
		Questions:        qs,
	}
}
