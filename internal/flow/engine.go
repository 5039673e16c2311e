package flow

import (
	"aptitude_backend/pkg/apiclient"
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// Unanswered 未作答的 selectedAnswer 取值
const Unanswered = -1

var (
	ErrUnknownQuestion  = errors.New("question not found in this session")
	ErrOptionOutOfRange = errors.New("option index out of range")
	ErrSubmitInFlight   = errors.New("submission already in progress")
)

// Question 答题过程中的题目状态。TimeSpent 每次点选选项加 1，是交互计数而非秒数
type Question struct {
	ID             string
	Text           string
	Options        []string
	SelectedAnswer int
	TimeSpent      int
}

type Submitter interface {
	Submit(ctx context.Context, sessionID string, answers []apiclient.Answer) (*apiclient.SubmitResult, error)
}

// Engine 持有题目、标记、当前题号和提交状态
type Engine struct {
	mu         sync.Mutex
	sessionID  string
	questions  []Question
	index      map[string]int
	marked     map[string]bool
	current    int
	submitting bool
	modalOpen  bool

	api      Submitter
	notifier Notifier
	log      *zap.Logger
	onAnswer func(apiclient.Answer)
}

func NewEngine(session *apiclient.StartResponse, api Submitter, notifier Notifier, log *zap.Logger) *Engine {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	e := &Engine{
		sessionID: session.SessionID,
		questions: make([]Question, len(session.Questions)),
		index:     make(map[string]int, len(session.Questions)),
		marked:    make(map[string]bool),
		api:       api,
		notifier:  notifier,
		log:       log,
	}
	for i, q := range session.Questions {
		selected := q.SelectedAnswer
		// 恢复的会话沿用服务端保存的答案，否则一律从未作答开始
		if !session.Resumed || selected < Unanswered || selected >= len(q.Options) {
			selected = Unanswered
		}
		timeSpent := 0
		if session.Resumed {
			timeSpent = q.TimeSpent
		}
		e.questions[i] = Question{
			ID:             q.ID,
			Text:           q.Question,
			Options:        append([]string(nil), q.Options...),
			SelectedAnswer: selected,
			TimeSpent:      timeSpent,
		}
		e.index[q.ID] = i
	}
	return e
}

// OnAnswer 每次作答后回调，用于自动保存
func (e *Engine) OnAnswer(fn func(apiclient.Answer)) {
	e.mu.Lock()
	e.onAnswer = fn
	e.mu.Unlock()
}

func (e *Engine) SessionID() string {
	return e.sessionID
}

func (e *Engine) Len() int {
	return len(e.questions)
}

func (e *Engine) SelectAnswer(questionID string, option int) error {
	e.mu.Lock()
	i, ok := e.index[questionID]
	if !ok {
		e.mu.Unlock()
		return ErrUnknownQuestion
	}
	q := &e.questions[i]
	if option < 0 || option >= len(q.Options) {
		e.mu.Unlock()
		return ErrOptionOutOfRange
	}
	q.SelectedAnswer = option
	q.TimeSpent++
	ans := apiclient.Answer{QuestionID: q.ID, SelectedAnswer: q.SelectedAnswer, TimeSpent: q.TimeSpent}
	hook := e.onAnswer
	e.mu.Unlock()

	if hook != nil {
		hook(ans)
	}
	return nil
}

// MarkForReview 切换标记，返回切换后的状态。与是否作答无关
func (e *Engine) MarkForReview(questionID string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.index[questionID]; !ok {
		return false, ErrUnknownQuestion
	}
	if e.marked[questionID] {
		delete(e.marked, questionID)
		return false, nil
	}
	e.marked[questionID] = true
	return true, nil
}

func (e *Engine) IsMarked(questionID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.marked[questionID]
}

func (e *Engine) clamp(i int) int {
	if i < 0 {
		return 0
	}
	if n := len(e.questions); i > n-1 {
		if n == 0 {
			return 0
		}
		return n - 1
	}
	return i
}

func (e *Engine) Next() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.current = e.clamp(e.current + 1)
	return e.current
}

func (e *Engine) Previous() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.current = e.clamp(e.current - 1)
	return e.current
}

func (e *Engine) JumpTo(i int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.current = e.clamp(i)
	return e.current
}

func (e *Engine) Current() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

func (e *Engine) CurrentQuestion() (Question, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.questions) == 0 {
		return Question{}, false
	}
	q := e.questions[e.current]
	q.Options = append([]string(nil), q.Options...)
	return q, true
}

func (e *Engine) Questions() []Question {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Question, len(e.questions))
	copy(out, e.questions)
	return out
}

func (e *Engine) Statuses() []QuestionStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Statuses(e.questions, e.marked)
}

func (e *Engine) ButtonStates() []ButtonState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return ButtonStates(Statuses(e.questions, e.marked), e.current)
}

func (e *Engine) Meta() Meta {
	return MetaOf(e.Statuses())
}

// Answers 按题目顺序返回全部作答，未作答的为 -1
func (e *Engine) Answers() []apiclient.Answer {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.answersLocked()
}

func (e *Engine) answersLocked() []apiclient.Answer {
	out := make([]apiclient.Answer, len(e.questions))
	for i, q := range e.questions {
		out[i] = apiclient.Answer{
			QuestionID:     q.ID,
			SelectedAnswer: q.SelectedAnswer,
			TimeSpent:      q.TimeSpent,
		}
	}
	return out
}

// OpenSubmitModal 打开确认框；有未答或标记的题目时先弹出提醒，不阻止提交
func (e *Engine) OpenSubmitModal() string {
	meta := e.Meta()

	e.mu.Lock()
	e.modalOpen = true
	e.mu.Unlock()

	warning := SubmitWarning(meta)
	if warning != "" {
		e.notifier.Warning(warning)
	}
	return warning
}

func (e *Engine) CloseSubmitModal() {
	e.mu.Lock()
	e.modalOpen = false
	e.mu.Unlock()
}

func (e *Engine) ModalOpen() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.modalOpen
}

func (e *Engine) IsSubmitting() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.submitting
}

// Submit 提交全部答案。已有提交在途时直接返回 ErrSubmitInFlight，不发请求
func (e *Engine) Submit(ctx context.Context) (*apiclient.SubmitResult, error) {
	e.mu.Lock()
	if e.submitting {
		e.mu.Unlock()
		return nil, ErrSubmitInFlight
	}
	e.submitting = true
	answers := e.answersLocked()
	e.mu.Unlock()

	res, err := e.api.Submit(ctx, e.sessionID, answers)

	e.mu.Lock()
	e.submitting = false
	if err == nil {
		e.modalOpen = false
	}
	e.mu.Unlock()

	if err != nil {
		e.log.Warn("submit test failed", zap.String("sessionId", e.sessionID), zap.Error(err))
		e.notifier.Error(apiclient.MessageText(err))
		return nil, err
	}

	e.log.Info("test submitted",
		zap.String("sessionId", e.sessionID),
		zap.Int("score", res.Score),
		zap.Int("total", res.TotalQuestions),
	)
	return res, nil
}
