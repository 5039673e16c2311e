package flow

import (
	"aptitude_backend/pkg/apiclient"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewEngineStartsUnanswered(t *testing.T) {
	session := newSession(10)
	session.Questions[3].SelectedAnswer = 2

	e := NewEngine(session, &fakeAPI{}, nil, nil)

	for _, q := range e.Questions() {
		require.Equal(t, Unanswered, q.SelectedAnswer)
		require.Zero(t, q.TimeSpent)
	}
	meta := e.Meta()
	require.Equal(t, 10, meta.Total)
	require.Equal(t, 0, meta.Attempted)
	require.Equal(t, meta.Total, meta.Attempted+meta.NotAttempted)
}

func TestNewEngineResumesSavedAnswers(t *testing.T) {
	session := newSession(3)
	session.Resumed = true
	session.Questions[1].SelectedAnswer = 3
	session.Questions[1].TimeSpent = 2
	session.Questions[2].SelectedAnswer = 7

	e := NewEngine(session, &fakeAPI{}, nil, nil)
	qs := e.Questions()

	require.Equal(t, 3, qs[1].SelectedAnswer)
	require.Equal(t, 2, qs[1].TimeSpent)
	require.Equal(t, Unanswered, qs[2].SelectedAnswer)
}

func TestSelectAnswerCountsInteractions(t *testing.T) {
	e := NewEngine(newSession(2), &fakeAPI{}, nil, nil)

	require.NoError(t, e.SelectAnswer("q1", 0))
	require.NoError(t, e.SelectAnswer("q1", 2))

	qs := e.Questions()
	require.Equal(t, 2, qs[0].SelectedAnswer)
	require.Equal(t, 2, qs[0].TimeSpent)
	require.Equal(t, Unanswered, qs[1].SelectedAnswer)

	require.ErrorIs(t, e.SelectAnswer("missing", 0), ErrUnknownQuestion)
	require.ErrorIs(t, e.SelectAnswer("q2", 4), ErrOptionOutOfRange)
	require.ErrorIs(t, e.SelectAnswer("q2", -1), ErrOptionOutOfRange)
}

func TestSelectAnswerCallsHook(t *testing.T) {
	e := NewEngine(newSession(1), &fakeAPI{}, nil, nil)
	var got []apiclient.Answer
	e.OnAnswer(func(a apiclient.Answer) { got = append(got, a) })

	require.NoError(t, e.SelectAnswer("q1", 1))
	require.Equal(t, []apiclient.Answer{{QuestionID: "q1", SelectedAnswer: 1, TimeSpent: 1}}, got)
}

func TestMarkIsIndependentOfAnswer(t *testing.T) {
	e := NewEngine(newSession(5), &fakeAPI{}, nil, nil)

	// q1 已答已标记，q2 已答未标记，q3 未答已标记，q4 未答未标记
	require.NoError(t, e.SelectAnswer("q1", 0))
	require.NoError(t, e.SelectAnswer("q2", 1))
	marked, err := e.MarkForReview("q1")
	require.NoError(t, err)
	require.True(t, marked)
	_, err = e.MarkForReview("q3")
	require.NoError(t, err)

	e.JumpTo(4)

	require.Equal(t, []QuestionStatus{
		{Answered: true, Marked: true},
		{Answered: true, Marked: false},
		{Answered: false, Marked: true},
		{Answered: false, Marked: false},
		{Answered: false, Marked: false},
	}, e.Statuses())

	require.Equal(t, []ButtonState{ButtonMarked, ButtonAnswered, ButtonMarked, ButtonPlain, ButtonCurrent}, e.ButtonStates())

	marked, err = e.MarkForReview("q1")
	require.NoError(t, err)
	require.False(t, marked)
	require.Equal(t, 0, e.Questions()[0].SelectedAnswer)

	_, err = e.MarkForReview("missing")
	require.ErrorIs(t, err, ErrUnknownQuestion)
}

func TestNavigationIsClamped(t *testing.T) {
	e := NewEngine(newSession(3), &fakeAPI{}, nil, nil)

	require.Equal(t, 0, e.Previous())
	require.Equal(t, 1, e.Next())
	require.Equal(t, 2, e.Next())
	require.Equal(t, 2, e.Next())
	require.Equal(t, 0, e.JumpTo(-4))
	require.Equal(t, 2, e.JumpTo(99))
	require.Equal(t, 1, e.JumpTo(1))

	q, ok := e.CurrentQuestion()
	require.True(t, ok)
	require.Equal(t, "q2", q.ID)
}

func TestNavigationOnEmptyEngine(t *testing.T) {
	e := NewEngine(newSession(0), &fakeAPI{}, nil, nil)
	require.Equal(t, 0, e.Next())
	require.Equal(t, 0, e.Previous())
	_, ok := e.CurrentQuestion()
	require.False(t, ok)
}

func TestOpenSubmitModalWarnsOnce(t *testing.T) {
	n := &recNotifier{}
	e := NewEngine(newSession(10), &fakeAPI{}, n, nil)

	for i := 1; i <= 7; i++ {
		require.NoError(t, e.SelectAnswer(fmt.Sprintf("q%d", i), 0))
	}
	_, _ = e.MarkForReview("q1")
	_, _ = e.MarkForReview("q9")

	warning := e.OpenSubmitModal()

	require.Equal(t, "3 questions unanswered and 2 questions marked for review", warning)
	require.Equal(t, []string{warning}, n.warnings)
	require.True(t, e.ModalOpen())
}

func TestOpenSubmitModalWithoutWarning(t *testing.T) {
	n := &recNotifier{}
	e := NewEngine(newSession(2), &fakeAPI{}, n, nil)
	require.NoError(t, e.SelectAnswer("q1", 0))
	require.NoError(t, e.SelectAnswer("q2", 0))

	require.Empty(t, e.OpenSubmitModal())
	require.Empty(t, n.warnings)
	require.True(t, e.ModalOpen())

	e.CloseSubmitModal()
	require.False(t, e.ModalOpen())
}

func TestSubmitSendsEveryQuestion(t *testing.T) {
	api := &fakeAPI{submitResult: &apiclient.SubmitResult{Score: 1, Percentage: 50, TotalQuestions: 2}}
	e := NewEngine(newSession(2), api, nil, nil)
	require.NoError(t, e.SelectAnswer("q1", 2))

	res, err := e.Submit(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, res.Score)

	require.Equal(t, []apiclient.Answer{
		{QuestionID: "q1", SelectedAnswer: 2, TimeSpent: 1},
		{QuestionID: "q2", SelectedAnswer: -1, TimeSpent: 0},
	}, api.lastSubmitted())
}

func TestSubmitTwiceMakesOneCall(t *testing.T) {
	api := &fakeAPI{
		submitResult: &apiclient.SubmitResult{TotalQuestions: 3},
		submitGate:   make(chan struct{}),
	}
	e := NewEngine(newSession(3), api, nil, nil)

	done := make(chan error, 1)
	go func() {
		_, err := e.Submit(context.Background())
		done <- err
	}()

	require.Eventually(t, func() bool { return api.calls() == 1 }, time.Second, time.Millisecond)
	require.True(t, e.IsSubmitting())

	_, err := e.Submit(context.Background())
	require.ErrorIs(t, err, ErrSubmitInFlight)

	close(api.submitGate)
	require.NoError(t, <-done)
	require.Equal(t, 1, api.calls())
	require.False(t, e.IsSubmitting())
}

func TestSubmitFailureKeepsModalOpen(t *testing.T) {
	n := &recNotifier{}
	api := &fakeAPI{submitErr: &apiclient.APIError{Status: 409, Message: "test already submitted"}}
	e := NewEngine(newSession(2), api, n, nil)
	e.OpenSubmitModal()

	_, err := e.Submit(context.Background())
	var apiErr *apiclient.APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, []string{"test already submitted"}, n.errorList())
	require.True(t, e.ModalOpen())
	require.False(t, e.IsSubmitting())

	// 可以手动重试
	api.mu.Lock()
	api.submitErr = nil
	api.submitResult = &apiclient.SubmitResult{TotalQuestions: 2}
	api.mu.Unlock()

	_, err = e.Submit(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, api.calls())
	require.False(t, e.ModalOpen())
}

func TestSubmitFailureWithoutMessageUsesFallback(t *testing.T) {
	n := &recNotifier{}
	api := &fakeAPI{submitErr: errors.New("connection reset")}
	e := NewEngine(newSession(1), api, n, nil)

	_, err := e.Submit(context.Background())
	require.Error(t, err)
	require.Equal(t, []string{apiclient.GenericErrorMessage}, n.errorList())
}
