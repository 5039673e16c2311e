package flow

import (
	"aptitude_backend/internal/util"
	"aptitude_backend/pkg/apiclient"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newController(api *fakeAPI, n *recNotifier, clock *fakeClock, redirect func()) *Controller {
	return New(Config{
		TestID:    "test-1",
		CollegeID: "college-1",
		API:       api,
		Notifier:  n,
		Clock:     clock,
		Redirect:  redirect,
	})
}

func validRegisterForm() RegisterForm {
	return RegisterForm{
		Name:            "Asha",
		Email:           "asha@example.com",
		Phone:           "9999999999",
		Degree:          "B.Tech",
		University:      "State University",
		Gender:          "female",
		Password:        "secret1",
		ConfirmPassword: "secret1",
	}
}

func TestControllerStartsInAuthWithoutToken(t *testing.T) {
	c := newController(&fakeAPI{}, &recNotifier{}, newFakeClock(), nil)
	require.Equal(t, PhaseAuth, c.Phase())
}

func TestControllerStartsInInstructionsWithStoredToken(t *testing.T) {
	tokens := NewMemoryTokenStore()
	require.NoError(t, tokens.Save(Tokens{StudentID: "s1", AccessToken: "tok"}))

	api := &fakeAPI{details: &apiclient.TestDetails{Name: "Quant"}}
	c := New(Config{TestID: "test-1", API: api, Tokens: tokens})
	require.Equal(t, PhaseInstructions, c.Phase())
	require.True(t, c.Instructions().Loading)

	require.NoError(t, c.LoadDetails(context.Background()))
	require.False(t, c.Instructions().Loading)
	require.Equal(t, "Quant", c.Instructions().Details.Name)
}

func TestLoginWrongPasswordStaysInAuth(t *testing.T) {
	api := &fakeAPI{loginErr: &apiclient.APIError{Status: 401, Message: "invalid email or password", ErrorText: "invalid email or password"}}
	n := &recNotifier{}
	tokens := NewMemoryTokenStore()
	c := New(Config{TestID: "test-1", API: api, Notifier: n, Tokens: tokens})

	err := c.Login(context.Background(), LoginForm{Email: "a@b.co", Password: "wrong"})
	require.Error(t, err)

	require.Equal(t, PhaseAuth, c.Phase())
	require.Equal(t, []string{"invalid email or password"}, n.errorList())
	_, ok := tokens.Load()
	require.False(t, ok)
}

func TestLoginNetworkErrorUsesGenericMessage(t *testing.T) {
	api := &fakeAPI{loginErr: errors.New("dial tcp: connection refused")}
	n := &recNotifier{}
	c := newController(api, n, newFakeClock(), nil)

	require.Error(t, c.Login(context.Background(), LoginForm{Email: "a@b.co", Password: "pw"}))
	require.Equal(t, []string{apiclient.GenericErrorMessage}, n.errorList())
}

func TestLoginValidationSkipsNetwork(t *testing.T) {
	api := &fakeAPI{}
	n := &recNotifier{}
	c := newController(api, n, newFakeClock(), nil)

	require.ErrorIs(t, c.Login(context.Background(), LoginForm{Email: "a@b.co"}), util.ErrMissingFields)
	require.ErrorIs(t, c.Login(context.Background(), LoginForm{Email: "not-an-email", Password: "pw"}), util.ErrInvalidEmail)
	require.Zero(t, api.loginCalls)
	require.Len(t, n.errorList(), 2)
	require.Equal(t, PhaseAuth, c.Phase())
}

func TestLoginSuccessStoresTokensAndLoadsDetails(t *testing.T) {
	api := &fakeAPI{
		loginResp: &apiclient.LoginResponse{StudentID: "s1", AccessToken: "access", RefreshToken: "refresh", Message: "Login successful"},
		details:   &apiclient.TestDetails{Name: "Aptitude", TotalQuestions: 10},
	}
	n := &recNotifier{}
	tokens := NewMemoryTokenStore()
	c := New(Config{TestID: "test-1", API: api, Notifier: n, Tokens: tokens})

	require.NoError(t, c.Login(context.Background(), LoginForm{Email: "a@b.co", Password: "pw"}))

	require.Equal(t, PhaseInstructions, c.Phase())
	got, ok := tokens.Load()
	require.True(t, ok)
	require.Equal(t, Tokens{StudentID: "s1", AccessToken: "access", RefreshToken: "refresh"}, got)
	require.Equal(t, "access", tokens.AccessToken())
	require.Equal(t, []string{"Login successful"}, n.success)
	require.Equal(t, DefaultInstructions, c.Instructions().Items())
	require.Equal(t, DefaultRules, c.Instructions().Rules())
}

func TestRegisterValidationOrder(t *testing.T) {
	f := validRegisterForm()
	f.Phone = ""
	f.Email = "bad"
	f.ConfirmPassword = "other"
	require.ErrorIs(t, f.Validate(), util.ErrMissingFields)

	f.Phone = "1"
	require.ErrorIs(t, f.Validate(), util.ErrInvalidEmail)

	f.Email = "asha@example.com"
	require.ErrorIs(t, f.Validate(), util.ErrPasswordMismatch)

	f.ConfirmPassword = f.Password
	require.NoError(t, f.Validate())

	f.Reset()
	require.Equal(t, RegisterForm{}, f)
}

func TestRegisterSuccessStoresSingleToken(t *testing.T) {
	api := &fakeAPI{
		registerResp: &apiclient.RegisterResponse{StudentID: "s2", Token: "tok"},
		details:      &apiclient.TestDetails{Instructions: []string{"Be honest"}},
	}
	n := &recNotifier{}
	tokens := NewMemoryTokenStore()
	c := New(Config{TestID: "test-1", API: api, Notifier: n, Tokens: tokens})

	require.NoError(t, c.Register(context.Background(), validRegisterForm()))

	got, ok := tokens.Load()
	require.True(t, ok)
	require.Equal(t, Tokens{StudentID: "s2", AccessToken: "tok"}, got)
	require.Equal(t, []string{"Registration successful"}, n.success)
	require.Equal(t, PhaseInstructions, c.Phase())
	require.Equal(t, []string{"Be honest"}, c.Instructions().Items())
}

func TestRegisterDuplicateShowsServerError(t *testing.T) {
	api := &fakeAPI{registerErr: &apiclient.APIError{Status: 409, ErrorText: "email already registered"}}
	n := &recNotifier{}
	c := newController(api, n, newFakeClock(), nil)

	require.Error(t, c.Register(context.Background(), validRegisterForm()))
	require.Equal(t, PhaseAuth, c.Phase())
	require.Equal(t, []string{"email already registered"}, n.errorList())
}

func loggedIn(t *testing.T, api *fakeAPI, n *recNotifier, clock *fakeClock, redirect func()) *Controller {
	t.Helper()
	tokens := NewMemoryTokenStore()
	require.NoError(t, tokens.Save(Tokens{StudentID: "s1", AccessToken: "tok"}))
	c := New(Config{
		TestID:   "test-1",
		API:      api,
		Tokens:   tokens,
		Notifier: n,
		Clock:    clock,
		Redirect: redirect,
	})
	t.Cleanup(c.Close)
	return c
}

func TestBeginTestFailureKeepsInstructions(t *testing.T) {
	api := &fakeAPI{startErr: &apiclient.APIError{Status: 403, Message: "retake is not allowed for this test"}}
	n := &recNotifier{}
	c := loggedIn(t, api, n, newFakeClock(), nil)

	require.Error(t, c.BeginTest(context.Background()))
	require.Equal(t, PhaseInstructions, c.Phase())
	require.Equal(t, []string{"retake is not allowed for this test"}, n.errorList())
}

func TestBeginTestIgnoresDoubleStart(t *testing.T) {
	gate := make(chan struct{})
	api := &fakeAPI{start: newSession(3), startGate: gate}
	c := loggedIn(t, api, &recNotifier{}, newFakeClock(), nil)

	done := make(chan error, 1)
	go func() { done <- c.BeginTest(context.Background()) }()

	require.Eventually(t, func() bool {
		api.mu.Lock()
		defer api.mu.Unlock()
		return api.startCalls == 1
	}, time.Second, 5*time.Millisecond)

	require.ErrorIs(t, c.BeginTest(context.Background()), ErrStartInFlight)

	close(gate)
	require.NoError(t, <-done)
	require.Equal(t, PhaseTest, c.Phase())
	require.Equal(t, 1, api.startCalls)
}

func TestBeginTestRetryAfterFailure(t *testing.T) {
	api := &fakeAPI{startErr: errors.New("network down")}
	c := loggedIn(t, api, &recNotifier{}, newFakeClock(), nil)

	require.Error(t, c.BeginTest(context.Background()))
	require.Equal(t, PhaseInstructions, c.Phase())

	api.mu.Lock()
	api.startErr = nil
	api.start = newSession(2)
	api.mu.Unlock()

	require.NoError(t, c.BeginTest(context.Background()))
	require.Equal(t, PhaseTest, c.Phase())
	require.Equal(t, 2, api.startCalls)
}

func TestBeginTestRejectedOutsideInstructions(t *testing.T) {
	c := newController(&fakeAPI{}, &recNotifier{}, newFakeClock(), nil)
	require.ErrorIs(t, c.BeginTest(context.Background()), ErrWrongPhase)
	require.ErrorIs(t, c.SubmitTest(context.Background()), ErrWrongPhase)
}

func TestManualSubmitMovesToResult(t *testing.T) {
	api := &fakeAPI{
		start:        newSession(4),
		submitResult: &apiclient.SubmitResult{Score: 3, Percentage: 75, TotalQuestions: 4, Passed: true},
	}
	clock := newFakeClock()
	redirects := 0
	c := loggedIn(t, api, &recNotifier{}, clock, func() { redirects++ })

	require.NoError(t, c.BeginTest(context.Background()))
	require.Equal(t, PhaseTest, c.Phase())
	require.Equal(t, 3600, c.Countdown().Remaining())

	e := c.Engine()
	require.NoError(t, e.SelectAnswer("q1", 1))
	e.OpenSubmitModal()
	require.NoError(t, c.SubmitTest(context.Background()))

	require.Equal(t, PhaseResult, c.Phase())
	require.Nil(t, c.Engine())
	require.Equal(t, 75.0, c.Result().Result.Percentage)

	c.KeyPress()
	c.KeyPress()
	require.Equal(t, 1, redirects)
}

func TestTimeUpSubmitsCompleteAnswerSet(t *testing.T) {
	session := newSession(10)
	session.RemainingSeconds = 2
	api := &fakeAPI{
		start:        session,
		submitResult: &apiclient.SubmitResult{Score: 4, Percentage: 40, TotalQuestions: 10},
	}
	clock := newFakeClock()
	c := loggedIn(t, api, &recNotifier{}, clock, nil)

	require.NoError(t, c.BeginTest(context.Background()))
	e := c.Engine()
	for i := 1; i <= 5; i++ {
		require.NoError(t, e.SelectAnswer(fmt.Sprintf("q%d", i), i%4))
	}

	clock.tick()
	clock.tick()

	require.Eventually(t, func() bool { return c.Phase() == PhaseResult }, time.Second, time.Millisecond)
	require.Equal(t, 1, api.calls())

	answers := api.lastSubmitted()
	require.Len(t, answers, 10)
	unanswered := 0
	for i, a := range answers {
		require.Equal(t, fmt.Sprintf("q%d", i+1), a.QuestionID)
		if a.SelectedAnswer == Unanswered {
			unanswered++
		}
	}
	require.Equal(t, 5, unanswered)
}

func TestTimeUpDuringManualSubmitDoesNotResubmit(t *testing.T) {
	session := newSession(2)
	session.RemainingSeconds = 1
	api := &fakeAPI{
		start:        session,
		submitResult: &apiclient.SubmitResult{TotalQuestions: 2},
		submitGate:   make(chan struct{}),
	}
	clock := newFakeClock()
	c := loggedIn(t, api, &recNotifier{}, clock, nil)
	require.NoError(t, c.BeginTest(context.Background()))

	done := make(chan error, 1)
	go func() { done <- c.SubmitTest(context.Background()) }()
	require.Eventually(t, func() bool { return api.calls() == 1 }, time.Second, time.Millisecond)

	clock.tick()
	close(api.submitGate)

	require.NoError(t, <-done)
	require.Equal(t, PhaseResult, c.Phase())
	require.Equal(t, 1, api.calls())
}

func TestAutosaveSendsAnswers(t *testing.T) {
	api := &fakeAPI{start: newSession(2)}
	tokens := NewMemoryTokenStore()
	require.NoError(t, tokens.Save(Tokens{AccessToken: "tok"}))
	c := New(Config{TestID: "test-1", API: api, Tokens: tokens, Clock: newFakeClock(), Autosave: true})
	t.Cleanup(c.Close)

	require.NoError(t, c.BeginTest(context.Background()))
	require.NoError(t, c.Engine().SelectAnswer("q2", 3))

	require.Eventually(t, func() bool {
		api.mu.Lock()
		defer api.mu.Unlock()
		return len(api.saved) == 1
	}, time.Second, time.Millisecond)
	require.Equal(t, apiclient.Answer{QuestionID: "q2", SelectedAnswer: 3, TimeSpent: 1}, api.saved[0])
}
