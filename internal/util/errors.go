package util

import "errors"

var (
	ErrStudentNotFound      = errors.New("student not found")
	ErrEmailRegistered      = errors.New("email already registered")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrInvalidToken         = errors.New("invalid or expired token")
	ErrTestNotFound         = errors.New("test not found")
	ErrTestNotPublished     = errors.New("test not published or not accessible")
	ErrTestHasNoQuestions   = errors.New("test has no questions")
	ErrSessionNotFound      = errors.New("test session not found")
	ErrSessionNotOwned      = errors.New("test session belongs to another student")
	ErrSessionExpired       = errors.New("test session has expired")
	ErrSessionInProgress    = errors.New("test session is still in progress")
	ErrTestAlreadySubmitted = errors.New("test already submitted")
	ErrRetakeNotAllowed     = errors.New("retake is not allowed for this test")
	ErrSubmitInProgress     = errors.New("a submission for this session is already in progress")
	ErrSessionStarting      = errors.New("the test is already being started, please retry")
	ErrUnknownQuestion      = errors.New("question does not belong to this test")
	ErrAnswerOutOfRange     = errors.New("selected answer is out of range")
)
