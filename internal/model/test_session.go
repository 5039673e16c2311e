package model

import "time"

type SessionStatus string

const (
	SessionInProgress SessionStatus = "in_progress"
	SessionCompleted  SessionStatus = "completed"
	SessionTimeout    SessionStatus = "timeout"
)

// Unanswered 未作答题目的 selectedAnswer
const Unanswered = -1

// swagger:model TestSession
type TestSession struct {
	UUIDBase
	TestID          string        `gorm:"index:idx_session_student_test;type:varchar(36)" json:"testId"`
	StudentID       string        `gorm:"index:idx_session_student_test;type:varchar(36)" json:"studentId"`
	CollegeID       string        `gorm:"type:varchar(36)" json:"collegeId"`
	Status          SessionStatus `gorm:"size:20;not null;index" json:"status"`
	DurationSeconds int           `json:"durationSeconds"`
	StartedAt       time.Time     `json:"startedAt"`
	ExpiresAt       time.Time     `gorm:"index" json:"expiresAt"`
	CompletedAt     *time.Time    `json:"completedAt,omitempty"`
	Score           int           `gorm:"not null" json:"score"`
	TotalQuestions  int           `gorm:"not null" json:"totalQuestions"`
	Percentage      float64       `gorm:"not null" json:"percentage"`
	Passed          bool          `gorm:"not null" json:"passed"`
	IsTimeout       bool          `gorm:"not null" json:"isTimeout"`
}

func (TestSession) TableName() string {
	return "aptitude_test_sessions"
}

func (s *TestSession) Finished() bool {
	return s.Status == SessionCompleted || s.Status == SessionTimeout
}

// RemainingSeconds 剩余作答秒数，不小于 0
func (s *TestSession) RemainingSeconds(now time.Time) int {
	left := int(s.ExpiresAt.Sub(now).Seconds())
	if left < 0 {
		return 0
	}
	return left
}

// SessionAnswer 作答记录。TimeSpent 是交互次数计数，不是秒数
type SessionAnswer struct {
	UUIDBase
	SessionID      string `gorm:"uniqueIndex:idx_answer_session_question;type:varchar(36)" json:"sessionId"`
	QuestionID     string `gorm:"uniqueIndex:idx_answer_session_question;type:varchar(36)" json:"questionId"`
	SelectedAnswer int    `gorm:"not null" json:"selectedAnswer"`
	TimeSpent      int    `gorm:"not null" json:"timeSpent"`
	IsCorrect      bool   `gorm:"not null" json:"isCorrect"`
}

func (SessionAnswer) TableName() string {
	return "aptitude_session_answers"
}
