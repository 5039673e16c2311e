package service

import (
	"aptitude_backend/internal/model"
	"context"
	"time"
)

// 以下接口由 repository 包中的 gorm 实现满足，测试中可替换为内存实现

type StudentStore interface {
	Create(ctx context.Context, student *model.Student) error
	FindByID(ctx context.Context, id string) (*model.Student, error)
	FindByEmail(ctx context.Context, email string) (*model.Student, error)
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
}

type TestStore interface {
	FindTestByID(ctx context.Context, id string) (*model.AptitudeTest, error)
	ListQuestions(ctx context.Context, testID string) ([]model.TestQuestion, error)
}

type SessionStore interface {
	CreateSession(ctx context.Context, session *model.TestSession) error
	FindSessionByID(ctx context.Context, id string) (*model.TestSession, error)
	FindLatestSession(ctx context.Context, studentID, testID string) (*model.TestSession, error)
	ListAnswers(ctx context.Context, sessionID string) ([]model.SessionAnswer, error)
	SaveAnswer(ctx context.Context, answer *model.SessionAnswer) error
	FinishSession(ctx context.Context, session *model.TestSession, answers []model.SessionAnswer) error
	ListExpiredSessions(ctx context.Context, before time.Time, limit int) ([]model.TestSession, error)
}

// SessionLocker 防止同一会话被并发提交，以及同一学生同一试卷被并发开考
type SessionLocker interface {
	AcquireSubmit(ctx context.Context, sessionID string, ttl time.Duration) (release func(), err error)
	AcquireStart(ctx context.Context, studentID, testID string, ttl time.Duration) (release func(), err error)
}

type ActiveSessionCache interface {
	SetActiveSession(ctx context.Context, studentID, testID, sessionID string, ttl time.Duration) error
	ActiveSession(ctx context.Context, studentID, testID string) (string, bool, error)
	ClearActiveSession(ctx context.Context, studentID, testID string) error
}

type RefreshTokenStore interface {
	StoreRefresh(ctx context.Context, jti, studentID string, ttl time.Duration) error
	ConsumeRefresh(ctx context.Context, jti string) (string, error)
}
