package service

import (
	"aptitude_backend/internal/config"
	"aptitude_backend/internal/model"
	"aptitude_backend/internal/util"
	"aptitude_backend/pkg/logger"
	"aptitude_backend/pkg/monitoring"
	"aptitude_backend/pkg/tracing"
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const sweepBatchSize = 100

type SessionService struct {
	Tests    TestStore
	Sessions SessionStore
	Locker   SessionLocker
	Active   ActiveSessionCache

	mu  sync.RWMutex
	apt config.AptitudeConfig
	now func() time.Time
}

func NewSessionService(tests TestStore, sessions SessionStore, guard *SessionGuard, cfg *config.Config) *SessionService {
	return &SessionService{
		Tests:    tests,
		Sessions: sessions,
		Locker:   guard,
		Active:   guard,
		apt:      cfg.Aptitude,
		now:      time.Now,
	}
}

// UpdateAptitude 热更新宽限期、锁时长等参数
func (s *SessionService) UpdateAptitude(apt config.AptitudeConfig) {
	s.mu.Lock()
	s.apt = apt
	s.mu.Unlock()
}

func (s *SessionService) aptitude() config.AptitudeConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.apt
}

// StudentQuestion 下发给学生的题目，不含正确答案
type StudentQuestion struct {
	ID             string   `json:"_id"`
	Question       string   `json:"question"`
	Options        []string `json:"options"`
	SelectedAnswer int      `json:"selectedAnswer"`
	TimeSpent      int      `json:"timeSpent"`
}

type StartResult struct {
	SessionID        string            `json:"sessionId"`
	TestID           string            `json:"testId"`
	CollegeID        string            `json:"collegeId"`
	DurationSeconds  int               `json:"durationSeconds"`
	RemainingSeconds int               `json:"remainingSeconds"`
	Resumed          bool              `json:"resumed"`
	Questions        []StudentQuestion `json:"questions"`
}

type SubmitResult struct {
	SessionID      string  `json:"sessionId"`
	Score          int     `json:"score"`
	Percentage     float64 `json:"percentage"`
	TotalQuestions int     `json:"totalQuestions"`
	Passed         bool    `json:"passed"`
	IsTimeout      bool    `json:"isTimeout"`
}

func resultOf(s *model.TestSession) *SubmitResult {
	return &SubmitResult{
		SessionID:      s.ID,
		Score:          s.Score,
		Percentage:     s.Percentage,
		TotalQuestions: s.TotalQuestions,
		Passed:         s.Passed,
		IsTimeout:      s.IsTimeout,
	}
}

// StartTest 创建或恢复会话。同一学生同一试卷同时只有一个进行中的会话
func (s *SessionService) StartTest(ctx context.Context, studentID, testID string) (*StartResult, error) {
	test, err := loadPublished(ctx, s.Tests, testID)
	if err != nil {
		return nil, err
	}
	qs, err := s.Tests.ListQuestions(ctx, testID)
	if err != nil {
		return nil, err
	}
	if len(qs) == 0 {
		return nil, util.ErrTestHasNoQuestions
	}

	release, err := s.Locker.AcquireStart(ctx, studentID, testID, s.aptitude().SubmitLockTTL())
	if err != nil {
		return nil, err
	}
	defer release()

	now := s.now()
	latest, err := s.currentSession(ctx, studentID, testID)
	if err != nil {
		return nil, err
	}

	if latest != nil && latest.Status == model.SessionInProgress {
		if now.Before(latest.ExpiresAt) {
			return s.resume(ctx, latest, qs, now)
		}
		// 已超时但尚未被清扫的会话，先按已保存答案收卷
		if _, err := s.finalize(ctx, latest, nil, true); err != nil && !errors.Is(err, util.ErrTestAlreadySubmitted) {
			return nil, err
		}
		latest.Status = model.SessionTimeout
	}

	if latest != nil && latest.Finished() && !test.AllowRetake {
		return nil, util.ErrRetakeNotAllowed
	}

	duration := test.DurationSeconds()
	if duration <= 0 {
		duration = s.aptitude().DefaultDurationMin * 60
	}

	session := &model.TestSession{
		TestID:          testID,
		StudentID:       studentID,
		CollegeID:       test.CollegeID,
		Status:          model.SessionInProgress,
		DurationSeconds: duration,
		StartedAt:       now,
		ExpiresAt:       now.Add(time.Duration(duration) * time.Second),
		TotalQuestions:  len(qs),
	}
	if err := s.Sessions.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	ttl := time.Duration(duration)*time.Second + s.aptitude().Grace()
	if err := s.Active.SetActiveSession(ctx, studentID, testID, session.ID, ttl); err != nil {
		logger.Log.Warn("cache active session failed", zap.String("sessionId", session.ID), zap.Error(err))
	}

	monitoring.SessionsStarted.WithLabelValues("new").Inc()
	logger.Log.Info("test session started",
		zap.String("sessionId", session.ID),
		zap.String("studentId", studentID),
		zap.String("testId", testID),
		zap.Int("durationSeconds", duration),
	)

	return &StartResult{
		SessionID:        session.ID,
		TestID:           testID,
		CollegeID:        session.CollegeID,
		DurationSeconds:  duration,
		RemainingSeconds: duration,
		Questions:        studentQuestions(qs, nil),
	}, nil
}

func (s *SessionService) resume(ctx context.Context, session *model.TestSession, qs []model.TestQuestion, now time.Time) (*StartResult, error) {
	saved, err := s.Sessions.ListAnswers(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	monitoring.SessionsStarted.WithLabelValues("resumed").Inc()

	return &StartResult{
		SessionID:        session.ID,
		TestID:           session.TestID,
		CollegeID:        session.CollegeID,
		DurationSeconds:  session.DurationSeconds,
		RemainingSeconds: session.RemainingSeconds(now),
		Resumed:          true,
		Questions:        studentQuestions(qs, saved),
	}, nil
}

func studentQuestions(qs []model.TestQuestion, saved []model.SessionAnswer) []StudentQuestion {
	byQuestion := make(map[string]model.SessionAnswer, len(saved))
	for _, a := range saved {
		byQuestion[a.QuestionID] = a
	}

	out := make([]StudentQuestion, len(qs))
	for i, q := range qs {
		opts := make([]string, len(q.Options))
		for j, o := range q.Options {
			opts[j] = o.Text
		}
		sq := StudentQuestion{
			ID:             q.ID,
			Question:       q.Question,
			Options:        opts,
			SelectedAnswer: model.Unanswered,
		}
		if a, ok := byQuestion[q.ID]; ok {
			sq.SelectedAnswer = a.SelectedAnswer
			sq.TimeSpent = a.TimeSpent
		}
		out[i] = sq
	}
	return out
}

// ownedSession 读取会话并校验归属
func (s *SessionService) ownedSession(ctx context.Context, studentID, sessionID string) (*model.TestSession, error) {
	session, err := s.Sessions.FindSessionByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrSessionNotFound
		}
		return nil, err
	}
	if session.StudentID != studentID {
		return nil, util.ErrSessionNotOwned
	}
	return session, nil
}

func validateAnswer(a AnswerInput, byID map[string]*model.TestQuestion) error {
	q, ok := byID[a.QuestionID]
	if !ok {
		return util.ErrUnknownQuestion
	}
	if a.SelectedAnswer < model.Unanswered || a.SelectedAnswer >= len(q.Options) {
		return util.ErrAnswerOutOfRange
	}
	return nil
}

func indexQuestions(qs []model.TestQuestion) map[string]*model.TestQuestion {
	byID := make(map[string]*model.TestQuestion, len(qs))
	for i := range qs {
		byID[qs[i].ID] = &qs[i]
	}
	return byID
}

// SaveAnswer 单题自动保存
func (s *SessionService) SaveAnswer(ctx context.Context, studentID, sessionID string, in AnswerInput) error {
	session, err := s.ownedSession(ctx, studentID, sessionID)
	if err != nil {
		return err
	}
	if session.Finished() {
		return util.ErrTestAlreadySubmitted
	}
	if s.now().After(session.ExpiresAt.Add(s.aptitude().Grace())) {
		return util.ErrSessionExpired
	}

	qs, err := s.Tests.ListQuestions(ctx, session.TestID)
	if err != nil {
		return err
	}
	if err := validateAnswer(in, indexQuestions(qs)); err != nil {
		return err
	}

	return s.Sessions.SaveAnswer(ctx, &model.SessionAnswer{
		SessionID:      sessionID,
		QuestionID:     in.QuestionID,
		SelectedAnswer: in.SelectedAnswer,
		TimeSpent:      in.TimeSpent,
	})
}

// Submit 交卷并由服务端评分。截止时间加宽限期之后的提交仍被接受，但标记为超时
func (s *SessionService) Submit(ctx context.Context, studentID, sessionID string, answers []AnswerInput) (res *SubmitResult, err error) {
	ctx, span := tracing.StartSpan(ctx, "SessionService.Submit", attribute.String("session.id", sessionID))
	defer func() { tracing.EndSpan(span, err) }()

	session, err := s.ownedSession(ctx, studentID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Finished() {
		monitoring.SubmissionsTotal.WithLabelValues("rejected").Inc()
		return nil, util.ErrTestAlreadySubmitted
	}

	late := s.now().After(session.ExpiresAt.Add(s.aptitude().Grace()))
	return s.finalize(ctx, session, answers, late)
}

// finalize 加锁评分并落库。answers 为 nil 时使用已自动保存的答案
func (s *SessionService) finalize(ctx context.Context, session *model.TestSession, answers []AnswerInput, timedOut bool) (*SubmitResult, error) {
	release, err := s.Locker.AcquireSubmit(ctx, session.ID, s.aptitude().SubmitLockTTL())
	if err != nil {
		if errors.Is(err, util.ErrSubmitInProgress) {
			monitoring.SubmissionsTotal.WithLabelValues("rejected").Inc()
		}
		return nil, err
	}
	defer release()

	test, err := s.Tests.FindTestByID(ctx, session.TestID)
	if err != nil {
		return nil, err
	}
	qs, err := s.Tests.ListQuestions(ctx, session.TestID)
	if err != nil {
		return nil, err
	}
	byID := indexQuestions(qs)

	merged := make(map[string]AnswerInput, len(qs))
	saved, err := s.Sessions.ListAnswers(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	for _, a := range saved {
		merged[a.QuestionID] = AnswerInput{QuestionID: a.QuestionID, SelectedAnswer: a.SelectedAnswer, TimeSpent: a.TimeSpent}
	}
	for _, a := range answers {
		if err := validateAnswer(a, byID); err != nil {
			return nil, err
		}
		merged[a.QuestionID] = a
	}

	graded := Grade(session.ID, qs, merged, test.PassingScore)

	now := s.now()
	session.CompletedAt = &now
	session.Score = graded.Score
	session.TotalQuestions = graded.TotalQuestions
	session.Percentage = graded.Percentage
	session.Passed = graded.Passed
	session.IsTimeout = timedOut
	session.Status = model.SessionCompleted
	if timedOut && answers == nil {
		session.Status = model.SessionTimeout
	}

	if err := s.Sessions.FinishSession(ctx, session, graded.Answers); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrTestAlreadySubmitted
		}
		return nil, err
	}

	if err := s.Active.ClearActiveSession(ctx, session.StudentID, session.TestID); err != nil {
		logger.Log.Warn("clear active session failed", zap.String("sessionId", session.ID), zap.Error(err))
	}

	outcome := "failed"
	switch {
	case timedOut:
		outcome = "timeout"
	case session.Passed:
		outcome = "passed"
	}
	monitoring.SubmissionsTotal.WithLabelValues(outcome).Inc()

	logger.Log.Info("test session graded",
		zap.String("sessionId", session.ID),
		zap.String("studentId", session.StudentID),
		zap.Int("score", session.Score),
		zap.Int("total", session.TotalQuestions),
		zap.Bool("timeout", timedOut),
	)
	return resultOf(session), nil
}

func (s *SessionService) GetResult(ctx context.Context, studentID, sessionID string) (*SubmitResult, error) {
	session, err := s.ownedSession(ctx, studentID, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.Finished() {
		return nil, util.ErrSessionInProgress
	}
	return resultOf(session), nil
}

// currentSession 优先使用 Redis 登记的进行中会话，缺失或已失效时回落到数据库中最近一次会话
func (s *SessionService) currentSession(ctx context.Context, studentID, testID string) (*model.TestSession, error) {
	id, ok, err := s.Active.ActiveSession(ctx, studentID, testID)
	if err != nil {
		logger.Log.Warn("read active session failed", zap.String("studentId", studentID), zap.String("testId", testID), zap.Error(err))
	}
	if ok {
		session, err := s.Sessions.FindSessionByID(ctx, id)
		switch {
		case err == nil && session.StudentID == studentID && session.TestID == testID && session.Status == model.SessionInProgress:
			return session, nil
		case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, err
		}
	}

	latest, err := s.Sessions.FindLatestSession(ctx, studentID, testID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return latest, err
}

// SweepExpired 收卷所有超过截止时间加宽限期的会话，返回处理数量
func (s *SessionService) SweepExpired(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.aptitude().Grace())
	sessions, err := s.Sessions.ListExpiredSessions(ctx, cutoff, sweepBatchSize)
	if err != nil {
		return 0, err
	}

	done := 0
	for i := range sessions {
		if _, err := s.finalize(ctx, &sessions[i], nil, true); err != nil {
			if errors.Is(err, util.ErrSubmitInProgress) || errors.Is(err, util.ErrTestAlreadySubmitted) {
				continue
			}
			logger.Log.Error("finalize expired session failed", zap.String("sessionId", sessions[i].ID), zap.Error(err))
			continue
		}
		done++
	}
	return done, nil
}
