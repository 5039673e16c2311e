// Package servicetest 提供 service 层存储接口的内存实现，供各包测试使用
package servicetest

import (
	"aptitude_backend/internal/model"
	"context"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"
)

type Students struct {
	mu       sync.Mutex
	byID     map[string]*model.Student
	LastSeen map[string]time.Time
}

func NewStudents() *Students {
	return &Students{byID: map[string]*model.Student{}, LastSeen: map[string]time.Time{}}
}

func (m *Students) Create(ctx context.Context, s *model.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == "" {
		s.ID = model.NewID()
	}
	cp := *s
	m.byID[s.ID] = &cp
	return nil
}

func (m *Students) FindByID(ctx context.Context, id string) (*model.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *Students) FindByEmail(ctx context.Context, email string) (*model.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.byID {
		if s.Email == email {
			cp := *s
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *Students) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastSeen[id] = at
	return nil
}

// Tests 只读题库，测试可直接修改字段
type Tests struct {
	ByID      map[string]*model.AptitudeTest
	Questions map[string][]model.TestQuestion
}

func (m *Tests) FindTestByID(ctx context.Context, id string) (*model.AptitudeTest, error) {
	t, ok := m.ByID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *Tests) ListQuestions(ctx context.Context, testID string) ([]model.TestQuestion, error) {
	return append([]model.TestQuestion(nil), m.Questions[testID]...), nil
}

type Sessions struct {
	mu       sync.Mutex
	sessions map[string]*model.TestSession
	answers  map[string]map[string]model.SessionAnswer
}

func NewSessions() *Sessions {
	return &Sessions{
		sessions: map[string]*model.TestSession{},
		answers:  map[string]map[string]model.SessionAnswer{},
	}
}

func (m *Sessions) CreateSession(ctx context.Context, s *model.TestSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == "" {
		s.ID = model.NewID()
	}
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *Sessions) FindSessionByID(ctx context.Context, id string) (*model.TestSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *Sessions) FindLatestSession(ctx context.Context, studentID, testID string) (*model.TestSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *model.TestSession
	for _, s := range m.sessions {
		if s.StudentID != studentID || s.TestID != testID {
			continue
		}
		if latest == nil || s.StartedAt.After(latest.StartedAt) {
			latest = s
		}
	}
	if latest == nil {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *latest
	return &cp, nil
}

func (m *Sessions) ListAnswers(ctx context.Context, sessionID string) ([]model.SessionAnswer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.SessionAnswer
	for _, a := range m.answers[sessionID] {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuestionID < out[j].QuestionID })
	return out, nil
}

func (m *Sessions) SaveAnswer(ctx context.Context, a *model.SessionAnswer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.answers[a.SessionID] == nil {
		m.answers[a.SessionID] = map[string]model.SessionAnswer{}
	}
	m.answers[a.SessionID][a.QuestionID] = *a
	return nil
}

// FinishSession 与 gorm 实现一致：会话已结束时返回 gorm.ErrRecordNotFound
func (m *Sessions) FinishSession(ctx context.Context, s *model.TestSession, answers []model.SessionAnswer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.sessions[s.ID]
	if !ok || stored.Status != model.SessionInProgress {
		return gorm.ErrRecordNotFound
	}
	cp := *s
	m.sessions[s.ID] = &cp
	m.answers[s.ID] = map[string]model.SessionAnswer{}
	for _, a := range answers {
		m.answers[s.ID][a.QuestionID] = a
	}
	return nil
}

func (m *Sessions) ListExpiredSessions(ctx context.Context, before time.Time, limit int) ([]model.TestSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.TestSession
	for _, s := range m.sessions {
		if len(out) == limit {
			break
		}
		if s.Status == model.SessionInProgress && s.ExpiresAt.Before(before) {
			out = append(out, *s)
		}
	}
	return out, nil
}

// Get 返回会话副本，不存在时返回零值
func (m *Sessions) Get(id string) model.TestSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		return *s
	}
	return model.TestSession{}
}

// SampleTest 已发布的 test-1，三道四选项题 q1..q3，正确答案依次为 0、1、2
func SampleTest() *Tests {
	test := &model.AptitudeTest{
		UUIDBase:     model.UUIDBase{ID: "test-1"},
		Name:         "General Aptitude",
		CollegeID:    "college-1",
		CollegeName:  "City College",
		Duration:     30,
		PassingScore: 60,
		IsPublished:  true,
	}
	ids := []string{"q1", "q2", "q3"}
	qs := make([]model.TestQuestion, len(ids))
	for i, id := range ids {
		opts := []model.QuestionOption{{Text: "A"}, {Text: "B"}, {Text: "C"}, {Text: "D"}}
		opts[i].IsCorrect = true
		qs[i] = model.TestQuestion{
			UUIDBase: model.UUIDBase{ID: id},
			TestID:   test.ID,
			Question: "Question " + id,
			Options:  opts,
			Order:    i,
		}
	}
	return &Tests{
		ByID:      map[string]*model.AptitudeTest{test.ID: test},
		Questions: map[string][]model.TestQuestion{test.ID: qs},
	}
}
