package flow

import (
	"aptitude_backend/internal/util"
	"aptitude_backend/pkg/apiclient"
	"sync"
)

// Tokens 认证成功后保存的学生身份
type Tokens struct {
	StudentID    string
	AccessToken  string
	RefreshToken string
}

// TokenStore 令牌持久化，只在认证成功后写入
type TokenStore interface {
	Save(t Tokens) error
	Load() (Tokens, bool)
	Clear() error
}

type MemoryTokenStore struct {
	mu     sync.RWMutex
	tokens *Tokens
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{}
}

func (s *MemoryTokenStore) Save(t Tokens) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = &t
	return nil
}

func (s *MemoryTokenStore) Load() (Tokens, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.tokens == nil || s.tokens.AccessToken == "" {
		return Tokens{}, false
	}
	return *s.tokens, true
}

func (s *MemoryTokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = nil
	return nil
}

// AccessToken 供 apiclient.WithTokenSource 使用
func (s *MemoryTokenStore) AccessToken() string {
	t, _ := s.Load()
	return t.AccessToken
}

type LoginForm struct {
	Email    string
	Password string
}

// Validate 顺序：必填 → 邮箱格式
func (f LoginForm) Validate() error {
	if err := util.RequireFields(f.Email, f.Password); err != nil {
		return err
	}
	if !util.IsValidEmail(f.Email) {
		return util.ErrInvalidEmail
	}
	return nil
}

func (f LoginForm) request(testID, collegeID string) apiclient.LoginRequest {
	return apiclient.LoginRequest{
		Email:     f.Email,
		Password:  f.Password,
		TestID:    testID,
		CollegeID: collegeID,
	}
}

type RegisterForm struct {
	Name            string
	Email           string
	Phone           string
	Degree          string
	University      string
	Gender          string
	Password        string
	ConfirmPassword string
}

// Validate 顺序：必填 → 邮箱格式 → 两次密码一致
func (f RegisterForm) Validate() error {
	if err := util.RequireFields(f.Name, f.Email, f.Phone, f.Degree, f.University, f.Gender, f.Password, f.ConfirmPassword); err != nil {
		return err
	}
	if !util.IsValidEmail(f.Email) {
		return util.ErrInvalidEmail
	}
	if f.Password != f.ConfirmPassword {
		return util.ErrPasswordMismatch
	}
	return nil
}

func (f RegisterForm) request(testID, collegeID string) apiclient.RegisterRequest {
	return apiclient.RegisterRequest{
		Name:       f.Name,
		Email:      f.Email,
		Phone:      f.Phone,
		Degree:     f.Degree,
		University: f.University,
		Gender:     f.Gender,
		Password:   f.Password,
		TestID:     testID,
		CollegeID:  collegeID,
	}
}

// Reset 关闭表单时清空
func (f *RegisterForm) Reset() {
	*f = RegisterForm{}
}
