package service

import (
	"aptitude_backend/internal/config"
	"aptitude_backend/internal/model"
	"aptitude_backend/internal/util"
	"aptitude_backend/pkg/logger"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthService struct {
	Students StudentStore
	Tokens   RefreshTokenStore
	Cfg      *config.Config

	hashCost int
	now      func() time.Time
}

func NewAuthService(students StudentStore, tokens RefreshTokenStore, cfg *config.Config) *AuthService {
	return &AuthService{
		Students: students,
		Tokens:   tokens,
		Cfg:      cfg,
		hashCost: bcrypt.DefaultCost,
		now:      time.Now,
	}
}

type LoginInput struct {
	Email     string
	Password  string
	TestID    string
	CollegeID string
}

type LoginResult struct {
	StudentID    string
	AccessToken  string
	RefreshToken string
}

type RegisterInput struct {
	Name       string
	Email      string
	Phone      string
	Degree     string
	University string
	Gender     string
	Password   string
	TestID     string
	CollegeID  string
}

type RegisterResult struct {
	StudentID string
	Token     string
}

// ValidateRegistration 校验顺序：必填 → 邮箱格式 → 密码长度 → 性别取值
func ValidateRegistration(in RegisterInput, minPasswordLen int) error {
	if err := util.RequireFields(in.Name, in.Email, in.Phone, in.Degree, in.University, in.Gender, in.Password); err != nil {
		return err
	}
	if !util.IsValidEmail(in.Email) {
		return util.ErrInvalidEmail
	}
	if len(in.Password) < minPasswordLen {
		return fmt.Errorf("%w: at least %d characters", util.ErrPasswordTooShort, minPasswordLen)
	}
	if !model.Gender(strings.ToLower(in.Gender)).Valid() {
		return util.ErrInvalidGender
	}
	return nil
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := ValidateRegistration(in, s.Cfg.Aptitude.MinPasswordLength); err != nil {
		return nil, err
	}

	_, err := s.Students.FindByEmail(ctx, in.Email)
	if err == nil {
		return nil, util.ErrEmailRegistered
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
	if err != nil {
		return nil, err
	}

	student := &model.Student{
		Name:       strings.TrimSpace(in.Name),
		Email:      in.Email,
		Phone:      strings.TrimSpace(in.Phone),
		Degree:     strings.TrimSpace(in.Degree),
		University: strings.TrimSpace(in.University),
		Gender:     model.Gender(strings.ToLower(in.Gender)),
		Password:   string(hashed),
		CollegeID:  in.CollegeID,
	}
	if err := s.Students.Create(ctx, student); err != nil {
		return nil, err
	}

	token, _, err := util.GenerateJWT(s.subject(student, in.TestID, in.CollegeID), util.TokenTypeAccess, s.Cfg.JWT.Secret, s.Cfg.JWT.ExpireTime)
	if err != nil {
		return nil, err
	}

	logger.Log.Info("student registered",
		zap.String("studentId", student.ID),
		zap.String("testId", in.TestID),
	)
	return &RegisterResult{StudentID: student.ID, Token: token}, nil
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	if err := util.RequireFields(in.Email, in.Password); err != nil {
		return nil, err
	}

	student, err := s.Students.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(in.Email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(student.Password), []byte(in.Password)); err != nil {
		return nil, util.ErrInvalidCredentials
	}

	res, err := s.issuePair(ctx, s.subject(student, in.TestID, in.CollegeID))
	if err != nil {
		return nil, err
	}

	if err := s.Students.TouchLastLogin(ctx, student.ID, s.now()); err != nil {
		logger.Log.Warn("update last login failed", zap.String("studentId", student.ID), zap.Error(err))
	}
	return res, nil
}

// Refresh 用刷新令牌换取新的令牌对，旧刷新令牌作废
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	claims, err := util.ParseJWT(refreshToken, s.Cfg.JWT.Secret, util.TokenTypeRefresh)
	if err != nil {
		return nil, util.ErrInvalidToken
	}

	studentID, err := s.Tokens.ConsumeRefresh(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if studentID != claims.StudentID {
		return nil, util.ErrInvalidToken
	}

	return s.issuePair(ctx, util.TokenSubject{
		StudentID: claims.StudentID,
		Email:     claims.Email,
		TestID:    claims.TestID,
		CollegeID: claims.CollegeID,
	})
}

func (s *AuthService) subject(student *model.Student, testID, collegeID string) util.TokenSubject {
	if collegeID == "" {
		collegeID = student.CollegeID
	}
	return util.TokenSubject{
		StudentID: student.ID,
		Email:     student.Email,
		TestID:    testID,
		CollegeID: collegeID,
	}
}

func (s *AuthService) issuePair(ctx context.Context, sub util.TokenSubject) (*LoginResult, error) {
	access, _, err := util.GenerateJWT(sub, util.TokenTypeAccess, s.Cfg.JWT.Secret, s.Cfg.JWT.ExpireTime)
	if err != nil {
		return nil, err
	}
	refresh, claims, err := util.GenerateJWT(sub, util.TokenTypeRefresh, s.Cfg.JWT.Secret, s.Cfg.JWT.RefreshExpire)
	if err != nil {
		return nil, err
	}
	if err := s.Tokens.StoreRefresh(ctx, claims.ID, sub.StudentID, s.Cfg.JWT.RefreshExpire); err != nil {
		return nil, err
	}
	return &LoginResult{StudentID: sub.StudentID, AccessToken: access, RefreshToken: refresh}, nil
}
