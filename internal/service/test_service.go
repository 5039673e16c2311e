package service

import (
	"aptitude_backend/internal/model"
	"aptitude_backend/internal/util"
	"context"
	"errors"

	"gorm.io/gorm"
)

type TestService struct {
	Tests TestStore
}

func NewTestService(tests TestStore) *TestService {
	return &TestService{Tests: tests}
}

// TestDetails 说明页展示的试卷信息，客户端只读
type TestDetails struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	College        string   `json:"college"`
	CollegeID      string   `json:"collegeId"`
	Duration       int      `json:"duration"` // Minutes
	TotalQuestions int      `json:"totalQuestions"`
	PassingScore   float64  `json:"passingScore"`
	AllowRetake    bool     `json:"allowRetake"`
	Instructions   []string `json:"instructions"`
	Rules          []string `json:"rules"`
}

// loadPublished 读取已发布试卷
func loadPublished(ctx context.Context, tests TestStore, testID string) (*model.AptitudeTest, error) {
	test, err := tests.FindTestByID(ctx, testID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrTestNotFound
		}
		return nil, err
	}
	if !test.IsPublished {
		return nil, util.ErrTestNotPublished
	}
	return test, nil
}

func (s *TestService) GetDetails(ctx context.Context, testID string) (*TestDetails, error) {
	test, err := loadPublished(ctx, s.Tests, testID)
	if err != nil {
		return nil, err
	}

	qs, err := s.Tests.ListQuestions(ctx, testID)
	if err != nil {
		return nil, err
	}

	details := &TestDetails{
		ID:             test.ID,
		Name:           test.Name,
		College:        test.CollegeName,
		CollegeID:      test.CollegeID,
		Duration:       test.Duration,
		TotalQuestions: len(qs),
		PassingScore:   test.PassingScore,
		AllowRetake:    test.AllowRetake,
		Instructions:   test.Instructions,
		Rules:          test.Rules,
	}
	// 空列表由客户端回退到默认说明
	if details.Instructions == nil {
		details.Instructions = []string{}
	}
	if details.Rules == nil {
		details.Rules = []string{}
	}
	return details, nil
}
