// Package seed 从 YAML 文件导入试卷和题目
package seed

import (
	"aptitude_backend/internal/model"
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type File struct {
	Tests []Test `yaml:"tests"`
}

type Test struct {
	ID           string     `yaml:"id"`
	Name         string     `yaml:"name"`
	CollegeID    string     `yaml:"collegeId"`
	College      string     `yaml:"college"`
	Duration     int        `yaml:"duration"`
	PassingScore float64    `yaml:"passingScore"`
	AllowRetake  bool       `yaml:"allowRetake"`
	Instructions []string   `yaml:"instructions"`
	Rules        []string   `yaml:"rules"`
	Questions    []Question `yaml:"questions"`
}

type Question struct {
	Question string                 `yaml:"question"`
	Options  []model.QuestionOption `yaml:"options"`
}

// Store 由 repository.AptitudeTestRepository 实现
type Store interface {
	UpsertTest(ctx context.Context, test *model.AptitudeTest, questions []model.TestQuestion) error
}

func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	for i, t := range f.Tests {
		if err := t.validate(); err != nil {
			return nil, fmt.Errorf("test #%d (%s): %w", i+1, t.Name, err)
		}
	}
	return &f, nil
}

func (t Test) validate() error {
	if t.ID == "" || t.Name == "" {
		return errors.New("id and name are required")
	}
	if t.Duration <= 0 {
		return errors.New("duration must be positive")
	}
	for i, q := range t.Questions {
		if len(q.Options) < 2 {
			return fmt.Errorf("question %d needs at least two options", i+1)
		}
		correct := 0
		for _, o := range q.Options {
			if o.IsCorrect {
				correct++
			}
		}
		if correct != 1 {
			return fmt.Errorf("question %d must have exactly one correct option", i+1)
		}
	}
	return nil
}

// ToModels 转换为持久化模型，题目顺序即文件中的顺序
func (t Test) ToModels() (*model.AptitudeTest, []model.TestQuestion) {
	test := &model.AptitudeTest{
		Name:         t.Name,
		CollegeID:    t.CollegeID,
		CollegeName:  t.College,
		Duration:     t.Duration,
		PassingScore: t.PassingScore,
		AllowRetake:  t.AllowRetake,
		IsPublished:  true,
		Instructions: t.Instructions,
		Rules:        t.Rules,
	}
	test.ID = t.ID

	qs := make([]model.TestQuestion, len(t.Questions))
	for i, q := range t.Questions {
		qs[i] = model.TestQuestion{
			TestID:   t.ID,
			Question: q.Question,
			Options:  q.Options,
			Order:    i + 1,
		}
	}
	return test, qs
}

// LoadFile 读取并导入 YAML 题库，返回导入的试卷数量
func LoadFile(ctx context.Context, store Store, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	f, err := Parse(data)
	if err != nil {
		return 0, err
	}
	for _, t := range f.Tests {
		test, qs := t.ToModels()
		if err := store.UpsertTest(ctx, test, qs); err != nil {
			return 0, fmt.Errorf("import test %s: %w", t.ID, err)
		}
	}
	return len(f.Tests), nil
}
