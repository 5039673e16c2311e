package model

// QuestionOption 选项；IsCorrect 仅在服务端使用，不下发给学生
type QuestionOption struct {
	Text      string `json:"text" yaml:"text"`
	IsCorrect bool   `json:"isCorrect" yaml:"isCorrect"`
}

// swagger:model AptitudeTest
type AptitudeTest struct {
	UUIDBase
	Name         string   `gorm:"size:255;not null" json:"name"`
	CollegeID    string   `gorm:"index;type:varchar(36)" json:"collegeId"`
	CollegeName  string   `gorm:"size:255" json:"college"`
	Duration     int      `gorm:"not null" json:"duration"` // Minutes
	PassingScore float64  `gorm:"not null" json:"passingScore"`
	AllowRetake  bool     `gorm:"not null" json:"allowRetake"`
	IsPublished  bool     `gorm:"not null" json:"isPublished"`
	Instructions []string `gorm:"serializer:json;type:json" json:"instructions"`
	Rules        []string `gorm:"serializer:json;type:json" json:"rules"`
}

func (AptitudeTest) TableName() string {
	return "aptitude_tests"
}

func (t *AptitudeTest) DurationSeconds() int {
	return t.Duration * 60
}

type TestQuestion struct {
	UUIDBase
	TestID   string           `gorm:"index;type:varchar(36)" json:"testId"`
	Question string           `gorm:"type:text;not null" json:"question"`
	Options  []QuestionOption `gorm:"serializer:json;type:json" json:"options"`
	Order    int              `gorm:"not null" json:"order"`
}

func (TestQuestion) TableName() string {
	return "aptitude_test_questions"
}

// CorrectIndex 返回正确选项下标，没有正确选项时返回 -1
func (q *TestQuestion) CorrectIndex() int {
	for i, o := range q.Options {
		if o.IsCorrect {
			return i
		}
	}
	return -1
}
