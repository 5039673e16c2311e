package model

import "time"

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

// swagger:model Student
type Student struct {
	UUIDBase
	Name       string     `gorm:"size:100;not null" json:"name"`
	Email      string     `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Phone      string     `gorm:"size:20" json:"phone"`
	Degree     string     `gorm:"size:100" json:"degree"`
	University string     `gorm:"size:200" json:"university"`
	Gender     Gender     `gorm:"size:10" json:"gender"`
	Password   string     `gorm:"size:100;not null" json:"-"`
	CollegeID  string     `gorm:"index;type:varchar(36)" json:"collegeId"`
	LastLogin  *time.Time `json:"lastLogin,omitempty"`
}

func (Student) TableName() string {
	return "aptitude_students"
}
