package repository

import (
	"aptitude_backend/internal/model"
	"context"
	"time"

	"gorm.io/gorm"
)

type StudentRepository struct {
	DB *gorm.DB
}

func NewStudentRepository(db *gorm.DB) *StudentRepository {
	return &StudentRepository{DB: db}
}

func (r *StudentRepository) Create(ctx context.Context, student *model.Student) error {
	return r.DB.WithContext(ctx).Create(student).Error
}

func (r *StudentRepository) FindByID(ctx context.Context, id string) (*model.Student, error) {
	var student model.Student
	err := r.DB.WithContext(ctx).First(&student, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &student, nil
}

func (r *StudentRepository) FindByEmail(ctx context.Context, email string) (*model.Student, error) {
	var student model.Student
	err := r.DB.WithContext(ctx).Where("email = ?", email).First(&student).Error
	if err != nil {
		return nil, err
	}
	return &student, nil
}

func (r *StudentRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	return r.DB.WithContext(ctx).Model(&model.Student{}).
		Where("id = ?", id).
		Update("last_login", at).Error
}
