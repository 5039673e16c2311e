package repository

import (
	"aptitude_backend/internal/model"
	"context"

	"gorm.io/gorm"
)

type AptitudeTestRepository struct {
	DB *gorm.DB
}

func NewAptitudeTestRepository(db *gorm.DB) *AptitudeTestRepository {
	return &AptitudeTestRepository{DB: db}
}

func (r *AptitudeTestRepository) FindTestByID(ctx context.Context, id string) (*model.AptitudeTest, error) {
	var test model.AptitudeTest
	err := r.DB.WithContext(ctx).First(&test, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &test, nil
}

func (r *AptitudeTestRepository) ListQuestions(ctx context.Context, testID string) ([]model.TestQuestion, error) {
	var qs []model.TestQuestion
	err := r.DB.WithContext(ctx).
		Where("test_id = ?", testID).
		Order("`order` asc, created_at asc").
		Find(&qs).Error
	return qs, err
}

func (r *AptitudeTestRepository) CountQuestions(ctx context.Context, testID string) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.TestQuestion{}).Where("test_id = ?", testID).Count(&count).Error
	return count, err
}

// UpsertTest 按 ID 整体替换试卷和题目，供题库导入使用
func (r *AptitudeTestRepository) UpsertTest(ctx context.Context, test *model.AptitudeTest, questions []model.TestQuestion) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(test).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("test_id = ?", test.ID).Delete(&model.TestQuestion{}).Error; err != nil {
			return err
		}
		for i := range questions {
			questions[i].TestID = test.ID
			if err := tx.Create(&questions[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
