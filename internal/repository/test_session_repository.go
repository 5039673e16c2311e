package repository

import (
	"aptitude_backend/internal/model"
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TestSessionRepository struct {
	DB *gorm.DB
}

func NewTestSessionRepository(db *gorm.DB) *TestSessionRepository {
	return &TestSessionRepository{DB: db}
}

func (r *TestSessionRepository) CreateSession(ctx context.Context, session *model.TestSession) error {
	return r.DB.WithContext(ctx).Create(session).Error
}

func (r *TestSessionRepository) FindSessionByID(ctx context.Context, id string) (*model.TestSession, error) {
	var s model.TestSession
	err := r.DB.WithContext(ctx).First(&s, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// FindLatestSession 学生在某试卷上最近的一次作答
func (r *TestSessionRepository) FindLatestSession(ctx context.Context, studentID, testID string) (*model.TestSession, error) {
	var s model.TestSession
	err := r.DB.WithContext(ctx).
		Where("student_id = ? AND test_id = ?", studentID, testID).
		Order("started_at desc").
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *TestSessionRepository) ListAnswers(ctx context.Context, sessionID string) ([]model.SessionAnswer, error) {
	var answers []model.SessionAnswer
	err := r.DB.WithContext(ctx).Where("session_id = ?", sessionID).Find(&answers).Error
	return answers, err
}

// SaveAnswer 按 (session_id, question_id) 覆盖写入
func (r *TestSessionRepository) SaveAnswer(ctx context.Context, answer *model.SessionAnswer) error {
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}, {Name: "question_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"selected_answer", "time_spent", "updated_at"}),
	}).Create(answer).Error
}

// FinishSession 在一个事务中写入成绩和全部答案；只有 in_progress 的会话会被更新
func (r *TestSessionRepository) FinishSession(ctx context.Context, session *model.TestSession, answers []model.SessionAnswer) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.TestSession{}).
			Where("id = ? AND status = ?", session.ID, model.SessionInProgress).
			Updates(map[string]interface{}{
				"status":          session.Status,
				"completed_at":    session.CompletedAt,
				"score":           session.Score,
				"total_questions": session.TotalQuestions,
				"percentage":      session.Percentage,
				"passed":          session.Passed,
				"is_timeout":      session.IsTimeout,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		if err := tx.Unscoped().Where("session_id = ?", session.ID).Delete(&model.SessionAnswer{}).Error; err != nil {
			return err
		}
		return insertAnswers(tx, answers)
	})
}

// insertAnswers 批量写入评分后的答案，selected_answer 原样落库（0 是有效选项）
func insertAnswers(tx *gorm.DB, answers []model.SessionAnswer) error {
	if len(answers) == 0 {
		return nil
	}
	return tx.Create(&answers).Error
}

// ListExpiredSessions 已过截止时间但仍为 in_progress 的会话
func (r *TestSessionRepository) ListExpiredSessions(ctx context.Context, before time.Time, limit int) ([]model.TestSession, error) {
	var sessions []model.TestSession
	err := r.DB.WithContext(ctx).
		Where("status = ? AND expires_at < ?", model.SessionInProgress, before).
		Order("expires_at asc").
		Limit(limit).
		Find(&sessions).Error
	return sessions, err
}
