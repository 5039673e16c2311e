package service

import (
	"aptitude_backend/internal/model"
	"math"
)

// AnswerInput 学生提交的单题作答；TimeSpent 为交互次数计数
type AnswerInput struct {
	QuestionID     string `json:"questionId" binding:"required"`
	SelectedAnswer int    `json:"selectedAnswer"`
	TimeSpent      int    `json:"timeSpent"`
}

type GradeResult struct {
	Score          int
	TotalQuestions int
	Percentage     float64
	Passed         bool
	Answers        []model.SessionAnswer
}

// Grade 逐题评分，每道题都会生成一条作答记录，未作答的记为 -1
func Grade(sessionID string, questions []model.TestQuestion, answers map[string]AnswerInput, passingScore float64) GradeResult {
	res := GradeResult{
		TotalQuestions: len(questions),
		Answers:        make([]model.SessionAnswer, 0, len(questions)),
	}

	for i := range questions {
		q := &questions[i]
		selected := model.Unanswered
		timeSpent := 0
		if a, ok := answers[q.ID]; ok {
			selected = a.SelectedAnswer
			timeSpent = a.TimeSpent
		}
		if selected < model.Unanswered || selected >= len(q.Options) {
			selected = model.Unanswered
		}

		correct := selected != model.Unanswered && q.Options[selected].IsCorrect
		if correct {
			res.Score++
		}

		res.Answers = append(res.Answers, model.SessionAnswer{
			SessionID:      sessionID,
			QuestionID:     q.ID,
			SelectedAnswer: selected,
			TimeSpent:      timeSpent,
			IsCorrect:      correct,
		})
	}

	if res.TotalQuestions > 0 {
		pct := float64(res.Score) / float64(res.TotalQuestions) * 100
		res.Percentage = math.Round(pct*100) / 100
	}
	res.Passed = res.TotalQuestions > 0 && res.Percentage >= passingScore
	return res
}
