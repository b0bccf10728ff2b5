package grading

import (
	"math"

	"quizquest-service/internal/domain"
)

// GradeAttempt grades every question of a challenge in order. Questions with no
// matching submission are graded as unanswered. The result depends only on the
// inputs, so re-running it reproduces the stored verdict.
func GradeAttempt(questions []domain.Question, submitted []domain.SubmittedAnswer) domain.GradedResult {
	byID := make(map[string]domain.SubmittedAnswer, len(submitted))
	for _, sub := range submitted {
		if _, dup := byID[sub.QuestionID]; !dup {
			byID[sub.QuestionID] = sub
		}
	}

	result := domain.GradedResult{Answers: make([]domain.GradedAnswer, 0, len(questions))}
	for _, q := range questions {
		sub, ok := byID[q.ID]
		if !ok {
			sub = domain.SubmittedAnswer{QuestionID: q.ID}
		}
		graded := GradeQuestion(q, sub)
		result.Answers = append(result.Answers, graded)
		result.PossiblePoints += graded.PointsPossible
		result.EarnedPoints += graded.PointsEarned
		result.TotalTime += graded.TimeSpent
	}
	result.Score = Percent(result.EarnedPoints, result.PossiblePoints)
	return result
}

// Percent converts earned/possible points into an integer percentage in [0,100].
func Percent(earned, possible int) int {
	if possible <= 0 {
		return 0
	}
	score := int(math.Round(100 * float64(earned) / float64(possible)))
	return min(max(score, 0), 100)
}
