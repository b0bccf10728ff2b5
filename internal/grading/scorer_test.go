package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"quizquest-service/internal/domain"
)

func sampleQuestions() []domain.Question {
	return []domain.Question{
		mcQuestion(),
		{ID: "q2", Points: 10, Body: domain.ShortAnswer{AcceptableAnswers: []string{"Paris"}}},
		forcedRecallQuestion(),
	}
}

func TestGradeAttemptScoresAllQuestions(t *testing.T) {
	result := GradeAttempt(sampleQuestions(), []domain.SubmittedAnswer{
		{QuestionID: "q2", Text: "paris", TimeSpent: 12},
		{QuestionID: "q1", SelectedOption: intPtr(1), TimeSpent: 3},
	})

	assert.Len(t, result.Answers, 3)
	assert.Equal(t, "q1", result.Answers[0].QuestionID, "challenge order defines answer order")
	assert.Equal(t, 40, result.PossiblePoints, "forced recall contributes entry points")
	assert.Equal(t, 20, result.EarnedPoints)
	assert.Equal(t, 50, result.Score)
	assert.Equal(t, 15, result.TotalTime)
	assert.False(t, result.Answers[2].IsCorrect)
}

func TestGradeAttemptIsDeterministic(t *testing.T) {
	submitted := []domain.SubmittedAnswer{
		{QuestionID: "q1", SelectedOption: intPtr(0)},
		{QuestionID: "fr", Entries: map[string]string{"e1": "Pariss", "e2": "Rom"}},
	}
	first := GradeAttempt(sampleQuestions(), submitted)
	second := GradeAttempt(sampleQuestions(), submitted)
	assert.Equal(t, first, second)
}

func TestGradeAttemptDuplicateSubmissionFirstWins(t *testing.T) {
	result := GradeAttempt([]domain.Question{mcQuestion()}, []domain.SubmittedAnswer{
		{QuestionID: "q1", SelectedOption: intPtr(1)},
		{QuestionID: "q1", SelectedOption: intPtr(0)},
	})
	assert.Equal(t, 100, result.Score)
}

func TestGradeAttemptEmpty(t *testing.T) {
	result := GradeAttempt(nil, nil)
	assert.Equal(t, 0, result.Score)
	assert.Empty(t, result.Answers)
}

func TestPercent(t *testing.T) {
	assert.Equal(t, 0, Percent(0, 0))
	assert.Equal(t, 0, Percent(5, -1))
	assert.Equal(t, 33, Percent(1, 3))
	assert.Equal(t, 67, Percent(2, 3))
	assert.Equal(t, 100, Percent(3, 3))
	assert.Equal(t, 100, Percent(4, 3))
	assert.Equal(t, 0, Percent(-1, 3))
}

func TestScoreAlwaysInRange(t *testing.T) {
	questions := sampleQuestions()
	submissions := [][]domain.SubmittedAnswer{
		nil,
		{{QuestionID: "q1", SelectedOption: intPtr(1)}},
		{{QuestionID: "q2", Text: "paris"}, {QuestionID: "fr", Entries: map[string]string{"e1": "paris", "e2": "rome", "e3": "madrid"}}},
		{{QuestionID: "q1", SelectedOption: intPtr(1)}, {QuestionID: "q2", Text: "paris"}, {QuestionID: "fr", Entries: map[string]string{"e1": "paris", "e2": "rome", "e3": "madrid"}}},
	}
	for _, sub := range submissions {
		score := GradeAttempt(questions, sub).Score
		assert.GreaterOrEqual(t, score, 0)
		assert.LessOrEqual(t, score, 100)
	}
	assert.Equal(t, 100, GradeAttempt(questions, submissions[3]).Score)
}
