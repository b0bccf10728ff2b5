package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quizquest-service/internal/domain"
)

func intPtr(v int) *int { return &v }

func mcQuestion() domain.Question {
	return domain.Question{
		ID:     "q1",
		Points: 10,
		Body:   domain.MultipleChoice{Options: []string{"3", "4", "5"}, CorrectAnswer: 1},
	}
}

func TestGradeMultipleChoice(t *testing.T) {
	q := mcQuestion()

	got := GradeQuestion(q, domain.SubmittedAnswer{QuestionID: "q1", SelectedOption: intPtr(1), TimeSpent: 4})
	assert.True(t, got.IsCorrect)
	assert.Equal(t, 10, got.PointsEarned)
	assert.Equal(t, 4, got.TimeSpent)

	got = GradeQuestion(q, domain.SubmittedAnswer{QuestionID: "q1", SelectedOption: intPtr(2)})
	assert.False(t, got.IsCorrect)
	assert.Equal(t, 0, got.PointsEarned)

	got = GradeQuestion(q, domain.SubmittedAnswer{QuestionID: "q1", Text: "4"})
	assert.False(t, got.IsCorrect, "text is never fuzzy-matched for multiple choice")

	unresolved := domain.Question{ID: "q2", Body: domain.MultipleChoice{Options: []string{"a", "b"}, CorrectAnswer: -1}}
	got = GradeQuestion(unresolved, domain.SubmittedAnswer{SelectedOption: intPtr(-1)})
	assert.False(t, got.IsCorrect)
}

func TestGradeShortAnswer(t *testing.T) {
	q := domain.Question{
		ID:   "q1",
		Body: domain.ShortAnswer{AcceptableAnswers: []string{"deja vu", "abcde"}},
	}

	tests := []struct {
		name    string
		text    string
		correct bool
	}{
		{"exact after normalization", "Déjà Vu!", true},
		{"fuzzy at threshold", "abcdx", true},
		{"fuzzy below threshold", "abcx", false},
		{"unrelated", "paris", false},
		{"blank", "   ", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GradeQuestion(q, domain.SubmittedAnswer{QuestionID: "q1", Text: tt.text})
			assert.Equal(t, tt.correct, got.IsCorrect)
			if tt.correct {
				assert.Equal(t, domain.DefaultQuestionPoints, got.PointsEarned)
			} else {
				assert.Zero(t, got.PointsEarned)
			}
			assert.Equal(t, domain.DefaultQuestionPoints, got.PointsPossible)
		})
	}
}

func TestGradeShortAnswerRegex(t *testing.T) {
	q := domain.Question{
		ID:     "q1",
		Points: 5,
		Body:   domain.ShortAnswer{MatchRegex: `^(the )?beatles$`, AcceptableAnswers: []string{"fab four"}},
	}
	assert.True(t, GradeQuestion(q, domain.SubmittedAnswer{Text: "The Beatles"}).IsCorrect)
	assert.True(t, GradeQuestion(q, domain.SubmittedAnswer{Text: "Fab Four"}).IsCorrect, "falls through to acceptable answers")

	sensitive := domain.Question{ID: "q2", Body: domain.ShortAnswer{MatchRegex: `^Beatles$`, CaseSensitive: true}}
	assert.False(t, GradeQuestion(sensitive, domain.SubmittedAnswer{Text: "beatles"}).IsCorrect)
	assert.True(t, GradeQuestion(sensitive, domain.SubmittedAnswer{Text: "Beatles"}).IsCorrect)

	broken := domain.Question{ID: "q3", Body: domain.ShortAnswer{MatchRegex: `([a-z`, AcceptableAnswers: []string{"paris"}}}
	assert.True(t, GradeQuestion(broken, domain.SubmittedAnswer{Text: "Paris"}).IsCorrect)
	assert.False(t, GradeQuestion(broken, domain.SubmittedAnswer{Text: "([a-z"}).IsCorrect)
}

func forcedRecallQuestion() domain.Question {
	return domain.Question{
		ID: "fr",
		Body: domain.ForcedRecall{Entries: []domain.TableEntry{
			{EntryID: "e1", Label: "Capital of France", AcceptableAnswers: []string{"Paris"}, Points: 10, Order: 0},
			{EntryID: "e2", Label: "Capital of Italy", AcceptableAnswers: []string{"Rome", "Roma"}, Points: 5, Order: 1},
			{EntryID: "e3", Label: "Capital of Spain", AcceptableAnswers: []string{"Madrid"}, Points: 5, Order: 2},
		}},
	}
}

func TestGradeForcedRecall(t *testing.T) {
	q := forcedRecallQuestion()

	got := GradeQuestion(q, domain.SubmittedAnswer{
		QuestionID: "fr",
		Entries:    map[string]string{"e1": "paris", "e2": "Roma", "unknown": "x"},
	})
	require.NotNil(t, got.Table)
	assert.True(t, got.IsCorrect, "blank entries do not fail the question")
	assert.Equal(t, 2, got.Table.TotalFilled)
	assert.Equal(t, 2, got.Table.TotalCorrect)
	assert.Equal(t, 15, got.Table.TotalPointsEarned)
	assert.Equal(t, 20, got.Table.TotalPossiblePoints)
	assert.Equal(t, 15, got.PointsEarned)
	assert.Equal(t, 20, got.PointsPossible)

	blank := got.Table.Entries[2]
	assert.Equal(t, "e3", blank.EntryID)
	assert.False(t, blank.IsFilled)
	assert.False(t, blank.IsCorrect)
	assert.Zero(t, blank.PointsEarned)
}

func TestGradeForcedRecallPartialCredit(t *testing.T) {
	got := GradeQuestion(forcedRecallQuestion(), domain.SubmittedAnswer{
		Entries: map[string]string{"e1": "Lyon", "e3": "madrid"},
	})
	assert.False(t, got.IsCorrect)
	assert.Equal(t, 5, got.PointsEarned)
	assert.Equal(t, 1, got.Table.TotalCorrect)
	assert.Equal(t, "Lyon", got.Table.Entries[0].UserAnswer)
}

func TestGradeForcedRecallNothingFilled(t *testing.T) {
	got := GradeQuestion(forcedRecallQuestion(), domain.SubmittedAnswer{})
	assert.False(t, got.IsCorrect)
	assert.Zero(t, got.PointsEarned)
	assert.Zero(t, got.Table.TotalFilled)
}

func TestGradeUnknownTypeFailsClosed(t *testing.T) {
	q := domain.Question{ID: "q9", Points: 7, Body: domain.UnsupportedQuestion{Kind: "drag_and_drop"}}
	got := GradeQuestion(q, domain.SubmittedAnswer{QuestionID: "q9", Text: "anything"})
	assert.False(t, got.IsCorrect)
	assert.Zero(t, got.PointsEarned)
	assert.Equal(t, 7, got.PointsPossible)
	assert.Equal(t, domain.QuestionType("drag_and_drop"), got.Type)

	missing := GradeQuestion(domain.Question{ID: "q10"}, domain.SubmittedAnswer{})
	assert.False(t, missing.IsCorrect)
}

func TestGradeNegativeTimeClamped(t *testing.T) {
	got := GradeQuestion(mcQuestion(), domain.SubmittedAnswer{TimeSpent: -30})
	assert.Zero(t, got.TimeSpent)
}
