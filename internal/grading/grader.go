package grading

import (
	"regexp"
	"strings"

	"quizquest-service/internal/domain"
)

// GradeQuestion grades one submission against one question. It never fails:
// missing input and unknown question types grade as incorrect with zero points.
func GradeQuestion(q domain.Question, sub domain.SubmittedAnswer) domain.GradedAnswer {
	graded := domain.GradedAnswer{
		QuestionID: q.ID,
		Type:       q.Type(),
		TimeSpent:  max(sub.TimeSpent, 0),
	}

	switch body := q.Body.(type) {
	case domain.MultipleChoice:
		graded.PointsPossible = q.EffectivePoints()
		graded.IsCorrect = gradeMultipleChoice(body, sub)
	case domain.ShortAnswer:
		graded.PointsPossible = q.EffectivePoints()
		graded.IsCorrect = gradeShortAnswer(body, sub.Text)
	case domain.ForcedRecall:
		table := gradeForcedRecall(body, sub.Entries)
		graded.Table = &table
		graded.PointsPossible = table.TotalPossiblePoints
		graded.PointsEarned = table.TotalPointsEarned
		// Only attempted entries decide correctness; blanks just earn nothing.
		graded.IsCorrect = table.TotalFilled > 0 && table.TotalCorrect == table.TotalFilled
		return graded
	default:
		graded.PointsPossible = q.EffectivePoints()
		return graded
	}

	if graded.IsCorrect {
		graded.PointsEarned = graded.PointsPossible
	}
	return graded
}

func gradeMultipleChoice(body domain.MultipleChoice, sub domain.SubmittedAnswer) bool {
	if sub.SelectedOption == nil || body.CorrectAnswer < 0 {
		return false
	}
	return *sub.SelectedOption == body.CorrectAnswer
}

func gradeShortAnswer(body domain.ShortAnswer, text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	if matchesRegex(body.MatchRegex, body.CaseSensitive, text) {
		return true
	}
	return matchesAny(text, body.AcceptableAnswers)
}

func gradeForcedRecall(body domain.ForcedRecall, answers map[string]string) domain.TableResult {
	result := domain.TableResult{Entries: make([]domain.EntryResult, 0, len(body.Entries))}
	for _, entry := range body.Entries {
		points := max(entry.Points, 0)
		userText := answers[entry.EntryID]

		er := domain.EntryResult{
			EntryID:    entry.EntryID,
			UserAnswer: userText,
			IsFilled:   strings.TrimSpace(userText) != "",
		}
		if er.IsFilled {
			result.TotalFilled++
			er.IsCorrect = matchesAny(userText, entry.AcceptableAnswers)
		}
		if er.IsCorrect {
			er.PointsEarned = points
			result.TotalCorrect++
			result.TotalPointsEarned += points
		}
		result.TotalPossiblePoints += points
		result.Entries = append(result.Entries, er)
	}
	return result
}

// matchesAny reports whether text equals an acceptable answer after
// normalization, or is similar enough to one. The first hit wins.
func matchesAny(text string, acceptable []string) bool {
	normalized := Normalize(text)
	if normalized == "" {
		return false
	}
	for _, candidate := range acceptable {
		if normalized == Normalize(candidate) {
			return true
		}
		if Similarity(text, candidate) >= SimilarityThreshold {
			return true
		}
	}
	return false
}

// matchesRegex treats a pattern that fails to compile as a non-match.
func matchesRegex(pattern string, caseSensitive bool, text string) bool {
	if pattern == "" {
		return false
	}
	if !caseSensitive {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false
	}
	return re.MatchString(text)
}
