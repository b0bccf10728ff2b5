package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// QuestionType discriminates the question variants on the wire.
type QuestionType string

const (
	TypeMultipleChoice QuestionType = "multiple_choice"
	TypeShortAnswer    QuestionType = "short_answer"
	TypeForcedRecall   QuestionType = "forced_recall"
)

// DefaultQuestionPoints applies when a question omits points.
const DefaultQuestionPoints = 10

// QuestionBody is implemented by each question variant.
type QuestionBody interface {
	Type() QuestionType
}

// Question holds the fields shared by all variants plus the variant body.
type Question struct {
	ID        string       `validate:"required"`
	Text      string
	Points    int
	TimeLimit *int
	Body      QuestionBody
}

// EffectivePoints returns the question's points with the default applied.
func (q Question) EffectivePoints() int {
	if q.Points <= 0 {
		return DefaultQuestionPoints
	}
	return q.Points
}

// Type returns the variant discriminator, or "" when the body is missing.
func (q Question) Type() QuestionType {
	if q.Body == nil {
		return ""
	}
	return q.Body.Type()
}

// MultipleChoice is graded by option index identity.
type MultipleChoice struct {
	Options []string `validate:"min=2,dive,required"`
	// CorrectAnswer is an index into Options; -1 when unresolved.
	CorrectAnswer int `validate:"gte=0"`
}

func (MultipleChoice) Type() QuestionType { return TypeMultipleChoice }

// ShortAnswer is graded by regex, exact normalized match, then fuzzy match.
type ShortAnswer struct {
	AcceptableAnswers []string `validate:"required_without=MatchRegex,dive,required"`
	MatchRegex        string
	CaseSensitive     bool
}

func (ShortAnswer) Type() QuestionType { return TypeShortAnswer }

// TableEntry is one cell of a forced-recall table.
type TableEntry struct {
	EntryID           string   `json:"entry_id" validate:"required"`
	Label             string   `json:"label"`
	AcceptableAnswers []string `json:"acceptable_answers" validate:"min=1,dive,required"`
	Points            int      `json:"points" validate:"gte=0"`
	Order             int      `json:"order"`
}

// ForcedRecall is a table of free-text entries graded independently.
type ForcedRecall struct {
	Entries []TableEntry `validate:"min=1,dive"`
}

func (ForcedRecall) Type() QuestionType { return TypeForcedRecall }

// UnsupportedQuestion preserves an unknown type so grading can fail closed.
type UnsupportedQuestion struct {
	Kind QuestionType
}

func (u UnsupportedQuestion) Type() QuestionType { return u.Kind }

type questionWire struct {
	ID                string          `json:"question_id"`
	Type              QuestionType    `json:"type"`
	Text              string          `json:"question_text,omitempty"`
	Points            int             `json:"points,omitempty"`
	TimeLimit         *int            `json:"time_limit,omitempty"`
	Options           []string        `json:"options,omitempty"`
	CorrectAnswer     json.RawMessage `json:"correct_answer,omitempty"`
	AcceptableAnswers []string        `json:"acceptable_answers,omitempty"`
	MatchRegex        string          `json:"match_regex,omitempty"`
	CaseSensitive     bool            `json:"case_sensitive,omitempty"`
	TableEntries      []TableEntry    `json:"table_entries,omitempty"`
}

// MarshalJSON flattens the variant into the stored question shape.
func (q Question) MarshalJSON() ([]byte, error) {
	w := questionWire{
		ID:        q.ID,
		Type:      q.Type(),
		Text:      q.Text,
		Points:    q.Points,
		TimeLimit: q.TimeLimit,
	}
	switch b := q.Body.(type) {
	case MultipleChoice:
		w.Options = b.Options
		w.CorrectAnswer = json.RawMessage(strconv.Itoa(b.CorrectAnswer))
	case ShortAnswer:
		w.AcceptableAnswers = b.AcceptableAnswers
		w.MatchRegex = b.MatchRegex
		w.CaseSensitive = b.CaseSensitive
	case ForcedRecall:
		w.TableEntries = b.Entries
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the flat shape. A missing type means multiple choice,
// and unknown types decode to UnsupportedQuestion instead of failing.
func (q *Question) UnmarshalJSON(data []byte) error {
	var w questionWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*q = Question{ID: w.ID, Text: w.Text, Points: w.Points, TimeLimit: w.TimeLimit}

	switch w.Type {
	case "", TypeMultipleChoice:
		q.Body = MultipleChoice{
			Options:       w.Options,
			CorrectAnswer: resolveCorrectIndex(w.CorrectAnswer, w.Options),
		}
	case TypeShortAnswer:
		q.Body = ShortAnswer{
			AcceptableAnswers: w.AcceptableAnswers,
			MatchRegex:        w.MatchRegex,
			CaseSensitive:     w.CaseSensitive,
		}
	case TypeForcedRecall:
		q.Body = ForcedRecall{Entries: w.TableEntries}
	default:
		q.Body = UnsupportedQuestion{Kind: w.Type}
	}
	return nil
}

// resolveCorrectIndex accepts an index or the legacy correct-option string.
func resolveCorrectIndex(raw json.RawMessage, options []string) int {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return -1
	}
	var idx int
	if err := json.Unmarshal(raw, &idx); err == nil {
		return idx
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return -1
	}
	for i, opt := range options {
		if opt == text {
			return i
		}
	}
	return -1
}
