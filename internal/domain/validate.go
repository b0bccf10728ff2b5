package domain

import (
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// ValidateChallenge checks a challenge at ingestion time. Grading never calls it;
// stored challenges are graded leniently whatever their shape.
func ValidateChallenge(c Challenge) error {
	v := validatorInstance()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidChallenge, err)
	}

	seen := make(map[string]struct{}, len(c.Questions))
	for i, q := range c.Questions {
		if err := v.Struct(q); err != nil {
			return fmt.Errorf("%w: question %d: %v", ErrInvalidChallenge, i, err)
		}
		if _, dup := seen[q.ID]; dup {
			return fmt.Errorf("%w: duplicate question_id %q", ErrInvalidChallenge, q.ID)
		}
		seen[q.ID] = struct{}{}
		if err := validateBody(v, q); err != nil {
			return fmt.Errorf("%w: question %q: %v", ErrInvalidChallenge, q.ID, err)
		}
	}
	return nil
}

func validateBody(v *validator.Validate, q Question) error {
	switch b := q.Body.(type) {
	case MultipleChoice:
		if err := v.Struct(b); err != nil {
			return err
		}
		if b.CorrectAnswer >= len(b.Options) {
			return fmt.Errorf("correct_answer %d out of range for %d options", b.CorrectAnswer, len(b.Options))
		}
	case ShortAnswer:
		return v.Struct(b)
	case ForcedRecall:
		if err := v.Struct(b); err != nil {
			return err
		}
		entries := make(map[string]struct{}, len(b.Entries))
		for _, e := range b.Entries {
			if _, dup := entries[e.EntryID]; dup {
				return fmt.Errorf("duplicate entry_id %q", e.EntryID)
			}
			entries[e.EntryID] = struct{}{}
		}
	case UnsupportedQuestion:
		return fmt.Errorf("unsupported question type %q", b.Kind)
	case nil:
		return fmt.Errorf("missing question body")
	}
	return nil
}
