package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DecodeChallenges accepts a single challenge object, an array of them, or an
// object wrapping them as {"quizzes": [...]} or {"quiz": {...}}. Challenges
// without an explicit is_published flag are published.
func DecodeChallenges(data []byte) ([]Challenge, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidChallenge)
	}

	var raws []json.RawMessage
	if data[0] == '[' {
		if err := json.Unmarshal(data, &raws); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidChallenge, err)
		}
	} else {
		var wrapper struct {
			Quizzes []json.RawMessage `json:"quizzes"`
			Quiz    json.RawMessage   `json:"quiz"`
		}
		if err := json.Unmarshal(data, &wrapper); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidChallenge, err)
		}
		switch {
		case len(wrapper.Quizzes) > 0:
			raws = wrapper.Quizzes
		case len(wrapper.Quiz) > 0:
			raws = []json.RawMessage{wrapper.Quiz}
		default:
			raws = []json.RawMessage{data}
		}
	}

	out := make([]Challenge, 0, len(raws))
	for i, raw := range raws {
		var c Challenge
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("%w: challenge %d: %v", ErrInvalidChallenge, i, err)
		}
		var flags struct {
			IsPublished *bool `json:"is_published"`
		}
		_ = json.Unmarshal(raw, &flags)
		c.IsPublished = flags.IsPublished == nil || *flags.IsPublished
		out = append(out, c)
	}
	return out, nil
}
