// Package rewards derives XP awards from graded attempts and decides matches.
package rewards

import (
	"math"

	"quizquest-service/internal/domain"
)

const (
	// FirstTimeBonus is granted on a user's first attempt at a challenge.
	FirstTimeBonus = 50
	// PerfectBonus is granted for a score of 100.
	PerfectBonus = 25
	// MatchWinnerBonus is granted once to the winner of a match.
	MatchWinnerBonus = 50
)

var difficultyMultipliers = map[domain.Difficulty]float64{
	domain.DifficultyEasy:   1.0,
	domain.DifficultyMedium: 1.5,
	domain.DifficultyHard:   2.0,
}

// Multiplier returns the XP multiplier for a difficulty; unknown values scale by 1.
func Multiplier(d domain.Difficulty) float64 {
	if m, ok := difficultyMultipliers[d]; ok {
		return m
	}
	return 1.0
}

// ComputeXP derives the XP breakdown for an attempt score in [0,100].
func ComputeXP(score int, difficulty domain.Difficulty, isFirstAttempt bool) domain.XPBreakdown {
	multiplier := Multiplier(difficulty)
	b := domain.XPBreakdown{
		BaseXP:               int(math.Floor(float64(score) * multiplier)),
		DifficultyMultiplier: multiplier,
	}
	if isFirstAttempt {
		b.FirstTimeBonus = FirstTimeBonus
	}
	if score >= 100 {
		b.PerfectBonus = PerfectBonus
	}
	b.TotalXP = b.BaseXP + b.FirstTimeBonus + b.PerfectBonus
	return b
}
