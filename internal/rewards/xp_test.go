package rewards

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"quizquest-service/internal/domain"
)

func TestComputeXP(t *testing.T) {
	tests := []struct {
		name       string
		score      int
		difficulty domain.Difficulty
		first      bool
		want       domain.XPBreakdown
	}{
		{
			name: "hard first attempt", score: 80, difficulty: domain.DifficultyHard, first: true,
			want: domain.XPBreakdown{BaseXP: 160, DifficultyMultiplier: 2.0, FirstTimeBonus: 50, TotalXP: 210},
		},
		{
			name: "easy perfect repeat", score: 100, difficulty: domain.DifficultyEasy, first: false,
			want: domain.XPBreakdown{BaseXP: 100, DifficultyMultiplier: 1.0, PerfectBonus: 25, TotalXP: 125},
		},
		{
			name: "medium floors base", score: 33, difficulty: domain.DifficultyMedium, first: false,
			want: domain.XPBreakdown{BaseXP: 49, DifficultyMultiplier: 1.5, TotalXP: 49},
		},
		{
			name: "unknown difficulty", score: 50, difficulty: "legendary", first: false,
			want: domain.XPBreakdown{BaseXP: 50, DifficultyMultiplier: 1.0, TotalXP: 50},
		},
		{
			name: "zero score still earns first bonus", score: 0, difficulty: domain.DifficultyHard, first: true,
			want: domain.XPBreakdown{BaseXP: 0, DifficultyMultiplier: 2.0, FirstTimeBonus: 50, TotalXP: 50},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeXP(tt.score, tt.difficulty, tt.first))
		})
	}
}
