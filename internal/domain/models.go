package domain

import "time"

// Difficulty scales the XP awarded for a challenge.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Challenge is a named, ordered set of questions.
type Challenge struct {
	ID          string     `json:"id" validate:"required"`
	Title       string     `json:"title" validate:"required,max=200"`
	Description string     `json:"description"`
	Theme       string     `json:"theme" validate:"max=100"`
	Difficulty  Difficulty `json:"difficulty" validate:"required,oneof=easy medium hard"`
	CreatorUID  string     `json:"creator_uid"`
	IsPublished bool       `json:"is_published"`
	PlayCount   int        `json:"play_count"`
	Questions   []Question `json:"questions" validate:"min=1"`
	CreatedAt   time.Time  `json:"created_at"`
}

// SubmittedAnswer is the raw client input for one question.
type SubmittedAnswer struct {
	QuestionID string `json:"question_id"`
	Text       string `json:"text,omitempty"`
	// SelectedOption is the chosen option index for multiple-choice questions.
	SelectedOption *int `json:"selected_option,omitempty"`
	TimeSpent      int  `json:"time_spent"`
	// Entries maps a forced-recall entry_id to the user's text.
	Entries map[string]string `json:"table_entries,omitempty"`
}

// EntryResult is the graded outcome of one forced-recall table entry.
type EntryResult struct {
	EntryID      string `json:"entry_id"`
	IsCorrect    bool   `json:"is_correct"`
	IsFilled     bool   `json:"is_filled"`
	PointsEarned int    `json:"points_earned"`
	UserAnswer   string `json:"user_answer"`
}

// TableResult aggregates the entry results of a forced-recall question.
type TableResult struct {
	Entries             []EntryResult `json:"entries"`
	TotalFilled         int           `json:"total_filled"`
	TotalCorrect        int           `json:"total_correct"`
	TotalPointsEarned   int           `json:"total_points_earned"`
	TotalPossiblePoints int           `json:"total_possible_points"`
}

// GradedAnswer is the server-side verdict for one question.
type GradedAnswer struct {
	QuestionID     string       `json:"question_id"`
	Type           QuestionType `json:"type"`
	IsCorrect      bool         `json:"is_correct"`
	PointsEarned   int          `json:"points_earned"`
	PointsPossible int          `json:"points_possible"`
	TimeSpent      int          `json:"time_spent"`
	Table          *TableResult `json:"table_results,omitempty"`
}

// GradedResult is the output of grading one submission against a challenge.
type GradedResult struct {
	Answers        []GradedAnswer `json:"answers"`
	Score          int            `json:"score"`
	TotalTime      int            `json:"total_time"`
	EarnedPoints   int            `json:"earned_points"`
	PossiblePoints int            `json:"possible_points"`
}

// Attempt is one graded submission. Score and XPEarned are always computed server-side.
type Attempt struct {
	ID               string            `json:"id"`
	ChallengeID      string            `json:"challenge"`
	UserUID          string            `json:"user_uid,omitempty"` // empty for anonymous players
	SubmittedAnswers []SubmittedAnswer `json:"submitted_answers"`
	Answers          []GradedAnswer    `json:"answers"`
	Score            int               `json:"score"`
	TotalTime        int               `json:"total_time"`
	XPEarned         int               `json:"xp_earned"`
	StartedAt        *time.Time        `json:"started_at,omitempty"`
	CompletedAt      time.Time         `json:"completed_at"`
	CreatedAt        time.Time         `json:"created_at"`
}

// IsAnonymous reports whether the attempt has no owning user.
func (a Attempt) IsAnonymous() bool {
	return a.UserUID == ""
}

// AttemptSubmission is the trusted subset of a client submission.
type AttemptSubmission struct {
	ChallengeID string
	UserUID     string
	Answers     []SubmittedAnswer
	StartedAt   *time.Time
	Defaults    ProfileDefaults
}

// UserProfile tracks cumulative progress for a user.
type UserProfile struct {
	UID                 string    `json:"firebase_uid"`
	DisplayName         string    `json:"display_name"`
	Email               string    `json:"email"`
	TotalXP             int       `json:"total_xp"`
	ChallengesCompleted int       `json:"challenges_completed"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// ProfileDefaults seed a profile created on first XP award.
type ProfileDefaults struct {
	DisplayName string
	Email       string
}

// WithFallbacks fills missing defaults the same way profiles are created elsewhere.
func (d ProfileDefaults) WithFallbacks() ProfileDefaults {
	if d.DisplayName == "" {
		d.DisplayName = "Anonymous"
	}
	return d
}

// ProfileStats are derived from a user's attempt history.
type ProfileStats struct {
	TotalScore  int `json:"total_score"`
	AverageTime int `json:"average_time"`
	FastestTime int `json:"fastest_time"`
}

// ProfileSummary is a profile together with its attempt statistics.
type ProfileSummary struct {
	UserProfile
	ProfileStats
}

// ChallengeStats are derived from all attempts on a challenge.
type ChallengeStats struct {
	TotalAttempts int     `json:"total_attempts"`
	AverageRating float64 `json:"average_rating"`
}

// XPBreakdown explains how an XP award was computed.
type XPBreakdown struct {
	BaseXP               int     `json:"base_xp"`
	DifficultyMultiplier float64 `json:"difficulty_multiplier"`
	FirstTimeBonus       int     `json:"first_time_bonus"`
	PerfectBonus         int     `json:"perfect_bonus"`
	TotalXP              int     `json:"total_xp"`
}

// XPGrant is a single idempotent XP delta for a profile.
// Key identifies the grant; applying the same key twice is a no-op.
type XPGrant struct {
	Key        string
	UserUID    string
	Amount     int
	Completion bool // also bump challenges_completed
}

// AttemptResult is returned to the caller after a submission.
type AttemptResult struct {
	Attempt     Attempt     `json:"attempt"`
	XPBreakdown XPBreakdown `json:"xp_breakdown"`
	NewTotalXP  *int        `json:"new_total_xp"`
}

// MatchState describes where a match is in its lifecycle.
type MatchState string

const (
	MatchPending  MatchState = "pending"
	MatchReady    MatchState = "ready"
	MatchFinished MatchState = "finished"
)

// Match pits two players against each other on the same challenge.
type Match struct {
	ID          string     `json:"id"`
	ChallengeID string     `json:"challenge"`
	Player1UID  string     `json:"player1"`
	Player2UID  string     `json:"player2"`
	Attempt1ID  string     `json:"attempt1,omitempty"`
	Attempt2ID  string     `json:"attempt2,omitempty"`
	WinnerUID   string     `json:"winner,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}

// State derives the lifecycle state from the attempt slots and winner.
func (m Match) State() MatchState {
	switch {
	case m.WinnerUID != "":
		return MatchFinished
	case m.Attempt1ID != "" && m.Attempt2ID != "":
		return MatchReady
	default:
		return MatchPending
	}
}

// MatchOutcome is the result of resolving a match.
type MatchOutcome struct {
	MatchID    string     `json:"match_id"`
	State      MatchState `json:"state"`
	WinnerUID  string     `json:"winner,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	// BonusAwarded is true only for the invocation that declared the winner.
	BonusAwarded bool `json:"bonus_awarded"`
}

// LeaderboardEntry is a snapshot-friendly view of a profile.
type LeaderboardEntry struct {
	UserUID             string `json:"userId"`
	DisplayName         string `json:"displayName"`
	TotalXP             int    `json:"totalXp"`
	ChallengesCompleted int    `json:"challengesCompleted"`
}

// Leaderboard is the ordered XP scoreboard.
type Leaderboard struct {
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// RegradeReport compares a stored attempt with a fresh grading of its audit copy.
type RegradeReport struct {
	AttemptID   string       `json:"attempt_id"`
	StoredScore int          `json:"stored_score"`
	Regraded    GradedResult `json:"regraded"`
	Consistent  bool         `json:"consistent"`
}

// ImportError describes one rejected challenge in a batch import.
type ImportError struct {
	Index   int    `json:"index"`
	Message string `json:"message"`
}

// ImportReport summarizes a batch import.
type ImportReport struct {
	Created []Challenge   `json:"created"`
	Errors  []ImportError `json:"errors"`
}
