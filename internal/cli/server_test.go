package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"quizquest-service/internal/config"
	"quizquest-service/internal/domain"
	"quizquest-service/internal/logging"
)

func TestSampleChallengesAreValid(t *testing.T) {
	for _, c := range sampleChallenges() {
		if err := domain.ValidateChallenge(c); err != nil {
			t.Fatalf("sample %s invalid: %v", c.ID, err)
		}
	}
}

func TestSeedChallengesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.json")
	data := `{"quizzes":[{"id":"geo-1","title":"Rivers","difficulty":"medium","questions":[{"question_id":"q1","type":"short_answer","acceptable_answers":["Nile"]}]},{"title":"Untitled id","difficulty":"easy","questions":[{"question_id":"q1","options":["a","b"],"correct_answer":0}]}]}`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write seed: %v", err)
	}

	challenges, err := seedChallenges(path)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if len(challenges) != 2 || challenges[0].ID != "geo-1" || challenges[1].ID != "seed-2" {
		t.Fatalf("unexpected seed ids %+v", challenges)
	}

	if _, err := seedChallenges(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing seed file")
	}
}

func TestOpenBackendsInMemory(t *testing.T) {
	ctx := context.Background()
	b, err := openBackends(ctx, config.Config{}, logging.Discard())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer b.Close()

	c, err := b.challenges.GetChallenge(ctx, "capitals-1")
	if err != nil {
		t.Fatalf("get sample challenge: %v", err)
	}
	if len(c.Questions) != 3 {
		t.Fatalf("expected 3 questions, got %d", len(c.Questions))
	}
	listed, err := b.catalog.ListChallenges(ctx, "")
	if err != nil || len(listed) != 1 {
		t.Fatalf("expected one listed challenge, got %d (%v)", len(listed), err)
	}
}
