package importer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quizquest-service/internal/domain"
)

const sampleResponse = `{
  "response_code": 0,
  "results": [
    {
      "category": "Science &amp; Nature",
      "question": "What is the chemical symbol for &quot;gold&quot;?",
      "correct_answer": "Au",
      "incorrect_answers": ["Ag", "Gd", "Go"]
    },
    {
      "category": "Science &amp; Nature",
      "question": "Which planet is known as the Red Planet?",
      "correct_answer": "Mars",
      "incorrect_answers": ["Venus", "Jupiter", "Saturn"]
    }
  ]
}`

func TestFetchConvertsResults(t *testing.T) {
	var query map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleResponse))
	}))
	defer srv.Close()

	imp := NewOpenTDB(srv.URL, srv.Client()).WithSeed(42)
	c, err := imp.Fetch(context.Background(), OpenTDBRequest{Amount: 2, Category: "17", Difficulty: domain.DifficultyHard})
	require.NoError(t, err)

	assert.Equal(t, []string{"2"}, query["amount"])
	assert.Equal(t, []string{"multiple"}, query["type"])
	assert.Equal(t, []string{"17"}, query["category"])
	assert.Equal(t, []string{"hard"}, query["difficulty"])

	assert.Equal(t, "Open Trivia DB Import (2 questions) - Category 17 - Hard", c.Title)
	assert.Equal(t, "Science & Nature", c.Theme)
	assert.Equal(t, domain.DifficultyHard, c.Difficulty)
	assert.Equal(t, "opentdb_import", c.CreatorUID)
	require.Len(t, c.Questions, 2)

	q := c.Questions[0]
	assert.Equal(t, `What is the chemical symbol for "gold"?`, q.Text)
	assert.Regexp(t, `^opentdb_0_\d{4}$`, q.ID)
	mc, ok := q.Body.(domain.MultipleChoice)
	require.True(t, ok)
	require.Len(t, mc.Options, 4)
	assert.Equal(t, "Au", mc.Options[mc.CorrectAnswer])
	assert.ElementsMatch(t, []string{"Au", "Ag", "Gd", "Go"}, mc.Options)
}

func TestFetchDefaults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.Query().Get("category"))
		assert.Empty(t, r.URL.Query().Get("difficulty"))
		_, _ = w.Write([]byte(`{"response_code":0,"results":[]}`))
	}))
	defer srv.Close()

	c, err := NewOpenTDB(srv.URL, srv.Client()).Fetch(context.Background(), OpenTDBRequest{})
	require.NoError(t, err)
	assert.Equal(t, "Open Trivia DB Import (10 questions)", c.Title)
	assert.Equal(t, "General", c.Theme)
	assert.Equal(t, domain.DifficultyMedium, c.Difficulty)
	assert.Empty(t, c.Questions)
}

func TestFetchRejectsErrorResponseCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response_code":1,"results":[]}`))
	}))
	defer srv.Close()

	_, err := NewOpenTDB(srv.URL, srv.Client()).Fetch(context.Background(), OpenTDBRequest{Amount: 50})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "response code 1")
}

func TestFetchRejectsHTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewOpenTDB(srv.URL, srv.Client()).Fetch(context.Background(), OpenTDBRequest{Amount: 1})
	require.Error(t, err)
}

func TestFetchedChallengeValidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sampleResponse))
	}))
	defer srv.Close()

	c, err := NewOpenTDB(srv.URL, srv.Client()).WithSeed(7).Fetch(context.Background(), OpenTDBRequest{Amount: 2})
	require.NoError(t, err)
	c.ID = "imported"
	assert.NoError(t, domain.ValidateChallenge(c))
}
