// Package importer builds challenges from external trivia sources.
package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"quizquest-service/internal/domain"
)

// DefaultOpenTDBURL is the public Open Trivia DB question endpoint.
const DefaultOpenTDBURL = "https://opentdb.com/api.php"

const (
	openTDBCreator     = "opentdb_import"
	defaultImportTheme = "General"
	defaultAmount      = 10
)

// OpenTDBRequest selects the questions to fetch. Category and Difficulty are optional.
type OpenTDBRequest struct {
	Amount     int               `json:"amount"`
	Category   string            `json:"category,omitempty"`
	Difficulty domain.Difficulty `json:"difficulty,omitempty"`
}

type openTDBResponse struct {
	ResponseCode int             `json:"response_code"`
	Results      []openTDBResult `json:"results"`
}

type openTDBResult struct {
	Category         string   `json:"category"`
	Question         string   `json:"question"`
	CorrectAnswer    string   `json:"correct_answer"`
	IncorrectAnswers []string `json:"incorrect_answers"`
}

// OpenTDB turns an Open Trivia DB batch into one multiple-choice challenge.
type OpenTDB struct {
	baseURL string
	client  *http.Client
	now     func() time.Time

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewOpenTDB creates an importer. An empty baseURL uses DefaultOpenTDBURL and a
// nil client gets a 10 second timeout.
func NewOpenTDB(baseURL string, client *http.Client) *OpenTDB {
	if baseURL == "" {
		baseURL = DefaultOpenTDBURL
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &OpenTDB{
		baseURL: baseURL,
		client:  client,
		now:     time.Now,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// WithSeed makes option shuffling and question ids reproducible.
func (o *OpenTDB) WithSeed(seed int64) *OpenTDB {
	o.mu.Lock()
	o.rnd = rand.New(rand.NewSource(seed))
	o.mu.Unlock()
	return o
}

// Fetch downloads one batch and converts it. The returned challenge has no id;
// the caller assigns one when storing it.
func (o *OpenTDB) Fetch(ctx context.Context, req OpenTDBRequest) (domain.Challenge, error) {
	if req.Amount <= 0 {
		req.Amount = defaultAmount
	}

	u, err := url.Parse(o.baseURL)
	if err != nil {
		return domain.Challenge{}, fmt.Errorf("opentdb url: %w", err)
	}
	q := u.Query()
	q.Set("amount", strconv.Itoa(req.Amount))
	q.Set("type", "multiple")
	if req.Category != "" {
		q.Set("category", req.Category)
	}
	if req.Difficulty != "" {
		q.Set("difficulty", string(req.Difficulty))
	}
	u.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return domain.Challenge{}, err
	}
	resp, err := o.client.Do(httpReq)
	if err != nil {
		return domain.Challenge{}, fmt.Errorf("fetch opentdb: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return domain.Challenge{}, fmt.Errorf("fetch opentdb: unexpected status %d", resp.StatusCode)
	}

	var payload openTDBResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.Challenge{}, fmt.Errorf("decode opentdb: %w", err)
	}
	if payload.ResponseCode != 0 {
		return domain.Challenge{}, fmt.Errorf("opentdb response code %d", payload.ResponseCode)
	}
	return o.convert(req, payload.Results), nil
}

func (o *OpenTDB) convert(req OpenTDBRequest, results []openTDBResult) domain.Challenge {
	o.mu.Lock()
	defer o.mu.Unlock()

	questions := make([]domain.Question, 0, len(results))
	for i, r := range results {
		correct := html.UnescapeString(r.CorrectAnswer)
		options := make([]string, 0, len(r.IncorrectAnswers)+1)
		for _, opt := range r.IncorrectAnswers {
			options = append(options, html.UnescapeString(opt))
		}
		options = append(options, correct)
		o.rnd.Shuffle(len(options), func(a, b int) { options[a], options[b] = options[b], options[a] })

		correctIndex := -1
		for idx, opt := range options {
			if opt == correct {
				correctIndex = idx
				break
			}
		}
		questions = append(questions, domain.Question{
			ID:     fmt.Sprintf("opentdb_%d_%d", i, 1000+o.rnd.Intn(9000)),
			Text:   html.UnescapeString(r.Question),
			Points: domain.DefaultQuestionPoints,
			Body:   domain.MultipleChoice{Options: options, CorrectAnswer: correctIndex},
		})
	}

	theme := defaultImportTheme
	if len(results) > 0 && results[0].Category != "" {
		theme = html.UnescapeString(results[0].Category)
	}
	difficulty := req.Difficulty
	if difficulty == "" {
		difficulty = domain.DifficultyMedium
	}

	return domain.Challenge{
		Title:       challengeTitle(req),
		Description: "Imported from Open Trivia DB",
		Theme:       theme,
		Difficulty:  difficulty,
		CreatorUID:  openTDBCreator,
		IsPublished: true,
		Questions:   questions,
		CreatedAt:   o.now(),
	}
}

func challengeTitle(req OpenTDBRequest) string {
	title := fmt.Sprintf("Open Trivia DB Import (%d questions)", req.Amount)
	if req.Category != "" {
		title += " - Category " + req.Category
	}
	if req.Difficulty != "" {
		title += " - " + cases.Title(language.English).String(string(req.Difficulty))
	}
	return title
}
