package http

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"quizquest-service/internal/app"
	"quizquest-service/internal/domain"
	"quizquest-service/internal/importer"
)

const maxBodyBytes = 4 << 20

// ChallengeFetcher builds a challenge from an external trivia source.
type ChallengeFetcher interface {
	Fetch(ctx context.Context, req importer.OpenTDBRequest) (domain.Challenge, error)
}

// Handler serves the REST API on top of the app services.
type Handler struct {
	submissions *app.SubmissionService
	matches     *app.MatchService
	fetcher     ChallengeFetcher
	importToken string
	log         logrus.FieldLogger
}

func NewHandler(submissions *app.SubmissionService, matches *app.MatchService, fetcher ChallengeFetcher, importToken string, log logrus.FieldLogger) *Handler {
	return &Handler{
		submissions: submissions,
		matches:     matches,
		fetcher:     fetcher,
		importToken: importToken,
		log:         log,
	}
}

// Register mounts the API routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/challenges", h.listChallenges)
	mux.HandleFunc("GET /api/challenges/{id}", h.getChallenge)
	mux.HandleFunc("GET /api/challenges/{id}/stats", h.challengeStats)
	mux.HandleFunc("POST /api/challenges/import", h.requireImportToken(h.importChallenges))
	mux.HandleFunc("POST /api/challenges/import/opentdb", h.requireImportToken(h.importOpenTDB))

	mux.HandleFunc("POST /api/attempts", h.submitAttempt)
	mux.HandleFunc("GET /api/attempts/{id}", h.getAttempt)
	mux.HandleFunc("GET /api/attempts/{id}/regrade", h.regradeAttempt)

	mux.HandleFunc("GET /api/users/{uid}", h.getProfile)
	mux.HandleFunc("GET /api/leaderboard", h.leaderboard)

	mux.HandleFunc("POST /api/matches", h.createMatch)
	mux.HandleFunc("GET /api/matches/{id}", h.getMatch)
	mux.HandleFunc("POST /api/matches/{id}/attempts", h.submitMatchAttempt)
	mux.HandleFunc("POST /api/matches/{id}/resolve", h.resolveMatch)
}

// attemptRequest is what clients may send. Any score or XP fields in the body
// are ignored because they are not part of this type.
type attemptRequest struct {
	Challenge        string                   `json:"challenge"`
	UserUID          string                   `json:"user_uid"`
	SubmittedAnswers []domain.SubmittedAnswer `json:"submitted_answers"`
	Answers          []domain.SubmittedAnswer `json:"answers"`
	StartedAt        *time.Time               `json:"started_at"`
	DisplayName      string                   `json:"display_name"`
	Email            string                   `json:"email"`
}

func (r attemptRequest) toSubmission() domain.AttemptSubmission {
	answers := r.SubmittedAnswers
	if len(answers) == 0 {
		answers = r.Answers
	}
	return domain.AttemptSubmission{
		ChallengeID: r.Challenge,
		UserUID:     r.UserUID,
		Answers:     answers,
		StartedAt:   r.StartedAt,
		Defaults:    domain.ProfileDefaults{DisplayName: r.DisplayName, Email: r.Email},
	}
}

type createMatchRequest struct {
	Challenge string `json:"challenge"`
	Player1   string `json:"player1"`
	Player2   string `json:"player2"`
}

type matchAttemptRequest struct {
	Attempt string `json:"attempt"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) listChallenges(w http.ResponseWriter, r *http.Request) {
	challenges, err := h.submissions.ListChallenges(r.Context(), r.URL.Query().Get("theme"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, challenges)
}

func (h *Handler) getChallenge(w http.ResponseWriter, r *http.Request) {
	c, err := h.submissions.GetChallenge(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) challengeStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.submissions.ChallengeStats(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) importChallenges(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	challenges, err := domain.DecodeChallenges(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	report, err := h.submissions.ImportChallenges(r.Context(), challenges)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	status := http.StatusCreated
	if len(report.Created) == 0 {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, report)
}

func (h *Handler) importOpenTDB(w http.ResponseWriter, r *http.Request) {
	if h.fetcher == nil {
		writeJSON(w, http.StatusNotImplemented, errorResponse{Error: "open trivia import not configured"})
		return
	}
	var req importer.OpenTDBRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	challenge, err := h.fetcher.Fetch(r.Context(), req)
	if err != nil {
		h.log.WithError(err).Warn("open trivia import failed")
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "error fetching from Open Trivia DB"})
		return
	}
	report, err := h.submissions.ImportChallenges(r.Context(), []domain.Challenge{challenge})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if len(report.Created) == 0 {
		writeJSON(w, http.StatusBadRequest, report)
		return
	}
	writeJSON(w, http.StatusCreated, report.Created[0])
}

func (h *Handler) submitAttempt(w http.ResponseWriter, r *http.Request) {
	var req attemptRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.Challenge == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "challenge is required"})
		return
	}
	result, err := h.submissions.SubmitAttempt(r.Context(), req.toSubmission())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *Handler) getAttempt(w http.ResponseWriter, r *http.Request) {
	attempt, err := h.submissions.GetAttempt(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, attempt)
}

func (h *Handler) regradeAttempt(w http.ResponseWriter, r *http.Request) {
	report, err := h.submissions.RegradeAttempt(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) getProfile(w http.ResponseWriter, r *http.Request) {
	summary, err := h.submissions.GetProfile(r.Context(), r.PathValue("uid"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) leaderboard(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	lb, err := h.submissions.Leaderboard(r.Context(), limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lb)
}

func (h *Handler) createMatch(w http.ResponseWriter, r *http.Request) {
	var req createMatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	match, err := h.matches.CreateMatch(r.Context(), req.Challenge, req.Player1, req.Player2)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, match)
}

func (h *Handler) getMatch(w http.ResponseWriter, r *http.Request) {
	match, err := h.matches.GetMatch(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, match)
}

func (h *Handler) submitMatchAttempt(w http.ResponseWriter, r *http.Request) {
	var req matchAttemptRequest
	if err := decodeJSON(w, r, &req); err != nil || req.Attempt == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "attempt is required"})
		return
	}
	out, err := h.matches.SubmitMatchAttempt(r.Context(), r.PathValue("id"), req.Attempt)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) resolveMatch(w http.ResponseWriter, r *http.Request) {
	out, err := h.matches.ResolveMatch(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) requireImportToken(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("X-Import-Token")
		if h.importToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(h.importToken)) != 1 {
			writeJSON(w, http.StatusForbidden, errorResponse{Error: "not authorized"})
			return
		}
		next(w, r)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.log.WithError(err).WithField("path", r.URL.Path).Error("request failed")
		writeJSON(w, status, errorResponse{Error: "internal error"})
		return
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrChallengeNotFound),
		errors.Is(err, domain.ErrAttemptNotFound),
		errors.Is(err, domain.ErrProfileNotFound),
		errors.Is(err, domain.ErrMatchNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidChallenge),
		errors.Is(err, domain.ErrInvalidMatch),
		errors.Is(err, domain.ErrChallengeMismatch):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotMatchPlayer),
		errors.Is(err, domain.ErrSlotTaken):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return io.ReadAll(r.Body)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
