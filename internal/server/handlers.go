package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/safeprotest/factcheck/internal/factcheck"
	"github.com/safeprotest/factcheck/internal/model"
	"github.com/safeprotest/factcheck/internal/store"
)

type claimRequest struct {
	Claim   string   `json:"claim"`
	Sources []string `json:"sources"`
}

type voteRequest struct {
	Vote     string `json:"vote"`
	Evidence string `json:"evidence"`
}

type submitResponse struct {
	ID string `json:"id"`
	model.Result
}

type votesResponse struct {
	Votes []model.CommunityVote `json:"votes"`
	Tally model.Tally           `json:"tally"`
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req claimRequest
	if !s.decode(w, r, &req) {
		return
	}

	eval, err := s.svc.Evaluate(r.Context(), req.Claim, req.Sources)
	if err != nil {
		s.respondWithServiceError(w, r, err)
		return
	}
	s.metrics.observeEvaluation(eval.Result.Status)
	respondWithJSON(w, http.StatusOK, eval)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	submitter, err := s.auth.Identify(r)
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req claimRequest
	if !s.decode(w, r, &req) {
		return
	}

	rec, _, err := s.svc.Submit(r.Context(), factcheck.SubmitRequest{
		Claim:       req.Claim,
		Sources:     req.Sources,
		SubmittedBy: submitter,
	})
	if err != nil {
		s.respondWithServiceError(w, r, err)
		return
	}
	s.metrics.observeEvaluation(rec.Result.Status)
	respondWithJSON(w, http.StatusCreated, submitResponse{ID: rec.ID, Result: rec.Result})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	opts := model.ListOptions{Query: r.URL.Query().Get("q")}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			respondWithError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		opts.Limit = limit
	}

	records, err := s.svc.List(r.Context(), opts)
	if err != nil {
		s.respondWithServiceError(w, r, err)
		return
	}
	if records == nil {
		records = []model.Record{}
	}
	respondWithJSON(w, http.StatusOK, map[string][]model.Record{"factChecks": records})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	rec, err := s.svc.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, rec)
}

func (s *Server) handleVote(w http.ResponseWriter, r *http.Request) {
	voter, err := s.auth.Identify(r)
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if !s.limiter.Allow(voter) {
		s.metrics.rateLimited.Inc()
		respondWithError(w, http.StatusTooManyRequests, "Too many votes, slow down")
		return
	}

	var req voteRequest
	if !s.decode(w, r, &req) {
		return
	}

	vote, err := s.svc.RecordVote(r.Context(), mux.Vars(r)["id"], voter, req.Vote, req.Evidence)
	if err != nil {
		s.respondWithServiceError(w, r, err)
		return
	}
	s.metrics.observeVote(vote.Vote)
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Vote recorded successfully"})
}

func (s *Server) handleListVotes(w http.ResponseWriter, r *http.Request) {
	votes, err := s.svc.ListVotes(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondWithServiceError(w, r, err)
		return
	}
	if votes == nil {
		votes = []model.CommunityVote{}
	}
	respondWithJSON(w, http.StatusOK, votesResponse{Votes: votes, Tally: model.TallyVotes(votes)})
}

func (s *Server) handleRecheck(w http.ResponseWriter, r *http.Request) {
	rec, err := s.svc.Recheck(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, rec)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decode reads a JSON body capped at the configured size. It writes the
// error response itself and reports whether decoding succeeded.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body := r.Body
	if s.cfg.MaxRequestBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, s.cfg.MaxRequestBytes)
	}

	if err := json.NewDecoder(body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondWithError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// respondWithServiceError maps service errors onto status codes. Internal
// errors are logged and hidden from the caller.
func (s *Server) respondWithServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, model.ErrMissingVoter):
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
	case model.IsInputError(err):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		respondWithError(w, http.StatusNotFound, "fact check not found")
	default:
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		respondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"failed to encode response"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(data)
}
