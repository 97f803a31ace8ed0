package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/aziz13-coder/newcodexhorary/internal/domain"
	"github.com/aziz13-coder/newcodexhorary/internal/store"
)

// judgeRequest is the POST /api/judge payload. The chart carries raw planet
// positions; derived fields (signs, aspects, lunar context) are computed
// server-side before judgment.
type judgeRequest struct {
	Chart    domain.Chart    `json:"chart"`
	Contract domain.Contract `json:"contract"`
}

type judgeResponse struct {
	ID     string                `json:"id"`
	Result domain.JudgmentResult `json:"result"`
}

func (s *Server) handleJudge(w http.ResponseWriter, r *http.Request) {
	var req judgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := prepareChart(&req.Chart, s.cfg.Engine); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result := s.engine.Judge(&req.Chart, req.Contract)

	id, err := s.history.Save(&req.Chart, req.Contract, result)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to save judgment")
		s.writeError(w, http.StatusInternalServerError, "failed to save judgment")
		return
	}

	s.log.Info().
		Str("id", id).
		Str("verdict", string(result.Verdict)).
		Int("confidence", result.Confidence).
		Msg("Question judged")
	s.writeJSON(w, http.StatusOK, judgeResponse{ID: id, Result: result})
}

func (s *Server) handleGetJudgment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rec, err := s.history.Get(id)
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "judgment not found")
		return
	}
	if err != nil {
		s.log.Error().Err(err).Str("id", id).Msg("Failed to load judgment")
		s.writeError(w, http.StatusInternalServerError, "failed to load judgment")
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleListJudgments(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	summaries, err := s.history.List(limit)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to list judgments")
		s.writeError(w, http.StatusInternalServerError, "failed to list judgments")
		return
	}
	if summaries == nil {
		summaries = []store.Summary{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"judgments": summaries,
		"count":     len(summaries),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
