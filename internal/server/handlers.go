package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cfduel/lockoutbot/internal/domain"
	"github.com/cfduel/lockoutbot/internal/duel"
	"github.com/cfduel/lockoutbot/internal/logger"
)

// HealthResponse represents the response for health endpoints
type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// SuccessResponse represents a simple successful operation message
type SuccessResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// HandleHealthz provides a basic liveness check
func HandleHealthz() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
	}
}

// HandleReadyz provides a readiness check that validates store connectivity
func HandleReadyz(st Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := st.Ping(ctx); err != nil {
			logger.FromContext(r.Context()).Error("Readiness check failed", "error", err)
			respondJSON(w, http.StatusServiceUnavailable, HealthResponse{
				Status:  "unavailable",
				Message: "store connection failed",
			})
			return
		}

		respondJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
	}
}

// StartDuelRequest represents a request to start a duel between two
// linked participants
type StartDuelRequest struct {
	PlayerA         string `json:"player_a" validate:"required"`
	PlayerB         string `json:"player_b" validate:"required,nefield=PlayerA"`
	RatingMin       int    `json:"rating_min" validate:"required,min=800"`
	RatingMax       int    `json:"rating_max" validate:"required,gtefield=RatingMin"`
	DurationSeconds int    `json:"duration_seconds" validate:"required,min=60"`
}

// StartDuelResponse represents a started duel
type StartDuelResponse struct {
	Message string `json:"message"`
	DuelID  string `json:"duel_id"`
}

// HandleStartDuel starts a duel session delivering to the configured notifier
func HandleStartDuel(duelService DuelService, notifier duel.Notifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req StartDuelRequest
		if err := decodeAndValidate(r, w, &req, "Start duel"); err != nil {
			return
		}

		cfg := domain.DuelConfig{
			PlayerA:  req.PlayerA,
			PlayerB:  req.PlayerB,
			Band:     domain.RatingBand{Min: req.RatingMin, Max: req.RatingMax},
			Duration: time.Duration(req.DurationSeconds) * time.Second,
		}

		s, err := duelService.StartDuel(r.Context(), cfg, notifier)
		if err != nil {
			logger.FromContext(r.Context()).Error(LogMsgStartDuelFailed,
				"player_a", req.PlayerA, "player_b", req.PlayerB, "error", err)
			respondError(w, startDuelErrorStatus(err), startDuelErrorMessage(err))
			return
		}

		respondJSON(w, http.StatusCreated, StartDuelResponse{
			Message: "Duel started",
			DuelID:  s.ID.String(),
		})
	}
}

func startDuelErrorStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrAlreadyInDuel):
		return http.StatusConflict
	case errors.Is(err, domain.ErrHandleNotLinked),
		errors.Is(err, domain.ErrInsufficientProblemPool):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrJudgeUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func startDuelErrorMessage(err error) string {
	for _, sentinel := range []error{
		domain.ErrAlreadyInDuel,
		domain.ErrHandleNotLinked,
		domain.ErrInsufficientProblemPool,
		domain.ErrJudgeUnavailable,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return ErrMsgStartDuelFailed
}

// ForceEndRequest represents a force-end request
type ForceEndRequest struct {
	ParticipantID string `json:"participant_id" validate:"required"`
	Reason        string `json:"reason" validate:"omitempty,max=200"`
}

// ForceEndResponse reports whether a live session was ended. Ended is false
// when only an orphaned lock was cleared.
type ForceEndResponse struct {
	Message string `json:"message"`
	Ended   bool   `json:"ended"`
}

// HandleForceEnd terminates a participant's duel, or clears an orphaned
// lock if no live session exists
func HandleForceEnd(duelService DuelService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ForceEndRequest
		if err := decodeAndValidate(r, w, &req, "Force end duel"); err != nil {
			return
		}

		ended, err := duelService.ForceEnd(r.Context(), req.ParticipantID, req.Reason)
		if err != nil {
			logger.FromContext(r.Context()).Error(LogMsgForceEndFailed,
				"participant_id", req.ParticipantID, "error", err)
			respondError(w, http.StatusInternalServerError, ErrMsgForceEndFailed)
			return
		}

		message := "Duel ended"
		if !ended {
			message = "No active duel; participant lock cleared"
		}
		respondJSON(w, http.StatusOK, ForceEndResponse{Message: message, Ended: ended})
	}
}

// ProblemView is the API shape of a pool problem
type ProblemView struct {
	Name   string `json:"name"`
	Rating int    `json:"rating"`
	Points int    `json:"points"`
	URL    string `json:"url"`
}

// DuelStatusResponse represents a snapshot of a running duel
type DuelStatusResponse struct {
	State            string        `json:"state"`
	RemainingSeconds int           `json:"remaining_seconds"`
	ScoreA           int           `json:"score_a"`
	ScoreB           int           `json:"score_b"`
	Problems         []ProblemView `json:"problems"`
}

// HandleDuelStatus returns the current state of a participant's duel
func HandleDuelStatus(duelService DuelService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		participantID := r.URL.Query().Get("participant_id")
		if participantID == "" {
			respondError(w, http.StatusBadRequest,
				fmt.Sprintf(ErrMsgMissingQueryParam, "participant_id"))
			return
		}

		snap, ok := duelService.Status(participantID)
		if !ok {
			respondError(w, http.StatusNotFound, ErrMsgNoActiveDuel)
			return
		}

		respondJSON(w, http.StatusOK, formatStatusResponse(snap))
	}
}

func formatStatusResponse(snap duel.Snapshot) DuelStatusResponse {
	problems := make([]ProblemView, 0, len(snap.Problems))
	for _, p := range snap.Problems {
		problems = append(problems, ProblemView{
			Name:   p.Name,
			Rating: p.Rating,
			Points: p.Points,
			URL:    p.URL(),
		})
	}
	return DuelStatusResponse{
		State:            string(snap.State),
		RemainingSeconds: snap.Remaining,
		ScoreA:           snap.ScoreA,
		ScoreB:           snap.ScoreB,
		Problems:         problems,
	}
}

// respondJSON sends a JSON response with the given status code and payload
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
	}
}

// respondError sends a JSON error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}
