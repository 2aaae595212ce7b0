package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/abhisek/ecoloop/internal/engine"
	"github.com/abhisek/ecoloop/internal/progress"
)

// handlerFunc is an HTTP handler that reports failure by returning an
// error. handle turns the error into a JSON error body.
type handlerFunc func(w http.ResponseWriter, r *http.Request) error

// body is the JSON wrapper around every response.
type body struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *apiError `json:"error,omitempty"`
}

// apiError is an error that already knows its HTTP status and wire code.
type apiError struct {
	status  int
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *apiError) Error() string { return e.Code + ": " + e.Message }

func badRequest(code, message string) *apiError {
	return &apiError{status: http.StatusBadRequest, Code: code, Message: message}
}

func (s *Server) handle(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h(w, r); err != nil {
			e := s.classify(r, err)
			s.write(w, e.status, body{Error: e})
		}
	}
}

// classify maps engine and tracker errors onto a status and code. Anything
// unrecognised is logged and hidden behind a 500.
func (s *Server) classify(r *http.Request, err error) *apiError {
	var (
		ae      *apiError
		locked  *progress.LevelLockedError
		invalid *progress.InvalidTransitionError
	)
	switch {
	case errors.As(err, &ae):
		return ae
	case errors.As(err, &locked):
		return &apiError{status: http.StatusConflict, Code: "level_locked", Message: locked.Error()}
	case errors.As(err, &invalid):
		return &apiError{status: http.StatusConflict, Code: "invalid_transition", Message: invalid.Error()}
	case errors.Is(err, progress.ErrUnknownLevel):
		return &apiError{status: http.StatusNotFound, Code: "level_not_found", Message: "level not found"}
	case errors.Is(err, engine.ErrInvalidPercent), errors.Is(err, engine.ErrInvalidScore):
		return badRequest("validation_error", err.Error())
	}
	s.logger.ErrorContext(r.Context(), "progression request failed", "error", err, "path", r.URL.Path)
	return &apiError{status: http.StatusInternalServerError, Code: "internal_error", Message: "internal server error"}
}

func (s *Server) write(w http.ResponseWriter, status int, b body) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(b); err != nil {
		s.logger.Error("encode response", "error", err, "status", status)
	}
}

func (s *Server) ok(w http.ResponseWriter, data any) error {
	s.write(w, http.StatusOK, body{Success: true, Data: data})
	return nil
}

// pathParams extracts and validates the user and level from the route.
func pathParams(r *http.Request) (string, int, error) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		return "", 0, badRequest("validation_error", "user id is required")
	}
	levelID, err := strconv.Atoi(chi.URLParam(r, "levelID"))
	if err != nil {
		return "", 0, badRequest("validation_error", "level id must be an integer")
	}
	return userID, levelID, nil
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return badRequest("invalid_request", "invalid JSON body")
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) error {
	return s.ok(w, map[string]any{
		"status": "ok",
		"levels": len(s.tracker.Graph().Levels()),
	})
}

// Catalog

func (s *Server) handleListLevels(w http.ResponseWriter, r *http.Request) error {
	def := s.engine.Rewards().PassThreshold
	levels := s.tracker.Graph().Levels()
	out := make([]levelDTO, 0, len(levels))
	for _, l := range levels {
		out = append(out, toLevelDTO(l, def))
	}
	return s.ok(w, out)
}

// Per user

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) error {
	nodes, err := s.resolver.ResolveMap(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		return err
	}

	def := s.engine.Rewards().PassThreshold
	out := make([]nodeDTO, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, nodeDTO{
			Level:     toLevelDTO(n.Level, def),
			Status:    n.Status,
			BestScore: n.BestScore,
			Completed: n.Completed,
		})
	}
	return s.ok(w, out)
}

func (s *Server) handleWallet(w http.ResponseWriter, r *http.Request) error {
	wallet, err := s.tracker.Wallet(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		return err
	}
	return s.ok(w, toWalletDTO(wallet))
}

// Attempts

func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) error {
	userID, levelID, err := pathParams(r)
	if err != nil {
		return err
	}
	p, err := s.tracker.Get(r.Context(), userID, levelID)
	if err != nil {
		return err
	}
	return s.ok(w, toProgressDTO(p))
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) error {
	userID, levelID, err := pathParams(r)
	if err != nil {
		return err
	}
	p, err := s.engine.StartLesson(r.Context(), userID, levelID)
	if err != nil {
		return err
	}
	return s.ok(w, toProgressDTO(p))
}

func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) error {
	userID, levelID, err := pathParams(r)
	if err != nil {
		return err
	}
	var req watchRequest
	if err := decodeBody(r, &req); err != nil {
		return err
	}
	if req.Percent == nil {
		return badRequest("validation_error", "percent is required")
	}

	res, err := s.engine.ReportWatchProgress(r.Context(), userID, levelID, *req.Percent)
	if err != nil {
		return err
	}
	return s.ok(w, watchResponse{
		Progress: toProgressDTO(res.Progress),
		Wallet:   toWalletDTO(res.Wallet),
		Reward:   toRewardDTO(res.Reward),
	})
}

func (s *Server) handleQuiz(w http.ResponseWriter, r *http.Request) error {
	userID, levelID, err := pathParams(r)
	if err != nil {
		return err
	}
	var req quizRequest
	if err := decodeBody(r, &req); err != nil {
		return err
	}
	if req.Score == nil {
		return badRequest("validation_error", "score is required")
	}

	res, err := s.engine.SubmitQuiz(r.Context(), userID, levelID, *req.Score)
	if err != nil {
		return err
	}
	return s.ok(w, toQuizResponse(res))
}

func (s *Server) handleAbandon(w http.ResponseWriter, r *http.Request) error {
	userID, levelID, err := pathParams(r)
	if err != nil {
		return err
	}
	p, err := s.engine.Abandon(r.Context(), userID, levelID)
	if err != nil {
		return err
	}
	return s.ok(w, toProgressDTO(p))
}
