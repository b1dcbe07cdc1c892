package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/rocketscienceinc/othello-backend/internal/apperror"
	"github.com/rocketscienceinc/othello-backend/internal/entity"
	"github.com/rocketscienceinc/othello-backend/transport/dto"
)

const (
	errConnectMethod = "GET method should be used instead of POST"
	errConnectParams = "Incorrect parameters. It should be: p1=juan&p2=pedro"

	maxResultsLimit = 500
)

type moveRequest struct {
	Player string `json:"player"`
	Move   string `json:"move"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// statusFor maps an error to the HTTP status a client sees.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperror.ErrInternal):
		return http.StatusInternalServerError
	case errors.Is(err, apperror.ErrGameNotFound), errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperror.ErrUnknownPlayer):
		return http.StatusForbidden
	case errors.Is(err, apperror.ErrInvalidCoordinateFormat), errors.Is(err, apperror.ErrInvalidPairing):
		return http.StatusBadRequest
	case errors.Is(err, apperror.ErrInvalidMove):
		return http.StatusUnprocessableEntity
	case errors.Is(err, apperror.ErrNotYourTurn),
		errors.Is(err, apperror.ErrGameIsNotStarted),
		errors.Is(err, apperror.ErrGameFinished),
		errors.Is(err, apperror.ErrGameAlreadyExists),
		errors.Is(err, apperror.ErrTurnCheckTimeout),
		errors.Is(err, apperror.ErrTurnChangeTimeout):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (that *Server) fail(w http.ResponseWriter, method string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		that.logger.Error("request failed", "method", method, "error", err)
	}

	respondError(w, status, dto.ErrorMessage(err))
}

func gameRef(r *http.Request) (entity.GameRef, error) {
	vars := mux.Vars(r)

	seq, err := strconv.Atoi(vars["seq"])
	if err != nil || seq < 1 {
		return entity.GameRef{}, apperror.ErrGameNotFound
	}

	return entity.GameRef{Player1: vars["player1"], Player2: vars["player2"], Seq: seq}, nil
}

// handleConnect pairs p1 and p2 and answers with the game to play.
func (that *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, errConnectMethod)
		return
	}

	query := r.URL.Query()
	if !query.Has("p1") || !query.Has("p2") {
		respondError(w, http.StatusBadRequest, errConnectParams)
		return
	}

	game, err := that.games.CreateAndPair(r.Context(), query.Get("p1"), query.Get("p2"))
	if err != nil {
		that.fail(w, "handleConnect", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"game": game.Ref,
		"id":   game.Ref.String(),
	})
}

func (that *Server) handleOpenGame(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	game, err := that.games.OpenGame(r.Context(), query.Get("p1"), query.Get("p2"))
	if err != nil {
		that.fail(w, "handleOpenGame", err)
		return
	}

	respondJSON(w, http.StatusCreated, dto.NewGame(game))
}

func (that *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	ref, err := gameRef(r)
	if err != nil {
		that.fail(w, "handleGetGame", err)
		return
	}

	game, err := that.games.GetGame(r.Context(), ref)
	if err != nil {
		that.fail(w, "handleGetGame", err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewGame(game))
}

func (that *Server) handleGetBoard(w http.ResponseWriter, r *http.Request) {
	ref, err := gameRef(r)
	if err != nil {
		that.fail(w, "handleGetBoard", err)
		return
	}

	board, err := that.games.GetBoard(r.Context(), ref)
	if err != nil {
		that.fail(w, "handleGetBoard", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"board": board})
}

func (that *Server) handlePollTurn(w http.ResponseWriter, r *http.Request) {
	ref, err := gameRef(r)
	if err != nil {
		that.fail(w, "handlePollTurn", err)
		return
	}

	player := r.URL.Query().Get("player")
	if player == "" {
		respondError(w, http.StatusBadRequest, "player is required")
		return
	}

	yourTurn, err := that.games.PollTurn(r.Context(), ref, player)
	if err != nil {
		that.fail(w, "handlePollTurn", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"your_turn": yourTurn})
}

func (that *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	ref, err := gameRef(r)
	if err != nil {
		that.fail(w, "handleMove", err)
		return
	}

	var req moveRequest
	if err = json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Player == "" {
		respondError(w, http.StatusBadRequest, "player is required")
		return
	}

	p, err := entity.ParsePosition(req.Move)
	if err != nil {
		that.fail(w, "handleMove", err)
		return
	}

	game, result, err := that.games.SubmitMove(r.Context(), ref, req.Player, p)
	if game != nil && that.notifier != nil {
		that.notifier.NotifyGame(game)
	}

	if err != nil && game == nil {
		that.fail(w, "handleMove", err)
		return
	}

	status := http.StatusOK
	if err != nil {
		status = statusFor(err)
	}

	respondJSON(w, status, dto.NewMove(game, result, err))
}

func (that *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	if that.results == nil {
		respondError(w, http.StatusNotFound, "results archive is disabled")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > maxResultsLimit {
			respondError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = parsed
	}

	results, err := that.results.List(r.Context(), limit)
	if err != nil {
		that.fail(w, "handleResults", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"count":   len(results),
		"results": results,
	})
}
