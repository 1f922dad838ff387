package api

import (
	_ "embed"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/distrubuted-game-mechanic/number-guess/internal/models"
	"github.com/distrubuted-game-mechanic/number-guess/internal/service"
	"github.com/distrubuted-game-mechanic/number-guess/pkg/logger"
	"github.com/go-chi/chi/v5"
)

//go:embed static/index.html
var indexHTML []byte

// maxBodyBytes caps guess request bodies.
const maxBodyBytes = 1 << 16

// EventStream upgrades a request into a live feed of one game's events
type EventStream interface {
	ServeWS(w http.ResponseWriter, r *http.Request, gameID string)
}

// Handler holds all HTTP handlers
type Handler struct {
	gameService *service.GameService
	events      EventStream
	logger      *logger.Logger
}

// NewHandler creates a new handler. events may be nil, in which case the
// event stream route is not registered.
func NewHandler(gameService *service.GameService, events EventStream, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{
		gameService: gameService,
		events:      events,
		logger:      log,
	}
}

// Routes sets up all routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.Index)
	r.Get("/health", h.Health)

	r.Route("/games", func(r chi.Router) {
		r.Post("/", h.CreateGame)
		r.Get("/", h.ListActiveGames)
		r.Get("/{id}", h.GetGame)
		r.Put("/{id}/guess", h.SubmitGuess)
		r.Delete("/{id}", h.DeleteGame)
		if h.events != nil {
			r.Get("/{id}/events", h.StreamEvents)
		}
	})

	return r
}

// Index serves the landing page
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(indexHTML)
}

// Health handles health check requests
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CreateGame handles POST /games
func (h *Handler) CreateGame(w http.ResponseWriter, r *http.Request) {
	game, err := h.gameService.CreateGame(r.Context())
	if err != nil {
		h.logger.Error("Failed to create game", logger.Err(err), logger.F("request_id", GetRequestID(r.Context())))
		h.respondError(w, http.StatusInternalServerError, "failed to create game", err.Error())
		return
	}

	w.Header().Set("Location", "/games/"+game.ID)
	h.respondJSON(w, http.StatusCreated, models.CreateGameResponse{ID: game.ID})
}

// GetGame handles GET /games/{id}
func (h *Handler) GetGame(w http.ResponseWriter, r *http.Request) {
	game, err := h.gameService.GetGame(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, game.View())
}

// SubmitGuess handles PUT /games/{id}/guess
func (h *Handler) SubmitGuess(w http.ResponseWriter, r *http.Request) {
	var req models.GuessRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	_, result, err := h.gameService.SubmitGuess(r.Context(), chi.URLParam(r, "id"), req.Guess)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}

// DeleteGame handles DELETE /games/{id}
func (h *Handler) DeleteGame(w http.ResponseWriter, r *http.Request) {
	if err := h.gameService.DeleteGame(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, models.MessageResponse{Message: "game deleted"})
}

// ListActiveGames handles GET /games
func (h *Handler) ListActiveGames(w http.ResponseWriter, r *http.Request) {
	games, err := h.gameService.ListActiveGames(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	views := make([]models.GameView, 0, len(games))
	for _, game := range games {
		views = append(views, game.View())
	}

	h.respondJSON(w, http.StatusOK, views)
}

// StreamEvents handles GET /games/{id}/events
func (h *Handler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "id")
	if _, err := h.gameService.GetGame(r.Context(), gameID); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.events.ServeWS(w, r, gameID)
}

// handleServiceError maps service errors onto HTTP responses
func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrGameNotFound):
		h.respondError(w, http.StatusNotFound, "game not found", "")
	case errors.Is(err, service.ErrGameFinished):
		h.respondError(w, http.StatusBadRequest, "game already finished", "")
	case errors.Is(err, service.ErrInvalidGuess):
		h.respondError(w, http.StatusBadRequest, "invalid guess", err.Error())
	default:
		h.logger.Error("Request failed", logger.Err(err), logger.F("request_id", GetRequestID(r.Context())))
		h.respondError(w, http.StatusInternalServerError, "internal error", "")
	}
}

// respondJSON sends a JSON response
func (h *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func (h *Handler) respondError(w http.ResponseWriter, status int, errorMsg, message string) {
	h.respondJSON(w, status, models.ErrorResponse{
		Error:   errorMsg,
		Message: message,
	})
}
