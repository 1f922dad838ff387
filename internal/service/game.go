package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/distrubuted-game-mechanic/number-guess/internal/metrics"
	"github.com/distrubuted-game-mechanic/number-guess/internal/models"
	"github.com/distrubuted-game-mechanic/number-guess/internal/storage"
	"github.com/distrubuted-game-mechanic/number-guess/pkg/logger"
)

// Errors returned by GameService
var (
	ErrGameNotFound  = errors.New("game not found")
	ErrGameFinished  = errors.New("game already finished")
	ErrInvalidGuess  = errors.New("invalid guess")
	ErrIDUnavailable = errors.New("could not allocate a unique game id")
)

// maxIDAttempts bounds regeneration when a candidate id is already taken.
const maxIDAttempts = 16

// Publisher receives game events after they are committed
type Publisher interface {
	Publish(gameID string, event string, data any)
}

// GameService handles game-related business logic
type GameService struct {
	storage   storage.GameRepository
	secrets   RandomSource
	ids       IDGenerator
	publisher Publisher
	logger    *logger.Logger
	now       func() time.Time
}

// Option configures a GameService
type Option func(*GameService)

// WithPublisher sends game events to p
func WithPublisher(p Publisher) Option {
	return func(s *GameService) { s.publisher = p }
}

// WithLogger sets the service logger
func WithLogger(l *logger.Logger) Option {
	return func(s *GameService) { s.logger = l }
}

// NewGameService creates a new game service
func NewGameService(storage storage.GameRepository, secrets RandomSource, ids IDGenerator, opts ...Option) *GameService {
	s := &GameService{
		storage: storage,
		secrets: secrets,
		ids:     ids,
		logger:  logger.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateGame starts a new game with a fresh secret
func (s *GameService) CreateGame(ctx context.Context) (*models.Game, error) {
	game := &models.Game{
		Secret:      s.secrets.IntN(models.MaxGuess-models.MinGuess+1) + models.MinGuess,
		Attempts:    0,
		MaxAttempts: models.MaxAttempts,
		Status:      models.StatusActive,
		CreatedAt:   s.now(),
	}

	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		game.ID = s.ids.NewID()

		err := s.storage.CreateGame(ctx, game)
		if err == nil {
			metrics.RecordGameCreated()
			s.logger.Info("Game created", logger.F("game_id", game.ID))
			s.publish(game.ID, models.EventCreated, game.View())
			return game, nil
		}
		if !errors.Is(err, storage.ErrGameExists) {
			return nil, fmt.Errorf("failed to create game: %w", err)
		}
		s.logger.Debug("Game id collision", logger.F("game_id", game.ID))
	}

	return nil, ErrIDUnavailable
}

// GetGame retrieves a game by ID
func (s *GameService) GetGame(ctx context.Context, gameID string) (*models.Game, error) {
	game, err := s.storage.GetGame(ctx, gameID)
	if err != nil {
		return nil, translate(err)
	}
	return game, nil
}

// SubmitGuess applies one guess to an active game. The game is looked up
// first, then its status is checked, then the guess value is validated; all
// of it happens before any mutation.
func (s *GameService) SubmitGuess(ctx context.Context, gameID string, rawGuess json.RawMessage) (*models.Game, models.GuessResult, error) {
	var result models.GuessResult

	game, err := s.storage.UpdateGame(ctx, gameID, func(game *models.Game) error {
		if game.Status != models.StatusActive {
			return ErrGameFinished
		}

		guess, err := ParseGuess(rawGuess)
		if err != nil {
			return err
		}

		result = applyGuess(game, guess)
		return nil
	})
	if err != nil {
		err = translate(err)
		switch {
		case errors.Is(err, ErrGameFinished):
			metrics.RecordGuess("finished")
		case errors.Is(err, ErrInvalidGuess):
			metrics.RecordGuess("invalid")
		}
		return nil, models.GuessResult{}, err
	}

	s.recordOutcome(game, result)
	s.publish(game.ID, models.EventGuessed, models.GuessEvent{Game: game.View(), Result: result})

	return game, result, nil
}

// DeleteGame removes a game. Deleting an unknown id reports ErrGameNotFound.
func (s *GameService) DeleteGame(ctx context.Context, gameID string) error {
	game, err := s.storage.DeleteGame(ctx, gameID)
	if err != nil {
		return translate(err)
	}

	metrics.RecordGameDeleted(game.Status == models.StatusActive)
	s.logger.Info("Game deleted", logger.F("game_id", gameID))
	s.publish(gameID, models.EventDeleted, nil)
	return nil
}

// ListActiveGames returns every game still accepting guesses
func (s *GameService) ListActiveGames(ctx context.Context) ([]*models.Game, error) {
	games, err := s.storage.ListGames(ctx, models.StatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	return games, nil
}

func (s *GameService) recordOutcome(game *models.Game, result models.GuessResult) {
	switch result.Status {
	case models.StatusActive:
		metrics.RecordGuess(result.Hint)
		s.logger.Debug("Guess recorded",
			logger.F("game_id", game.ID),
			logger.F("attempts", strconv.Itoa(game.Attempts)),
			logger.F("hint", result.Hint))
	default:
		metrics.RecordGuess(string(result.Status))
		metrics.RecordGameFinished(string(result.Status))
		s.logger.Info("Game finished",
			logger.F("game_id", game.ID),
			logger.F("status", string(result.Status)),
			logger.F("attempts", strconv.Itoa(game.Attempts)))
	}
}

func (s *GameService) publish(gameID, event string, data any) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(gameID, event, data)
}

// translate maps storage errors onto service errors
func translate(err error) error {
	if errors.Is(err, storage.ErrGameNotFound) {
		return ErrGameNotFound
	}
	return err
}
