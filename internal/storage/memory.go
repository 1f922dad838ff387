package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/distrubuted-game-mechanic/number-guess/internal/models"
)

// GameRepository defines operations on games with context support
type GameRepository interface {
	CreateGame(ctx context.Context, game *models.Game) error
	GetGame(ctx context.Context, gameID string) (*models.Game, error)
	// UpdateGame applies fn to a copy of the stored game under an exclusive
	// lock and stores the copy only if fn returns nil.
	UpdateGame(ctx context.Context, gameID string, fn func(game *models.Game) error) (*models.Game, error)
	// DeleteGame removes a game and returns what was stored.
	DeleteGame(ctx context.Context, gameID string) (*models.Game, error)
	// ListGames returns games in creation order; an empty status matches all.
	ListGames(ctx context.Context, status models.Status) ([]*models.Game, error)
}

// MemoryStorage provides in-memory storage for games
type MemoryStorage struct {
	mu    sync.RWMutex
	games map[string]*record
	seq   uint64
}

type record struct {
	game *models.Game
	seq  uint64
}

// NewMemoryStorage creates a new in-memory storage
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		games: make(map[string]*record),
	}
}

// CreateGame stores a new game; the id must not be in use
func (s *MemoryStorage) CreateGame(ctx context.Context, game *models.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.games[game.ID]; exists {
		return ErrGameExists
	}

	s.seq++
	s.games[game.ID] = &record{game: game.Clone(), seq: s.seq}
	return nil
}

// GetGame retrieves a game by ID
func (s *MemoryStorage) GetGame(ctx context.Context, gameID string) (*models.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.games[gameID]
	if !exists {
		return nil, ErrGameNotFound
	}

	return rec.game.Clone(), nil
}

// UpdateGame runs a read-modify-write on a single game
func (s *MemoryStorage) UpdateGame(ctx context.Context, gameID string, fn func(game *models.Game) error) (*models.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.games[gameID]
	if !exists {
		return nil, ErrGameNotFound
	}

	updated := rec.game.Clone()
	if err := fn(updated); err != nil {
		return nil, err
	}

	rec.game = updated
	return updated.Clone(), nil
}

// DeleteGame removes a game
func (s *MemoryStorage) DeleteGame(ctx context.Context, gameID string) (*models.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.games[gameID]
	if !exists {
		return nil, ErrGameNotFound
	}

	delete(s.games, gameID)
	return rec.game, nil
}

// ListGames retrieves games, optionally filtered by status
func (s *MemoryStorage) ListGames(ctx context.Context, status models.Status) ([]*models.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]*record, 0, len(s.games))
	for _, rec := range s.games {
		if status == "" || rec.game.Status == status {
			records = append(records, rec)
		}
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].seq < records[j].seq
	})

	games := make([]*models.Game, 0, len(records))
	for _, rec := range records {
		games = append(games, rec.game.Clone())
	}

	return games, nil
}

// Count returns the number of stored games
func (s *MemoryStorage) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.games)
}

// Errors
var (
	ErrGameNotFound = &StorageError{Message: "game not found"}
	ErrGameExists   = &StorageError{Message: "game already exists"}
)

// StorageError represents a storage error
type StorageError struct {
	Message string
}

func (e *StorageError) Error() string {
	return e.Message
}
