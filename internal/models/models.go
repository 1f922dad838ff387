package models

import (
	"encoding/json"
	"time"
)

// Status is the lifecycle state of a game
type Status string

const (
	StatusActive Status = "active"
	StatusWon    Status = "won"
	StatusLost   Status = "lost"
)

// Game rules
const (
	MinGuess    = 1
	MaxGuess    = 100
	MaxAttempts = 10
)

// Hints returned while a game is still active
const (
	HintHigher = "higher"
	HintLower  = "lower"
)

// Event names published to game subscribers
const (
	EventCreated = "created"
	EventGuessed = "guessed"
	EventDeleted = "deleted"
)

// Game represents one guessing game session. Secret never leaves the service.
type Game struct {
	ID          string
	Secret      int
	Attempts    int
	MaxAttempts int
	Status      Status
	LastGuess   *int
	CreatedAt   time.Time
}

// Clone returns a deep copy of the game
func (g *Game) Clone() *Game {
	c := *g
	if g.LastGuess != nil {
		v := *g.LastGuess
		c.LastGuess = &v
	}
	return &c
}

// View returns the client-facing representation of the game
func (g *Game) View() GameView {
	view := GameView{
		ID:          g.ID,
		Attempts:    g.Attempts,
		MaxAttempts: g.MaxAttempts,
		Status:      g.Status,
	}
	if g.LastGuess != nil {
		v := *g.LastGuess
		view.LastGuess = &v
	}
	return view
}

// GameView is the public part of a game
type GameView struct {
	ID          string `json:"id"`
	Attempts    int    `json:"attempts"`
	MaxAttempts int    `json:"maxAttempts"`
	Status      Status `json:"status"`
	LastGuess   *int   `json:"lastGuess"`
}

// GuessResult is the outcome of one accepted guess
type GuessResult struct {
	Message           string `json:"message"`
	Status            Status `json:"status"`
	Hint              string `json:"hint,omitempty"`
	AttemptsRemaining int    `json:"attemptsRemaining,omitempty"`
	Secret            int    `json:"secret,omitempty"` // only set once the game is lost
}

// CreateGameResponse represents the response when creating a game
type CreateGameResponse struct {
	ID string `json:"id"`
}

// GuessRequest represents the body of a guess submission.
// Guess is kept raw so that validation can run after the game lookup.
type GuessRequest struct {
	Guess json.RawMessage `json:"guess"`
}

// MessageResponse carries a human readable confirmation
type MessageResponse struct {
	Message string `json:"message"`
}

// GuessEvent is published after every accepted guess
type GuessEvent struct {
	Game   GameView    `json:"game"`
	Result GuessResult `json:"result"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
