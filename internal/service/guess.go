package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/distrubuted-game-mechanic/number-guess/internal/models"
)

// ParseGuess converts the raw "guess" value of a request body into an integer
// in [MinGuess, MaxGuess]. Numbers and numeric strings are accepted; the value
// must be integral.
func ParseGuess(raw json.RawMessage) (int, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, fmt.Errorf("%w: guess is required", ErrInvalidGuess)
	}

	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrInvalidGuess, err)
		}
		text = strings.TrimSpace(text)
	}

	value, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidGuess, text)
	}

	if value != math.Trunc(value) {
		return 0, fmt.Errorf("%w: %s is not a whole number", ErrInvalidGuess, text)
	}

	if value < models.MinGuess || value > models.MaxGuess {
		return 0, fmt.Errorf("%w: %s is outside [%d, %d]", ErrInvalidGuess, text, models.MinGuess, models.MaxGuess)
	}

	return int(value), nil
}

// applyGuess mutates an active game with a validated guess and reports the
// outcome. The caller must hold exclusive access to game.
func applyGuess(game *models.Game, guess int) models.GuessResult {
	game.Attempts++
	game.LastGuess = &guess

	switch {
	case guess == game.Secret:
		game.Status = models.StatusWon
		return models.GuessResult{
			Message: "You won!",
			Status:  models.StatusWon,
		}

	case game.Attempts >= game.MaxAttempts:
		game.Status = models.StatusLost
		return models.GuessResult{
			Message: fmt.Sprintf("You lost! The number was %d", game.Secret),
			Status:  models.StatusLost,
			Secret:  game.Secret,
		}
	}

	remaining := game.MaxAttempts - game.Attempts
	hint, word := models.HintLower, "Lower"
	if guess < game.Secret {
		hint, word = models.HintHigher, "Higher"
	}

	return models.GuessResult{
		Message:           fmt.Sprintf("%s! %d %s remaining", word, remaining, plural(remaining, "attempt")),
		Status:            models.StatusActive,
		Hint:              hint,
		AttemptsRemaining: remaining,
	}
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
