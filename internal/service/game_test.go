package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"testing"

	"github.com/distrubuted-game-mechanic/number-guess/internal/models"
	"github.com/distrubuted-game-mechanic/number-guess/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedSecret makes every new game's secret equal to secret.
type fixedSecret int

func (f fixedSecret) IntN(n int) int { return int(f) - models.MinGuess }

// sequenceIDs hands out ids in order and then repeats the last one.
type sequenceIDs struct {
	mu  sync.Mutex
	ids []string
	i   int
}

func (s *sequenceIDs) NewID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.ids[s.i]
	if s.i < len(s.ids)-1 {
		s.i++
	}
	return id
}

type recordedEvent struct {
	gameID string
	event  string
	data   any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *recordingPublisher) Publish(gameID, event string, data any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{gameID: gameID, event: event, data: data})
}

func newTestService(secret int) *GameService {
	return NewGameService(storage.NewMemoryStorage(), fixedSecret(secret), UUIDGenerator{})
}

func guess(n int) json.RawMessage {
	return json.RawMessage(strconv.Itoa(n))
}

func TestGameService_CreateGame(t *testing.T) {
	service := NewGameService(storage.NewMemoryStorage(), NewRandomSource(7), NewShortIDGenerator(NewRandomSource(7)))
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		game, err := service.CreateGame(ctx)
		require.NoError(t, err)

		assert.Len(t, game.ID, 4)
		assert.False(t, seen[game.ID], "duplicate id %s", game.ID)
		seen[game.ID] = true

		assert.GreaterOrEqual(t, game.Secret, models.MinGuess)
		assert.LessOrEqual(t, game.Secret, models.MaxGuess)
		assert.Equal(t, 0, game.Attempts)
		assert.Equal(t, models.MaxAttempts, game.MaxAttempts)
		assert.Equal(t, models.StatusActive, game.Status)
		assert.Nil(t, game.LastGuess)
	}
}

func TestGameService_CreateGame_RetriesOnCollision(t *testing.T) {
	ids := &sequenceIDs{ids: []string{"AAAA", "AAAA", "BBBB"}}
	service := NewGameService(storage.NewMemoryStorage(), fixedSecret(42), ids)
	ctx := context.Background()

	first, err := service.CreateGame(ctx)
	require.NoError(t, err)
	assert.Equal(t, "AAAA", first.ID)

	second, err := service.CreateGame(ctx)
	require.NoError(t, err)
	assert.Equal(t, "BBBB", second.ID)

	_, err = service.CreateGame(ctx)
	assert.ErrorIs(t, err, ErrIDUnavailable)
}

func TestGameService_GetGame(t *testing.T) {
	service := newTestService(42)
	ctx := context.Background()

	created, err := service.CreateGame(ctx)
	require.NoError(t, err)

	got, err := service.GetGame(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, models.StatusActive, got.Status)
	assert.Equal(t, 0, got.Attempts)

	_, err = service.GetGame(ctx, "missing")
	assert.ErrorIs(t, err, ErrGameNotFound)
}

func TestGameService_SubmitGuess(t *testing.T) {
	tests := []struct {
		name          string
		raw           json.RawMessage
		wantErr       error
		wantStatus    models.Status
		wantHint      string
		wantRemaining int
	}{
		{name: "too low", raw: guess(10), wantStatus: models.StatusActive, wantHint: models.HintHigher, wantRemaining: 9},
		{name: "too high", raw: guess(99), wantStatus: models.StatusActive, wantHint: models.HintLower, wantRemaining: 9},
		{name: "exact", raw: guess(42), wantStatus: models.StatusWon},
		{name: "numeric string", raw: json.RawMessage(`"42"`), wantStatus: models.StatusWon},
		{name: "out of range high", raw: guess(150), wantErr: ErrInvalidGuess},
		{name: "zero", raw: guess(0), wantErr: ErrInvalidGuess},
		{name: "fraction", raw: json.RawMessage(`42.5`), wantErr: ErrInvalidGuess},
		{name: "missing", raw: nil, wantErr: ErrInvalidGuess},
		{name: "null", raw: json.RawMessage(`null`), wantErr: ErrInvalidGuess},
		{name: "word", raw: json.RawMessage(`"forty"`), wantErr: ErrInvalidGuess},
		{name: "boolean", raw: json.RawMessage(`true`), wantErr: ErrInvalidGuess},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := newTestService(42)
			ctx := context.Background()
			created, err := service.CreateGame(ctx)
			require.NoError(t, err)

			game, result, err := service.SubmitGuess(ctx, created.ID, tt.raw)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)

				stored, getErr := service.GetGame(ctx, created.ID)
				require.NoError(t, getErr)
				assert.Equal(t, 0, stored.Attempts, "rejected guess must not count")
				assert.Nil(t, stored.LastGuess)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, result.Status)
			assert.Equal(t, tt.wantStatus, game.Status)
			assert.Equal(t, tt.wantHint, result.Hint)
			assert.Equal(t, tt.wantRemaining, result.AttemptsRemaining)
			assert.Equal(t, 1, game.Attempts)
			require.NotNil(t, game.LastGuess)
			assert.NotEmpty(t, result.Message)
		})
	}
}

func TestGameService_SubmitGuess_NotFound(t *testing.T) {
	service := newTestService(42)

	_, _, err := service.SubmitGuess(context.Background(), "missing", guess(42))
	assert.ErrorIs(t, err, ErrGameNotFound)

	// existence is checked before the value
	_, _, err = service.SubmitGuess(context.Background(), "missing", guess(500))
	assert.ErrorIs(t, err, ErrGameNotFound)
}

func TestGameService_WinIsTerminal(t *testing.T) {
	service := newTestService(42)
	ctx := context.Background()
	created, err := service.CreateGame(ctx)
	require.NoError(t, err)

	_, result, err := service.SubmitGuess(ctx, created.ID, guess(42))
	require.NoError(t, err)
	assert.Equal(t, models.StatusWon, result.Status)
	assert.Equal(t, "You won!", result.Message)
	assert.Zero(t, result.Secret)

	got, err := service.GetGame(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusWon, got.Status)

	// finished is checked before the value
	_, _, err = service.SubmitGuess(ctx, created.ID, guess(500))
	assert.ErrorIs(t, err, ErrGameFinished)

	_, _, err = service.SubmitGuess(ctx, created.ID, guess(42))
	assert.ErrorIs(t, err, ErrGameFinished)

	got, err = service.GetGame(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Attempts)
	assert.Equal(t, models.StatusWon, got.Status)
}

func TestGameService_WinOnLastAttempt(t *testing.T) {
	service := newTestService(42)
	ctx := context.Background()
	created, err := service.CreateGame(ctx)
	require.NoError(t, err)

	for i := 1; i < models.MaxAttempts; i++ {
		_, result, err := service.SubmitGuess(ctx, created.ID, guess(i))
		require.NoError(t, err)
		require.Equal(t, models.StatusActive, result.Status)
	}

	game, result, err := service.SubmitGuess(ctx, created.ID, guess(42))
	require.NoError(t, err)
	assert.Equal(t, models.StatusWon, result.Status)
	assert.Equal(t, models.MaxAttempts, game.Attempts)
}

func TestGameService_LoseAfterMaxAttempts(t *testing.T) {
	service := newTestService(42)
	ctx := context.Background()
	created, err := service.CreateGame(ctx)
	require.NoError(t, err)

	var result models.GuessResult
	for i := 1; i <= models.MaxAttempts; i++ {
		var game *models.Game
		game, result, err = service.SubmitGuess(ctx, created.ID, guess(i))
		require.NoError(t, err)
		assert.LessOrEqual(t, game.Attempts, game.MaxAttempts)

		if i < models.MaxAttempts {
			assert.Equal(t, models.StatusActive, result.Status)
			assert.Equal(t, models.HintHigher, result.Hint)
			assert.Equal(t, models.MaxAttempts-i, result.AttemptsRemaining)
		}
	}

	assert.Equal(t, models.StatusLost, result.Status)
	assert.Equal(t, 42, result.Secret)
	assert.Contains(t, result.Message, "42")

	_, _, err = service.SubmitGuess(ctx, created.ID, guess(11))
	assert.ErrorIs(t, err, ErrGameFinished)

	got, err := service.GetGame(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusLost, got.Status)
	assert.Equal(t, models.MaxAttempts, got.Attempts)
	require.NotNil(t, got.LastGuess)
	assert.Equal(t, 10, *got.LastGuess)
}

func TestGameService_DeleteGame(t *testing.T) {
	service := newTestService(42)
	ctx := context.Background()
	created, err := service.CreateGame(ctx)
	require.NoError(t, err)

	require.NoError(t, service.DeleteGame(ctx, created.ID))

	_, err = service.GetGame(ctx, created.ID)
	assert.ErrorIs(t, err, ErrGameNotFound)

	assert.ErrorIs(t, service.DeleteGame(ctx, created.ID), ErrGameNotFound)

	_, _, err = service.SubmitGuess(ctx, created.ID, guess(42))
	assert.ErrorIs(t, err, ErrGameNotFound)
}

func TestGameService_ListActiveGames(t *testing.T) {
	ids := &sequenceIDs{ids: []string{"G001", "G002", "G003"}}
	service := NewGameService(storage.NewMemoryStorage(), fixedSecret(42), ids)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := service.CreateGame(ctx)
		require.NoError(t, err)
	}

	_, _, err := service.SubmitGuess(ctx, "G002", guess(42))
	require.NoError(t, err)

	active, err := service.ListActiveGames(ctx)
	require.NoError(t, err)

	got := make([]string, 0, len(active))
	for _, g := range active {
		got = append(got, g.ID)
		assert.Equal(t, models.StatusActive, g.Status)
	}
	assert.Equal(t, []string{"G001", "G003"}, got)
}

func TestGameService_PublishesEvents(t *testing.T) {
	publisher := &recordingPublisher{}
	service := NewGameService(storage.NewMemoryStorage(), fixedSecret(42), UUIDGenerator{}, WithPublisher(publisher))
	ctx := context.Background()

	created, err := service.CreateGame(ctx)
	require.NoError(t, err)
	_, _, err = service.SubmitGuess(ctx, created.ID, guess(7))
	require.NoError(t, err)
	_, _, err = service.SubmitGuess(ctx, created.ID, guess(500))
	require.Error(t, err)
	require.NoError(t, service.DeleteGame(ctx, created.ID))

	require.Len(t, publisher.events, 3)
	assert.Equal(t, models.EventCreated, publisher.events[0].event)
	assert.Equal(t, models.EventGuessed, publisher.events[1].event)
	assert.Equal(t, models.EventDeleted, publisher.events[2].event)

	for _, e := range publisher.events {
		assert.Equal(t, created.ID, e.gameID)
		body, err := json.Marshal(e.data)
		require.NoError(t, err)
		assert.NotContains(t, string(body), "secret")
	}

	ev, ok := publisher.events[1].data.(models.GuessEvent)
	require.True(t, ok)
	assert.Equal(t, models.HintHigher, ev.Result.Hint)
	assert.Equal(t, 1, ev.Game.Attempts)
}

func TestGameService_ConcurrentGuesses(t *testing.T) {
	service := newTestService(100)
	ctx := context.Background()
	created, err := service.CreateGame(ctx)
	require.NoError(t, err)

	const workers = 40
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(n int) {
			defer wg.Done()
			_, _, _ = service.SubmitGuess(ctx, created.ID, guess(n%99+1))
		}(i)
	}
	wg.Wait()

	got, err := service.GetGame(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MaxAttempts, got.Attempts)
	assert.Equal(t, models.StatusLost, got.Status)
}

func TestParseGuess(t *testing.T) {
	tests := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{raw: `1`, want: 1},
		{raw: `100`, want: 100},
		{raw: ` 55 `, want: 55},
		{raw: `"7"`, want: 7},
		{raw: `" 8 "`, want: 8},
		{raw: `30.0`, want: 30},
		{raw: `1e2`, want: 100},
		{raw: `0`, wantErr: true},
		{raw: `101`, wantErr: true},
		{raw: `-5`, wantErr: true},
		{raw: `2.5`, wantErr: true},
		{raw: `""`, wantErr: true},
		{raw: `"abc"`, wantErr: true},
		{raw: `[]`, wantErr: true},
		{raw: `{}`, wantErr: true},
		{raw: `false`, wantErr: true},
		{raw: `null`, wantErr: true},
		{raw: ``, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.raw), func(t *testing.T) {
			got, err := ParseGuess(json.RawMessage(tt.raw))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidGuess)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
