// Package metrics provides Prometheus metrics for the guessing game service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveGames tracks the number of games still accepting guesses.
	ActiveGames = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "guessgame_active_games",
			Help: "Number of games currently in the active state",
		},
	)

	// GamesCreated tracks the total number of games created.
	GamesCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "guessgame_games_created_total",
			Help: "Total number of games created",
		},
	)

	// GamesDeleted tracks the total number of games deleted.
	GamesDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "guessgame_games_deleted_total",
			Help: "Total number of games deleted",
		},
	)

	// GamesFinished tracks games leaving the active state.
	GamesFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guessgame_games_finished_total",
			Help: "Total number of games that ended, by final status",
		},
		[]string{"status"},
	)

	// Guesses tracks submitted guesses by outcome.
	Guesses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guessgame_guesses_total",
			Help: "Total number of guess submissions, by outcome",
		},
		[]string{"outcome"},
	)

	// HTTPRequestDuration tracks request latency per route.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "guessgame_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.5},
		},
		[]string{"method", "route", "status"},
	)
)

// RecordGameCreated increments creation metrics.
func RecordGameCreated() {
	GamesCreated.Inc()
	ActiveGames.Inc()
}

// RecordGameDeleted increments deletion metrics. Deleting an active game also
// removes it from the active gauge.
func RecordGameDeleted(wasActive bool) {
	GamesDeleted.Inc()
	if wasActive {
		ActiveGames.Dec()
	}
}

// RecordGuess records a guess outcome ("higher", "lower", "won", "lost",
// "invalid", "finished").
func RecordGuess(outcome string) {
	Guesses.WithLabelValues(outcome).Inc()
}

// RecordGameFinished records an active game resolving to status.
func RecordGameFinished(status string) {
	GamesFinished.WithLabelValues(status).Inc()
	ActiveGames.Dec()
}

// ObserveHTTPRequest records one served request.
func ObserveHTTPRequest(method, route, status string, seconds float64) {
	HTTPRequestDuration.WithLabelValues(method, route, status).Observe(seconds)
}
