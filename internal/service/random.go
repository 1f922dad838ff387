package service

import (
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// RandomSource yields integers in [0, n). *rand.Rand satisfies it.
type RandomSource interface {
	IntN(n int) int
}

// IDGenerator produces candidate game ids. Uniqueness is enforced by storage.
type IDGenerator interface {
	NewID() string
}

type lockedSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomSource returns a goroutine-safe source. A zero seed draws one from
// the runtime's entropy.
func NewRandomSource(seed uint64) RandomSource {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &lockedSource{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *lockedSource) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}

const (
	shortIDAlphabet = "1234567890ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	shortIDLength   = 4
)

// ShortIDGenerator produces 4-character codes such as "7QX2".
type ShortIDGenerator struct {
	src RandomSource
}

// NewShortIDGenerator creates a short code generator drawing from src
func NewShortIDGenerator(src RandomSource) *ShortIDGenerator {
	return &ShortIDGenerator{src: src}
}

// NewID returns a new short code
func (g *ShortIDGenerator) NewID() string {
	var b strings.Builder
	b.Grow(shortIDLength)
	for i := 0; i < shortIDLength; i++ {
		b.WriteByte(shortIDAlphabet[g.src.IntN(len(shortIDAlphabet))])
	}
	return b.String()
}

// UUIDGenerator produces random UUIDs.
type UUIDGenerator struct{}

// NewID returns a new UUID string
func (UUIDGenerator) NewID() string {
	return uuid.New().String()
}
