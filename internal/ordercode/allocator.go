package ordercode

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

const (
	// Alphabet is the set of symbols codes are drawn from
	Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// Length is the number of symbols in a code
	Length = 8
	// DefaultMaxAttempts bounds how many candidates are checked per allocation
	DefaultMaxAttempts = 10
)

// bytes at or above this value are rejected so that b % len(Alphabet) is
// uniform (252 = 7 * 36)
const rejectThreshold = 256 - 256%len(Alphabet)

var ErrAllocationExhausted = errors.New("order code allocation exhausted")

// ExistenceChecker reports whether a code is already taken
type ExistenceChecker interface {
	ExistsByCode(ctx context.Context, code string) (bool, error)
}

// Allocator produces order codes that the store has not seen yet. Candidates
// are checked one at a time; a collision draws a fresh candidate.
type Allocator struct {
	store       ExistenceChecker
	random      io.Reader
	maxAttempts int
	logger      *slog.Logger
}

// Option configures an Allocator
type Option func(*Allocator)

// WithRandom sets the randomness source. Defaults to crypto/rand.
func WithRandom(r io.Reader) Option {
	return func(a *Allocator) {
		a.random = r
	}
}

// WithMaxAttempts overrides DefaultMaxAttempts
func WithMaxAttempts(n int) Option {
	return func(a *Allocator) {
		if n > 0 {
			a.maxAttempts = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(a *Allocator) {
		a.logger = logger
	}
}

// NewAllocator creates an allocator checking candidates against store
func NewAllocator(store ExistenceChecker, opts ...Option) *Allocator {
	a := &Allocator{
		store:       store,
		random:      rand.Reader,
		maxAttempts: DefaultMaxAttempts,
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Allocate returns a code the store reported as unused. The check is not a
// reservation: the store's unique constraint is the final arbiter.
func (a *Allocator) Allocate(ctx context.Context) (string, error) {
	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		code, err := Generate(a.random)
		if err != nil {
			return "", err
		}

		exists, err := a.store.ExistsByCode(ctx, code)
		if err != nil {
			return "", fmt.Errorf("checking order code %s: %w", code, err)
		}
		if !exists {
			return code, nil
		}

		a.logger.Warn("order code collision", "code", code, "attempt", attempt)
	}

	return "", fmt.Errorf("%w after %d attempts", ErrAllocationExhausted, a.maxAttempts)
}

// Generate draws Length symbols uniformly from Alphabet
func Generate(r io.Reader) (string, error) {
	var sb strings.Builder
	sb.Grow(Length)

	buf := make([]byte, Length)
	for sb.Len() < Length {
		if _, err := io.ReadFull(r, buf); err != nil {
			return "", fmt.Errorf("reading randomness: %w", err)
		}
		for _, b := range buf {
			if int(b) >= rejectThreshold {
				continue
			}
			sb.WriteByte(Alphabet[int(b)%len(Alphabet)])
			if sb.Len() == Length {
				break
			}
		}
	}

	return sb.String(), nil
}

// Normalize upper-cases and trims a code typed by a customer
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Valid reports whether code has the shape of an order code
func Valid(code string) bool {
	if len(code) != Length {
		return false
	}
	for i := 0; i < len(code); i++ {
		if strings.IndexByte(Alphabet, code[i]) < 0 {
			return false
		}
	}
	return true
}
