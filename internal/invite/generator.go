// Package invite generates and allocates household invite codes.
package invite

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"strings"

	"github.com/dukerupert/larder/internal/store"
)

const (
	// CodeLength is the number of characters in an invite code.
	CodeLength = 6
	// MaxAttempts bounds how many fresh codes Claim tries before giving up.
	MaxAttempts = 5
	// Alphabet excludes 0, O, 1 and I so codes survive being read aloud.
	Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// ErrExhausted is returned when every attempt collided with an existing code.
var ErrExhausted = errors.New("invite code space exhausted")

// Generator produces random invite codes and claims them against the store's
// uniqueness constraint.
type Generator struct {
	rand        io.Reader
	maxAttempts int
	logger      *slog.Logger
}

func NewGenerator(logger *slog.Logger) *Generator {
	return &Generator{
		rand:        rand.Reader,
		maxAttempts: MaxAttempts,
		logger:      logger.With("component", "invite"),
	}
}

// New returns a random code. It performs no lookups; uniqueness is only
// established by Claim.
func (g *Generator) New() (string, error) {
	max := big.NewInt(int64(len(Alphabet)))
	var b strings.Builder
	b.Grow(CodeLength)
	for range CodeLength {
		n, err := rand.Int(g.rand, max)
		if err != nil {
			return "", fmt.Errorf("generate invite code: %w", err)
		}
		b.WriteByte(Alphabet[n.Int64()])
	}
	return b.String(), nil
}

// Claim generates codes and hands each to persist until one is accepted.
// persist must write the code under a UNIQUE constraint and report a
// collision with store.ErrDuplicate; any other error aborts immediately.
func (g *Generator) Claim(ctx context.Context, persist func(ctx context.Context, code string) error) (string, error) {
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		code, err := g.New()
		if err != nil {
			return "", err
		}
		err = persist(ctx, code)
		if err == nil {
			return code, nil
		}
		if !errors.Is(err, store.ErrDuplicate) {
			return "", err
		}
		g.logger.Warn("invite code collision", "attempt", attempt)
	}
	return "", ErrExhausted
}

// Normalize upper-cases and trims a user-supplied code and reports whether the
// result is shaped like a code this package could have produced.
func Normalize(code string) (string, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != CodeLength {
		return code, false
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return code, false
		}
	}
	return code, true
}
