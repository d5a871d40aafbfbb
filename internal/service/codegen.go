package service

import (
	"fmt"
	"math/rand"
	"prova_backend/internal/util"
)

const (
	codeDigits      = 6
	codeSpace       = 1000000 // 000000..999999
	maxCodeAttempts = 10
)

// CodeGenerator produces short numeric codes unique among records matching
// an active-state predicate. Used for application access codes and
// submission delivery codes.
type CodeGenerator struct {
	rnd func(n int) int
}

func NewCodeGenerator() *CodeGenerator {
	return &CodeGenerator{rnd: rand.Intn}
}

// Generate draws fixed-width codes until taken reports one free, bounded at
// maxCodeAttempts, then fails with ErrCodeSpaceExhausted. The predicate
// must run on the same transaction as the insert it protects; if the insert
// still collides (two transactions observed the same code as free), the
// caller treats the constraint failure as one more retriable attempt, never
// as something to overwrite.
func (g *CodeGenerator) Generate(taken func(code string) (bool, error)) (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code := fmt.Sprintf("%0*d", codeDigits, g.rnd(codeSpace))
		used, err := taken(code)
		if err != nil {
			return "", err
		}
		if !used {
			return code, nil
		}
	}
	return "", util.ErrCodeSpaceExhausted
}
