package service

import (
	"errors"
	"testing"

	"prova_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedRnd(values ...int) func(int) int {
	i := 0
	return func(n int) int {
		v := values[i%len(values)]
		i++
		return v
	}
}

func TestGenerateReturnsSixDigitCode(t *testing.T) {
	g := &CodeGenerator{rnd: fixedRnd(42)}

	code, err := g.Generate(func(string) (bool, error) { return false, nil })

	require.NoError(t, err)
	assert.Equal(t, "000042", code)
}

func TestGenerateSkipsTakenCodes(t *testing.T) {
	g := &CodeGenerator{rnd: fixedRnd(111111, 111111, 222222)}

	taken := func(code string) (bool, error) {
		return code == "111111", nil
	}

	code, err := g.Generate(taken)

	require.NoError(t, err)
	assert.Equal(t, "222222", code)
}

func TestGenerateExhaustsAfterBoundedAttempts(t *testing.T) {
	g := &CodeGenerator{rnd: fixedRnd(7)}

	calls := 0
	_, err := g.Generate(func(string) (bool, error) {
		calls++
		return true, nil
	})

	assert.ErrorIs(t, err, util.ErrCodeSpaceExhausted)
	assert.Equal(t, maxCodeAttempts, calls)
}

func TestGeneratePropagatesPredicateError(t *testing.T) {
	g := &CodeGenerator{rnd: fixedRnd(7)}
	boom := errors.New("connection lost")

	_, err := g.Generate(func(string) (bool, error) { return false, boom })

	assert.ErrorIs(t, err, boom)
}
