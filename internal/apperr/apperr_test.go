package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMatchesSentinel(t *testing.T) {
	cases := []struct {
		err      *Error
		sentinel error
	}{
		{Validation("Nombre requerido"), ErrValidation},
		{Duplicate("El cirujano ya existe"), ErrDuplicate},
		{NotFound("Cirujano no encontrado"), ErrNotFound},
		{ReferentialConflict("en uso"), ErrReferentialConflict},
		{Storage("falló", errors.New("boom")), ErrStorage},
	}
	for _, tc := range cases {
		wrapped := fmt.Errorf("op: %w", tc.err)
		assert.ErrorIs(t, wrapped, tc.sentinel, tc.err.Kind.String())
		assert.NotErrorIs(t, wrapped, otherSentinel(tc.sentinel))
	}
}

func otherSentinel(s error) error {
	if s == ErrDuplicate {
		return ErrValidation
	}
	return ErrDuplicate
}

func TestKindAndMessageOf(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", Duplicate("La técnica ya existe"))
	assert.Equal(t, KindDuplicate, KindOf(err))
	assert.Equal(t, "La técnica ya existe", MessageOf(err, "x"))

	plain := errors.New("plain")
	assert.Equal(t, Kind(0), KindOf(plain))
	assert.Equal(t, "fallback", MessageOf(plain, "fallback"))
}

func TestStorageUnwrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Storage("Error interno", cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}
