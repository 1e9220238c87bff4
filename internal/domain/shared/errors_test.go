package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestDomainError_Is(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{"not found matches sentinel", NewNotFoundError("auction", uuid.New()), ErrNotFound, true},
		{"validation matches sentinel", NewValidationError("bad amount"), ErrValidation, true},
		{"invalid state matches sentinel", NewInvalidStateError("not active"), ErrInvalidState, true},
		{"wrapped error still matches", fmt.Errorf("save: %w", ErrConcurrencyConflict), ErrConcurrencyConflict, true},
		{"different codes do not match", NewValidationError("bad amount"), ErrInvalidState, false},
		{"plain error does not match", errors.New("boom"), ErrNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errors.Is(tt.err, tt.target))
		})
	}
}

func TestNewNotFoundError_Message(t *testing.T) {
	id := uuid.MustParse("6a1f0c52-3f0e-4d0a-9a57-55d1b8a1c001")
	err := NewNotFoundError("auction", id)

	assert.Equal(t, CodeNotFound, err.Code)
	assert.Equal(t, "auction 6a1f0c52-3f0e-4d0a-9a57-55d1b8a1c001 not found", err.Error())
}
