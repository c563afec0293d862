package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKind(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"nil", nil, nil},
		{"plain", errors.New("boom"), nil},
		{"not found", NotFound("order"), ErrNotFound},
		{"wrapped not found", fmt.Errorf("load: %w", NotFound("product")), ErrNotFound},
		{"validation", Validationf("price %s is negative", "-1"), ErrValidation},
		{"invalid state", InvalidStatef("order is %s", "DELIVERED"), ErrInvalidState},
		{"conflict", Conflictf("sku %q taken", "ABC1"), ErrConflict},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Kind(tc.err))
		})
	}
}

func TestNotFoundMessage(t *testing.T) {
	assert.EqualError(t, NotFound("order"), "order not found")
}
