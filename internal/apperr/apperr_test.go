package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{Validation("x"), http.StatusBadRequest},
		{Conflict("x"), http.StatusConflict},
		{Unauthorized("x"), http.StatusUnauthorized},
		{NotFound("x"), http.StatusNotFound},
		{Upload("x", nil), http.StatusBadRequest},
		{Internal("x", errors.New("db down")), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, HTTPStatus(KindOf(c.err)), c.err.Error())
	}
}

func TestKindOf_Wrapped(t *testing.T) {
	err := fmt.Errorf("login: %w", Unauthorized("Invalid user credentials"))
	assert.Equal(t, KindUnauthorized, KindOf(err))
	assert.True(t, Is(err, KindUnauthorized))
	assert.Equal(t, "Invalid user credentials", Message(err))
}

func TestMessage_HidesInternalCause(t *testing.T) {
	assert.Equal(t, "Internal server error", Message(errors.New("pq: connection refused")))

	err := Internal("Something went wrong while registering the User", errors.New("pq: boom"))
	assert.Equal(t, "Something went wrong while registering the User", Message(err))
	assert.Contains(t, err.Error(), "pq: boom")
	assert.ErrorContains(t, errors.Unwrap(err), "boom")
}
