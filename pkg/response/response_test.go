package response

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIs(t *testing.T) {
	notFound := NewError(http.StatusNotFound, "not found")

	assert.ErrorIs(t, fmt.Errorf("lookup: %w", NewError(http.StatusNotFound, "not found")), notFound)
	assert.NotErrorIs(t, NewError(http.StatusBadRequest, "not found"), notFound)
}

func TestWrapUnwraps(t *testing.T) {
	cause := errors.New("cause")
	err := Wrap(http.StatusBadRequest, cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "cause", err.Error())

	var respErr *Error
	assert.True(t, errors.As(err, &respErr))
	assert.Equal(t, http.StatusBadRequest, respErr.Code)
}
