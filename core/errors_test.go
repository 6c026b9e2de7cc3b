package core

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorKinds(t *testing.T) {
	notFound := NewNotFoundError("class", "c1")
	upstream := NewUpstreamError("roster", errors.New("connection refused"))

	assert.EqualError(t, notFound, `class "c1" not found`)
	assert.True(t, IsNotFound(errors.Wrap(notFound, "submitting")))
	assert.False(t, IsNotFound(upstream))

	assert.EqualError(t, upstream, "roster unavailable: connection refused")
	assert.True(t, IsUpstream(errors.Wrap(upstream, "resolving")))
	assert.False(t, IsUpstream(notFound))

	valErr := NewValidationError(nil, FieldError{Field: "date", Error: "must be a valid date (YYYY-MM-DD)"})
	assert.EqualError(t, valErr, "date: must be a valid date (YYYY-MM-DD)")
	assert.True(t, IsValidation(errors.Wrap(valErr, "submitting")))
	assert.False(t, IsValidation(notFound))

	assert.True(t, IsShutdown(errors.Wrap(NewShutdownError("integrity"), "saving")))
}
