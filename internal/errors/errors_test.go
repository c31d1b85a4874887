package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigError(t *testing.T) {
	underlying := errors.New("invalid value")
	err := NewConfigError("include", "/proj/.apimap.kdl", underlying)

	assert.Equal(t, "include", err.Field)
	assert.Equal(t, "/proj/.apimap.kdl", err.Path)
	assert.True(t, errors.Is(err, underlying))
	assert.False(t, err.Timestamp.IsZero())
	assert.Contains(t, err.Error(), "include")
	assert.Contains(t, err.Error(), "/proj/.apimap.kdl")
}

func TestConfigErrorWithoutField(t *testing.T) {
	underlying := errors.New("not found")
	err := NewConfigError("", "/proj/.apimap.kdl", underlying)
	assert.NotContains(t, err.Error(), "for  (")
	assert.Contains(t, err.Error(), "/proj/.apimap.kdl")
}

func TestArchiveError(t *testing.T) {
	underlying := errors.New("bad yaml")
	err := NewArchiveError("stdlib", "/archives/stdlib.yaml", underlying)

	assert.Equal(t, "stdlib", err.Library)
	assert.True(t, errors.Is(err, underlying))
	assert.Contains(t, err.Error(), "stdlib")
}

func TestNotInitializedError(t *testing.T) {
	err := &NotInitializedError{Reason: "Initialize not called"}
	assert.Contains(t, err.Error(), "Initialize not called")
}

func TestMultiError(t *testing.T) {
	err1 := errors.New("error 1")
	err2 := errors.New("error 2")

	multi := NewMultiError([]error{err1, nil, err2})
	assert.Len(t, multi.Errors, 2)
	assert.Contains(t, multi.Error(), "2 errors")

	single := NewMultiError([]error{err1})
	assert.Equal(t, "error 1", single.Error())

	assert.Nil(t, NewMultiError(nil))
	assert.Nil(t, NewMultiError([]error{nil, nil}))

	unwrapped := multi.Unwrap()
	assert.Len(t, unwrapped, 2)
}
