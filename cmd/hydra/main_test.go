package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, 0, getExitCode(nil))
	assert.Equal(t, 2, getExitCode(&SetupError{Message: "no eligible hosts"}))
	assert.Equal(t, 2, getExitCode(errors.New("flag parsing failed")))
}
