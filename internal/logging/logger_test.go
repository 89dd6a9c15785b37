package logging

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogConnectionErrorClassifiesTimeout(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelInfo, Format: FormatText, Output: &buf})

	logger.LogConnectionError("h1", "10.0.0.1:22", 1, errors.New("dial tcp 10.0.0.1:22: i/o timeout"))
	assert.Contains(t, buf.String(), "timeout=true")

	buf.Reset()
	logger.LogConnectionError("h1", "10.0.0.1:22", 2, errors.New("connection refused"))
	assert.Contains(t, buf.String(), "timeout=false")
}

func TestQuietSuppressesInfoButNotErrors(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelInfo, Format: FormatText, Output: &buf, Quiet: true})

	logger.Info("hosts loaded", "count", 3)
	assert.Empty(t, buf.String())

	logger.Error("something broke")
	assert.Contains(t, buf.String(), "something broke")
}
