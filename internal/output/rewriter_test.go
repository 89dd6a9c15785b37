package output

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRewriteStripsCursorControl(t *testing.T) {
	prompt := "[prompt] "

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "plain text unchanged",
			input:    "Simple line",
			expected: "Simple line",
		},
		{
			name:     "color sequences kept",
			input:    "Line with \x1b[31mcolor\x1b[0m",
			expected: "Line with \x1b[31mcolor\x1b[0m",
		},
		{
			name:     "cursor up removed",
			input:    "Line with cursor up \x1b[1A",
			expected: "Line with cursor up",
		},
		{
			name:     "clear screen removed",
			input:    "Line with clear screen \x1b[2J",
			expected: "Line with clear screen",
		},
		{
			name:     "hide cursor removed",
			input:    "Working\x1b[?25l",
			expected: "Working",
		},
		{
			name:     "carriage return gets prompt re-inserted",
			input:    "Line \rwith carriage return",
			expected: "Line \r[prompt] with carriage return",
		},
		{
			name:     "erase to beginning gets save/jump/prompt/restore",
			input:    "Text\x1b[1KPartial erase",
			expected: "Text\x1b[1K\x1b[s\x1b[G[prompt] \x1b[uPartial erase",
		},
		{
			name:     "erase entire line gets save/jump/prompt/restore",
			input:    "Text\x1b[2KFull erase",
			expected: "Text\x1b[2K\x1b[s\x1b[G[prompt] \x1b[uFull erase",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Rewrite(tt.input, prompt, false))
		})
	}
}

func TestRewriteKeepsCursorControl(t *testing.T) {
	prompt := "[prompt] "

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "plain text unchanged",
			input:    "Simple line",
			expected: "Simple line",
		},
		{
			name:     "color sequences kept",
			input:    "Line with \x1b[31mcolor\x1b[0m",
			expected: "Line with \x1b[31mcolor\x1b[0m",
		},
		{
			name:     "cursor up kept",
			input:    "Line with cursor up \x1b[1A",
			expected: "Line with cursor up \x1b[1A",
		},
		{
			name:     "clear screen kept",
			input:    "Line with clear screen \x1b[2J",
			expected: "Line with clear screen \x1b[2J",
		},
		{
			name:     "carriage return still gets prompt re-inserted",
			input:    "Line \rwith carriage return",
			expected: "Line \r[prompt] with carriage return",
		},
		{
			name:     "erase to beginning still gets save/jump/prompt/restore",
			input:    "Text\x1b[1KPartial erase",
			expected: "Text\x1b[1K\x1b[s\x1b[G[prompt] \x1b[uPartial erase",
		},
		{
			name:     "erase entire line still gets save/jump/prompt/restore",
			input:    "Text\x1b[2KFull erase",
			expected: "Text\x1b[2K\x1b[s\x1b[G[prompt] \x1b[uFull erase",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Rewrite(tt.input, prompt, true))
		})
	}
}

func TestRewriteTrimsTrailingWhitespace(t *testing.T) {
	assert.Equal(t, "done", Rewrite("done   \t", "[p] ", false))
}

func TestVisuallyEmpty(t *testing.T) {
	assert.True(t, VisuallyEmpty(""))
	assert.True(t, VisuallyEmpty("   "))
	assert.True(t, VisuallyEmpty("\x1b[31m\x1b[0m"))
	assert.False(t, VisuallyEmpty("\x1b[31mx\x1b[0m"))
	assert.False(t, VisuallyEmpty("text"))
}
