// Package output turns per-host command output into a single coherent
// stream: stable colored prompts, ANSI-aware line rewriting, and one printer
// task per host queue.
package output

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"github.com/fatih/color"
)

// Palette assigns each host a stable color from a small palette, shuffled
// once at construction and cycled when there are more hosts than colors.
// Construct one per run; safe for concurrent use.
type Palette struct {
	mu       sync.Mutex
	colors   []*color.Color
	next     int
	assigned map[string]*color.Color
	enabled  bool
}

// NewPalette creates a palette. With enabled false every prompt is colorless
// and end-markers are plain dashes.
func NewPalette(enabled bool) *Palette {
	colors := []*color.Color{
		color.New(color.FgRed),
		color.New(color.FgGreen),
		color.New(color.FgYellow),
		color.New(color.FgBlue),
		color.New(color.FgMagenta),
		color.New(color.FgCyan),
	}
	rand.Shuffle(len(colors), func(i, j int) {
		colors[i], colors[j] = colors[j], colors[i]
	})

	return &Palette{
		colors:   colors,
		assigned: make(map[string]*color.Color),
		enabled:  enabled,
	}
}

// colorOf returns the host's color, assigning the next palette entry on
// first reference. Assignments never change for the lifetime of the palette.
func (p *Palette) colorOf(name string) *color.Color {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.assigned[name]; ok {
		return c
	}

	c := p.colors[p.next%len(p.colors)]
	p.next++
	p.assigned[name] = c
	return c
}

// Prompt renders the host's prompt string: the name right-justified to the
// longest name in the run, bracketed, tinted, and followed by one space.
func (p *Palette) Prompt(name string, maxNameLen int) string {
	label := fmt.Sprintf("[%*s]", maxNameLen, name)
	if !p.enabled {
		return label + " "
	}
	return p.colorOf(name).Sprint(label) + " "
}

// EndMarker renders the divider line that closes a host's output block,
// sized to the host's remote width and tinted with the host's color.
func (p *Palette) EndMarker(name string, width int) string {
	marker := strings.Repeat("-", width)
	if !p.enabled {
		return marker
	}
	return p.colorOf(name).Sprint(marker)
}

// PromptWidth is the visual width of a prompt for the given name column:
// brackets plus the gutter space.
func PromptWidth(maxNameLen int) int {
	return maxNameLen + 3
}
