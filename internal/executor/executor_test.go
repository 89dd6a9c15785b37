package executor

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwt/hydra/internal/hostlist"
	"github.com/cwt/hydra/internal/output"
)

// fakeRunner records the widths it was asked for and replays canned chunks
// per host, with an optional delay to shake out ordering races.
type fakeRunner struct {
	mu     sync.Mutex
	chunks map[string][]string
	widths map[string]int
	delay  time.Duration
}

func newFakeRunner(chunks map[string][]string) *fakeRunner {
	return &fakeRunner{chunks: chunks, widths: make(map[string]int)}
}

func (r *fakeRunner) Run(ctx context.Context, host hostlist.Host, command string, width int, out chan<- output.Chunk) {
	r.mu.Lock()
	r.widths[host.Name] = width
	r.mu.Unlock()

	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	for _, text := range r.chunks[host.Name] {
		out <- output.Chunk{Text: text}
	}
}

func makeHosts(names ...string) []hostlist.Host {
	hosts := make([]hostlist.Host, len(names))
	for i, name := range names {
		hosts[i] = hostlist.Host{Name: name, Address: fmt.Sprintf("10.0.0.%d", i+1), Port: 22, Username: "user"}
	}
	return hosts
}

func runOptions(buf *bytes.Buffer, maxNameLen, localWidth int) Options {
	return Options{
		Command:    "uptime",
		LocalWidth: localWidth,
		MaxNameLen: maxNameLen,
		Palette:    output.NewPalette(false),
		Sink:       output.NewSink(buf),
	}
}

func TestRunPerHostLinesStayOrdered(t *testing.T) {
	hosts := makeHosts("alpha", "beta")
	runner := newFakeRunner(map[string][]string{
		"alpha": {"a1", "a2", "a3"},
		"beta":  {"b1", "b2"},
	})
	runner.delay = 5 * time.Millisecond

	var buf bytes.Buffer
	Run(context.Background(), hosts, runner, runOptions(&buf, 5, 80))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")

	var alpha, beta []string
	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "[alpha] "):
			alpha = append(alpha, strings.TrimPrefix(line, "[alpha] "))
		case strings.HasPrefix(line, "[ beta] "):
			beta = append(beta, strings.TrimPrefix(line, "[ beta] "))
		}
	}
	assert.Equal(t, []string{"a1", "a2", "a3"}, alpha)
	assert.Equal(t, []string{"b1", "b2"}, beta)
}

func TestRunEmitsOneEndMarkerPerHost(t *testing.T) {
	hosts := makeHosts("alpha", "beta", "gamma")
	runner := newFakeRunner(map[string][]string{
		"alpha": {"out"},
	})

	var buf bytes.Buffer
	Run(context.Background(), hosts, runner, runOptions(&buf, 5, 80))

	// Prompt column is maxNameLen+3 wide, so the markers span the rest.
	marker := strings.Repeat("-", 80-output.PromptWidth(5))
	assert.Equal(t, 3, strings.Count(buf.String(), marker+"\n"))
}

func TestRunClampsRemoteWidth(t *testing.T) {
	hosts := makeHosts("very-long-host-name")
	runner := newFakeRunner(nil)

	var buf bytes.Buffer
	Run(context.Background(), hosts, runner, runOptions(&buf, len("very-long-host-name"), 30))

	assert.Equal(t, minRemoteWidth, runner.widths["very-long-host-name"])
	assert.Contains(t, buf.String(), strings.Repeat("-", minRemoteWidth))
}

func TestRunPassesDerivedRemoteWidth(t *testing.T) {
	hosts := makeHosts("alpha")
	runner := newFakeRunner(nil)

	var buf bytes.Buffer
	Run(context.Background(), hosts, runner, runOptions(&buf, 5, 120))

	assert.Equal(t, 120-output.PromptWidth(5), runner.widths["alpha"])
}

func TestRunDiagnosticChunkStillGetsMarker(t *testing.T) {
	hosts := makeHosts("alpha")
	runner := newFakeRunner(map[string][]string{
		"alpha": {"Error connecting to alpha: connection refused"},
	})

	var buf bytes.Buffer
	Run(context.Background(), hosts, runner, runOptions(&buf, 5, 80))

	out := buf.String()
	require.Contains(t, out, "[alpha] Error connecting to alpha: connection refused\n")
	assert.True(t, strings.HasSuffix(out, strings.Repeat("-", 80-output.PromptWidth(5))+"\n"))
}

func TestRunManyHostsAllComplete(t *testing.T) {
	var names []string
	chunks := make(map[string][]string)
	for i := 0; i < 40; i++ {
		name := fmt.Sprintf("node-%02d", i)
		names = append(names, name)
		chunks[name] = []string{"line-1", "line-2"}
	}
	runner := newFakeRunner(chunks)

	var buf bytes.Buffer
	Run(context.Background(), makeHosts(names...), runner, runOptions(&buf, 7, 100))

	marker := strings.Repeat("-", 100-output.PromptWidth(7))
	assert.Equal(t, 40, strings.Count(buf.String(), marker+"\n"))
	assert.Equal(t, 80, strings.Count(buf.String(), "line-"))
}
