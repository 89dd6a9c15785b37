package output

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// Chunk is one item on a host's output queue: either remote output text or
// the end-marker that closes the host's block. Closing the queue channel is
// the close signal.
type Chunk struct {
	Text   string
	Marker bool
}

// Sink is the shared terminal the printers write to. The lock is held for a
// whole chunk, so a capture-mode block prints atomically while streamed
// lines from different hosts may interleave.
type Sink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewSink wraps the writer all printers share.
func NewSink(w io.Writer) *Sink {
	return &Sink{w: w}
}

// Printer consumes exactly one host's queue and writes its output behind
// the host's prompt.
type Printer struct {
	sink               *Sink
	prompt             string
	allowEmptyLine     bool
	allowCursorControl bool
}

// NewPrinter creates the printer for one host.
func NewPrinter(sink *Sink, prompt string, allowEmptyLine, allowCursorControl bool) *Printer {
	return &Printer{
		sink:               sink,
		prompt:             prompt,
		allowEmptyLine:     allowEmptyLine,
		allowCursorControl: allowCursorControl,
	}
}

// Run drains the queue until it is closed. Within one queue, FIFO order is
// preserved end-to-end; there is no ordering guarantee across hosts.
func (p *Printer) Run(queue <-chan Chunk) {
	for chunk := range queue {
		p.sink.mu.Lock()
		if chunk.Marker {
			fmt.Fprintln(p.sink.w, chunk.Text)
		} else {
			p.printChunk(chunk.Text)
		}
		p.sink.mu.Unlock()
	}
}

// printChunk writes every visual line of the chunk behind the prompt.
func (p *Printer) printChunk(text string) {
	for _, line := range strings.Split(text, "\n") {
		adjusted := Rewrite(line, p.prompt, p.allowCursorControl)
		if !p.allowEmptyLine && VisuallyEmpty(adjusted) {
			continue
		}
		fmt.Fprintf(p.sink.w, "%s%s\n", p.prompt, adjusted)
	}
}
