// Package executor drives one execution task and one printer task per host
// and joins them: all execution tasks finish before any queue is closed, so
// every chunk a host produced is printed before its printer stops.
package executor

import (
	"context"
	"sync"
	"time"

	"github.com/cwt/hydra/internal/hostlist"
	"github.com/cwt/hydra/internal/logging"
	"github.com/cwt/hydra/internal/output"
)

// minRemoteWidth is the floor for the remote terminal width after the
// prompt column is subtracted.
const minRemoteWidth = 20

// queueSize buffers each host's output queue. Producers block when a printer
// falls behind; FIFO order is unaffected.
const queueSize = 64

// Runner executes the command on a single host, pushing data chunks onto
// out. Implementations must not fail: errors become diagnostic chunks.
type Runner interface {
	Run(ctx context.Context, host hostlist.Host, command string, width int, out chan<- output.Chunk)
}

// Options configures one fan-out run.
type Options struct {
	Command            string
	LocalWidth         int // display width of the shared terminal
	MaxNameLen         int // widest host name, for prompt alignment
	AllowEmptyLine     bool
	AllowCursorControl bool
	Palette            *output.Palette
	Sink               *output.Sink
	Logger             *logging.Logger
}

// Run fans the command out to every host concurrently and multiplexes the
// output. No host's failure affects another host's execution or output; Run
// itself cannot fail.
func Run(ctx context.Context, hosts []hostlist.Host, runner Runner, opts Options) {
	remoteWidth := opts.LocalWidth - output.PromptWidth(opts.MaxNameLen)
	if remoteWidth < minRemoteWidth {
		remoteWidth = minRemoteWidth
	}

	start := time.Now()
	queues := make([]chan output.Chunk, len(hosts))

	var execTasks, printTasks sync.WaitGroup
	for i, host := range hosts {
		queue := make(chan output.Chunk, queueSize)
		queues[i] = queue

		prompt := opts.Palette.Prompt(host.Name, opts.MaxNameLen)
		printer := output.NewPrinter(opts.Sink, prompt, opts.AllowEmptyLine, opts.AllowCursorControl)

		printTasks.Add(1)
		go func() {
			defer printTasks.Done()
			printer.Run(queue)
		}()

		execTasks.Add(1)
		go func(host hostlist.Host, queue chan<- output.Chunk) {
			defer execTasks.Done()
			runner.Run(ctx, host, opts.Command, remoteWidth, queue)
			queue <- output.Chunk{
				Text:   opts.Palette.EndMarker(host.Name, remoteWidth),
				Marker: true,
			}
		}(host, queue)
	}

	// Barrier: every chunk is enqueued before any printer is told to stop.
	execTasks.Wait()
	for _, queue := range queues {
		close(queue)
	}
	printTasks.Wait()

	if opts.Logger != nil {
		opts.Logger.LogRunComplete(len(hosts), time.Since(start))
	}
}
