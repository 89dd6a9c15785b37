package sshx

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/ssh"

	apperrors "github.com/cwt/hydra/internal/errors"
	"github.com/cwt/hydra/internal/hostlist"
	"github.com/cwt/hydra/internal/logging"
	"github.com/cwt/hydra/internal/output"
)

// ptyHeight is the remote pseudo-terminal height. Tall enough that
// full-screen programs do not paginate long output.
const ptyHeight = 1000

// maxLineSize bounds a single streamed line.
const maxLineSize = 1 << 20

// Runner resolves credentials, connects, and executes the command on one
// host, pushing output chunks onto the host's queue. Every failure becomes a
// single diagnostic chunk; nothing propagates.
type Runner struct {
	Establisher *Establisher
	DefaultKey  string // global default key path, may be empty
	KeyDir      string // fallback scan directory; empty means ~/.ssh
	Capture     bool   // capture whole output instead of streaming lines
	Logger      *logging.Logger
}

// Run executes command on host inside a PTY of the given width and forwards
// output to out. It never fails: errors are enqueued as diagnostics. The
// caller owns the queue; Run only pushes data chunks.
func (r *Runner) Run(ctx context.Context, host hostlist.Host, command string, width int, out chan<- output.Chunk) {
	cred, err := ResolveCredential(host.Name, host.KeyRef, r.DefaultKey, r.KeyDir)
	if err != nil {
		out <- output.Chunk{Text: fmt.Sprintf("Error connecting to %s: %v", host.Name, err)}
		return
	}

	client, err := r.Establisher.Connect(ctx, host, cred)
	if err != nil {
		out <- output.Chunk{Text: fmt.Sprintf("Error connecting to %s: %v", host.Name, err)}
		return
	}
	defer client.Close()

	if err := r.execute(client, command, width, out); err != nil {
		execErr := &apperrors.RemoteExecutionError{Host: host.Name, Err: err}
		if r.Logger != nil {
			r.Logger.Error("remote execution failed", "host", host.Name, "error", err.Error())
		}
		out <- output.Chunk{Text: execErr.Error()}
	}
}

// execute runs the command in a PTY session and forwards its output. The
// session is closed before returning regardless of outcome.
func (r *Runner) execute(client *ssh.Client, command string, width int, out chan<- output.Chunk) error {
	session, err := client.NewSession()
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	defer session.Close()

	modes := ssh.TerminalModes{
		ssh.ECHO: 0,
	}
	if err := session.RequestPty("ansi", ptyHeight, width, modes); err != nil {
		return fmt.Errorf("failed to request pty: %w", err)
	}

	// COLUMNS tells width-aware remote programs how much room they have
	// behind the prompt, so tables and progress bars wrap correctly.
	remoteCommand := fmt.Sprintf("export COLUMNS=%d; %s", width, command)

	if r.Capture {
		return r.runCapture(session, remoteCommand, out)
	}
	return r.runStream(session, remoteCommand, out)
}

// runCapture runs the command to completion and enqueues the whole output as
// one chunk, so the host's block prints without interleaving.
func (r *Runner) runCapture(session *ssh.Session, command string, out chan<- output.Chunk) error {
	var buf bytes.Buffer
	session.Stdout = &buf
	session.Stderr = &buf

	err := session.Run(command)

	if text := strings.TrimSpace(buf.String()); text != "" {
		out <- output.Chunk{Text: text}
	}

	return ignoreExitStatus(err)
}

// runStream forwards each line as soon as the remote produces it, preserving
// arrival order.
func (r *Runner) runStream(session *ssh.Session, command string, out chan<- output.Chunk) error {
	stdout, err := session.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to open stdout: %w", err)
	}

	if err := session.Start(command); err != nil {
		return fmt.Errorf("failed to start command: %w", err)
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	for scanner.Scan() {
		out <- output.Chunk{Text: scanner.Text()}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("connection lost mid-stream: %w", err)
	}

	return ignoreExitStatus(session.Wait())
}

// ignoreExitStatus drops the error for a command that ran and exited
// non-zero: its output, including any error text the remote printed, already
// went to the queue. Transport and session failures still count.
func ignoreExitStatus(err error) error {
	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}
