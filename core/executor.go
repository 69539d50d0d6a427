package core

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/josephlewis42/npshell/core/logger"
	"github.com/josephlewis42/npshell/core/shell"
)

// startRetryDelay is how long to back off before retrying a child that
// failed to start with EAGAIN.
const startRetryDelay = time.Millisecond

// Executor runs the segments of a single prompt: it gathers inbound
// numbered-pipe descriptors, wires anonymous pipes between segments,
// registers outbound numbered pipes, and waits for the terminal segment.
//
// Exactly one synchronous wait happens per prompt, on the terminal
// child. Everything else is handed to the Reaper.
type Executor struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	Env      *Env
	Registry *Registry
	Reaper   *Reaper
	Log      *logger.SessionLogger
}

// RunLine executes one parsed prompt. prompt is the freshly incremented
// prompt index.
func (e *Executor) RunLine(prompt int, line shell.Line) {
	if line.Empty() {
		return
	}

	cur, curFile := e.assembleStdin(prompt)

	for i, seg := range line.Segments {
		if i >= len(line.Ops) {
			e.runTerminal(seg, cur, curFile)
			return
		}

		switch op := line.Ops[i]; op.Kind {
		case shell.Pipe:
			var err error
			cur, curFile, err = e.runStage(seg, cur, curFile)
			if err != nil {
				return
			}
		default:
			// A numbered operator is the last thing on the line by
			// construction; anything typed after it became the tail.
			e.runDeferred(prompt, seg, op, cur, curFile)
			cur, curFile = e.Stdin, nil
		}
	}
}

// assembleStdin drains the registry for this prompt and produces the
// stdin for the first segment. With no inbound descriptors that is the
// shell's own stdin; with one, the descriptor itself (streaming); with
// several, the merged content of all of them.
//
// The returned *os.File is non-nil when the reader is an owned
// descriptor the caller must close after handing it to a child.
func (e *Executor) assembleStdin(prompt int) (io.Reader, *os.File) {
	inbound := e.Registry.Drain(prompt)
	switch len(inbound) {
	case 0:
		return e.Stdin, nil
	case 1:
		return inbound[0], inbound[0]
	default:
		return bytes.NewReader(mergeInbound(inbound)), nil
	}
}

// mergeInbound consolidates several inbound read ends into one input.
// One copier runs per descriptor and all of them are waited before the
// consumer starts, so the merged input holds every producer's complete
// output. Interleaving across sources is arrival order; no ordering is
// promised between producers.
func mergeInbound(inbound []*os.File) []byte {
	var mu sync.Mutex
	var buf bytes.Buffer
	var g errgroup.Group

	for _, f := range inbound {
		f := f
		g.Go(func() error {
			defer f.Close()
			chunk := make([]byte, 4096)
			for {
				n, err := f.Read(chunk)
				if n > 0 {
					mu.Lock()
					buf.Write(chunk[:n])
					mu.Unlock()
				}
				if err != nil {
					if err == io.EOF {
						return nil
					}
					return err
				}
			}
		})
	}

	// Producers deliver EOF by exiting; a read error on one source does
	// not void the bytes the others delivered.
	_ = g.Wait()
	return buf.Bytes()
}

// runStage starts an intermediate segment whose stdout feeds the next
// segment through an anonymous pipe. The stage is not waited; it is
// reaped asynchronously. Returns the read end for the next segment.
func (e *Executor) runStage(seg shell.Segment, cur io.Reader, curFile *os.File) (io.Reader, *os.File, error) {
	pr, pw, err := os.Pipe()
	if err != nil {
		fmt.Fprintln(e.Stderr, "Pipe creation failed")
		if curFile != nil {
			curFile.Close()
		}
		return nil, nil, err
	}

	cmd := e.startSegment(seg, cur, pw, false)
	pw.Close()
	if curFile != nil {
		curFile.Close()
	}
	if cmd != nil {
		e.Reaper.Watch(cmd)
	}
	// If the child never ran, or its stdout was stolen by a redirection,
	// the closed write end gives the successor immediate EOF.
	return pr, pr, nil
}

// runDeferred starts a numbered-pipe producer. Its stdout (and stderr
// for the !n form) feed a pipe whose read end is registered for the
// prompt op.N non-empty lines from now. The producer is not waited.
func (e *Executor) runDeferred(prompt int, seg shell.Segment, op shell.Op, cur io.Reader, curFile *os.File) {
	pr, pw, err := os.Pipe()
	if err != nil {
		fmt.Fprintln(e.Stderr, "Numbered pipe creation failed")
		if curFile != nil {
			curFile.Close()
		}
		return
	}

	mergeStderr := op.Kind == shell.NumberedPipeErr
	cmd := e.startSegment(seg, cur, pw, mergeStderr)
	pw.Close()

	// The read end is registered even when the producer failed to run:
	// the consuming prompt then sees immediate EOF, the same as a child
	// that exited without output.
	target := prompt + op.N
	e.Registry.Insert(target, pr)
	e.Log.Record(&logger.PipeDeferred{
		FromPrompt:  prompt,
		ToPrompt:    target,
		MergeStderr: mergeStderr,
	})

	if curFile != nil {
		curFile.Close()
	}
	if cmd != nil {
		e.Reaper.Watch(cmd)
	}
}

// runTerminal starts the final segment and waits for it. The prompt for
// the next line must not appear until this child has exited.
func (e *Executor) runTerminal(seg shell.Segment, cur io.Reader, curFile *os.File) {
	cmd := e.startSegment(seg, cur, e.Stdout, false)
	if curFile != nil {
		curFile.Close()
	}
	if cmd == nil {
		return
	}

	_ = cmd.Wait()
	if state := cmd.ProcessState; state != nil {
		e.Log.Record(&logger.ProcessExit{
			Path:     cmd.Path,
			PID:      state.Pid(),
			ExitCode: state.ExitCode(),
		})
	}
}

// startSegment builds and starts one child. A `> file` redirection wins
// over whatever stdout the pipeline wiring chose, and for the !n form
// stderr follows the final stdout. Start is retried on EAGAIN.
//
// Returns nil if the child could not run; the diagnostic has already
// been written to stderr and the caller treats the segment as a child
// that exited with status 1.
func (e *Executor) startSegment(seg shell.Segment, stdin io.Reader, stdout io.Writer, mergeStderr bool) *exec.Cmd {
	if len(seg.Argv) == 0 {
		fmt.Fprintln(e.Stderr, "Unknown command: [].")
		return nil
	}

	var redirect *os.File
	if seg.HasRedirect {
		f, err := os.OpenFile(seg.RedirectPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			fmt.Fprintf(e.Stderr, "Cannot open output file: %s\n", seg.RedirectPath)
			return nil
		}
		redirect = f
		stdout = f
	}

	stderr := e.Stderr
	if mergeStderr {
		stderr = stdout
	}

	path, err := LookPath(e.Env, seg.Argv[0])
	if err != nil {
		if redirect != nil {
			redirect.Close()
		}
		fmt.Fprintf(e.Stderr, "Unknown command: [%s].\n", seg.Argv[0])
		return nil
	}

	cmd := &exec.Cmd{
		Path:   path,
		Args:   seg.Argv,
		Env:    e.Env.Environ(),
		Stdin:  stdin,
		Stdout: stdout,
		Stderr: stderr,
	}

	for {
		err := cmd.Start()
		if err == nil {
			break
		}
		if errors.Is(err, syscall.EAGAIN) {
			time.Sleep(startRetryDelay)
			continue
		}
		if redirect != nil {
			redirect.Close()
		}
		fmt.Fprintf(e.Stderr, "Unknown command: [%s].\n", seg.Argv[0])
		return nil
	}

	// The child inherited the descriptor; the parent's copy must go so
	// readers see EOF when the child exits.
	if redirect != nil {
		redirect.Close()
	}
	return cmd
}
