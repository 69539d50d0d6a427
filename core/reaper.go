package core

import (
	"os/exec"
	"sync"

	"github.com/josephlewis42/npshell/core/logger"
)

// Reaper collects children the prompt loop must not block on:
// intermediate pipeline stages and numbered-pipe producers. Each watched
// child is waited in its own goroutine, which is how the Go runtime
// expects children to be reaped; a process-wide SIGCHLD wait would race
// with os/exec.
type Reaper struct {
	log *logger.SessionLogger
	wg  sync.WaitGroup
}

// NewReaper creates a reaper recording exits to log.
func NewReaper(log *logger.SessionLogger) *Reaper {
	return &Reaper{log: log}
}

// Watch reaps the started command asynchronously.
func (r *Reaper) Watch(cmd *exec.Cmd) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		_ = cmd.Wait()
		if state := cmd.ProcessState; state != nil {
			r.log.Record(&logger.ProcessExit{
				Path:     cmd.Path,
				PID:      state.Pid(),
				ExitCode: state.ExitCode(),
			})
		}
	}()
}

// Drain blocks until every watched child so far has been reaped.
func (r *Reaper) Drain() {
	r.wg.Wait()
}
