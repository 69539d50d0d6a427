package core

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/abiosoft/readline"

	"github.com/josephlewis42/npshell/core/config"
	"github.com/josephlewis42/npshell/core/logger"
	"github.com/josephlewis42/npshell/core/shell"
)

// Shell is one interactive interpreter session: a readline instance, a
// per-session environment, the numbered-pipe registry and the prompt
// counter. Sessions are independent; serve mode creates one per
// connection.
type Shell struct {
	config   *config.Configuration
	env      *Env
	registry *Registry
	reaper   *Reaper
	executor *Executor
	readline *readline.Instance
	log      *logger.SessionLogger

	prompt  int      // count of non-empty lines executed so far
	pending []string // tokens deferred past a numbered pipe
	done    bool
}

// NewShell builds a session reading from stdin and writing to stdout and
// stderr. The environment is seeded from the host process with PATH
// forced to the configured initial search path.
func NewShell(cfg *config.Configuration, stdin io.Reader, stdout, stderr io.Writer, log *logger.SessionLogger) (*Shell, error) {
	env := NewEnvFromList(os.Environ())
	env.Setenv("PATH", cfg.InitialPath)

	registry := NewRegistry()
	reaper := NewReaper(log)

	rlCfg := &readline.Config{
		Prompt:      cfg.Prompt,
		Stdin:       readline.NewCancelableStdin(stdin),
		Stdout:      stdout,
		Stderr:      stderr,
		HistoryFile: cfg.HistoryPath(),
	}
	if err := rlCfg.Init(); err != nil {
		return nil, err
	}
	rl, err := readline.NewEx(rlCfg)
	if err != nil {
		return nil, err
	}

	return &Shell{
		config:   cfg,
		env:      env,
		registry: registry,
		reaper:   reaper,
		executor: &Executor{
			Stdin:    stdin,
			Stdout:   stdout,
			Stderr:   stderr,
			Env:      env,
			Registry: registry,
			Reaper:   reaper,
			Log:      log,
		},
		readline: rl,
		log:      log,
	}, nil
}

// Run reads and executes lines until exit or EOF. The prompt counter
// increments once per non-empty line, builtins included; empty lines are
// skipped without counting.
func (s *Shell) Run() {
	s.log.Record(&logger.SessionStart{})
	defer s.log.Record(&logger.SessionEnd{})
	defer s.registry.CloseAll()

	for !s.done {
		tokens, err := s.nextTokens()
		switch {
		case err == io.EOF:
			return // Input closed, quit.

		case err == readline.ErrInterrupt:
			continue

		case err != nil:
			fmt.Fprintln(s.stderr(), err)
			continue
		}

		if len(tokens) == 0 {
			continue
		}

		line := shell.ParseTokens(tokens)
		s.pending = line.Tail
		if n := len(line.Tail); n > 0 {
			// Builtins and logging see only this prompt's tokens; the
			// tail belongs to the next prompt.
			tokens = tokens[:len(tokens)-n]
		}

		s.prompt++
		s.log.Record(&logger.LineAccepted{
			Prompt: s.prompt,
			Line:   strings.Join(tokens, " "),
			Tail:   strings.Join(line.Tail, " "),
		})

		if builtin, ok := AllBuiltins[tokens[0]]; ok {
			builtin.Main(s, tokens)
			continue
		}

		s.executor.RunLine(s.prompt, line)
	}
}

// nextTokens yields the tokens for the next prompt: the pending tail of
// a numbered pipe if one exists, otherwise a fresh line from the
// terminal.
func (s *Shell) nextTokens() ([]string, error) {
	if len(s.pending) > 0 {
		tokens := s.pending
		s.pending = nil
		return tokens, nil
	}

	s.readline.SetPrompt(s.config.Prompt)
	line, err := s.readline.Readline()
	if err != nil {
		return nil, err
	}
	return shell.Fields(line), nil
}

// Close releases the readline instance.
func (s *Shell) Close() error {
	return s.readline.Close()
}

func (s *Shell) stdout() io.Writer { return s.executor.Stdout }
func (s *Shell) stderr() io.Writer { return s.executor.Stderr }
