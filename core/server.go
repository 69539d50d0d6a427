package core

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/gliderlabs/ssh"
	"github.com/juju/ratelimit"
	gossh "golang.org/x/crypto/ssh"

	"github.com/josephlewis42/npshell/core/config"
	"github.com/josephlewis42/npshell/core/logger"
)

// Server exposes the interpreter over SSH. Every connection gets its own
// Shell: its own environment, prompt counter and numbered-pipe registry,
// with the session channel as stdin/stdout/stderr.
type Server struct {
	configuration *config.Configuration
	logger        *logger.Logger
	sshServer     *ssh.Server
	sessions      *ratelimit.Bucket
}

// NewServer builds the SSH front end. Events are recorded to logDest as
// JSON lines.
func NewServer(configuration *config.Configuration, logDest io.Writer) (*Server, error) {
	server := &Server{
		configuration: configuration,
		logger:        logger.NewJsonLinesLogRecorder(logDest),
		sessions:      ratelimit.NewBucketWithRate(float64(configuration.SessionRate), int64(configuration.SessionRate)),
	}

	server.sshServer = &ssh.Server{
		Addr:    fmt.Sprintf(":%d", configuration.SSHPort),
		Version: configuration.SSHVersion,
		Handler: func(s ssh.Session) {
			server.HandleConnection(s)
		},
	}

	keyPem, err := configuration.PrivateKeyPem()
	if err != nil {
		return nil, fmt.Errorf("reading host key: %w", err)
	}
	signer, err := gossh.ParsePrivateKey(keyPem)
	if err != nil {
		return nil, fmt.Errorf("parsing host key: %w", err)
	}
	server.sshServer.AddHostKey(signer)

	return server, nil
}

// HandleConnection runs one interpreter session over the SSH channel.
func (s *Server) HandleConnection(session ssh.Session) {
	s.sessions.Wait(1)

	sessionLogger := s.logger.NewSession()
	sessionLogger.Record(&logger.LoginAttempt{
		Username:   session.User(),
		RemoteAddr: fmt.Sprintf("%s", session.RemoteAddr()),
		Env:        session.Environ(),
		Command:    session.Command(),
	})

	sh, err := NewShell(s.configuration, session, session, session.Stderr(), sessionLogger)
	if err != nil {
		fmt.Fprintln(session.Stderr(), err)
		session.Exit(1)
		return
	}
	defer sh.Close()

	sh.Run()
	session.Exit(0)
}

// ListenAndServe blocks serving connections.
func (s *Server) ListenAndServe() error {
	log.Printf("- Starting SSH server on %s\n", s.sshServer.Addr)
	return s.sshServer.ListenAndServe()
}

// Shutdown stops the listener and waits for connections to drain or the
// context to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.sshServer.Shutdown(ctx)
}
