package cmd

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/josephlewis42/npshell/core"
	"github.com/josephlewis42/npshell/core/logger"
)

// runCmd starts the interpreter on the local terminal.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the interpreter on the current terminal.",
	Args:  cobra.ExactArgs(0),
	RunE:  runShell,
}

func runShell(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	configuration, err := loadConfig()
	if err != nil {
		return err
	}

	// Events go to the app log when one can be opened, otherwise they
	// are dropped; logging never affects the session.
	logDest := io.Discard
	if fd, err := configuration.OpenAppLog(); err == nil {
		defer fd.Close()
		logDest = fd
	}
	sessionLogger := logger.NewJsonLinesLogRecorder(logDest).NewSession()

	shell, err := core.NewShell(configuration, os.Stdin, os.Stdout, os.Stderr, sessionLogger)
	if err != nil {
		return err
	}
	defer shell.Close()

	shell.Run()
	return nil
}

func init() {
	rootCmd.AddCommand(runCmd)
}
