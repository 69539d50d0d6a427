package cmd

import (
	"errors"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/josephlewis42/npshell/core/config"
)

var cfgPath string

// loadConfig reads the config directory, falling back to the embedded
// defaults so the interpreter runs without an init step.
func loadConfig() (*config.Configuration, error) {
	configuration, err := config.Load(cfgPath)

	if errors.Is(err, fs.ErrNotExist) {
		return config.Default(), nil
	}
	if err != nil {
		return nil, err
	}
	if err := configuration.Validate(); err != nil {
		return nil, err
	}

	return configuration, nil
}

// rootCmd represents the base command when called without any subcommands.
// Bare `npshell` starts the interpreter, same as `npshell run`.
var rootCmd = &cobra.Command{
	Use:   "npshell",
	Short: "Command interpreter with numbered forward pipes",
	Long: `npshell is a command interpreter where a command line's output can be
piped to the line entered n prompts later with |n, or !n to carry
stderr along with it.`,
	RunE: runShell,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", ".", "config path")
}
