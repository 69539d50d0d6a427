package cmd

import (
	"log"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/josephlewis42/npshell/core/config"
)

// initCmd writes the interpreter configuration
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the configuration in the config directory.",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		logger := log.New(cmd.ErrOrStderr(), "", 0)

		if err := config.Initialize(cfgPath, logger); err != nil {
			return err
		}
		logger.Println(color.GreenString("Configuration ready."))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
