package cmd

import (
	"github.com/spf13/cobra"

	"cueloop.dev/cueloop/internal/daemon"
)

var pidFile string

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the cueloop daemon",
	Long: `Start the cueloop daemon in the foreground.

Examples:
  cueloop start                         # default config and socket paths
  cueloop start -c /etc/cueloop/config.yaml
  cueloop start --pid-file /var/run/cueloop.pid`,
	Run: func(cmd *cobra.Command, args []string) {
		d, err := daemon.New(configFile, socketPath, pidFile)
		if err != nil {
			exitWithError("failed to initialize daemon", err)
		}
		if err := d.Start(); err != nil {
			exitWithError("failed to start daemon", err)
		}
		if err := d.Run(); err != nil {
			exitWithError("daemon exited with error", err)
		}
	},
}

func init() {
	startCmd.Flags().StringVar(&pidFile, "pid-file", "", "PID file path (default from config)")
	rootCmd.AddCommand(startCmd)
}
