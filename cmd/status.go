package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	Long: `Query the daemon for its overall status.

Shows: state (idle/recording/playing), passthrough switch, playback rate,
uptime and the pipeline failure counters.`,
	Run: func(cmd *cobra.Command, args []string) {
		client, ctx := newClient()
		st, err := client.Status(ctx)
		if err != nil {
			exitWithError("failed to query daemon status", err)
		}
		out, err := yaml.Marshal(st)
		if err != nil {
			exitWithError("failed to format result", err)
		}
		os.Stdout.Write(out)
	},
}

var shutdownCmd = &cobra.Command{
	Use:   "shutdown",
	Short: "Gracefully stop the daemon",
	Run: func(cmd *cobra.Command, args []string) {
		client, ctx := newClient()
		resp, err := client.Shutdown(ctx)
		checkResponse(resp, err, "daemon_shutdown")
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(shutdownCmd)
}
