package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"cueloop.dev/cueloop/internal/command"
	"cueloop.dev/cueloop/internal/daemon"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show pipeline counters",
	Long: `Query the daemon for its pipeline counters: event bus throughput and
drop counts plus inbound receiver drops.`,
	Run: func(cmd *cobra.Command, args []string) {
		client, ctx := newClient()
		resp, err := client.Call(ctx, "daemon_stats", nil)
		if err != nil {
			exitWithError("failed to query daemon stats", err)
		}
		if resp.Error != nil {
			exitWithError("daemon_stats failed: "+resp.Error.Message, nil)
		}
		var stats daemon.Stats
		if err := command.DecodeResult(resp.Result, &stats); err != nil {
			exitWithError("failed to decode result", err)
		}
		out, err := yaml.Marshal(stats)
		if err != nil {
			exitWithError("failed to format result", err)
		}
		os.Stdout.Write(out)
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
