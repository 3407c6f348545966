package cmd

import (
	"strconv"

	"github.com/spf13/cobra"
)

var rateCmd = &cobra.Command{
	Use:   "rate <fps>",
	Short: "Set the nominal playback rate (1..100 fps)",
	Long: `Set the nominal playback frame rate.

The rate sizes the loop cross-fade window for subsequent plays; frame
pacing itself follows the timing captured in the recording.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		fps, err := strconv.Atoi(args[0])
		if err != nil {
			exitWithError("fps must be an integer", err)
		}
		client, ctx := newClient()
		resp, err := client.RateSet(ctx, fps)
		checkResponse(resp, err, "rate_set")
	},
}

var blackoutCmd = &cobra.Command{
	Use:   "blackout",
	Short: "Zero all channels on every output",
	Long: `Stop any running playback and send a single all-zero frame to every
configured output universe. The way out of a stuck look.`,
	Run: func(cmd *cobra.Command, args []string) {
		client, ctx := newClient()
		resp, err := client.Blackout(ctx)
		checkResponse(resp, err, "blackout")
	},
}

func init() {
	rootCmd.AddCommand(rateCmd)
	rootCmd.AddCommand(blackoutCmd)
}
