package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cueloop.dev/cueloop/internal/command"
)

var playCmd = &cobra.Command{
	Use:   "play <name>",
	Short: "Play a recording in a loop",
	Long: `Load a recording and play it back in a seamless loop.

A play while another recording is looping replaces it. A failed load
leaves whatever was playing untouched and lists the recordings that are
actually available.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client, ctx := newClient()
		resp, err := client.Play(ctx, args[0])
		if err != nil {
			exitWithError("failed to send play command", err)
		}
		if resp.Error != nil {
			fmt.Fprintf(os.Stderr, "Error: play failed: %s\n", resp.Error.Message)
			var available command.ListResult
			if decodeErr := command.DecodeResult(resp.Error.Data, &available); decodeErr == nil && len(available.Recordings) > 0 {
				fmt.Fprintln(os.Stderr, "available recordings:")
				for _, info := range available.Recordings {
					fmt.Fprintf(os.Stderr, "  %s\n", info.Name)
				}
			}
			os.Exit(1)
		}
		fmt.Printf("playing %s\n", args[0])
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running playback",
	Run: func(cmd *cobra.Command, args []string) {
		client, ctx := newClient()
		resp, err := client.PlaybackStop(ctx)
		checkResponse(resp, err, "playback_stop")
	},
}

func init() {
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(stopCmd)
}
