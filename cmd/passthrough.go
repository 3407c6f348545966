package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"cueloop.dev/cueloop/internal/command"
)

var passthroughCmd = &cobra.Command{
	Use:   "passthrough",
	Short: "Toggle live forwarding of console traffic",
	Long: `Toggle the passthrough router.

When enabled, inbound console traffic is forwarded to the outputs while
the daemon is not playing back. Playback always suppresses forwarding
regardless of this switch.`,
	Run: func(cmd *cobra.Command, args []string) {
		client, ctx := newClient()
		resp, err := client.PassthroughToggle(ctx)
		if err != nil {
			exitWithError("failed to send passthrough_toggle command", err)
		}
		if resp.Error != nil {
			exitWithError(fmt.Sprintf("passthrough_toggle failed: %s", resp.Error.Message), nil)
		}
		var result command.ToggleResult
		if err := command.DecodeResult(resp.Result, &result); err != nil {
			exitWithError("failed to decode result", err)
		}
		if result.Enabled {
			fmt.Println("passthrough enabled")
		} else {
			fmt.Println("passthrough disabled")
		}
	},
}

func init() {
	rootCmd.AddCommand(passthroughCmd)
}
