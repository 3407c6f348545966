package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"cueloop.dev/cueloop/internal/command"
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Control show capture",
}

var recordStartCmd = &cobra.Command{
	Use:   "start [name]",
	Short: "Start capturing inbound traffic into a new recording",
	Long: `Start capturing the configured universes into a new recording.

Without a name the recording is stamped with the current time.
Refused while playback is running.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		name := ""
		if len(args) > 0 {
			name = args[0]
		}
		client, ctx := newClient()
		resp, err := client.RecordStart(ctx, name)
		if err != nil {
			exitWithError("failed to send record_start command", err)
		}
		if resp.Error != nil {
			exitWithError(fmt.Sprintf("record_start failed: %s", resp.Error.Message), nil)
		}
		var result command.RecordStartResult
		if err := command.DecodeResult(resp.Result, &result); err != nil {
			exitWithError("failed to decode result", err)
		}
		fmt.Printf("recording to %s\n", result.Path)
	},
}

var recordStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Finalize the running capture",
	Run: func(cmd *cobra.Command, args []string) {
		client, ctx := newClient()
		resp, err := client.RecordStop(ctx)
		if err != nil {
			exitWithError("failed to send record_stop command", err)
		}
		if resp.Error != nil {
			exitWithError(fmt.Sprintf("record_stop failed: %s", resp.Error.Message), nil)
		}
		var result command.RecordStopResult
		if err := command.DecodeResult(resp.Result, &result); err != nil {
			exitWithError("failed to decode result", err)
		}
		fmt.Printf("recorded %d packets to %s\n", result.Packets, result.Path)
	},
}

func init() {
	recordCmd.AddCommand(recordStartCmd)
	recordCmd.AddCommand(recordStopCmd)
	rootCmd.AddCommand(recordCmd)
}
