package cmd

import (
	"strconv"

	"github.com/spf13/cobra"
)

var highlightTimes int

var highlightCmd = &cobra.Command{
	Use:   "highlight <universe> <channel>",
	Short: "Blink one channel so a technician can locate the fixture",
	Long: `Blink a single channel of a universe full-on/full-off.

Examples:
  cueloop highlight 1 12            # blink universe 1 channel 12 three times
  cueloop highlight 1 12 --times 5`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		universe, err := strconv.Atoi(args[0])
		if err != nil {
			exitWithError("universe must be an integer", err)
		}
		channel, err := strconv.Atoi(args[1])
		if err != nil {
			exitWithError("channel must be an integer", err)
		}
		client, ctx := newClient()
		resp, err := client.Highlight(ctx, universe, channel, highlightTimes)
		checkResponse(resp, err, "highlight")
	},
}

func init() {
	highlightCmd.Flags().IntVar(&highlightTimes, "times", 3, "number of blinks")
	rootCmd.AddCommand(highlightCmd)
}
