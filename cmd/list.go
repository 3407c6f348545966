package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the recordings available for playback",
	Run: func(cmd *cobra.Command, args []string) {
		client, ctx := newClient()
		result, err := client.List(ctx)
		if err != nil {
			exitWithError("failed to list recordings", err)
		}
		if len(result.Recordings) == 0 {
			fmt.Println("no recordings")
			return
		}
		out, err := yaml.Marshal(result.Recordings)
		if err != nil {
			exitWithError("failed to format result", err)
		}
		os.Stdout.Write(out)
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
