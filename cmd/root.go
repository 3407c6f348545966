// Package cmd implements CLI commands using cobra framework.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	socketPath string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cueloop",
	Short: "cueloop - Art-Net show capture and loop playback daemon",
	Long: `cueloop captures Art-Net DMX traffic from a lighting console, persists it
as named recordings and plays them back in a seamless loop toward the
configured output nodes.

While idle it forwards console traffic straight through; during playback
it owns the outputs exclusively. Recordings survive crashes up to the
last completed write.

Local control runs over a Unix domain socket; see the subcommands.`,
	Version: "0.1.0",
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "/etc/cueloop/config.yaml",
		"config file path")
	rootCmd.PersistentFlags().StringVarP(&socketPath, "socket", "s", "/var/run/cueloop.sock",
		"daemon socket path")
}

// exitWithError prints error message and exits with code 1
func exitWithError(msg string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
	}
	os.Exit(1)
}
