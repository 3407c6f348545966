package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"cueloop.dev/cueloop/internal/config"
	"cueloop.dev/cueloop/internal/recording"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration or recording files without the daemon",
}

var validateConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Validate the configuration file",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load(configFile)
		if err != nil {
			exitWithError("config is invalid", err)
		}
		fmt.Printf("%s is valid: %d output(s), %d capture universe(s)\n",
			configFile, len(cfg.Outputs), len(cfg.Universes))
	},
}

// recordingReport is the printed result of a recording validation.
type recordingReport struct {
	Path      string `yaml:"path"`
	ID        string `yaml:"id"`
	Universes []int  `yaml:"universes"`
	Packets   int    `yaml:"packets"`
	Dropped   int    `yaml:"dropped"`
	Truncated bool   `yaml:"truncated"`
}

var validateRecordingCmd = &cobra.Command{
	Use:   "recording <file>",
	Short: "Check a recording file and report its contents",
	Long: `Load a recording file the same way playback would and report what was
readable. A truncated tail (daemon crash mid-write) is reported but does
not fail validation; everything up to the last completed write counts.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		rec, report, err := recording.Load(args[0])
		if err != nil {
			exitWithError("recording is not playable", err)
		}
		out, marshalErr := yaml.Marshal(recordingReport{
			Path:      args[0],
			ID:        rec.Meta.ID,
			Universes: rec.Meta.Universes,
			Packets:   report.Packets,
			Dropped:   report.Dropped,
			Truncated: report.Truncated,
		})
		if marshalErr != nil {
			exitWithError("failed to format result", marshalErr)
		}
		os.Stdout.Write(out)
	},
}

func init() {
	validateCmd.AddCommand(validateConfigCmd)
	validateCmd.AddCommand(validateRecordingCmd)
	rootCmd.AddCommand(validateCmd)
}
