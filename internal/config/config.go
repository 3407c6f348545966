// Package config handles daemon configuration loading using viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"cueloop.dev/cueloop/internal/log"
)

// Config is the top-level daemon configuration. It maps to the `cueloop:`
// root key in YAML; env vars override via the CUELOOP_ prefix (e.g.
// CUELOOP_PLAYBACK_FPS).
type Config struct {
	// RecordingsDir is where .cuerec files are written and looked up.
	RecordingsDir string `mapstructure:"recordings_dir"`

	// Universes are the logical universes captured while recording.
	Universes []int `mapstructure:"universes"`

	Input    InputConfig    `mapstructure:"input"`
	Outputs  []OutputConfig `mapstructure:"outputs"`
	Playback PlaybackConfig `mapstructure:"playback"`
	Control  ControlConfig  `mapstructure:"control"`
	Bus      BusConfig      `mapstructure:"bus"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`

	// Passthrough is the startup state of live forwarding.
	Passthrough bool `mapstructure:"passthrough"`

	// IdleBlackout is how long the daemon may sit neither recording nor
	// playing before all outputs get zeroed once. 0 disables the watchdog.
	IdleBlackout time.Duration `mapstructure:"idle_blackout"`

	Logger *log.LoggerConfig `mapstructure:"logger"`
}

// InputConfig describes the inbound Art-Net socket.
type InputConfig struct {
	// Bind is the listen address; a multicast group address makes the
	// receiver join it.
	Bind string `mapstructure:"bind"`
	// Interface names the NIC used for the multicast join.
	Interface string `mapstructure:"interface"`
}

// OutputConfig describes one physical output node. Several outputs may carry
// the same universe; playback and passthrough fan out to all of them.
type OutputConfig struct {
	Name      string `mapstructure:"name"`
	Address   string `mapstructure:"address"`
	Universes []int  `mapstructure:"universes"`
}

// PlaybackConfig tunes the playback loop.
type PlaybackConfig struct {
	// FPS is the nominal playback frame rate, bounds 1..100. It sizes the
	// default fade window; frame pacing itself follows the recorded delays.
	FPS int `mapstructure:"fps"`
	// FadeWindow is the loop cross-fade length in frames; 0 means one
	// second of frames at FPS.
	FadeWindow int `mapstructure:"fade_window"`
}

// ControlConfig contains the local control plane settings.
type ControlConfig struct {
	Socket  string `mapstructure:"socket"`
	PIDFile string `mapstructure:"pid_file"`
}

// MetricsConfig controls the Prometheus exporter.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
	Path    string `mapstructure:"path"`
}

// BusConfig tunes the inbound event bus.
type BusConfig struct {
	Partitions int `mapstructure:"partitions"`
	QueueSize  int `mapstructure:"queue_size"`
}

// MinFPS and MaxFPS bound the operator-settable playback rate.
const (
	MinFPS = 1
	MaxFPS = 100
)

type configRoot struct {
	Cueloop Config `mapstructure:"cueloop"`
}

// Load loads configuration from path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Key "cueloop.playback.fps" maps to env "CUELOOP_PLAYBACK_FPS".
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var root configRoot
	if err := v.Unmarshal(&root); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg := root.Cueloop

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("cueloop.recordings_dir", "/var/lib/cueloop")
	v.SetDefault("cueloop.input.bind", ":6454")
	v.SetDefault("cueloop.playback.fps", 40)
	v.SetDefault("cueloop.playback.fade_window", 0)
	v.SetDefault("cueloop.passthrough", true)
	v.SetDefault("cueloop.idle_blackout", "3s")
	v.SetDefault("cueloop.control.socket", "/var/run/cueloop.sock")
	v.SetDefault("cueloop.control.pid_file", "/var/run/cueloop.pid")
	v.SetDefault("cueloop.metrics.enabled", false)
	v.SetDefault("cueloop.metrics.listen", ":9459")
	v.SetDefault("cueloop.metrics.path", "/metrics")
	v.SetDefault("cueloop.bus.partitions", 4)
	v.SetDefault("cueloop.bus.queue_size", 256)
}

// Validate checks ranges and fills derived defaults.
func (c *Config) Validate() error {
	if c.Playback.FPS < MinFPS || c.Playback.FPS > MaxFPS {
		return fmt.Errorf("playback.fps %d outside %d..%d", c.Playback.FPS, MinFPS, MaxFPS)
	}
	if c.Playback.FadeWindow < 0 {
		return fmt.Errorf("playback.fade_window must not be negative")
	}
	if c.Playback.FadeWindow == 0 {
		c.Playback.FadeWindow = c.Playback.FPS
	}
	if len(c.Outputs) == 0 {
		return fmt.Errorf("at least one output is required")
	}
	seen := map[string]struct{}{}
	for i, out := range c.Outputs {
		if out.Name == "" {
			return fmt.Errorf("outputs[%d]: name is required", i)
		}
		if _, dup := seen[out.Name]; dup {
			return fmt.Errorf("outputs[%d]: duplicate name %q", i, out.Name)
		}
		seen[out.Name] = struct{}{}
		if out.Address == "" {
			return fmt.Errorf("output %s: address is required", out.Name)
		}
		if len(out.Universes) == 0 {
			return fmt.Errorf("output %s: at least one universe is required", out.Name)
		}
		for _, u := range out.Universes {
			if u < 0 || u > 255 {
				return fmt.Errorf("output %s: universe %d outside 0..255", out.Name, u)
			}
		}
	}
	for _, u := range c.Universes {
		if u < 0 || u > 255 {
			return fmt.Errorf("universe %d outside 0..255", u)
		}
	}
	return nil
}
