package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"codeberg.org/mutker/thermalwatch/internal/errors"
	"codeberg.org/mutker/thermalwatch/internal/sensor"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	EnvPrefix     = "THERMALWATCH"
	EnvConfigFile = EnvPrefix + "_CONFIG"

	DefaultIntervalMS      = 1000
	DefaultForecastSeconds = 10
	DefaultCounterSource   = "procfs"
	DefaultStatPath        = "/proc/stat"
	DefaultOverlayX        = 100
	DefaultOverlayY        = 100
	DefaultLogLevel        = "warning"

	// the OS forecast API only looks a minute ahead
	maxForecastSeconds = 60
)

type Config struct {
	IntervalMS      int      `mapstructure:"interval"`
	ForecastSeconds int      `mapstructure:"forecast_seconds"`
	ThermalRoot     string   `mapstructure:"thermal_root"`
	CPUZones        []string `mapstructure:"cpu_zones"`
	GPUZones        []string `mapstructure:"gpu_zones"`
	BatteryPath     string   `mapstructure:"battery_path"`
	CounterSource   string   `mapstructure:"counter_source"`
	StatPath        string   `mapstructure:"stat_path"`
	NVML            bool     `mapstructure:"nvml"`
	Hwmon           bool     `mapstructure:"hwmon"`
	StateDB         string   `mapstructure:"state_db"`
	History         bool     `mapstructure:"history"`
	HistoryDB       string   `mapstructure:"history_db"`
	RunDir          string   `mapstructure:"run_dir"`
	OverlayX        int      `mapstructure:"overlay_x"`
	OverlayY        int      `mapstructure:"overlay_y"`
	LogLevel        string   `mapstructure:"log_level"`
}

// Interval is the sampling period.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.IntervalMS) * time.Millisecond
}

// RegisterFlags adds the configuration flags to fs. Flag names use dashes
// where the config keys use underscores.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Path to a TOML config file")
	fs.Int("interval", DefaultIntervalMS, "Sampling interval in milliseconds")
	fs.Int("forecast-seconds", DefaultForecastSeconds, "Thermal headroom forecast horizon in seconds")
	fs.String("counter-source", DefaultCounterSource, "CPU counter source: procfs or gopsutil")
	fs.Bool("nvml", false, "Probe NVIDIA GPUs through NVML after the thermal zones")
	fs.Bool("hwmon", false, "Probe hwmon CPU sensors after the thermal zones")
	fs.Bool("history", false, "Record samples to the history database")
	fs.String("history-db", "", "Path to the history database")
	fs.String("state-db", "", "Path to the state database")
	fs.String("run-dir", "", "Directory for PID files")
	fs.Int("overlay-x", DefaultOverlayX, "Initial overlay X position")
	fs.Int("overlay-y", DefaultOverlayY, "Initial overlay Y position")
	fs.String("log-level", DefaultLogLevel, "Log level (debug, info, warning, error)")
}

// Load reads the configuration. Precedence is flags, then environment,
// then config file, then defaults. fs may be nil.
func Load(fs *pflag.FlagSet) (*Config, error) {
	errFactory := errors.New()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := readConfigFile(v, fs); err != nil {
		return nil, err
	}

	if fs != nil {
		var bindErr error
		fs.VisitAll(func(f *pflag.Flag) {
			if f.Name == "config" || bindErr != nil {
				return
			}
			bindErr = v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f)
		})
		if bindErr != nil {
			return nil, errFactory.Wrap(errors.ErrBindFlags, bindErr)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	cfg.applyDerivedDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func readConfigFile(v *viper.Viper, fs *pflag.FlagSet) error {
	errFactory := errors.New()

	path := os.Getenv(EnvConfigFile)
	if fs != nil {
		if f := fs.Lookup("config"); f != nil && f.Changed {
			path = f.Value.String()
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
	} else {
		v.SetConfigName("thermalwatch")
		v.SetConfigType("toml")
		v.AddConfigPath("/etc")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "thermalwatch"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			return nil
		}
		return errFactory.Wrap(errors.ErrReadConfig, err)
	}

	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("interval", DefaultIntervalMS)
	v.SetDefault("forecast_seconds", DefaultForecastSeconds)
	v.SetDefault("thermal_root", sensor.DefaultThermalRoot)
	v.SetDefault("cpu_zones", []string{})
	v.SetDefault("gpu_zones", []string{})
	v.SetDefault("battery_path", sensor.DefaultBatteryPath)
	v.SetDefault("counter_source", DefaultCounterSource)
	v.SetDefault("stat_path", DefaultStatPath)
	v.SetDefault("nvml", false)
	v.SetDefault("hwmon", false)
	v.SetDefault("state_db", "")
	v.SetDefault("history", false)
	v.SetDefault("history_db", "")
	v.SetDefault("run_dir", "")
	v.SetDefault("overlay_x", DefaultOverlayX)
	v.SetDefault("overlay_y", DefaultOverlayY)
	v.SetDefault("log_level", DefaultLogLevel)
}

// applyDerivedDefaults fills values that depend on other keys.
func (c *Config) applyDerivedDefaults() {
	if len(c.CPUZones) == 0 {
		c.CPUZones = zones(c.ThermalRoot, 0, 1, 2)
	}
	if len(c.GPUZones) == 0 {
		c.GPUZones = zones(c.ThermalRoot, 3, 4, 5)
	}

	stateDir := defaultStateDir()
	if c.StateDB == "" {
		c.StateDB = filepath.Join(stateDir, "state.db")
	}
	if c.HistoryDB == "" {
		c.HistoryDB = filepath.Join(stateDir, "history.db")
	}
	if c.RunDir == "" {
		c.RunDir = defaultRunDir()
	}
}

func (c *Config) Validate() error {
	errFactory := errors.New()

	if c.IntervalMS <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.IntervalMS)
	}

	if c.ForecastSeconds <= 0 || c.ForecastSeconds > maxForecastSeconds {
		return errFactory.WithData(errors.ErrInvalidConfig,
			fmt.Sprintf("forecast_seconds must be in 1..%d, got %d", maxForecastSeconds, c.ForecastSeconds))
	}

	if len(c.CPUZones) == 0 || len(c.GPUZones) == 0 {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "thermal zone lists must not be empty")
	}

	switch c.CounterSource {
	case "procfs", "gopsutil":
	default:
		return errFactory.WithData(errors.ErrInvalidConfig,
			fmt.Sprintf("unknown counter_source %q", c.CounterSource))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}

	return nil
}

func zones(root string, ids ...int) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, sensor.ZonePath(root, id))
	}

	return out
}

func defaultStateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "thermalwatch")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "state", "thermalwatch")
	}

	return filepath.Join(os.TempDir(), "thermalwatch")
}

func defaultRunDir() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "thermalwatch")
	}

	return filepath.Join(os.TempDir(), fmt.Sprintf("thermalwatch-%d", os.Getuid()))
}
