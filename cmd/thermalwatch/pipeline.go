package main

import (
	"os"
	"strconv"

	"codeberg.org/mutker/thermalwatch/internal/activation"
	"codeberg.org/mutker/thermalwatch/internal/config"
	"codeberg.org/mutker/thermalwatch/internal/cpu"
	"codeberg.org/mutker/thermalwatch/internal/errors"
	"codeberg.org/mutker/thermalwatch/internal/history"
	"codeberg.org/mutker/thermalwatch/internal/logger"
	"codeberg.org/mutker/thermalwatch/internal/overlay"
	"codeberg.org/mutker/thermalwatch/internal/pid"
	"codeberg.org/mutker/thermalwatch/internal/sampler"
	"codeberg.org/mutker/thermalwatch/internal/sensor"
	"codeberg.org/mutker/thermalwatch/internal/state"
	"codeberg.org/mutker/thermalwatch/internal/thermal"
	"github.com/spf13/cobra"
)

const overlayName = "overlay"

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, err
	}

	logger.Init(cfg.LogLevel, logger.IsService())
	logger.Debug().Str("command", cmd.Name()).Msg("Config loaded")

	return cfg, nil
}

// pipeline is the sampling pipeline shared by the view and the overlay.
type pipeline struct {
	sampler  *sampler.Sampler
	bridge   *thermal.Bridge
	notifier *thermal.SysfsNotifier
	nvml     *sensor.NVMLSource
}

func newPipeline(cfg *config.Config) (*pipeline, error) {
	counters, err := cpu.NewSource(cfg.CounterSource, cfg.StatPath)
	if err != nil {
		return nil, errors.New().Wrap(errors.ErrInitApp, err)
	}

	rt := &pipeline{}

	cpuSources := sensor.ZoneSources(cfg.CPUZones)
	if cfg.Hwmon {
		cpuSources = append(cpuSources, sensor.HwmonSource{Keys: sensor.DefaultHwmonKeys})
	}

	gpuSources := sensor.ZoneSources(cfg.GPUZones)
	if cfg.NVML {
		rt.nvml = sensor.NewNVMLSource()
		gpuSources = append(gpuSources, rt.nvml)
	}

	probe := sensor.NewProbe(sensor.Config{
		CPU:     cpuSources,
		GPU:     gpuSources,
		Battery: []sensor.Source{sensor.BatterySource(cfg.BatteryPath)},
	})

	rt.notifier = thermal.NewSysfsNotifier(cfg.ThermalRoot, cfg.Interval())
	rt.bridge = thermal.NewBridge(rt.notifier)
	rt.sampler = sampler.New(counters, probe, rt.bridge, cfg.ForecastSeconds)

	logger.Debug().
		Str("counter_source", cfg.CounterSource).
		Int("cpu_candidates", len(cpuSources)).
		Int("gpu_candidates", len(gpuSources)).
		Msg("Sampling pipeline ready")

	return rt, nil
}

func (rt *pipeline) Close() {
	if rt.nvml == nil {
		return
	}
	if err := rt.nvml.Shutdown(); err != nil {
		logger.Warn().Err(err).Msg("Failed to shut down NVML")
	}
}

type activationDeps struct {
	manager *activation.Manager
	store   *state.Store
	pidFile pid.File
}

func newActivation(cfg *config.Config) (*activationDeps, error) {
	store, err := state.Open(cfg.StateDB)
	if err != nil {
		return nil, err
	}

	exe, err := os.Executable()
	if err != nil {
		store.Close()
		return nil, errors.New().Wrap(errors.ErrInitApp, err)
	}

	file := overlayPIDFile(cfg, exe)
	launcher := overlay.ProcessLauncher{
		Executable: exe,
		Args:       overlayArgs(cfg),
		PIDFile:    file,
	}

	return &activationDeps{
		manager: activation.NewManager(store, file, launcher),
		store:   store,
		pidFile: file,
	}, nil
}

// overlayPIDFile only counts a live PID as the overlay when that process
// was started as "<exe> overlay run".
func overlayPIDFile(cfg *config.Config, exe string) pid.File {
	return pid.New(cfg.RunDir, overlayName).Owned(exe, "overlay", "run")
}

func (a *activationDeps) Close() {
	if err := a.store.Close(); err != nil {
		logger.Warn().Err(err).Msg("Failed to close state store")
	}
}

// overlayArgs forwards the effective configuration to the overlay process
// so it samples exactly like its parent.
func overlayArgs(cfg *config.Config) []string {
	args := []string{
		"overlay", "run",
		"--interval", strconv.Itoa(cfg.IntervalMS),
		"--forecast-seconds", strconv.Itoa(cfg.ForecastSeconds),
		"--counter-source", cfg.CounterSource,
		"--run-dir", cfg.RunDir,
		"--state-db", cfg.StateDB,
		"--overlay-x", strconv.Itoa(cfg.OverlayX),
		"--overlay-y", strconv.Itoa(cfg.OverlayY),
		"--log-level", cfg.LogLevel,
		"--nvml=" + strconv.FormatBool(cfg.NVML),
		"--hwmon=" + strconv.FormatBool(cfg.Hwmon),
	}
	if path := rootCmd.PersistentFlags().Lookup("config"); path != nil && path.Changed {
		args = append(args, "--config", path.Value.String())
	}

	return args
}

func historyConfig(cfg *config.Config, enabled bool) history.Config {
	hc := history.DefaultConfig()
	hc.DBPath = cfg.HistoryDB
	hc.Enabled = enabled

	return hc
}
