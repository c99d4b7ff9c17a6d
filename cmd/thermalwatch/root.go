package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"codeberg.org/mutker/thermalwatch/internal/config"
	"codeberg.org/mutker/thermalwatch/internal/errors"
	"codeberg.org/mutker/thermalwatch/internal/history"
	"codeberg.org/mutker/thermalwatch/internal/logger"
	"codeberg.org/mutker/thermalwatch/internal/overlay"
	"codeberg.org/mutker/thermalwatch/internal/sampler"
	"codeberg.org/mutker/thermalwatch/internal/thermal"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "thermalwatch",
	Short: "Sample CPU load and device temperatures",
	Long: `thermalwatch samples CPU utilization, CPU/GPU/battery temperatures and the
kernel thermal status once per interval and logs each sample.

Run "thermalwatch overlay enable" to show the floating overlay.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Assigned here rather than in the literal to break the rootCmd
	// initialization cycle (runView -> overlayArgs -> rootCmd).
	rootCmd.RunE = runView
	config.RegisterFlags(rootCmd.PersistentFlags())
}

// Execute runs the root command.
func Execute(version string) {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		var appErr errors.Error
		if errors.As(err, &appErr) {
			logger.ErrorWithCode(appErr).Msg("Command failed")
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func runView(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rt, err := newPipeline(cfg)
	if err != nil {
		return err
	}
	defer rt.Close()
	go rt.notifier.Run(ctx)

	act, err := newActivation(cfg)
	if err != nil {
		return err
	}
	defer act.Close()

	active, err := act.manager.Restore(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to restore overlay activation")
	}
	logger.Info().Bool("overlay_active", active).Msg("Overlay activation restored")

	if err := overlay.WatchStopped(ctx, act.pidFile, func() {
		act.manager.OverlayStopped(ctx)
	}); err != nil {
		logger.Warn().Err(err).Msg("Overlay stop notifications unavailable")
	}

	recorder, err := history.New(historyConfig(cfg, cfg.History))
	if err != nil {
		return err
	}
	defer func() {
		if err := recorder.Close(); err != nil {
			logger.ErrorWithCode(errors.New().Wrap(errors.ErrShutdownFailed, err)).Msg("Failed to close history")
		}
	}()

	sched := sampler.NewScheduler("view", rt.sampler, rt.bridge,
		history.Sink{Recorder: recorder, Next: logSink{}}, cfg.Interval())
	sched.Start(ctx)

	<-ctx.Done()
	logger.Info().Msg("Received termination signal.")
	sched.Stop()

	return nil
}

// logSink is the in-app view: every sample and pushed status is logged.
type logSink struct{}

func (logSink) OnSample(s sampler.ThermalSample) {
	ev := logger.Info().
		Str("cpu", fmt.Sprintf("%.1f%%", s.CPUUsage)).
		Str("cpu_temp", s.CPUTemp.String()).
		Str("gpu_temp", s.GPUTemp.String()).
		Str("battery_temp", s.BatteryTemp.String()).
		Str("thermal_status", s.Status.String())

	if load, ok := s.Headroom.Load(); ok {
		ev = ev.Float64("thermal_load", load)
	}

	ev.Msg("")
}

func (logSink) OnStatus(status thermal.Status) {
	logger.Info().Str("thermal_status", status.String()).Msg("Thermal status changed")
}
