package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"codeberg.org/mutker/thermalwatch/internal/logger"
	"codeberg.org/mutker/thermalwatch/internal/overlay"
	"github.com/spf13/cobra"
)

func init() {
	overlayCmd.AddCommand(overlayRunCmd, overlayEnableCmd, overlayDisableCmd, overlayToggleCmd, overlayStatusCmd)
	rootCmd.AddCommand(overlayCmd)
}

var overlayCmd = &cobra.Command{
	Use:   "overlay",
	Short: "Control the floating overlay",
}

var overlayRunCmd = &cobra.Command{
	Use:    "run",
	Short:  "Run the overlay in the foreground",
	Hidden: true,
	Args:   cobra.NoArgs,
	RunE:   runOverlay,
}

var overlayEnableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Start the overlay and remember it as active",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withActivation(cmd, func(ctx context.Context, a *activationDeps) error {
			if a.manager.Active() {
				fmt.Println("Overlay already active")
				return nil
			}
			if err := a.manager.Enable(ctx); err != nil {
				return err
			}
			fmt.Println("Overlay enabled")
			return nil
		})
	},
}

var overlayDisableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Stop the overlay and remember it as inactive",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withActivation(cmd, func(ctx context.Context, a *activationDeps) error {
			if err := a.manager.Disable(ctx); err != nil {
				return err
			}
			fmt.Println("Overlay disabled")
			return nil
		})
	},
}

var overlayToggleCmd = &cobra.Command{
	Use:   "toggle",
	Short: "Flip the overlay between enabled and disabled",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withActivation(cmd, func(ctx context.Context, a *activationDeps) error {
			on, err := a.manager.Toggle(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Overlay %s\n", onOff(on))
			return nil
		})
	},
}

var overlayStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the overlay is active",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withActivation(cmd, func(_ context.Context, a *activationDeps) error {
			if !a.manager.Active() {
				fmt.Println("Overlay disabled")
				return nil
			}
			p, err := a.pidFile.Read()
			if err != nil {
				return err
			}
			fmt.Printf("Overlay enabled (pid %d)\n", p)
			return nil
		})
	},
}

// withActivation loads config, restores the reconciled activation state
// and runs fn with it.
func withActivation(cmd *cobra.Command, fn func(context.Context, *activationDeps) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	act, err := newActivation(cfg)
	if err != nil {
		return err
	}
	defer act.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if _, err := act.manager.Restore(ctx); err != nil {
		return err
	}

	return fn(ctx, act)
}

func runOverlay(cmd *cobra.Command, _ []string) error {
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

	// an unresolvable executable still leaves the "overlay run" check
	exe, err := os.Executable()
	if err != nil {
		exe = ""
	}

	comp := overlay.NewLogCompositor()
	svc := overlay.NewService(overlay.Config{
		X:        cfg.OverlayX,
		Y:        cfg.OverlayY,
		Interval: cfg.Interval(),
		PIDFile:  overlayPIDFile(cfg, exe),
	}, comp, rt.sampler, rt.bridge)

	if err := svc.Start(ctx); err != nil {
		return err
	}

	// pointer events are scripted on stdin; a detached overlay sees EOF
	go func() {
		if err := overlay.FeedEvents(ctx, os.Stdin, comp.Inject); err != nil {
			logger.Warn().Err(err).Msg("Overlay event input failed")
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("Received termination signal.")
	case <-svc.Done():
	}

	return svc.Stop()
}

func onOff(on bool) string {
	if on {
		return "enabled"
	}

	return "disabled"
}
