package overlay

import (
	"context"
	"os"
	"os/exec"
	"syscall"
	"time"

	"codeberg.org/mutker/thermalwatch/internal/errors"
	"codeberg.org/mutker/thermalwatch/internal/logger"
	"codeberg.org/mutker/thermalwatch/internal/pid"
)

const launchWait = 3 * time.Second

// ProcessLauncher runs the overlay as a detached child process.
type ProcessLauncher struct {
	Executable string
	Args       []string
	PIDFile    pid.File
}

// Start spawns the overlay and waits until it has claimed its PID file.
func (l ProcessLauncher) Start(ctx context.Context) error {
	errFactory := errors.New()

	running, err := l.PIDFile.IsRunning(ctx)
	if err != nil {
		return err
	}
	if running {
		return nil
	}

	cmd := exec.Command(l.Executable, l.Args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	cmd.Stdin, cmd.Stdout, cmd.Stderr = nil, nil, nil

	if err := cmd.Start(); err != nil {
		return errFactory.Wrap(ErrLaunch, err)
	}
	child := cmd.Process.Pid

	// reap the child so it does not linger as a zombie if it exits early
	go func() {
		_ = cmd.Wait()
	}()

	deadline := time.NewTimer(launchWait)
	defer deadline.Stop()
	poll := time.NewTicker(50 * time.Millisecond)
	defer poll.Stop()

	for {
		select {
		case <-ctx.Done():
			return errFactory.Wrap(errors.ErrTimeout, ctx.Err())
		case <-deadline.C:
			return errFactory.WithData(ErrLaunch, struct {
				PID  int
				Path string
			}{child, l.PIDFile.Path()})
		case <-poll.C:
			if got, err := l.PIDFile.Read(); err == nil && got == child {
				logger.Debug().Int("pid", child).Msg("Overlay process started")
				return nil
			}
		}
	}
}

// Stop sends SIGTERM to the overlay process if it is running.
func (l ProcessLauncher) Stop(ctx context.Context) error {
	errFactory := errors.New()

	running, err := l.PIDFile.IsRunning(ctx)
	if err != nil {
		return err
	}
	if !running {
		return nil
	}

	p, err := l.PIDFile.Read()
	if err != nil {
		return err
	}

	proc, err := os.FindProcess(p)
	if err != nil {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return errFactory.Wrap(errors.ErrInternal, err)
	}
	logger.Debug().Int("pid", p).Msg("Sent SIGTERM to overlay process")

	return nil
}
