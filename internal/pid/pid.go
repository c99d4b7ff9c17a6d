package pid

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"codeberg.org/mutker/thermalwatch/internal/errors"
	"github.com/shirou/gopsutil/v3/process"
)

const defaultDirPerm = 0o755

// File is a named PID file. Its presence with a live PID means the owning
// process is running; its removal is the process's "stopped" signal.
//
// When Executable or Args are set, the live process must also match them:
// the base name of its argv[0] equals Executable's and Args appear
// contiguously in the rest of its command line. This keeps a reused PID
// from passing for the owner.
type File struct {
	Dir        string
	Name       string
	Executable string
	Args       []string
}

func New(dir, name string) File {
	if dir == "" {
		dir = os.TempDir()
	}

	return File{Dir: dir, Name: name + ".pid"}
}

// Owned returns f restricted to processes started as executable with args.
func (f File) Owned(executable string, args ...string) File {
	f.Executable = executable
	f.Args = args

	return f
}

func (f File) Path() string {
	return filepath.Join(f.Dir, f.Name)
}

// Write records the current process ID. It fails with ErrAlreadyRunning if
// the file names a live process; a stale file is overwritten.
func (f File) Write(ctx context.Context) error {
	errFactory := errors.New()

	running, err := f.IsRunning(ctx)
	if err != nil {
		return err
	}
	if running {
		return errFactory.WithData(errors.ErrAlreadyRunning, f.Path())
	}

	if err := os.MkdirAll(f.Dir, defaultDirPerm); err != nil {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	if err := os.WriteFile(f.Path(), []byte(strconv.Itoa(os.Getpid())), 0o600); err != nil {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	return nil
}

// Read returns the recorded PID, or ErrNotExists if there is no file.
func (f File) Read() (int, error) {
	errFactory := errors.New()

	data, err := os.ReadFile(f.Path())
	if os.IsNotExist(err) {
		return 0, errFactory.WithData(errors.ErrNotExists, f.Path())
	}
	if err != nil {
		return 0, errFactory.Wrap(errors.ErrInternal, err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, errFactory.Wrap(errors.ErrInternal, err)
	}

	return pid, nil
}

// IsRunning reports whether the recorded process is alive. A missing or
// unparsable file counts as not running.
func (f File) IsRunning(ctx context.Context) (bool, error) {
	pid, err := f.Read()
	if err != nil || pid <= 0 {
		return false, nil
	}

	exists, err := process.PidExistsWithContext(ctx, int32(pid))
	if err != nil {
		return false, errors.New().Wrap(errors.ErrInternal, err)
	}
	if !exists || (f.Executable == "" && len(f.Args) == 0) {
		return exists, nil
	}

	// a process that exits or hides its command line is not ours
	proc, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return false, nil
	}
	cmdline, err := proc.CmdlineSliceWithContext(ctx)
	if err != nil {
		return false, nil
	}

	return f.matches(cmdline), nil
}

func (f File) matches(cmdline []string) bool {
	if len(cmdline) == 0 {
		return false
	}
	if f.Executable != "" && filepath.Base(cmdline[0]) != filepath.Base(f.Executable) {
		return false
	}

	rest := cmdline[1:]
	if len(f.Args) == 0 {
		return true
	}
	for i := 0; i+len(f.Args) <= len(rest); i++ {
		if slices.Equal(rest[i:i+len(f.Args)], f.Args) {
			return true
		}
	}

	return false
}

// Remove removes the PID file.
func (f File) Remove() error {
	if _, err := os.Stat(f.Path()); os.IsNotExist(err) {
		return nil
	}

	if err := os.Remove(f.Path()); err != nil {
		return errors.New().Wrap(errors.ErrInternal, err)
	}

	return nil
}
