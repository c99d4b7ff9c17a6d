package pid_test

import (
	"context"
	"os"
	"strconv"
	"testing"

	"codeberg.org/mutker/thermalwatch/internal/errors"
	"codeberg.org/mutker/thermalwatch/internal/pid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadRemove(t *testing.T) {
	ctx := context.Background()
	f := pid.New(t.TempDir(), "overlay")

	running, err := f.IsRunning(ctx)
	require.NoError(t, err)
	assert.False(t, running)

	require.NoError(t, f.Write(ctx))

	got, err := f.Read()
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), got)

	running, err = f.IsRunning(ctx)
	require.NoError(t, err)
	assert.True(t, running)

	err = f.Write(ctx)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrAlreadyRunning))

	require.NoError(t, f.Remove())
	require.NoError(t, f.Remove())

	_, err = f.Read()
	assert.True(t, errors.HasCode(err, errors.ErrNotExists))
}

func TestStaleFileIsOverwritten(t *testing.T) {
	ctx := context.Background()
	f := pid.New(t.TempDir(), "overlay")

	// pid_max on Linux is at most 2^22
	require.NoError(t, os.WriteFile(f.Path(), []byte(strconv.Itoa(1<<22+1)), 0o600))

	running, err := f.IsRunning(ctx)
	require.NoError(t, err)
	assert.False(t, running)

	require.NoError(t, f.Write(ctx))
	got, err := f.Read()
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), got)
}

func TestGarbageFileIsNotRunning(t *testing.T) {
	f := pid.New(t.TempDir(), "overlay")
	require.NoError(t, os.WriteFile(f.Path(), []byte("garbage"), 0o600))

	running, err := f.IsRunning(context.Background())
	require.NoError(t, err)
	assert.False(t, running)
}

func TestForeignProcessIsNotRunning(t *testing.T) {
	ctx := context.Background()
	f := pid.New(t.TempDir(), "overlay").Owned("thermalwatch", "overlay", "run")

	// a live process that is not the overlay, as after PID reuse
	require.NoError(t, os.WriteFile(f.Path(), []byte(strconv.Itoa(os.Getpid())), 0o600))

	running, err := f.IsRunning(ctx)
	require.NoError(t, err)
	assert.False(t, running)

	require.NoError(t, f.Write(ctx))
}

func TestOwnedProcessIsRunning(t *testing.T) {
	if len(os.Args) < 2 {
		t.Skip("test binary started without arguments")
	}

	exe, err := os.Executable()
	require.NoError(t, err)

	ctx := context.Background()
	f := pid.New(t.TempDir(), "self").Owned(exe, os.Args[1])
	require.NoError(t, f.Write(ctx))

	running, err := f.IsRunning(ctx)
	require.NoError(t, err)
	assert.True(t, running)

	other := pid.New(f.Dir, "self").Owned(exe, os.Args[1], "--not-an-argument")
	running, err = other.IsRunning(ctx)
	require.NoError(t, err)
	assert.False(t, running)
}
