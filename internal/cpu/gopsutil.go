package cpu

import (
	"context"

	"codeberg.org/mutker/thermalwatch/internal/errors"
	"github.com/shirou/gopsutil/v3/cpu"
)

// Gopsutil reads aggregate CPU times through gopsutil, for platforms
// without a procfs stat file.
type Gopsutil struct{}

func (Gopsutil) Read(ctx context.Context) (Snapshot, error) {
	errFactory := errors.New()

	times, err := cpu.TimesWithContext(ctx, false)
	if err != nil {
		return Snapshot{}, errFactory.Wrap(ErrCounterRead, err)
	}
	if len(times) == 0 {
		return Snapshot{}, errFactory.WithData(ErrCounterMalformed, "no cpu times reported")
	}

	return FromTimesStat(times[0]), nil
}

// FromTimesStat converts a gopsutil TimesStat into a Snapshot.
func FromTimesStat(t cpu.TimesStat) Snapshot {
	return Snapshot{
		User:      t.User,
		Nice:      t.Nice,
		System:    t.System,
		Idle:      t.Idle,
		Iowait:    t.Iowait,
		Irq:       t.Irq,
		Softirq:   t.Softirq,
		HasIowait: true,
	}
}

// NewSource returns the counter source for a configured name.
func NewSource(name, statPath string) (CounterSource, error) {
	switch name {
	case "", "procfs":
		return ProcStat{Path: statPath}, nil
	case "gopsutil":
		return Gopsutil{}, nil
	default:
		return nil, errors.New().WithData(errors.ErrInvalidArgument, name)
	}
}
