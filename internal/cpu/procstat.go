package cpu

import (
	"bufio"
	"context"
	"os"
	"strconv"
	"strings"

	"codeberg.org/mutker/thermalwatch/internal/errors"
)

const DefaultStatPath = "/proc/stat"

// ProcStat reads the aggregate "cpu" line of a procfs stat file.
type ProcStat struct {
	Path string
}

func (p ProcStat) Read(_ context.Context) (Snapshot, error) {
	errFactory := errors.New()

	path := p.Path
	if path == "" {
		path = DefaultStatPath
	}

	f, err := os.Open(path)
	if err != nil {
		return Snapshot{}, errFactory.Wrap(ErrCounterRead, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return Snapshot{}, errFactory.Wrap(ErrCounterRead, err)
		}
		return Snapshot{}, errFactory.WithData(ErrCounterMalformed, "empty file")
	}

	return ParseStatLine(sc.Text())
}

// ParseStatLine parses "cpu user nice system idle [iowait [irq [softirq ...]]]".
// At least the first four counters are required.
func ParseStatLine(line string) (Snapshot, error) {
	errFactory := errors.New()

	fields := strings.Fields(line)
	if len(fields) < 5 || fields[0] != "cpu" {
		return Snapshot{}, errFactory.WithData(ErrCounterMalformed, line)
	}

	values := make([]float64, 0, 7)
	for _, field := range fields[1:] {
		if len(values) == 7 {
			break
		}
		v, err := strconv.ParseUint(field, 10, 64)
		if err != nil {
			return Snapshot{}, errFactory.Wrap(ErrCounterMalformed, err)
		}
		values = append(values, float64(v))
	}

	s := Snapshot{
		User:   values[0],
		Nice:   values[1],
		System: values[2],
		Idle:   values[3],
	}
	if len(values) > 4 {
		s.Iowait = values[4]
		s.HasIowait = true
	}
	if len(values) > 5 {
		s.Irq = values[5]
	}
	if len(values) > 6 {
		s.Softirq = values[6]
	}

	return s, nil
}
