package sensor

import (
	"context"
	"os"
	"strconv"
	"strings"

	"codeberg.org/mutker/thermalwatch/internal/errors"
)

const (
	MilliDegrees = 1000
	DeciDegrees  = 10
)

// Source yields a temperature in Celsius or an error when unavailable.
type Source interface {
	Name() string
	Read(ctx context.Context) (float64, error)
}

// FileSource reads a sysfs-style integer and scales it by Divisor.
type FileSource struct {
	Path    string
	Divisor float64
}

func (f FileSource) Name() string {
	return f.Path
}

func (f FileSource) Read(_ context.Context) (float64, error) {
	errFactory := errors.New()

	data, err := os.ReadFile(f.Path)
	if err != nil {
		return 0, errFactory.Wrap(ErrSourceRead, err)
	}

	line, _, _ := strings.Cut(string(data), "\n")
	line = strings.TrimSpace(line)
	if line == "" {
		return 0, errFactory.WithData(ErrSourceParse, f.Path)
	}

	raw, err := strconv.ParseFloat(line, 64)
	if err != nil {
		return 0, errFactory.Wrap(ErrSourceParse, err)
	}

	divisor := f.Divisor
	if divisor == 0 {
		divisor = 1
	}

	return raw / divisor, nil
}

// ZoneSources builds milli-degree sources for the given paths.
func ZoneSources(paths []string) []Source {
	sources := make([]Source, 0, len(paths))
	for _, p := range paths {
		sources = append(sources, FileSource{Path: p, Divisor: MilliDegrees})
	}

	return sources
}
