package overlay

import (
	"bufio"
	"context"
	"io"
	"strconv"
	"strings"

	"codeberg.org/mutker/thermalwatch/internal/errors"
	"codeberg.org/mutker/thermalwatch/internal/logger"
)

var actionNames = map[string]Action{
	"down":   ActionDown,
	"move":   ActionMove,
	"up":     ActionUp,
	"cancel": ActionCancel,
	"close":  ActionClose,
}

// ParseEvent parses one scripted event: "down X Y", "move X Y", "up X Y",
// "cancel" or "close". Coordinates are optional for up.
func ParseEvent(line string) (Event, error) {
	errFactory := errors.New()

	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Event{}, errFactory.WithMessage(ErrInvalidEvent, "empty event")
	}

	action, ok := actionNames[strings.ToLower(fields[0])]
	if !ok {
		return Event{}, errFactory.WithData(ErrInvalidEvent, line)
	}

	ev := Event{Action: action}
	switch {
	case len(fields) == 3:
		x, errX := strconv.ParseFloat(fields[1], 64)
		y, errY := strconv.ParseFloat(fields[2], 64)
		if errX != nil || errY != nil {
			return Event{}, errFactory.WithData(ErrInvalidEvent, line)
		}
		ev.X, ev.Y = x, y
	case len(fields) == 1 && action != ActionDown && action != ActionMove:
	default:
		return Event{}, errFactory.WithData(ErrInvalidEvent, line)
	}

	return ev, nil
}

// FeedEvents reads scripted events from r, one per line, and passes them to
// inject until r is exhausted or ctx is done. Blank lines and lines starting
// with '#' are ignored; malformed lines are logged and skipped.
func FeedEvents(ctx context.Context, r io.Reader, inject func(Event)) error {
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		ev, err := ParseEvent(line)
		if err != nil {
			logger.Warn().Err(err).Msg("Ignoring overlay event")
			continue
		}
		inject(ev)
	}

	if err := scanner.Err(); err != nil {
		return errors.New().Wrap(ErrInvalidEvent, err)
	}

	return nil
}
