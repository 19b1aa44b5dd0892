package logging

import (
	"io"
	"sync"

	"github.com/fatih/color"
)

var levelColors = map[Level]*color.Color{ //nolint:gochecknoglobals
	LevelError:       color.New(color.FgRed),
	LevelWarning:     color.New(color.FgYellow),
	LevelSuccess:     color.New(color.FgGreen),
	LevelInformation: color.New(color.FgBlue),
	LevelVerbose:     color.New(color.FgWhite),
	LevelStep:        color.New(color.FgMagenta),
	LevelAction:      color.New(color.FgHiBlack),
}

// ConsoleLogger writes colored lines to a terminal.
type ConsoleLogger struct {
	base
	out  io.Writer
	lock sync.Mutex
}

// NewConsoleLogger creates a ConsoleLogger that writes to out, or to the colorable standard
// output if out is nil.
func NewConsoleLogger(level Level, out io.Writer) *ConsoleLogger {
	if out == nil {
		out = color.Output
	}
	l := &ConsoleLogger{out: out}
	l.init(level, l)
	return l
}

func (c *ConsoleLogger) write(e Entry) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if col, ok := levelColors[e.Level]; ok {
		_, _ = col.Fprintln(c.out, e.String())
		return
	}
	_, _ = io.WriteString(c.out, e.String()+"\n")
}

func (c *ConsoleLogger) close() error { return nil }
