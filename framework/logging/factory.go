package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/jason-edstrom/silver-carnival/framework/opt"
)

// Type names accepted by New.
const (
	TypeConsole = "console"
	TypeText    = "text"
	TypeTxt     = "txt"
	TypeJSON    = "json"
	TypeNone    = "none"
)

// Options selects and configures a logger for New.
type Options struct {
	// Type is one of the Type constants, case-insensitive. Empty means TypeConsole.
	Type string
	// Level defaults to LevelInformation.
	Level opt.Maybe[Level]
	// File is used by the file-based types.
	File FileOptions
	// Console is where TypeConsole writes; nil means standard output.
	Console io.Writer
}

// New creates the logger described by options. TypeNone gives a console logger that is
// permanently suspended.
func New(options Options) (Logger, error) {
	level := options.Level.OrElse(LevelInformation)
	switch strings.ToLower(options.Type) {
	case "", TypeConsole:
		return NewConsoleLogger(level, options.Console), nil
	case TypeText, TypeTxt:
		l, err := NewFileLogger(level, options.File)
		if err != nil {
			return nil, err
		}
		return l, nil
	case TypeJSON:
		l, err := NewJSONLogger(level, options.File)
		if err != nil {
			return nil, err
		}
		return l, nil
	case TypeNone:
		return NewConsoleLogger(LevelSuspended, options.Console), nil
	default:
		return nil, fmt.Errorf("unknown log type %q", options.Type)
	}
}
