package testobject

import (
	"github.com/jason-edstrom/silver-carnival/config"
	"github.com/jason-edstrom/silver-carnival/framework/logging"
	"github.com/jason-edstrom/silver-carnival/framework/opt"
)

// Config keys read by NewLogger from the GlobalMaqs section.
const (
	LogTypeKey   = "LogType"
	LogLevelKey  = "LogLevel"
	LogFolderKey = "LogFolder"
	LogAppendKey = "LogAppend"
)

// NewLogger creates the logger for one test from configuration. File-based loggers are named
// after the test. An unrecognized LogLevel falls back to Information.
func NewLogger(cfg *config.Config, testName string) (logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.Value(LogLevelKey, "Information"))
	if err != nil {
		level = logging.LevelInformation
	}
	return logging.New(logging.Options{
		Type:  cfg.Value(LogTypeKey, logging.TypeConsole),
		Level: opt.Some(level),
		File: logging.FileOptions{
			Folder: cfg.Value(LogFolderKey, ""),
			Name:   testName,
			Append: cfg.Bool(config.GlobalSection, LogAppendKey, false),
		},
	})
}
