package logging

import (
	"fmt"
	"strings"
)

// Level is a logging threshold and also the severity of a single message. Lower values are
// more important; a message is written when its level is less than or equal to the logger's
// current level.
type Level int

const (
	LevelSuspended   Level = -1
	LevelError       Level = 0
	LevelWarning     Level = 1
	LevelSuccess     Level = 2
	LevelGeneric     Level = 3
	LevelStep        Level = 4
	LevelAction      Level = 5
	LevelInformation Level = 6
	LevelVerbose     Level = 7
)

var levelNames = map[Level]string{ //nolint:gochecknoglobals
	LevelSuspended:   "SUSPENDED",
	LevelError:       "ERROR",
	LevelWarning:     "WARNING",
	LevelSuccess:     "SUCCESS",
	LevelGeneric:     "GENERIC",
	LevelStep:        "STEP",
	LevelAction:      "ACTION",
	LevelInformation: "INFORMATION",
	LevelVerbose:     "VERBOSE",
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("LEVEL(%d)", int(l))
}

// ParseLevel converts a level name such as "Information" or "verbose" to a Level. "Info" is
// accepted as a synonym for Information.
func ParseLevel(s string) (Level, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	if name == "INFO" {
		return LevelInformation, nil
	}
	for level, levelName := range levelNames {
		if levelName == name {
			return level, nil
		}
	}
	return LevelInformation, fmt.Errorf("unknown log level %q", s)
}
