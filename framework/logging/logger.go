package logging

import (
	"fmt"
	"sync"
	"time"
)

const timestampFormat = "2006-01-02 15:04:05.000"

// Logger is a leveled log sink shared by everything that runs inside one test: the soft
// assert collector, resource managers, and the test code itself.
type Logger interface {
	// LogMessage writes a message at the given level if the current threshold allows it. If
	// args are given, message is treated as a fmt format string.
	LogMessage(level Level, message string, args ...interface{})
	Error(message string, args ...interface{})
	Warning(message string, args ...interface{})
	Success(message string, args ...interface{})
	Step(message string, args ...interface{})
	Action(message string, args ...interface{})
	Info(message string, args ...interface{})
	Verbose(message string, args ...interface{})
	// Printf writes a message at LevelGeneric.
	Printf(message string, args ...interface{})

	Level() Level
	SetLevel(level Level)
	// Suspend stops all output until Continue is called.
	Suspend()
	Continue()

	// Close releases whatever the logger writes to. It is safe to call more than once.
	Close() error
}

// Entry is a single message that passed the level filter.
type Entry struct {
	Time    time.Time
	Level   Level
	Message string
}

// String formats the entry the way every text-based logger writes it, for instance
// "2024-01-02 15:04:05.000 INFORMATION: message".
func (e Entry) String() string {
	return fmt.Sprintf("%s %s: %s", e.Time.Format(timestampFormat), e.Level, e.Message)
}

type sink interface {
	write(e Entry)
	close() error
}

// base implements the level filtering and suspend/continue state for all loggers; each
// concrete logger only supplies a sink.
type base struct {
	lock       sync.Mutex
	level      Level
	savedLevel *Level
	sink       sink
}

func (b *base) init(level Level, s sink) {
	b.level = level
	b.sink = s
}

func (b *base) LogMessage(level Level, message string, args ...interface{}) {
	if !b.shouldLog(level) {
		return
	}
	if len(args) > 0 {
		message = fmt.Sprintf(message, args...)
	}
	b.sink.write(Entry{Time: time.Now(), Level: level, Message: message})
}

func (b *base) shouldLog(level Level) bool {
	b.lock.Lock()
	threshold := b.level
	b.lock.Unlock()
	return threshold != LevelSuspended && level != LevelSuspended && level <= threshold
}

func (b *base) Error(message string, args ...interface{}) {
	b.LogMessage(LevelError, message, args...)
}

func (b *base) Warning(message string, args ...interface{}) {
	b.LogMessage(LevelWarning, message, args...)
}

func (b *base) Success(message string, args ...interface{}) {
	b.LogMessage(LevelSuccess, message, args...)
}

func (b *base) Step(message string, args ...interface{}) {
	b.LogMessage(LevelStep, message, args...)
}

func (b *base) Action(message string, args ...interface{}) {
	b.LogMessage(LevelAction, message, args...)
}

func (b *base) Info(message string, args ...interface{}) {
	b.LogMessage(LevelInformation, message, args...)
}

func (b *base) Verbose(message string, args ...interface{}) {
	b.LogMessage(LevelVerbose, message, args...)
}

func (b *base) Printf(message string, args ...interface{}) {
	b.LogMessage(LevelGeneric, message, args...)
}

func (b *base) Level() Level {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.level
}

func (b *base) SetLevel(level Level) {
	b.lock.Lock()
	b.level = level
	b.lock.Unlock()
}

func (b *base) Suspend() {
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.savedLevel == nil {
		saved := b.level
		b.savedLevel = &saved
	}
	b.level = LevelSuspended
}

func (b *base) Continue() {
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.savedLevel != nil {
		b.level = *b.savedLevel
		b.savedLevel = nil
	}
}

func (b *base) Close() error {
	return b.sink.close()
}

type nullSink struct{}

func (nullSink) write(Entry)  {}
func (nullSink) close() error { return nil }

type nullLogger struct {
	base
}

// NullLogger returns a Logger that discards everything.
func NullLogger() Logger {
	l := &nullLogger{}
	l.init(LevelSuspended, nullSink{})
	return l
}
