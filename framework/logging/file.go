package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"github.com/sirupsen/logrus"
)

const (
	defaultLogFolder = "logs"
	defaultLogName   = "maqs"
	levelField       = "maqsLevel"
)

var unsafeFileNameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)

// FileOptions controls where a file-based logger writes.
type FileOptions struct {
	// Folder defaults to "logs" under the working directory.
	Folder string
	// Name defaults to "maqs". The logger's extension is appended if missing, and characters
	// that are not valid in file names are replaced with "~".
	Name string
	// Append keeps existing content; otherwise the file is truncated when the logger opens it.
	Append bool
}

func (o FileOptions) path(extension string) (string, error) {
	folder := o.Folder
	if folder == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		folder = filepath.Join(wd, defaultLogFolder)
	}
	name := o.Name
	if name == "" {
		name = defaultLogName
	}
	if !strings.HasSuffix(name, extension) {
		name += extension
	}
	return filepath.Join(folder, SanitizeFileName(name)), nil
}

func (o FileOptions) open(extension string) (*os.File, error) {
	path, err := o.path(extension)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating log folder: %w", err)
	}
	flags := os.O_CREATE | os.O_WRONLY | os.O_APPEND
	if !o.Append {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0o644) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	return f, nil
}

// SanitizeFileName replaces characters that are not allowed in file names with "~".
func SanitizeFileName(name string) string {
	return unsafeFileNameChars.ReplaceAllString(name, "~")
}

// lockedWriter serializes writes to a log file across processes, and reports failed writes
// to a fallback logger instead of the caller.
type lockedWriter struct {
	file     *os.File
	lock     *flock.Flock
	fallback Logger
}

func (w *lockedWriter) Write(p []byte) (int, error) {
	if err := w.lock.Lock(); err != nil {
		w.fallback.Error("FileLogger failed to lock %s: %s", w.lock.Path(), err)
		return len(p), nil
	}
	defer func() { _ = w.lock.Unlock() }()
	if _, err := w.file.Write(p); err != nil {
		w.fallback.Error("FileLogger failed to write to %s: %s", w.file.Name(), err)
	}
	return len(p), nil
}

type lineFormatter struct{}

func (lineFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	level, _ := entry.Data[levelField].(Level)
	return []byte(Entry{Time: entry.Time, Level: level, Message: entry.Message}.String() + "\n"), nil
}

// FileLogger writes plain text lines to a log file. Writes are guarded by a lock file next to
// the log, so several test processes may append to the same file.
type FileLogger struct {
	base
	filePath  string
	writer    *lockedWriter
	log       *logrus.Logger
	closeOnce sync.Once
	closeErr  error
}

// NewFileLogger opens (and by default truncates) the log file described by options. If a
// write later fails, the message is reported on the console instead.
func NewFileLogger(level Level, options FileOptions) (*FileLogger, error) {
	f, err := options.open(".log")
	if err != nil {
		return nil, err
	}
	writer := &lockedWriter{
		file:     f,
		lock:     flock.New(f.Name() + ".lock"),
		fallback: NewConsoleLogger(LevelError, nil),
	}
	log := logrus.New()
	log.SetOutput(writer)
	log.SetFormatter(lineFormatter{})
	log.SetLevel(logrus.TraceLevel)

	l := &FileLogger{filePath: f.Name(), writer: writer, log: log}
	l.init(level, l)
	return l, nil
}

// FilePath returns the full path of the log file.
func (f *FileLogger) FilePath() string { return f.filePath }

func (f *FileLogger) write(e Entry) {
	entry := logrus.NewEntry(f.log).WithField(levelField, e.Level).WithTime(e.Time)
	entry.Log(logrusLevel(e.Level), e.Message)
}

func (f *FileLogger) close() error {
	f.closeOnce.Do(func() {
		f.closeErr = f.writer.file.Close()
	})
	return f.closeErr
}

func logrusLevel(level Level) logrus.Level {
	switch level {
	case LevelError:
		return logrus.ErrorLevel
	case LevelWarning:
		return logrus.WarnLevel
	case LevelVerbose:
		return logrus.DebugLevel
	default:
		return logrus.InfoLevel
	}
}
