package logging

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// JSONLogger writes one JSON object per message, for log collectors that index structured
// output.
type JSONLogger struct {
	base
	file      *os.File
	log       *zap.Logger
	closeOnce sync.Once
	closeErr  error
}

// NewJSONLogger opens the log file described by options, using a ".jsonl" extension.
func NewJSONLogger(level Level, options FileOptions) (*JSONLogger, error) {
	f, err := options.open(".jsonl")
	if err != nil {
		return nil, err
	}
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(f), zapcore.DebugLevel)

	l := &JSONLogger{file: f, log: zap.New(core)}
	l.init(level, l)
	return l, nil
}

// FilePath returns the full path of the log file.
func (j *JSONLogger) FilePath() string { return j.file.Name() }

func (j *JSONLogger) write(e Entry) {
	j.log.Log(zapLevel(e.Level), e.Message, zap.String("maqsLevel", e.Level.String()))
}

func (j *JSONLogger) close() error {
	j.closeOnce.Do(func() {
		_ = j.log.Sync()
		j.closeErr = j.file.Close()
	})
	return j.closeErr
}

func zapLevel(level Level) zapcore.Level {
	switch level {
	case LevelError:
		return zapcore.ErrorLevel
	case LevelWarning:
		return zapcore.WarnLevel
	case LevelVerbose:
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}
