package logging

import (
	"fmt"
	"strings"
	"sync"
)

// CapturedOutput is the sequence of messages recorded by a CapturingLogger.
type CapturedOutput []Entry

// CapturingLogger records output in memory. The test runner gives each test scope one of
// these; see runner.(*T).DebugLogger() for the rules of logging in parent/child scopes.
type CapturingLogger struct {
	base
	lock     sync.Mutex
	output   []Entry
	children []*CapturingLogger
}

// NewCapturingLogger creates a CapturingLogger at LevelVerbose.
func NewCapturingLogger() *CapturingLogger {
	l := &CapturingLogger{}
	l.init(LevelVerbose, l)
	return l
}

func (l *CapturingLogger) write(e Entry) {
	var children []*CapturingLogger
	l.lock.Lock()
	if len(l.children) == 0 {
		l.output = append(l.output, e)
	} else {
		children = append([]*CapturingLogger(nil), l.children...)
	}
	l.lock.Unlock()
	for _, c := range children {
		c.write(e)
	}
}

func (l *CapturingLogger) close() error { return nil }

// Output returns a copy of everything captured so far.
func (l *CapturingLogger) Output() CapturedOutput {
	l.lock.Lock()
	defer l.lock.Unlock()
	return append(CapturedOutput(nil), l.output...)
}

// AddChildLogger redirects further output to child, after copying what was already captured
// here into the start of the child's output.
func (l *CapturingLogger) AddChildLogger(child *CapturingLogger) {
	l.lock.Lock()
	l.children = append(l.children, child)
	output := append([]Entry(nil), l.output...)
	l.lock.Unlock()
	child.lock.Lock()
	child.output = append(output, child.output...)
	child.lock.Unlock()
}

func (l *CapturingLogger) RemoveChildLogger(child *CapturingLogger) {
	l.lock.Lock()
	defer l.lock.Unlock()
	for i, c := range l.children {
		if c == child {
			l.children = append(l.children[0:i], l.children[i+1:]...)
			break
		}
	}
}

// ToString renders the output one message per line, each line starting with prefix.
func (output CapturedOutput) ToString(prefix string) string {
	lines := make([]string, 0, len(output))
	for _, e := range output {
		lines = append(lines, fmt.Sprintf("%s[%s] %s: %s", prefix, e.Time.Format(timestampFormat), e.Level, e.Message))
	}
	return strings.Join(lines, "\n")
}

// Messages returns just the message text of each entry.
func (output CapturedOutput) Messages() []string {
	ret := make([]string, 0, len(output))
	for _, e := range output {
		ret = append(ret, e.Message)
	}
	return ret
}
