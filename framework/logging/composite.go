package logging

import (
	"errors"
	"sync"
)

// CompositeLogger forwards every message to a set of child loggers. Its own level is a
// pre-filter; each child still applies its own threshold.
type CompositeLogger struct {
	base
	lock     sync.Mutex
	children []Logger
}

// NewCompositeLogger creates a CompositeLogger at LevelVerbose, so that by default only the
// children's thresholds matter.
func NewCompositeLogger(children ...Logger) *CompositeLogger {
	l := &CompositeLogger{children: append([]Logger(nil), children...)}
	l.init(LevelVerbose, l)
	return l
}

// AddLogger adds another child.
func (c *CompositeLogger) AddLogger(child Logger) {
	c.lock.Lock()
	c.children = append(c.children, child)
	c.lock.Unlock()
}

func (c *CompositeLogger) snapshot() []Logger {
	c.lock.Lock()
	defer c.lock.Unlock()
	return append([]Logger(nil), c.children...)
}

func (c *CompositeLogger) write(e Entry) {
	for _, child := range c.snapshot() {
		child.LogMessage(e.Level, e.Message)
	}
}

// close closes every child and forgets them; errors from all children are joined.
func (c *CompositeLogger) close() error {
	c.lock.Lock()
	children := c.children
	c.children = nil
	c.lock.Unlock()
	var errs []error
	for _, child := range children {
		errs = append(errs, child.Close())
	}
	return errors.Join(errs...)
}
