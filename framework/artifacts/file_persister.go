// Package artifacts writes files that tests produce, such as screenshots and page sources.
package artifacts

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// FilePersister persists files. It abstracts away where and how files are written.
type FilePersister interface {
	Persist(ctx context.Context, path string, data io.Reader) error
}

// LocalFilePersister persists files to the local disk.
type LocalFilePersister struct{}

// Persist writes the contents of data to path, creating parent directories and replacing any
// existing file.
func (l *LocalFilePersister) Persist(_ context.Context, path string, data io.Reader) (err error) {
	cp := filepath.Clean(path)

	dir := filepath.Dir(cp)
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating a local directory %q: %w", dir, err)
	}

	f, err := os.OpenFile(cp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating a local file %q: %w", cp, err)
	}
	defer func() {
		tempErr := f.Close()
		if tempErr != nil && err == nil {
			err = fmt.Errorf("closing the local file %q: %w", cp, tempErr)
		}
	}()

	_, err = io.Copy(f, data)

	return
}

// ScreenshotDir is where screenshots go unless a caller chooses otherwise.
const ScreenshotDir = "screenshots"

// ScreenshotPath returns dir/name.png, using the current Unix time in milliseconds when name is
// empty.
func ScreenshotPath(dir, name string) string {
	if name == "" {
		name = strconv.FormatInt(time.Now().UnixMilli(), 10)
	}
	if dir == "" {
		dir = ScreenshotDir
	}
	return filepath.Join(dir, name+".png")
}
