package devtools

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/jason-edstrom/silver-carnival/framework/logging"
	"github.com/pkg/errors"
)

// executableNames are tried in order when no ExecPath is configured.
var executableNames = []string{ //nolint:gochecknoglobals
	"chromium",
	"chromium-browser",
	"google-chrome",
	"google-chrome-stable",
	"chrome",
}

func findExecutable(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	for _, name := range executableNames {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", errors.Errorf("no browser executable found on PATH (tried %s)", strings.Join(executableNames, ", "))
}

// process is a locally launched browser and the user data directory created for it.
type process struct {
	cmd         *exec.Cmd
	userDataDir string
	wsURL       string
	done        chan struct{}
	log         logging.Logger
}

func startProcess(ctx context.Context, c Config, log logging.Logger) (*process, error) {
	path, err := findExecutable(c.ExecPath)
	if err != nil {
		return nil, err
	}
	dir, err := os.MkdirTemp("", "maqs-devtools-*")
	if err != nil {
		return nil, errors.Wrap(err, "creating user data directory")
	}

	args := append(c.launchArgs(), "--user-data-dir="+dir)
	cmd := exec.Command(path, args...) //nolint:gosec
	if err := cmd.Start(); err != nil {
		_ = os.RemoveAll(dir)
		if os.IsNotExist(err) {
			return nil, errors.Errorf("file does not exist: %s", path)
		}
		return nil, errors.Wrapf(err, "starting %s", path)
	}
	p := &process{cmd: cmd, userDataDir: dir, done: make(chan struct{}), log: log}
	go func() {
		if err := cmd.Wait(); err != nil {
			log.Verbose("Browser process %d ended: %s", cmd.Process.Pid, err)
		}
		close(p.done)
	}()
	log.Verbose("Started %s (pid %d)", path, cmd.Process.Pid)

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	p.wsURL, err = devToolsURL(ctx, dir, timeout, p.done)
	if err != nil {
		p.stop()
		return nil, errors.Wrap(err, "getting DevTools URL")
	}
	return p, nil
}

// stop kills the browser if it is still running and removes its user data directory.
func (p *process) stop() {
	if p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
	select {
	case <-p.done:
	case <-time.After(5 * time.Second):
		p.log.Warning("Browser process %d did not exit after kill", p.cmd.Process.Pid)
	}
	if err := os.RemoveAll(p.userDataDir); err != nil {
		p.log.Warning("Cleaning up the user data directory: %s", err)
	}
}

// devToolsURL waits for the browser to write the DevToolsActivePort file into dataDir and
// returns the browser's WebSocket address from it. The file holds the port on its first
// line and the browser target path on the second.
func devToolsURL(ctx context.Context, dataDir string, timeout time.Duration, exited <-chan struct{}) (string, error) {
	fpath := filepath.Join(dataDir, "DevToolsActivePort")
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		lines, err := readLines(fpath)
		if err == nil && len(lines) >= 2 {
			return fmt.Sprintf("ws://127.0.0.1:%s%s", lines[0], lines[1]), nil
		}
		if err != nil && !os.IsNotExist(err) {
			return "", errors.Wrapf(err, "reading %q", fpath)
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-exited:
			return "", errors.New("browser exited before it was ready")
		case <-deadline.C:
			return "", errors.Errorf("unable to read file %q in %s", fpath, timeout)
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck
	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}
