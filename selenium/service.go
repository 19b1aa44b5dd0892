package selenium

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/jason-edstrom/silver-carnival/framework/logging"
)

// Service is a local driver executable, such as chromedriver, serving WebDriver on a port of
// the loopback interface.
type Service struct {
	cmd      *exec.Cmd
	url      string
	done     chan struct{}
	waitErr  error
	stopOnce sync.Once
	log      logging.Logger
}

// StartService launches the driver for c and waits until it is ready for sessions.
func StartService(ctx context.Context, c Config, log logging.Logger) (*Service, error) {
	if log == nil {
		log = logging.NullLogger()
	}
	path := c.DriverPath
	if path == "" {
		path = driverExecutable(c.Browser)
	}
	port, err := freePort()
	if err != nil {
		return nil, fmt.Errorf("finding a free port for %s: %w", path, err)
	}

	cmd := exec.Command(path, "--port="+strconv.Itoa(port)) //nolint:gosec
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", path, err)
	}
	s := &Service{
		cmd:  cmd,
		url:  fmt.Sprintf("http://127.0.0.1:%d", port),
		done: make(chan struct{}),
		log:  log,
	}
	go func() {
		s.waitErr = cmd.Wait()
		close(s.done)
	}()
	log.Verbose("Started %s (pid %d) at %s", path, cmd.Process.Pid, s.url)

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-s.done:
			cancel()
		case <-waitCtx.Done():
		}
	}()
	if err := NewClient(s.url, nil, log).WaitUntilReady(waitCtx, timeout); err != nil {
		_ = s.Stop()
		select {
		case <-s.done:
			if s.waitErr != nil && ctx.Err() == nil {
				return nil, fmt.Errorf("%s exited before it was ready: %w", path, s.waitErr)
			}
		default:
		}
		return nil, err
	}
	return s, nil
}

// URL is the base URL of the driver's WebDriver endpoint.
func (s *Service) URL() string { return s.url }

// Stop kills the driver process and waits for it to exit.
func (s *Service) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		select {
		case <-s.done:
			return
		default:
		}
		if kerr := s.cmd.Process.Kill(); kerr != nil && !errors.Is(kerr, os.ErrProcessDone) {
			err = kerr
		}
		select {
		case <-s.done:
		case <-time.After(5 * time.Second):
			err = errors.New("driver process did not exit after being killed")
		}
		s.log.Verbose("Stopped driver at %s", s.url)
	})
	return err
}

func freePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close() //nolint:errcheck
	return l.Addr().(*net.TCPAddr).Port, nil
}
