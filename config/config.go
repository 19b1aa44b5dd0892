// Package config resolves harness settings from an ordered list of sources: programmatic
// overrides, then MAQS_ environment variables, then the maqs.config file, then defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jason-edstrom/silver-carnival/framework/helpers"
	"github.com/jason-edstrom/silver-carnival/framework/opt"
	"github.com/jason-edstrom/silver-carnival/internal/sentinel"
)

// FileNames are the config file names searched for, in order of preference.
var FileNames = []string{"maqs.config.json", "maqs.config.yaml", "maqs.config.yml"} //nolint:gochecknoglobals

// ErrParse matches any *Error with errors.Is.
const ErrParse = sentinel.Error("failed to parse config file")

// Error is returned when a config file exists but cannot be read or parsed.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s at %s: %s", ErrParse, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == ErrParse } //nolint:errorlint

// Config is the resolved configuration for a test run.
type Config struct {
	overrides *MapSource
	env       Source
	file      *MapSource
	defaults  *MapSource
	filePath  string
}

type settings struct {
	filePath  string
	searchDir string
	noFile    bool
	env       Source
	defaults  *MapSource
}

// Option customizes New.
type Option interface {
	helpers.ConfigOption[settings]
}

type optionFunc func(*settings) error

func (f optionFunc) Configure(s *settings) error { return f(s) }

// WithFile reads the given file instead of searching for one.
func WithFile(path string) Option {
	return optionFunc(func(s *settings) error {
		s.filePath = path
		return nil
	})
}

// WithSearchDir starts the file search from dir instead of the working directory.
func WithSearchDir(dir string) Option {
	return optionFunc(func(s *settings) error {
		s.searchDir = dir
		return nil
	})
}

// WithoutFile skips the config file entirely.
func WithoutFile() Option {
	return optionFunc(func(s *settings) error {
		s.noFile = true
		return nil
	})
}

// WithEnv replaces the environment source, normally the process environment.
func WithEnv(env Source) Option {
	return optionFunc(func(s *settings) error {
		s.env = env
		return nil
	})
}

// WithDefault sets the lowest-priority value for section/key.
func WithDefault(section, key, value string) Option {
	return optionFunc(func(s *settings) error {
		s.defaults.Set(section, key, value)
		return nil
	})
}

// New loads configuration. Without options, it searches upward from the working directory for
// one of FileNames and reads the process environment. A missing file is not an error.
func New(options ...Option) (*Config, error) {
	s := settings{defaults: NewMapSource("defaults")}
	if err := helpers.ApplyOptions[settings](&s, options...); err != nil {
		return nil, err
	}
	if s.env == nil {
		s.env = NewEnvSource(nil, nil)
	}
	c := &Config{
		overrides: NewMapSource("overrides"),
		env:       s.env,
		file:      NewMapSource("file"),
		defaults:  s.defaults,
	}
	if s.noFile {
		return c, nil
	}
	path := s.filePath
	if path == "" {
		dir := s.searchDir
		if dir == "" {
			wd, err := os.Getwd()
			if err != nil {
				return nil, err
			}
			dir = wd
		}
		path = Discover(dir).OrElse("")
	}
	if path == "" {
		return c, nil
	}
	if err := loadFile(path, c.file); err != nil {
		return nil, err
	}
	c.filePath = path
	return c, nil
}

// Discover walks up from dir looking for a config file.
func Discover(dir string) opt.Maybe[string] {
	dir = filepath.Clean(dir)
	for {
		for _, name := range FileNames {
			candidate := filepath.Join(dir, name)
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return opt.Some(candidate)
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return opt.None[string]()
		}
		dir = parent
	}
}

func loadFile(path string, into *MapSource) error {
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return &Error{Path: path, Err: err}
	}
	parsed, err := parseSections(data)
	if err != nil {
		return &Error{Path: path, Err: err}
	}
	for section, values := range parsed {
		for key, value := range values {
			into.Set(section, key, value)
		}
	}
	return nil
}

// Sources returns the sources in priority order.
func (c *Config) Sources() []Source {
	return []Source{c.overrides, c.env, c.file, c.defaults}
}

// FilePath returns the config file that was loaded, if any.
func (c *Config) FilePath() string { return c.filePath }

// Lookup resolves section/key across all sources.
func (c *Config) Lookup(section, key string) opt.Maybe[string] {
	return Resolve(c.Sources(), section, key)
}

// Value returns a GlobalMaqs value, or defaultValue if no source defines it.
func (c *Config) Value(key, defaultValue string) string {
	return c.Lookup(GlobalSection, key).OrElse(defaultValue)
}

// SectionValue returns a value from section, or defaultValue if no source defines it.
func (c *Config) SectionValue(section, key, defaultValue string) string {
	return c.Lookup(section, key).OrElse(defaultValue)
}

// Bool parses a value as a boolean. Anything other than a recognizable false value counts as
// true, so "yes" and "1" both enable a setting.
func (c *Config) Bool(section, key string, defaultValue bool) bool {
	v, ok := c.Lookup(section, key).Get()
	if !ok {
		return defaultValue
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "false", "0", "no", "off":
		return false
	default:
		return true
	}
}

// Int parses a value as an integer, falling back to defaultValue if it is missing or malformed.
func (c *Config) Int(section, key string, defaultValue int) int {
	v, ok := c.Lookup(section, key).Get()
	if !ok {
		return defaultValue
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return defaultValue
	}
	return n
}

// Millis reads an integer number of milliseconds as a time.Duration.
func (c *Config) Millis(section, key string, defaultValue time.Duration) time.Duration {
	return time.Duration(c.Int(section, key, int(defaultValue/time.Millisecond))) * time.Millisecond
}

// Section returns every value in section with lower-cased keys, merged across all sources.
func (c *Config) Section(section string) map[string]string {
	ret := make(map[string]string)
	sources := c.Sources()
	for i := len(sources) - 1; i >= 0; i-- {
		for _, key := range sources[i].Keys(section) {
			if v, ok := sources[i].Lookup(section, key).Get(); ok {
				ret[key] = v
			}
		}
	}
	return ret
}

// SectionKeys returns the sorted keys of Section(section).
func (c *Config) SectionKeys(section string) []string {
	values := c.Section(section)
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// AddOverride sets a GlobalMaqs value with the highest priority.
func (c *Config) AddOverride(key, value string) {
	c.overrides.Set(GlobalSection, key, value)
}

// AddSectionOverride sets a value in section with the highest priority.
func (c *Config) AddSectionOverride(section, key, value string) {
	c.overrides.Set(section, key, value)
}

// Raw returns the values read from the config file, with lower-cased section and key names.
func (c *Config) Raw() map[string]map[string]string {
	return c.file.Sections()
}
