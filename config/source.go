package config

import (
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/jason-edstrom/silver-carnival/framework/opt"
)

// GlobalSection is the section holding settings that are not specific to one backend.
const GlobalSection = "GlobalMaqs"

// EnvPrefix starts the name of every environment variable that configures the harness. A
// global key is read from MAQS_{KEY}, and a key in another section from MAQS_{SECTION}_{KEY}.
const EnvPrefix = "MAQS_"

// Source is one layer of configuration. Section and key names are case-insensitive.
type Source interface {
	Name() string
	Lookup(section, key string) opt.Maybe[string]
	// Keys returns the lower-cased keys this source defines in section.
	Keys(section string) []string
}

// Resolve returns the value from the first source, in order, that defines section/key.
func Resolve(sources []Source, section, key string) opt.Maybe[string] {
	for _, s := range sources {
		if v := s.Lookup(section, key); v.IsDefined() {
			return v
		}
	}
	return opt.None[string]()
}

func normalize(name string) string { return strings.ToLower(name) }

// MapSource is a fixed or programmatically edited set of values.
type MapSource struct {
	name     string
	lock     sync.RWMutex
	sections map[string]map[string]string
}

// NewMapSource creates an empty MapSource.
func NewMapSource(name string) *MapSource {
	return &MapSource{name: name, sections: make(map[string]map[string]string)}
}

func (m *MapSource) Name() string { return m.name }

// Set defines section/key.
func (m *MapSource) Set(section, key, value string) {
	m.lock.Lock()
	defer m.lock.Unlock()
	s := m.sections[normalize(section)]
	if s == nil {
		s = make(map[string]string)
		m.sections[normalize(section)] = s
	}
	s[normalize(key)] = value
}

func (m *MapSource) Lookup(section, key string) opt.Maybe[string] {
	m.lock.RLock()
	defer m.lock.RUnlock()
	if v, ok := m.sections[normalize(section)][normalize(key)]; ok {
		return opt.Some(v)
	}
	return opt.None[string]()
}

func (m *MapSource) Keys(section string) []string {
	m.lock.RLock()
	defer m.lock.RUnlock()
	keys := make([]string, 0, len(m.sections[normalize(section)]))
	for k := range m.sections[normalize(section)] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Sections returns a copy of everything in the source.
func (m *MapSource) Sections() map[string]map[string]string {
	m.lock.RLock()
	defer m.lock.RUnlock()
	ret := make(map[string]map[string]string, len(m.sections))
	for name, values := range m.sections {
		copied := make(map[string]string, len(values))
		for k, v := range values {
			copied[k] = v
		}
		ret[name] = copied
	}
	return ret
}

// EnvSource reads MAQS_ environment variables through injected functions, so tests do not have
// to modify the process environment.
type EnvSource struct {
	lookup  func(string) (string, bool)
	environ func() []string
}

// NewEnvSource creates an EnvSource. Nil functions default to os.LookupEnv and os.Environ.
func NewEnvSource(lookup func(string) (string, bool), environ func() []string) *EnvSource {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if environ == nil {
		environ = os.Environ
	}
	return &EnvSource{lookup: lookup, environ: environ}
}

// EnvFromMap returns an EnvSource backed by a fixed map of variables.
func EnvFromMap(vars map[string]string) *EnvSource {
	return NewEnvSource(
		func(name string) (string, bool) {
			v, ok := vars[name]
			return v, ok
		},
		func() []string {
			ret := make([]string, 0, len(vars))
			for k, v := range vars {
				ret = append(ret, k+"="+v)
			}
			return ret
		},
	)
}

func (e *EnvSource) Name() string { return "environment" }

// VariableName returns the environment variable consulted for section/key.
func VariableName(section, key string) string {
	if strings.EqualFold(section, GlobalSection) {
		return EnvPrefix + strings.ToUpper(key)
	}
	return EnvPrefix + strings.ToUpper(section) + "_" + strings.ToUpper(key)
}

func (e *EnvSource) Lookup(section, key string) opt.Maybe[string] {
	if v, ok := e.lookup(VariableName(section, key)); ok {
		return opt.Some(v)
	}
	return opt.None[string]()
}

// Keys lists the variables for section. For GlobalSection only names with no further
// underscore count, since MAQS_SELENIUM_BROWSER belongs to the Selenium section.
func (e *EnvSource) Keys(section string) []string {
	global := strings.EqualFold(section, GlobalSection)
	prefix := EnvPrefix + strings.ToUpper(section) + "_"
	if global {
		prefix = EnvPrefix
	}
	var keys []string
	for _, kv := range e.environ() {
		name, _, found := strings.Cut(kv, "=")
		if !found || !strings.HasPrefix(strings.ToUpper(name), prefix) {
			continue
		}
		key := name[len(prefix):]
		if key == "" || (global && strings.Contains(key, "_")) {
			continue
		}
		keys = append(keys, normalize(key))
	}
	sort.Strings(keys)
	return keys
}
