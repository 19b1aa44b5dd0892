package main

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/jason-edstrom/silver-carnival/config"
	"github.com/jason-edstrom/silver-carnival/framework/runner"
	"github.com/spf13/cobra"
)

var configFile string

func loadConfig() (*config.Config, error) {
	if configFile != "" {
		return config.New(config.WithFile(configFile))
	}
	return config.New()
}

type commandParams struct {
	backend        string
	stores         []string
	filters        runner.RegexFilters
	skipFile       string
	recordFailures string
	debug          bool
	debugAll       bool
	jUnitFile      string
}

func (c *commandParams) addFlags(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&c.backend, "backend", "selenium", "browser backend to check (selenium, playwright, devtools, none)")
	fs.StringSliceVar(&c.stores, "store", nil, "data store fixtures to check (redis, consul, dynamodb, sqlite)")
	fs.Var(&c.filters.MustMatch, "run", "regex pattern(s) to select tests to run")
	fs.Var(&c.filters.MustNotMatch, "skip", "regex pattern(s) to select tests not to run")
	fs.StringVar(&c.skipFile, "skip-from", "", "file with test IDs to skip, one per line")
	fs.StringVar(&c.recordFailures, "record-failures", "", "write the IDs of failed tests to this file")
	fs.BoolVar(&c.debug, "debug", false, "show debug output for failed tests")
	fs.BoolVar(&c.debugAll, "debug-all", false, "show debug output for all tests")
	fs.StringVar(&c.jUnitFile, "junit", "", "write JUnit XML output to the specified path")
	_ = cmd.RegisterFlagCompletionFunc("backend", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{backendSelenium, backendPlaywright, backendDevTools, backendNone}, cobra.ShellCompDirectiveNoFileComp
	})
}

func (c *commandParams) validate() error {
	switch c.backend {
	case backendSelenium, backendPlaywright, backendDevTools, backendNone:
	default:
		return fmt.Errorf("unknown backend %q", c.backend)
	}
	if c.skipFile != "" {
		return loadSuppressions(c)
	}
	return nil
}

// loadSuppressions adds every test ID listed in the skip file to the skip filters.
func loadSuppressions(params *commandParams) error {
	file, err := os.Open(params.skipFile)
	if err != nil {
		return fmt.Errorf("cannot open provided suppression file: %w", err)
	}
	defer func() { _ = file.Close() }()
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		if err := params.filters.MustNotMatch.Set(regexp.QuoteMeta(line)); err != nil {
			return fmt.Errorf("cannot parse suppression: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("while processing suppression file: %w", err)
	}
	return nil
}
