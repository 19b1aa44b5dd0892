package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jason-edstrom/silver-carnival/adapters/runneradapter"
	"github.com/jason-edstrom/silver-carnival/config"
	"github.com/jason-edstrom/silver-carnival/datastore"
	"github.com/jason-edstrom/silver-carnival/devtools"
	"github.com/jason-edstrom/silver-carnival/framework/runner"
	"github.com/jason-edstrom/silver-carnival/lifecycle"
	"github.com/jason-edstrom/silver-carnival/playwright"
	"github.com/jason-edstrom/silver-carnival/selenium"
	"github.com/jason-edstrom/silver-carnival/store"
	"github.com/jason-edstrom/silver-carnival/testobject"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const (
	backendSelenium   = "selenium"
	backendPlaywright = "playwright"
	backendDevTools   = "devtools"
	backendNone       = "none"
)

func newSmokeCmd() *cobra.Command {
	var params commandParams
	cmd := &cobra.Command{
		Use:   "smoke",
		Short: "Run a self-check suite against the configured browser and data stores",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := params.validate(); err != nil {
				return err
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			results, err := runSmoke(cmd, cfg, params)
			if err != nil {
				return err
			}
			if !results.OK() {
				return fmt.Errorf("%d test(s) failed", len(results.Failures))
			}
			return nil
		},
	}
	params.addFlags(cmd)
	return cmd
}

func runSmoke(cmd *cobra.Command, cfg *config.Config, params commandParams) (runner.Results, error) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "maqs v%s\n", rootCmd.Version)
	if path := cfg.FilePath(); path != "" {
		fmt.Fprintf(out, "Using config file %s\n", path)
	}
	runner.PrintFilterDescription(out, params.filters)

	var stores []datastore.Kind
	for _, s := range params.stores {
		kind, err := datastore.ParseKind(s)
		if err != nil {
			return runner.Results{}, err
		}
		stores = append(stores, kind)
	}

	consoleLogger := runner.ConsoleTestLogger{
		Out:                  out,
		DebugOutputOnFailure: params.debug || params.debugAll,
		DebugOutputOnSuccess: params.debugAll,
	}
	var testLogger runner.TestLogger = consoleLogger
	var junit *runner.JUnitTestLogger
	if params.jUnitFile != "" {
		junit = runner.NewJUnitTestLogger(params.jUnitFile, "maqs smoke",
			map[string]string{"backend": params.backend, "version": rootCmd.Version}, params.filters)
		testLogger = runner.MultiTestLogger{consoleLogger, junit}
	}

	results := runner.Run(runner.TestConfiguration{
		Filter:     params.filters,
		TestLogger: testLogger,
		Context:    cmd.Context(),
	}, func(t *runner.T) {
		runSmokeSuite(t, cfg, params.backend, stores)
	})

	fmt.Fprintln(out)
	runner.PrintResults(out, results)

	if junit != nil {
		if err := junit.EndLog(cmd.Context()); err != nil {
			return results, fmt.Errorf("error writing log: %w", err)
		}
	}
	if params.recordFailures != "" {
		if err := recordFailures(params.recordFailures, results); err != nil {
			return results, err
		}
	}
	return results, nil
}

func recordFailures(path string, results runner.Results) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create suppression file: %w", err)
	}
	for _, test := range results.Failures {
		fmt.Fprintln(f, test.TestID)
	}
	return f.Close()
}

func runSmokeSuite(t *runner.T, cfg *config.Config, backend string, stores []datastore.Kind) {
	switch backend {
	case backendSelenium:
		t.Run("selenium", func(t *runner.T) { doSeleniumSmokeTests(t, cfg) })
	case backendPlaywright:
		t.Run("playwright", func(t *runner.T) { doPlaywrightSmokeTests(t, cfg) })
	case backendDevTools:
		t.Run("devtools", func(t *runner.T) { doDevToolsSmokeTests(t, cfg) })
	}
	for _, kind := range stores {
		t.Run(string(kind), func(t *runner.T) { doStoreSmokeTests(t, cfg, kind) })
	}
}

func doSeleniumSmokeTests(t *runner.T, cfg *config.Config) {
	tc := runneradapter.Use(t, selenium.Factory(cfg))

	t.Run("starts a session at the base URL", func(t *runner.T) {
		o := tc.MustTestObject()
		wd, err := o.WebDriver(t.Context())
		require.NoError(t, err)
		url, err := wd.CurrentURL(t.Context())
		require.NoError(t, err)
		t.Debug("session %s is at %s", wd.ID(), url)
		if o.Selenium.BaseURL != "" {
			o.SoftAssert().AssertTrue("navigated to base URL", url != "" && url != "about:blank")
		}
	})

	t.Run("captures a screenshot", func(t *runner.T) {
		o := tc.MustTestObject()
		path, err := o.CaptureScreenshot(t.Context(), "")
		require.NoError(t, err)
		o.SoftAssert().AssertTrue("screenshot is associated", o.ContainsAssociatedFile(path))
	})
}

func doPlaywrightSmokeTests(t *runner.T, cfg *config.Config) {
	tc := runneradapter.Use(t, playwright.Factory(cfg))

	t.Run("opens a page", func(t *runner.T) {
		o := tc.MustTestObject()
		page, err := o.Page(t.Context())
		require.NoError(t, err)
		title, err := page.Title()
		require.NoError(t, err)
		t.Debug("page title: %q", title)
		o.SoftAssert().AssertTrue("page has a URL", page.URL() != "")
	})

	t.Run("captures a screenshot", func(t *runner.T) {
		o := tc.MustTestObject()
		path, err := o.CaptureScreenshot(t.Context(), "")
		require.NoError(t, err)
		o.SoftAssert().AssertTrue("screenshot is associated", o.ContainsAssociatedFile(path))
	})
}

func doDevToolsSmokeTests(t *runner.T, cfg *config.Config) {
	tc := runneradapter.Use(t, devtools.Factory(cfg))

	t.Run("reports the browser version", func(t *runner.T) {
		o := tc.MustTestObject()
		s, err := o.Browser(t.Context())
		require.NoError(t, err)
		v, err := s.Version(t.Context())
		require.NoError(t, err)
		t.Debug("connected to %s (protocol %s)", v.Product, v.Protocol)
		o.SoftAssert().AssertTrue("product is reported", v.Product != "")
	})

	t.Run("evaluates script in the page", func(t *runner.T) {
		o := tc.MustTestObject()
		page, err := o.Page(t.Context())
		require.NoError(t, err)
		var sum int
		require.NoError(t, page.Evaluate(t.Context(), "1 + 2", &sum))
		o.SoftAssert().AssertEquals("script result", 3, sum)
	})

	t.Run("captures a screenshot", func(t *runner.T) {
		o := tc.MustTestObject()
		path, err := o.CaptureScreenshot(t.Context(), "")
		require.NoError(t, err)
		o.SoftAssert().AssertTrue("screenshot is associated", o.ContainsAssociatedFile(path))
	})
}

func doStoreSmokeTests(t *runner.T, cfg *config.Config, kind datastore.Kind) {
	controller := lifecycle.NewController(string(kind)+"Test", lifecycle.NewTestObject(cfg),
		lifecycle.Hooks[*testobject.TestObject]{
			BeforeTest: func(_ context.Context, o *testobject.TestObject) error {
				_, err := datastore.Register(o, kind)
				return err
			},
		})
	tc := runneradapter.UseController(t, controller)

	acquire := func(t *runner.T) datastore.Store {
		o := tc.MustTestObject()
		s, err := store.Acquire[datastore.Store](t.Context(), o.Store(), datastore.ManagerKey(kind))
		require.NoError(t, err)
		t.Debug("using %s", s.DSN())
		return s
	}

	t.Run("writes and reads a map", func(t *runner.T) {
		s := acquire(t)
		data := map[string]string{"first": "1", "second": "2"}
		require.NoError(t, s.WriteMap(t.Context(), "maqs-smoke", "map", data))
		got, err := s.GetMap(t.Context(), "maqs-smoke", "map")
		require.NoError(t, err)
		tc.SoftAssert().AssertEquals("stored map", data, got)
	})

	t.Run("replaces a map", func(t *runner.T) {
		s := acquire(t)
		require.NoError(t, s.WriteMap(t.Context(), "maqs-smoke", "map", map[string]string{"a": "1", "b": "2"}))
		require.NoError(t, s.WriteMap(t.Context(), "maqs-smoke", "map", map[string]string{"b": "3"}))
		got, err := s.GetMap(t.Context(), "maqs-smoke", "map")
		require.NoError(t, err)
		tc.SoftAssert().AssertEquals("replaced map", map[string]string{"b": "3"}, got)
	})
}
