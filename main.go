package main

import (
	_ "embed" // this is required in order for go:embed to work
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

//go:embed VERSION
var versionString string // comes from the VERSION file which we update for each release

var rootCmd = &cobra.Command{
	Use:   "maqs",
	Short: "Browser test lifecycle harness",
	Long: `maqs manages per-test browser sessions, data store fixtures, logging and soft
assertions for browser automation suites.

  maqs smoke --backend selenium     Check that a browser session can be started
  maqs config Selenium              Show the resolved settings for a section`,
	Version:       strings.TrimSpace(versionString),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"config file (default: maqs.config.json, .yaml or .yml in this or a parent directory)")
	rootCmd.AddCommand(newSmokeCmd(), configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
