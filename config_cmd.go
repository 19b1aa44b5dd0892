package main

import (
	"fmt"
	"io"

	"github.com/jason-edstrom/silver-carnival/config"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config [section...]",
	Short: "Print the resolved configuration",
	Long: `Print the config file in use, the GlobalMaqs values, and the values of any other
sections named on the command line. Keys are shown lower-cased, after environment
variables and defaults have been applied.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		printConfig(cmd.OutOrStdout(), cfg, args)
		return nil
	},
}

var sectionColor = color.New(color.Bold) //nolint:gochecknoglobals

func printConfig(out io.Writer, cfg *config.Config, sections []string) {
	if path := cfg.FilePath(); path != "" {
		fmt.Fprintf(out, "Config file: %s\n", path)
	} else {
		fmt.Fprintln(out, "Config file: (none)")
	}
	for _, section := range append([]string{config.GlobalSection}, sections...) {
		fmt.Fprintln(out)
		sectionColor.Fprintf(out, "[%s]\n", section)
		values := cfg.Section(section)
		keys := cfg.SectionKeys(section)
		if len(keys) == 0 {
			fmt.Fprintln(out, "  (empty)")
		}
		for _, key := range keys {
			fmt.Fprintf(out, "  %s = %s\n", key, values[key])
		}
	}
}
