// Package cmd implements the modhost command line.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GoCodeAlone/modhost"
)

// Version information
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// PrintVersion returns the version line.
func PrintVersion() string {
	return fmt.Sprintf("modhost v%s (commit: %s, built on: %s)", Version, Commit, Date)
}

type globalOptions struct {
	configPath  string
	logLevel    string
	logFormat   string
	entryPoints *modhost.EntryPoints
}

// loadConfig reads --config and the environment.
func (o *globalOptions) loadConfig() (*modhost.HostConfig, error) {
	return modhost.LoadConfig(o.configPath)
}

// NewRootCommand creates the root command. entryPoints holds the factories
// that modules may name as their main object.
func NewRootCommand(entryPoints *modhost.EntryPoints) *cobra.Command {
	if entryPoints == nil {
		entryPoints = modhost.NewEntryPoints()
	}
	o := &globalOptions{entryPoints: entryPoints}

	cmd := &cobra.Command{
		Use:   "modhost",
		Short: "modhost - load, run and inspect modules",
		Long: `modhost loads module packages from a directory, resolves their
dependencies and drives them through their lifecycle.`,
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&o.configPath, "config", "c", "", "Host configuration file (json, yaml or toml)")
	flags.StringVar(&o.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flags.StringVar(&o.logFormat, "log-format", "text", "Log format (text, json, logfmt)")

	cmd.AddCommand(newRunCommand(o))
	cmd.AddCommand(newInspectCommand(o))
	cmd.AddCommand(newResolveCommand(o))
	cmd.AddCommand(newConfigCommand(o))
	cmd.AddCommand(newVersionCommand())

	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), PrintVersion())
		},
	}
}
