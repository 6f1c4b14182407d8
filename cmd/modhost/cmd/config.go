package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/GoCodeAlone/modhost"
)

func newConfigCommand(o *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Work with host configuration",
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}
	cmd.AddCommand(newConfigSampleCommand())
	cmd.AddCommand(newConfigDescribeCommand())
	cmd.AddCommand(newConfigValidateCommand(o))
	return cmd
}

func newConfigSampleCommand() *cobra.Command {
	var format, output string
	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Print a configuration file holding the defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if output != "" {
				if err := modhost.SaveSampleConfig(&modhost.HostConfig{}, format, output); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Sample configuration written to %s\n", output)
				return nil
			}
			data, err := modhost.GenerateSampleConfig(&modhost.HostConfig{}, format)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "yaml", "Output format (yaml, json, toml)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to this file instead of stdout")
	return cmd
}

func newConfigDescribeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "describe",
		Short: "List the configuration fields with their defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "FIELD\tDEFAULT\tREQUIRED\tDESCRIPTION")
			for _, f := range modhost.DescribeConfig(&modhost.HostConfig{}) {
				fmt.Fprintf(tw, "%s\t%s\t%t\t%s\n", f.Path, f.Default, f.Required, f.Description)
			}
			return tw.Flush()
		},
	}
}

func newConfigValidateCommand(o *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load and validate the configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.loadConfig()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration is valid (module dir %s, resolver %s)\n", cfg.ModuleDir, cfg.Cache.Strategy)
			return nil
		},
	}
}
