package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/GoCodeAlone/modhost"
	"github.com/GoCodeAlone/modhost/manifest"
	"github.com/GoCodeAlone/modhost/namespace"
	"github.com/GoCodeAlone/modhost/resolver"
)

// readDescriptor opens the module package at location and parses its manifest.
func readDescriptor(cfg *modhost.HostConfig, location string) (*manifest.Descriptor, error) {
	loc, err := modhost.NormalizeLocation(location)
	if err != nil {
		return nil, err
	}
	src, err := namespace.OpenSource(loc, resolver.FetchBody(cfg.NewArtifactFetcher()))
	if err != nil {
		return nil, err
	}
	defer src.Close()
	desc, err := manifest.Read(src)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", loc, err)
	}
	return desc, nil
}

func encode(w io.Writer, v any, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(v)
	case "toml":
		var b bytes.Buffer
		if err := toml.NewEncoder(&b).Encode(v); err != nil {
			return err
		}
		_, err := w.Write(b.Bytes())
		return err
	default:
		return fmt.Errorf("%w: %s", modhost.ErrUnsupportedFormatType, format)
	}
}

func newInspectCommand(o *globalOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "inspect <location>",
		Short: "Print the manifest of a module package",
		Long: `Inspect parses and validates the manifest of a module package directory,
archive or URL and prints it. Properties of modules that store sensitive
data are omitted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.loadConfig()
			if err != nil {
				return err
			}
			desc, err := readDescriptor(cfg, args[0])
			if err != nil {
				return err
			}
			return encode(cmd.OutOrStdout(), desc.Redacted(), output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "yaml", "Output format (json, yaml, toml)")
	return cmd
}
