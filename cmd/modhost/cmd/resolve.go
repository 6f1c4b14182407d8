package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/GoCodeAlone/modhost"
	"github.com/GoCodeAlone/modhost/manifest"
	"github.com/GoCodeAlone/modhost/resolver"
)

func newResolveCommand(o *globalOptions) *cobra.Command {
	var cacheDir string
	cmd := &cobra.Command{
		Use:   "resolve <location>",
		Short: "Download the dependencies of a module into the cache",
		Long: `Resolve reads the manifest of a module package and fetches each of its
url and repository dependencies into the artifact cache. Peer dependencies
are listed but not resolved.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.loadConfig()
			if err != nil {
				return err
			}
			cfg.Cache.Strategy = modhost.StrategyCached
			if cacheDir != "" {
				cfg.Cache.Dir = cacheDir
			}

			desc, err := readDescriptor(cfg, args[0])
			if err != nil {
				return err
			}
			r, _, err := cfg.NewResolver(cfg.NewArtifactFetcher(), nil)
			if err != nil {
				return err
			}
			defaults := manifest.DefaultRepositories
			if len(cfg.Repositories) > 0 {
				defaults = cfg.Repositories
			}
			repos := manifest.MergeRepositories(defaults, desc.Repositories)

			out := cmd.OutOrStdout()
			var errs error
			for _, dep := range desc.Dependencies {
				if dep.Kind() == manifest.KindPeer {
					fmt.Fprintf(out, "%s\tpeer\n", dep.Coordinates())
					continue
				}
				loc, err := resolver.Resolve(cmd.Context(), r, desc, dep, repos)
				if err != nil {
					errs = multierr.Append(errs, err)
					continue
				}
				fmt.Fprintf(out, "%s\t%s\n", dep.Coordinates(), loc)
			}
			return errs
		},
	}
	cmd.Flags().StringVar(&cacheDir, "cache-dir", "", "Artifact cache directory (overrides the configuration)")
	return cmd
}
