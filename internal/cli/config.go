package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/actimeta/internal/fieldmap"
	"github.com/mesh-intelligence/actimeta/internal/paths"
	"github.com/mesh-intelligence/actimeta/pkg/types"
)

func newConfigCmd(a *app) *cobra.Command {
	var (
		initFile bool
		force    bool
	)
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective field map, or write the default one",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if initFile {
				path, err := paths.InitConfigFile(a.v.GetString(keyConfig))
				if err != nil {
					return types.ConfigurationError.Wrap(err)
				}
				if err := writeDefaultConfig(path, force); err != nil {
					return err
				}
				fmt.Fprintf(out, "wrote %s\n", path)
				return nil
			}

			cfg, path, err := a.loadConfig()
			if err != nil {
				return err
			}
			if path == "" {
				path = "(built-in)"
			}
			fmt.Fprintf(out, "# source: %s\n", path)
			enc := yaml.NewEncoder(out)
			enc.SetIndent(2)
			if err := enc.Encode(cfg); err != nil {
				return err
			}
			return enc.Close()
		},
	}
	cmd.Flags().BoolVar(&initFile, "init", false, "write the built-in field map to the config location")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file with --init")
	return cmd
}

// writeDefaultConfig writes the embedded document to path. An existing file
// is left alone unless force is set.
func writeDefaultConfig(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return types.ConfigurationError.New("%s already exists (use --force to overwrite)", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return types.IOError.Wrap(fmt.Errorf("create config directory: %w", err))
	}
	if err := os.WriteFile(path, fieldmap.DefaultDocument(), 0o644); err != nil {
		return types.IOError.Wrap(fmt.Errorf("write config: %w", err))
	}
	return nil
}
