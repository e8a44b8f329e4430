package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/homely-rentals/homely/pkg/config"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:           "homely",
		Short:         "homely: listing search cache and database optimizer",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newServeCmd(),
		newMCPCmd(),
		newMaintainCmd(),
		newReportCmd(),
		newCacheCmd(),
		newSeedCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// configFlags are shared by every command that reads the config file.
type configFlags struct {
	path    string
	envFile string
}

func (f *configFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.path, "config", "c", "homely.yaml", "path to config file")
	cmd.Flags().StringVar(&f.envFile, "env-file", ".env", "dotenv file loaded before the config")
}

// load reads the env file and config. A missing config file at the default
// path falls back to built-in defaults.
func (f *configFlags) load(cmd *cobra.Command) (*config.Config, error) {
	if err := config.LoadEnvFile(f.envFile); err != nil {
		return nil, err
	}
	cfg, err := config.Load(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("config") {
			return config.Default(), nil
		}
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
