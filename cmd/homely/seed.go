package main

import (
	"context"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/homely-rentals/homely/pkg/models"
	"github.com/homely-rentals/homely/pkg/store"
)

// seedFile is the YAML layout accepted by seed.
type seedFile struct {
	Listings []models.Listing `yaml:"listings" validate:"dive"`
}

func newSeedCmd() *cobra.Command {
	var flags configFlags
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load listings from a YAML file into the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load(cmd)
			if err != nil {
				return err
			}
			listings, err := readSeedFile(file)
			if err != nil {
				return err
			}

			st, err := store.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			ctx := context.Background()
			for _, l := range listings {
				if err := st.UpsertListing(ctx, l); err != nil {
					return fmt.Errorf("listing %q: %w", l.Title, err)
				}
			}
			fmt.Printf("Seeded %d listings into %s.\n", len(listings), cfg.DBPath)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&file, "file", "f", "listings.yaml", "YAML file with a top-level listings list")
	return cmd
}

func readSeedFile(path string) ([]models.Listing, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	if err := validator.New().Struct(f); err != nil {
		return nil, fmt.Errorf("invalid seed file: %w", err)
	}
	return f.Listings, nil
}
