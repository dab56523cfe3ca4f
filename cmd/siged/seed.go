package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"siged/internal/config"
	"siged/internal/store"
)

// catalogSeed is the YAML shape for `siged seed`: a list of area names and
// a list of document type names. Seeding is idempotent; existing names are
// reused rather than duplicated.
type catalogSeed struct {
	Areas []string `yaml:"areas"`
	Types []string `yaml:"types"`
}

func newSeedCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <catalog.yaml>",
		Short: "Seed the area and document-type catalogs from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			seed, err := parseCatalogSeed(data)
			if err != nil {
				return err
			}

			st, err := store.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := cmd.Context()
			for _, name := range seed.Areas {
				id, err := st.UpsertArea(ctx, name)
				if err != nil {
					return fmt.Errorf("seed area %q: %w", name, err)
				}
				_ = writePlain("area %s  %s\n", id, name)
			}
			for _, name := range seed.Types {
				id, err := st.UpsertDocumentType(ctx, name)
				if err != nil {
					return fmt.Errorf("seed type %q: %w", name, err)
				}
				_ = writePlain("type %s  %s\n", id, name)
			}
			return nil
		},
	}
}

func parseCatalogSeed(data []byte) (*catalogSeed, error) {
	var seed catalogSeed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse catalog seed: %w", err)
	}

	seed.Areas = cleanSeedNames(seed.Areas)
	seed.Types = cleanSeedNames(seed.Types)
	if len(seed.Areas) == 0 && len(seed.Types) == 0 {
		return nil, fmt.Errorf("catalog seed lists no areas or types")
	}
	return &seed, nil
}

func cleanSeedNames(names []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, name)
	}
	return out
}
