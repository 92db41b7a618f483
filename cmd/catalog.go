package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tristendillon/diagify/core/catalog"
	"github.com/tristendillon/diagify/core/logger"
)

var (
	catalogModule string
	searchLimit   int
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect the catalog of importable diagram types",
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print every valid import line",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.Debug("catalog list called")
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db := openState(cfg)
		if db != nil {
			defer db.Close()
		}

		cat, _, err := loadCatalog(cmd.Context(), cfg, db)
		if err != nil {
			return err
		}
		for _, e := range cat.Entries {
			if catalogModule != "" && !strings.HasPrefix(e.Module(), catalogModule) {
				continue
			}
			fmt.Fprintln(cmd.OutOrStdout(), e)
		}
		return nil
	},
}

var catalogSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Fuzzy-find import lines",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.Debug("catalog search called")
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db := openState(cfg)
		if db != nil {
			defer db.Close()
		}

		cat, _, err := loadCatalog(cmd.Context(), cfg, db)
		if err != nil {
			return err
		}
		matches := catalog.Search(cat, args[0], searchLimit)
		if len(matches) == 0 {
			logger.Info("No catalog entry matches %q", args[0])
			return nil
		}
		for _, e := range matches {
			fmt.Fprintln(cmd.OutOrStdout(), e)
		}
		return nil
	},
}

var catalogRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Drop the cached catalog and rebuild it",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.Debug("catalog refresh called")
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db := openState(cfg)
		if db == nil {
			return fmt.Errorf("state database unavailable at %s", cfg.State.Dir)
		}
		defer db.Close()

		cache := catalog.NewCache(db)
		cache.Invalidate(cmd.Context(), cfg.Catalog.Package, "")

		cat, err := catalog.Load(cmd.Context(), cfg.Catalog, cache)
		if err != nil {
			return err
		}
		m := cache.Metrics()
		logger.Info("Rebuilt catalog: %d entries across %d modules (%d cached catalogs dropped)",
			cat.Len(), len(cat.Modules()), m.Invalidations)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogListCmd, catalogSearchCmd, catalogRefreshCmd)

	catalogListCmd.Flags().StringVar(&catalogModule, "module", "", "Only list entries whose module starts with this prefix (e.g. diagrams.aws)")
	catalogSearchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 20, "Maximum number of results")
}
