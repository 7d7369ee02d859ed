// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pdiddy/book-enricher/internal/catalog"
	"github.com/pdiddy/book-enricher/pkg/types"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the local catalog of known works (import, export, stats)",
	Long: `Catalog manages the SQLite index of works, editions, identifiers,
and assets that duplicate detection checks new imports against.`,
}

// --- import subcommand ---

var catalogImportCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Load works, editions, and assets from a YAML catalog file",
	Long: `Import reads a YAML catalog file and upserts each work with its
editions and assets. A work that fails to load is reported and skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runCatalogImport,
}

func runCatalogImport(cmd *cobra.Command, args []string) error {
	store, err := openCatalog(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	summary, err := store.ImportFile(cmd.Context(), args[0], cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d work(s) failed to import", summary.Failed)
	}
	return nil
}

// --- export subcommand ---

var catalogExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the catalog to YAML",
	Long: `Export writes the whole catalog in the import layout, either to
stdout or, with --file, to <catalog dir>/index/export.yaml.`,
	RunE: runCatalogExport,
}

func runCatalogExport(cmd *cobra.Command, args []string) error {
	store, err := openCatalog(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	if toFile, _ := cmd.Flags().GetBool("file"); toFile {
		path, err := store.ExportYAML(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "exported to %s\n", path)
		return nil
	}
	return store.Export(cmd.Context(), cmd.OutOrStdout())
}

// --- stats subcommand ---

var catalogStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show catalog row counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openCatalog(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		st, err := store.Stats(cmd.Context())
		if err != nil {
			return err
		}
		if done, err := writeStructured(cmd, cmd.OutOrStdout(), st); done {
			return err
		}
		tv := newTableView("", "Table", "Rows").alignRight(2)
		tv.add("works", strconv.Itoa(st.Works))
		tv.add("editions", strconv.Itoa(st.Editions))
		tv.add("identifiers", strconv.Itoa(st.Identifiers))
		tv.add("assets", strconv.Itoa(st.Assets))
		fmt.Fprintln(cmd.OutOrStdout(), tv.render())
		return nil
	},
}

// openCatalog opens the store at --dir, falling back to catalog.dir.
func openCatalog(cmd *cobra.Command) (*catalog.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	catCfg := cfg.Catalog
	if dir, _ := cmd.Flags().GetString("dir"); dir != "" {
		catCfg = types.CatalogConfig{Dir: dir}
	}
	return catalog.NewStore(catCfg)
}

func init() {
	catalogCmd.PersistentFlags().String("dir", "", "catalog directory (default from catalog.dir)")

	catalogExportCmd.Flags().Bool("file", false, "write to <catalog dir>/index/export.yaml instead of stdout")
	addOutputFlags(catalogStatsCmd)

	catalogCmd.AddCommand(catalogImportCmd)
	catalogCmd.AddCommand(catalogExportCmd)
	catalogCmd.AddCommand(catalogStatsCmd)
	rootCmd.AddCommand(catalogCmd)
}
