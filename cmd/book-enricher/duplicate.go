// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/book-enricher/internal/duplicate"
	"github.com/pdiddy/book-enricher/pkg/types"
)

var duplicateCmd = &cobra.Command{
	Use:   "duplicate",
	Short: "Check whether an import duplicates something in the catalog",
	Long: `Duplicate checks a candidate import against the catalog: first by
content checksum, then by ISBN or other identifier, then by fuzzy title
and author match. The first confident verdict is reported.`,
	Example: `  book-enricher duplicate --file dune.epub --title Dune --author "Frank Herbert"
  book-enricher duplicate --id 9780441172719 --format hardcover --json`,
	RunE: runDuplicate,
}

func init() {
	duplicateCmd.Flags().String("title", "", "candidate title")
	duplicateCmd.Flags().StringSlice("author", nil, "candidate author (repeatable)")
	duplicateCmd.Flags().StringSlice("id", nil, "candidate identifier: ISBN, ASIN, DOI, or URL (repeatable)")
	duplicateCmd.Flags().String("format", "", "candidate format, e.g. ebook or hardcover")
	duplicateCmd.Flags().String("file", "", "candidate file; its SHA-256 is checked against known assets")
	duplicateCmd.Flags().String("checksum", "", "candidate SHA-256 when the file is not at hand")
	duplicateCmd.Flags().String("dir", "", "catalog directory (default from catalog.dir)")
	addOutputFlags(duplicateCmd)

	rootCmd.AddCommand(duplicateCmd)
}

func runDuplicate(cmd *cobra.Command, args []string) error {
	c, err := candidateFromFlags(cmd)
	if err != nil {
		return err
	}
	if c.Checksum == "" && len(c.Identifiers) == 0 && strings.TrimSpace(c.Title) == "" {
		return fmt.Errorf("nothing to check: provide --file, --checksum, --id, or --title")
	}

	store, err := openCatalog(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	res, err := duplicate.NewDetector(store, slog.Default()).Detect(cmd.Context(), c)
	if err != nil {
		return err
	}

	if done, err := writeStructured(cmd, cmd.OutOrStdout(), res); done {
		return err
	}
	printDuplicate(cmd, res)
	return nil
}

func candidateFromFlags(cmd *cobra.Command) (duplicate.Candidate, error) {
	var c duplicate.Candidate
	c.Title, _ = cmd.Flags().GetString("title")
	c.Authors, _ = cmd.Flags().GetStringSlice("author")
	c.Identifiers, _ = cmd.Flags().GetStringSlice("id")
	c.Format, _ = cmd.Flags().GetString("format")
	c.Checksum, _ = cmd.Flags().GetString("checksum")

	if path, _ := cmd.Flags().GetString("file"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return c, fmt.Errorf("opening %s: %w", path, err)
		}
		defer f.Close()
		sum, err := duplicate.Checksum(f)
		if err != nil {
			return c, fmt.Errorf("%s: %w", path, err)
		}
		c.Checksum = sum
	}
	return c, nil
}

func printDuplicate(cmd *cobra.Command, res types.DuplicateCheckResult) {
	out := cmd.OutOrStdout()
	if !res.HasDuplicate {
		fmt.Fprintln(out, "No duplicate found.")
		return
	}

	tv := newTableView("Duplicate found", "Field", "Value")
	tv.add("type", string(res.Type))
	tv.add("confidence", formatFloat(res.Confidence))
	if res.ExistingWork != nil {
		tv.add("work", res.ExistingWork.ID+"  "+res.ExistingWork.Title)
	}
	if res.ExistingEdition != nil {
		tv.add("edition", res.ExistingEdition.ID+"  "+res.ExistingEdition.Format)
	}
	if res.ExistingAsset != nil {
		tv.add("asset", res.ExistingAsset.ID+"  "+res.ExistingAsset.Path)
	}
	if res.Description != "" {
		tv.add("note", res.Description)
	}
	fmt.Fprintln(out, tv.render())
}
