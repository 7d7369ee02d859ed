// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pdiddy/book-enricher/internal/reconcile"
	"github.com/pdiddy/book-enricher/pkg/types"
)

var identifyCmd = &cobra.Command{
	Use:   "identify <identifier>...",
	Short: "Classify and normalize book identifiers",
	Long: `Identify detects the type of each argument (ISBN, DOI, OCLC, LCCN,
Amazon ASIN, Goodreads, Google Books) and prints its normalized form.
ISBN-10 values are converted to ISBN-13 and URLs are reduced to the
identifier they carry.`,
	Example: `  book-enricher identify 0-441-17271-7 https://doi.org/10.1000/xyz123`,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids := make([]types.Identifier, 0, len(args))
		for _, raw := range args {
			ids = append(ids, reconcile.NormalizeIdentifier(raw))
		}

		if done, err := writeStructured(cmd, cmd.OutOrStdout(), ids); done {
			return err
		}

		tv := newTableView("", "Input", "Type", "Normalized", "Valid")
		for _, id := range ids {
			tv.add(id.Value, string(id.Type), id.Normalized, strconv.FormatBool(id.Valid))
		}
		fmt.Fprintln(cmd.OutOrStdout(), tv.render())
		return nil
	},
}

func init() {
	addOutputFlags(identifyCmd)
	rootCmd.AddCommand(identifyCmd)
}
