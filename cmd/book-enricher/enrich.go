// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/book-enricher/internal/enrich"
	"github.com/pdiddy/book-enricher/internal/provider"
	"github.com/pdiddy/book-enricher/internal/strategy"
	"github.com/pdiddy/book-enricher/pkg/types"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Enrich a book's metadata from the configured providers",
	Long: `Enrich builds a query from the baseline metadata given by flags or a
YAML record file, selects providers with the configured strategy, calls
them concurrently with retries and rate limits, and reconciles the
answers field by field.

A provider that keeps failing is reported as degraded; the merge goes on
with whatever the others returned.`,
	Example: `  book-enricher enrich --isbn 0441172717 --fixtures testdata/providers.yaml
  book-enricher enrich --title "Dune" --author "Frank Herbert" --strategy consensus --json`,
	RunE: runEnrich,
}

func init() {
	enrichCmd.Flags().String("title", "", "baseline title")
	enrichCmd.Flags().StringSlice("author", nil, "baseline author (repeatable)")
	enrichCmd.Flags().StringSlice("isbn", nil, "baseline ISBN (repeatable)")
	enrichCmd.Flags().String("publisher", "", "baseline publisher")
	enrichCmd.Flags().String("language", "", "baseline language code or name")
	enrichCmd.Flags().String("date", "", "baseline publication date")
	enrichCmd.Flags().String("baseline", "", "YAML file holding the baseline record")
	enrichCmd.Flags().String("fixtures", "", "YAML file of static providers and their records")
	enrichCmd.Flags().String("strategy", "", "selection strategy: all, priority, fastest, consensus")
	enrichCmd.Flags().Int("max-providers", -1, "maximum providers to query (negative for no limit)")
	addOutputFlags(enrichCmd)

	rootCmd.AddCommand(enrichCmd)
}

func runEnrich(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	baseline, err := baselineFromFlags(cmd)
	if err != nil {
		return err
	}
	providers, err := loadProviders(cmd, cfg)
	if err != nil {
		return err
	}

	if s, _ := cmd.Flags().GetString("strategy"); s != "" {
		cfg.Enrichment.Strategy = s
	}
	if cmd.Flags().Changed("max-providers") {
		cfg.Enrichment.MaxProviders, _ = cmd.Flags().GetInt("max-providers")
	}

	logger := slog.Default()
	wrapper := provider.NewWrapper(cfg.Enrichment.Retry, provider.NewLimiters(), provider.NewHistory(0), logger)
	selector := &strategy.Selector{Languages: languageRegistry(providers), History: wrapper.History()}
	enricher := enrich.New(wrapper, selector, nil, logger)

	res, err := enricher.Enrich(cmd.Context(), baseline, providers, enrich.OptionsFromConfig(cfg.Enrichment))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if done, err := writeStructured(cmd, out, res); done {
		return err
	}
	printEnrichment(cmd, res)
	return nil
}

// baselineFromFlags reads --baseline when given, then overlays the
// individual baseline flags.
func baselineFromFlags(cmd *cobra.Command) (types.MetadataRecord, error) {
	var rec types.MetadataRecord
	if path, _ := cmd.Flags().GetString("baseline"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return rec, fmt.Errorf("reading baseline %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &rec); err != nil {
			return rec, fmt.Errorf("parsing baseline %s: %w", path, err)
		}
	}

	if v, _ := cmd.Flags().GetString("title"); v != "" {
		rec.Title = v
	}
	if v, _ := cmd.Flags().GetStringSlice("author"); len(v) > 0 {
		rec.Authors = v
	}
	if v, _ := cmd.Flags().GetStringSlice("isbn"); len(v) > 0 {
		rec.ISBN = v
	}
	if v, _ := cmd.Flags().GetString("publisher"); v != "" {
		rec.Publisher = v
	}
	if v, _ := cmd.Flags().GetString("language"); v != "" {
		rec.Language = v
	}
	if v, _ := cmd.Flags().GetString("date"); v != "" {
		rec.PublicationDate = v
	}
	return rec, nil
}

// languageRegistry records the language coverage of every provider.
func languageRegistry(providers []provider.Provider) *strategy.LanguageRegistry {
	reg := strategy.NewLanguageRegistry()
	for _, p := range providers {
		reg.Register(p.Name(), p.Languages()...)
	}
	return reg
}

func printEnrichment(cmd *cobra.Command, res enrich.Result) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Enrichment %s (%s via %s, %d records merged)\n\n",
		res.ID, res.Operation, res.Strategy, res.MergedRecords)

	names := make([]string, 0, len(res.Fields))
	for name := range res.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := newTableView("Fields", "Field", "Value", "Confidence", "Sources", "Conflicts").alignRight(3, 5)
	for _, name := range names {
		f := res.Fields[name]
		fields.add(
			name,
			truncate(fieldValue(res.Merged, name), 60),
			formatFloat(f.Confidence),
			strings.Join(f.Sources, ", "),
			strconv.Itoa(len(f.Conflicts)),
		)
	}
	fields.add(enrich.OverallConfidence, "", formatFloat(res.Confidence[enrich.OverallConfidence]), strings.Join(res.Sources, ", "))
	fmt.Fprintln(out, fields.render())

	if len(res.Outcomes) == 0 {
		fmt.Fprintln(out, "\nNo providers selected.")
		return
	}
	outcomes := newTableView("Providers", "Provider", "Status", "Records", "Attempts", "Latency", "Error").alignRight(3, 4, 5)
	for _, o := range res.Outcomes {
		note := ""
		if err := o.Err(); err != nil {
			note = truncate(err.Error(), 60)
		}
		outcomes.add(
			o.Provider,
			string(o.Status),
			strconv.Itoa(len(o.Records)),
			strconv.Itoa(o.Attempts),
			o.Latency.Round(time.Millisecond).String(),
			note,
		)
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, outcomes.render())
}

// fieldValue renders the merged value of one field for the table.
func fieldValue(m types.EnrichedRecord, field string) string {
	switch types.FieldType(field) {
	case types.FieldTitle:
		return m.Title
	case types.FieldAuthors:
		return strings.Join(m.Authors, "; ")
	case types.FieldIdentifiers, types.FieldISBN:
		ids := make([]string, 0, len(m.Identifiers))
		for _, id := range m.Identifiers {
			ids = append(ids, string(id.Type)+":"+id.Normalized)
		}
		return strings.Join(ids, ", ")
	case types.FieldDate:
		return m.PublicationDate
	case types.FieldPublisher:
		if m.Publisher != nil {
			return m.Publisher.Name
		}
	case types.FieldPlace:
		if m.Place != nil {
			return m.Place.Name
		}
	case types.FieldLanguage:
		return m.Language
	case types.FieldPageCount:
		if m.PageCount > 0 {
			return strconv.Itoa(m.PageCount)
		}
	case types.FieldDescription:
		if m.Description != nil {
			return m.Description.Text
		}
	case types.FieldSubjects:
		return strings.Join(m.Subjects, ", ")
	case types.FieldSeries:
		if m.Series != nil {
			return strings.TrimSpace(m.Series.Name + " " + m.Series.Volume)
		}
	case types.FieldCover:
		if len(m.CoverImages) > 0 {
			return m.CoverImages[0].URL
		}
	case types.FieldRating:
		if m.Rating != nil {
			return fmt.Sprintf("%.1f/%.0f (%d)", m.Rating.Value, m.Rating.Scale, m.Rating.Count)
		}
	case types.FieldReviews:
		return fmt.Sprintf("%d reviews", len(m.Reviews))
	case types.FieldTOC:
		return fmt.Sprintf("%d entries", len(m.TableOfContents))
	case types.FieldEditions:
		if m.Edition != nil {
			return m.Edition.SelectedEdition.ID + " (" + m.Edition.SelectionReason + ")"
		}
	}
	return ""
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-3]) + "..."
}
