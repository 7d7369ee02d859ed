// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package enrich fans a baseline record out to metadata providers, groups
// what comes back, and reconciles every field family into one merged
// record with per-field confidence.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/book-enricher/internal/provider"
	"github.com/pdiddy/book-enricher/internal/reconcile"
	"github.com/pdiddy/book-enricher/internal/similarity"
	"github.com/pdiddy/book-enricher/internal/strategy"
	"github.com/pdiddy/book-enricher/pkg/types"
)

// BaselineSource names caller-extracted metadata when the baseline record
// carries no source of its own.
const BaselineSource = "baseline"

// OverallConfidence is the Result.Confidence key holding the mean of the
// reconciled field confidences.
const OverallConfidence = "overall"

// ErrNoQuery is returned when the baseline has no title, ISBN, or author
// to search providers with.
var ErrNoQuery = errors.New("baseline carries nothing to search for")

// Options controls one enrichment.
type Options struct {
	// Strategy is the provider-selection strategy name.
	Strategy string

	Selection strategy.Options

	// OperationTimeout bounds the whole fan-out. Zero means no bound
	// beyond the caller's context.
	OperationTimeout time.Duration

	// BaselineReliability is the trust given to the baseline when its
	// source carries none.
	BaselineReliability float64

	Edition reconcile.EditionOptions
}

// OptionsFromConfig maps the enrichment configuration onto Options.
func OptionsFromConfig(cfg types.EnrichmentConfig) Options {
	opts := Options{
		Strategy: cfg.Strategy,
		Selection: strategy.Options{
			RequiredDataTypes:   cfg.RequiredDataTypes,
			MinReliabilityScore: cfg.MinReliability,
			ExcludeProviders:    cfg.ExcludeProviders,
		},
		OperationTimeout:    cfg.OperationTimeout,
		BaselineReliability: cfg.BaselineReliability,
		Edition: reconcile.EditionOptions{
			RecentWindow:    cfg.RecentEditionWindow,
			MaxAlternatives: cfg.MaxEditionAlternatives,
		},
	}
	if cfg.MaxProviders >= 0 {
		opts.Selection.MaxProviders = strategy.Limit(cfg.MaxProviders)
	}
	return opts
}

// FieldReport explains one reconciled field.
type FieldReport struct {
	Confidence float64          `json:"confidence" yaml:"confidence"`
	Sources    []string         `json:"sources" yaml:"sources"`
	Conflicts  []types.Conflict `json:"conflicts,omitempty" yaml:"conflicts,omitempty"`
	Reasoning  string           `json:"reasoning" yaml:"reasoning"`
}

// Result is the outcome of one enrichment.
type Result struct {
	ID        uuid.UUID            `json:"id" yaml:"id"`
	Query     types.Query          `json:"query" yaml:"query"`
	Operation provider.Operation   `json:"operation" yaml:"operation"`
	Strategy  string               `json:"strategy" yaml:"strategy"`
	Merged    types.EnrichedRecord `json:"merged" yaml:"merged"`

	// Sources names every source that contributed to a reconciled field.
	Sources []string `json:"sources" yaml:"sources"`

	// Confidence maps field names, plus "overall", to reconciled confidence.
	Confidence map[string]float64     `json:"confidence" yaml:"confidence"`
	Fields     map[string]FieldReport `json:"fields" yaml:"fields"`

	// Outcomes holds one wrapped call result per selected provider, in
	// selection order.
	Outcomes []provider.Result `json:"outcomes" yaml:"outcomes"`

	// Clusters groups the baseline and provider records by identity; the
	// first cluster is the one that was reconciled.
	Clusters []Cluster `json:"clusters" yaml:"clusters"`

	// MergedRecords counts the records reconciled into Merged.
	MergedRecords int `json:"merged_records" yaml:"merged_records"`
}

// Enricher wires provider selection, resilient calls, and reconciliation.
type Enricher struct {
	Wrapper    *provider.Wrapper
	Selector   *strategy.Selector
	Reconciler *reconcile.Reconciler
	Logger     *slog.Logger
}

// New returns an Enricher. Nil collaborators get defaults: a wrapper with
// default retry settings, a selector sharing the wrapper's latency
// history, and the current scoring table.
func New(w *provider.Wrapper, sel *strategy.Selector, r *reconcile.Reconciler, logger *slog.Logger) *Enricher {
	if logger == nil {
		logger = slog.Default()
	}
	if w == nil {
		w = provider.NewWrapper(types.RetryConfig{}, nil, nil, logger)
	}
	if sel == nil {
		sel = &strategy.Selector{History: w.History()}
	}
	if r == nil {
		r = reconcile.New()
	}
	return &Enricher{Wrapper: w, Selector: sel, Reconciler: r, Logger: logger}
}

// QueryFor derives the provider query from a baseline record.
func QueryFor(baseline types.MetadataRecord) types.Query {
	q := types.Query{
		Title:     baseline.Title,
		Authors:   baseline.Authors,
		Publisher: baseline.Publisher,
	}
	for _, raw := range baseline.ISBN {
		if id := reconcile.NormalizeIdentifier(raw); id.Type == types.IdentifierISBN && id.Valid {
			q.ISBN = id.Normalized
			break
		}
	}
	if baseline.Language != "" {
		q.Languages = []string{baseline.Language}
	}
	if d, ok := similarity.ParseDate(baseline.PublicationDate); ok {
		q.Year = d.Year
	}
	return q
}

// sourced is a record paired with the provider that returned it; nil for
// the baseline.
type sourced struct {
	record   types.MetadataRecord
	provider provider.Provider
}

// Enrich queries the selected providers concurrently and reconciles their
// records with the baseline. Provider failures never fail the enrichment;
// they show up as degraded Outcomes. Only an empty baseline or an unknown
// strategy is an error.
func (e *Enricher) Enrich(ctx context.Context, baseline types.MetadataRecord, providers []provider.Provider, opts Options) (Result, error) {
	q := QueryFor(baseline)
	op, err := provider.OperationFor(q)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrNoQuery, err)
	}
	selected, err := e.Selector.Select(providers, q, opts.Strategy, opts.Selection)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		ID:         uuid.New(),
		Query:      q,
		Operation:  op,
		Strategy:   opts.Strategy,
		Confidence: make(map[string]float64),
		Fields:     make(map[string]FieldReport),
		Sources:    []string{},
	}
	res.Outcomes = e.fanOut(ctx, selected, op, q, opts.OperationTimeout)

	if baseline.Source.Name == "" {
		baseline.Source.Name = BaselineSource
	}
	if baseline.Source.Reliability == 0 {
		baseline.Source.Reliability = opts.BaselineReliability
	}
	all := []sourced{{record: baseline}}
	byName := make(map[string]provider.Provider, len(selected))
	for _, p := range selected {
		byName[p.Name()] = p
	}
	for _, out := range res.Outcomes {
		for _, r := range out.Records {
			all = append(all, sourced{record: r, provider: byName[out.Provider]})
		}
	}

	chosen, clusters := chooseCluster(all)
	res.Clusters = clusters
	res.MergedRecords = len(chosen)

	e.reconcileAll(&res, chosen, q, opts)
	e.Logger.Info("enrichment complete",
		"id", res.ID.String(),
		"providers", len(selected),
		"records", len(all)-1,
		"merged", res.MergedRecords,
		"overall", res.Confidence[OverallConfidence],
	)
	return res, nil
}

// fanOut calls every provider concurrently under one operation deadline.
// Each provider gets its own slot so results keep selection order.
func (e *Enricher) fanOut(ctx context.Context, providers []provider.Provider, op provider.Operation, q types.Query, timeout time.Duration) []provider.Result {
	opCtx, cancel := ctx, context.CancelFunc(func() {})
	if timeout > 0 {
		opCtx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	results := make([]provider.Result, len(providers))
	g, gctx := errgroup.WithContext(opCtx)
	for i, p := range providers {
		g.Go(func() error {
			results[i] = e.Wrapper.Call(gctx, p, op, q)
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range results {
		if r.Degraded() {
			e.Logger.Warn("provider returned no data", "provider", r.Provider, "error", r.Err())
		}
	}
	return results
}

// chooseCluster groups the records and returns the members of the
// cluster holding the baseline. The baseline is record 0, so its cluster
// is always first.
func chooseCluster(all []sourced) ([]sourced, []Cluster) {
	records := make([]types.MetadataRecord, len(all))
	for i, s := range all {
		records[i] = s.record
	}
	groups := groupIndices(records)
	clusters := buildClusters(records, groups)
	chosen := make([]sourced, 0, len(groups[0]))
	for _, j := range groups[0] {
		chosen = append(chosen, all[j])
	}
	return chosen, clusters
}

// sourceFor returns the provenance of r for field: the provider's per-field
// reliability when it declares one, otherwise the record's own.
func sourceFor(s sourced, fields ...types.FieldType) types.MetadataSource {
	src := s.record.Source
	if src.Timestamp.IsZero() {
		src.Timestamp = s.record.Timestamp
	}
	if s.provider == nil {
		return src
	}
	src.Name = s.provider.Name()
	for _, f := range fields {
		if s.provider.SupportsDataType(f) {
			if rel := s.provider.ReliabilityScore(f); rel > 0 {
				src.Reliability = rel
				return src
			}
		}
	}
	return src
}

func inputsOf[T any](recs []sourced, get func(types.MetadataRecord) (T, bool), fields ...types.FieldType) []reconcile.Input[T] {
	var out []reconcile.Input[T]
	for _, s := range recs {
		if v, ok := get(s.record); ok {
			out = append(out, reconcile.Input[T]{Value: v, Source: sourceFor(s, fields...)})
		}
	}
	return out
}

// collect records a reconciled field in the result and returns its value.
// ok is false when the field had no inputs or the reconciler failed.
func collect[T any](e *Enricher, res *Result, field types.FieldType, n int, run func() (types.ReconciledField[T], error)) (T, bool) {
	var zero T
	if n == 0 {
		return zero, false
	}
	rf, err := run()
	if err != nil {
		e.Logger.Warn("field reconciliation failed", "field", string(field), "error", err)
		return zero, false
	}
	res.Confidence[string(field)] = rf.Confidence
	res.Fields[string(field)] = FieldReport{
		Confidence: rf.Confidence,
		Sources:    rf.SourceNames(),
		Conflicts:  rf.Conflicts,
		Reasoning:  rf.Reasoning,
	}
	for _, name := range rf.SourceNames() {
		res.Sources = appendUnique(res.Sources, name)
	}
	return rf.Value, true
}

func appendUnique(list []string, v string) []string {
	for _, x := range list {
		if x == v {
			return list
		}
	}
	return append(list, v)
}

func (e *Enricher) reconcileAll(res *Result, recs []sourced, q types.Query, opts Options) {
	r := e.Reconciler
	m := &res.Merged

	titles := inputsOf(recs, func(x types.MetadataRecord) (string, bool) { return x.Title, x.Title != "" }, types.FieldTitle)
	if v, ok := collect(e, res, types.FieldTitle, len(titles), func() (types.ReconciledField[string], error) { return r.ReconcileTitle(titles) }); ok {
		m.Title = v
	}

	authors := inputsOf(recs, func(x types.MetadataRecord) ([]string, bool) { return x.Authors, len(x.Authors) > 0 }, types.FieldAuthors)
	if v, ok := collect(e, res, types.FieldAuthors, len(authors), func() (types.ReconciledField[[]string], error) { return r.ReconcileAuthors(authors) }); ok {
		m.Authors = v
	}

	ids := inputsOf(recs, func(x types.MetadataRecord) ([]string, bool) {
		all := append(append([]string(nil), x.ISBN...), x.Identifiers...)
		return all, len(all) > 0
	}, types.FieldIdentifiers, types.FieldISBN)
	if v, ok := collect(e, res, types.FieldIdentifiers, len(ids), func() (types.ReconciledField[[]types.Identifier], error) { return r.ReconcileIdentifiers(ids) }); ok {
		m.Identifiers = v
	}

	dates := inputsOf(recs, func(x types.MetadataRecord) (string, bool) { return x.PublicationDate, x.PublicationDate != "" }, types.FieldDate)
	if v, ok := collect(e, res, types.FieldDate, len(dates), func() (types.ReconciledField[string], error) { return r.ReconcileDate(dates) }); ok {
		m.PublicationDate = v
	}

	publishers := inputsOf(recs, func(x types.MetadataRecord) (string, bool) { return x.Publisher, x.Publisher != "" }, types.FieldPublisher)
	if v, ok := collect(e, res, types.FieldPublisher, len(publishers), func() (types.ReconciledField[types.Publisher], error) { return r.ReconcilePublisher(publishers) }); ok && v.Normalized != "" {
		m.Publisher = &v
	}

	places := inputsOf(recs, func(x types.MetadataRecord) (string, bool) { return x.PublicationPlace, x.PublicationPlace != "" }, types.FieldPlace)
	if v, ok := collect(e, res, types.FieldPlace, len(places), func() (types.ReconciledField[types.PublicationPlace], error) { return r.ReconcilePlace(places) }); ok && v.Normalized != "" {
		m.Place = &v
	}

	langs := inputsOf(recs, func(x types.MetadataRecord) (string, bool) { return x.Language, x.Language != "" }, types.FieldLanguage)
	if v, ok := collect(e, res, types.FieldLanguage, len(langs), func() (types.ReconciledField[string], error) { return r.ReconcileLanguage(langs) }); ok {
		m.Language = v
	}

	pages := inputsOf(recs, func(x types.MetadataRecord) (int, bool) { return x.PageCount, x.PageCount > 0 }, types.FieldPageCount)
	if v, ok := collect(e, res, types.FieldPageCount, len(pages), func() (types.ReconciledField[int], error) { return r.ReconcilePageCount(pages) }); ok {
		m.PageCount = v
	}

	descs := inputsOf(recs, func(x types.MetadataRecord) (string, bool) { return x.Description, x.Description != "" }, types.FieldDescription)
	if v, ok := collect(e, res, types.FieldDescription, len(descs), func() (types.ReconciledField[types.Description], error) { return r.ReconcileDescription(descs) }); ok && v.Text != "" {
		m.Description = &v
	}

	subjects := inputsOf(recs, func(x types.MetadataRecord) ([]string, bool) { return x.Subjects, len(x.Subjects) > 0 }, types.FieldSubjects)
	if v, ok := collect(e, res, types.FieldSubjects, len(subjects), func() (types.ReconciledField[[]string], error) { return r.ReconcileSubjects(subjects) }); ok {
		m.Subjects = v
	}

	series := inputsOf(recs, func(x types.MetadataRecord) (types.Series, bool) {
		if x.Series == nil {
			return types.Series{}, false
		}
		return *x.Series, x.Series.Name != ""
	}, types.FieldSeries)
	if v, ok := collect(e, res, types.FieldSeries, len(series), func() (types.ReconciledField[types.Series], error) { return r.ReconcileSeries(series) }); ok && v.Name != "" {
		m.Series = &v
	}

	covers := inputsOf(recs, func(x types.MetadataRecord) (types.CoverImage, bool) {
		if x.CoverImage == nil {
			return types.CoverImage{}, false
		}
		return *x.CoverImage, x.CoverImage.URL != ""
	}, types.FieldCover)
	if v, ok := collect(e, res, types.FieldCover, len(covers), func() (types.ReconciledField[[]types.CoverImage], error) { return r.ReconcileCovers(covers) }); ok {
		m.CoverImages = v
	}

	ratings := inputsOf(recs, func(x types.MetadataRecord) (types.Rating, bool) {
		if x.Rating == nil {
			return types.Rating{}, false
		}
		return *x.Rating, true
	}, types.FieldRating)
	if v, ok := collect(e, res, types.FieldRating, len(ratings), func() (types.ReconciledField[types.Rating], error) { return r.ReconcileRating(ratings) }); ok && v.Scale > 0 {
		m.Rating = &v
	}

	reviews := inputsOf(recs, func(x types.MetadataRecord) ([]types.Review, bool) { return x.Reviews, len(x.Reviews) > 0 }, types.FieldReviews)
	if v, ok := collect(e, res, types.FieldReviews, len(reviews), func() (types.ReconciledField[[]types.Review], error) { return r.ReconcileReviews(reviews) }); ok {
		m.Reviews = v
	}

	tocs := inputsOf(recs, func(x types.MetadataRecord) (reconcile.TOCCandidate, bool) {
		c := reconcile.TOCCandidate{Text: x.TableOfContents, Entries: x.TOCEntries}
		return c, c.Text != "" || len(c.Entries) > 0
	}, types.FieldTOC)
	if v, ok := collect(e, res, types.FieldTOC, len(tocs), func() (types.ReconciledField[[]types.TOCEntry], error) { return r.ReconcileTOC(tocs) }); ok {
		m.TableOfContents = v
	}

	var editions []reconcile.Input[types.Edition]
	for _, s := range recs {
		src := sourceFor(s, types.FieldEditions)
		for _, ed := range s.record.Editions {
			editions = append(editions, reconcile.Input[types.Edition]{Value: ed, Source: src})
		}
	}
	edOpts := opts.Edition
	if edOpts.PreferredLanguage == "" {
		edOpts.PreferredLanguage = m.Language
	}
	if edOpts.PreferredLanguage == "" && len(q.Languages) > 0 {
		edOpts.PreferredLanguage = q.Languages[0]
	}
	if v, ok := collect(e, res, types.FieldEditions, len(editions), func() (types.ReconciledField[types.EditionSelection], error) {
		return r.SelectEdition(editions, edOpts)
	}); ok && len(v.AvailableEditions) > 0 {
		m.Edition = &v
	}

	sort.Strings(res.Sources)
	res.Confidence[OverallConfidence] = overall(res.Confidence)
}

// overall is the mean of the field confidences, 0 when nothing reconciled.
// Fields are summed in name order so the result is reproducible.
func overall(conf map[string]float64) float64 {
	fields := make([]string, 0, len(conf))
	for k := range conf {
		if k != OverallConfidence {
			fields = append(fields, k)
		}
	}
	if len(fields) == 0 {
		return 0
	}
	sort.Strings(fields)
	total := 0.0
	for _, k := range fields {
		total += conf[k]
	}
	return total / float64(len(fields))
}
