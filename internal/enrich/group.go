// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package enrich

import (
	"github.com/pdiddy/book-enricher/internal/reconcile"
	"github.com/pdiddy/book-enricher/internal/similarity"
	"github.com/pdiddy/book-enricher/pkg/types"
)

// Cluster is a set of records judged to describe the same book.
type Cluster struct {
	Records []types.MetadataRecord `json:"records" yaml:"records"`

	// Merged fills each field from the first record that has it.
	Merged types.MetadataRecord `json:"merged" yaml:"merged"`
}

// GroupRecords clusters records that share a normalized ISBN or a
// normalized title and first author. A record without authors matches any
// record with its title. Matching is transitive: a record linking two
// clusters joins them. Clusters keep the order in which their
// first record appears.
func GroupRecords(records []types.MetadataRecord) []Cluster {
	return buildClusters(records, groupIndices(records))
}

func buildClusters(records []types.MetadataRecord, groups [][]int) []Cluster {
	clusters := make([]Cluster, len(groups))
	for i, idx := range groups {
		for _, j := range idx {
			clusters[i].Records = append(clusters[i].Records, records[j])
		}
		clusters[i].Merged = mergeRecords(clusters[i].Records)
	}
	return clusters
}

// groupIndices returns the record positions of each cluster.
func groupIndices(records []types.MetadataRecord) [][]int {
	parent := make([]int, len(records))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i])
		}
		return parent[i]
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra == rb {
			return
		}
		if rb < ra {
			ra, rb = rb, ra
		}
		parent[rb] = ra
	}

	seen := make(map[string]int)       // group key → first record index
	byTitle := make(map[string]int)    // title → first record index
	authorless := make(map[string]int) // title → first record index without authors
	for i, r := range records {
		for _, key := range groupKeys(r) {
			if j, ok := seen[key]; ok {
				union(j, i)
				continue
			}
			seen[key] = i
		}

		title := similarity.NormalizeTitle(r.Title)
		if title == "" {
			continue
		}
		if _, ok := byTitle[title]; !ok {
			byTitle[title] = i
		}
		if firstAuthor(r) != "" {
			if j, ok := authorless[title]; ok {
				union(j, i)
			}
			continue
		}
		union(byTitle[title], i)
		if _, ok := authorless[title]; !ok {
			authorless[title] = i
		}
	}

	index := make(map[int]int) // root → group position
	var groups [][]int
	for i := range records {
		root := find(i)
		pos, ok := index[root]
		if !ok {
			pos = len(groups)
			index[root] = pos
			groups = append(groups, nil)
		}
		groups[pos] = append(groups[pos], i)
	}
	return groups
}

// groupKeys returns the identity keys of a record: one per valid ISBN and
// one for the title plus first author.
func groupKeys(r types.MetadataRecord) []string {
	var keys []string
	for _, raw := range r.ISBN {
		id := reconcile.NormalizeIdentifier(raw)
		if id.Type == types.IdentifierISBN && id.Valid {
			keys = append(keys, "isbn:"+id.Normalized)
		}
	}
	if title := similarity.NormalizeTitle(r.Title); title != "" {
		keys = append(keys, "title:"+title+"|"+firstAuthor(r))
	}
	return keys
}

func firstAuthor(r types.MetadataRecord) string {
	if len(r.Authors) == 0 {
		return ""
	}
	return similarity.NormalizeAuthor(r.Authors[0])
}

// mergeRecords fills empty fields of the first record from the others.
func mergeRecords(records []types.MetadataRecord) types.MetadataRecord {
	if len(records) == 0 {
		return types.MetadataRecord{}
	}
	dst := records[0]
	dst.ISBN = append([]string(nil), dst.ISBN...)
	for _, src := range records[1:] {
		mergeInto(&dst, src)
	}
	return dst
}

func mergeInto(dst *types.MetadataRecord, src types.MetadataRecord) {
	if dst.Title == "" {
		dst.Title = src.Title
	}
	if len(dst.Authors) == 0 {
		dst.Authors = src.Authors
	}
	for _, isbn := range src.ISBN {
		if !hasISBN(dst.ISBN, isbn) {
			dst.ISBN = append(dst.ISBN, isbn)
		}
	}
	if dst.PublicationDate == "" {
		dst.PublicationDate = src.PublicationDate
	}
	if dst.Publisher == "" {
		dst.Publisher = src.Publisher
	}
	if dst.Language == "" {
		dst.Language = src.Language
	}
	if dst.PageCount == 0 {
		dst.PageCount = src.PageCount
	}
	if dst.Description == "" {
		dst.Description = src.Description
	}
	if len(dst.Subjects) == 0 {
		dst.Subjects = src.Subjects
	}
	if dst.Series == nil {
		dst.Series = src.Series
	}
	if dst.CoverImage == nil {
		dst.CoverImage = src.CoverImage
	}
	if dst.PublicationPlace == "" {
		dst.PublicationPlace = src.PublicationPlace
	}
	if src.Confidence > dst.Confidence {
		dst.Confidence = src.Confidence
	}
}

// hasISBN reports whether list holds isbn in any of its printed forms.
func hasISBN(list []string, isbn string) bool {
	want := reconcile.NormalizeIdentifier(isbn).Normalized
	for _, v := range list {
		if reconcile.NormalizeIdentifier(v).Normalized == want {
			return true
		}
	}
	return false
}
