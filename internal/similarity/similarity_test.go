// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pdiddy/book-enricher/pkg/types"
)

func TestString(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "Dune", "Dune", 1},
		{"case and space", "  DUNE ", "dune", 1},
		{"empty left", "", "dune", 0},
		{"empty both", "", "", 0},
		{"one substitution", "kitten", "sitten", 1 - 1.0/6},
		{"kitten sitting", "kitten", "sitting", 1 - 3.0/7},
		{"unicode runes", "café", "cafe", 0.75},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, String(tt.a, tt.b), 1e-9)
		})
	}
}

func TestStringSymmetric(t *testing.T) {
	pairs := [][2]string{{"Foundation", "Foundations"}, {"abc", "xyz"}, {"The Hobbit", "Hobbit"}}
	for _, p := range pairs {
		assert.InDelta(t, String(p[0], p[1]), String(p[1], p[0]), 1e-9)
	}
}

func TestArray(t *testing.T) {
	assert.Equal(t, 0.0, Array(nil, nil))
	assert.Equal(t, 0.0, Array([]string{"a"}, nil))
	assert.Equal(t, 1.0, Array([]string{"Fiction", " fantasy"}, []string{"fantasy", "fiction"}))
	assert.InDelta(t, 1.0/3, Array([]string{"a", "b"}, []string{"b", "c"}), 1e-9)
	assert.Equal(t, 1.0, Array([]string{"a", ""}, []string{"A"}))
}

func TestISBN(t *testing.T) {
	assert.Equal(t, 1.0, ISBN([]string{"978-0-12-345678-6"}, []string{"9780123456786"}))
	assert.Equal(t, 1.0, ISBN([]string{"111", "0 12 345678 x"}, []string{"012345678X"}))
	assert.Equal(t, 0.0, ISBN([]string{"9780123456786"}, []string{"9780123456787"}))
	assert.Equal(t, 0.0, ISBN(nil, []string{"9780123456786"}))
}

func TestDate(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"2001-05-12", "2001-05-12", 1},
		{"2001-05-12", "2001-05-30", 0.9},
		{"2001-05", "2001-05-30", 0.9},
		{"2001-05-12", "2001-07-12", 0.8},
		{"2001", "2001-07-12", 0.8},
		{"2001", "2002", 0.6},
		{"2003", "2001", 0.4},
		{"2001", "2004", 0},
		{"", "2001", 0},
		{"unknown", "2001", 0},
		{"2001-05-12T10:00:00Z", "May 12, 2001", 1},
		{"c1999", "1999", 0.8},
	}
	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			assert.InDelta(t, tt.want, Date(tt.a, tt.b), 1e-9)
			assert.InDelta(t, tt.want, Date(tt.b, tt.a), 1e-9)
		})
	}
}

func TestPublisher(t *testing.T) {
	assert.Equal(t, 1.0, Publisher("Penguin Books Ltd.", "penguin"))
	assert.Equal(t, 1.0, Publisher("Simon & Schuster, Inc.", "Simon and Schuster"))
	assert.Equal(t, 0.9, Publisher("Oxford University Press", "Oxford"))
	assert.Equal(t, 0.0, Publisher("", "Penguin"))
	assert.Less(t, Publisher("Tor", "Bantam"), 0.5)
}

func TestStripCorporateSuffixes(t *testing.T) {
	assert.Equal(t, "harper and row", StripCorporateSuffixes("Harper & Row, Publishers, Inc."))
	assert.Equal(t, "random house", StripCorporateSuffixes("Random House"))
	assert.Equal(t, "viking", StripCorporateSuffixes("The Viking Company"))
	assert.Equal(t, "books", StripCorporateSuffixes("Books"))
}

func TestSeries(t *testing.T) {
	a := []types.Series{{Name: "Discworld", Volume: "1"}}
	assert.InDelta(t, 1.0, Series(a, []types.Series{{Name: "discworld", Volume: "1"}}), 1e-9)
	assert.InDelta(t, 0.8, Series(a, []types.Series{{Name: "Discworld", Volume: "2"}}), 1e-9)
	assert.Equal(t, 0.0, Series(nil, a))
	best := Series(a, []types.Series{{Name: "Other"}, {Name: "Discworld", Volume: "1"}})
	assert.InDelta(t, 1.0, best, 1e-9)
}

func TestNormalizeTitle(t *testing.T) {
	assert.Equal(t, "les miserables", NormalizeTitle("Les Misérables"))
	assert.Equal(t, "pride and prejudice", NormalizeTitle("Pride & Prejudice!"))
	assert.Equal(t, "the lord of the rings", NormalizeTitle("  The Lord   of the Rings: "))
	assert.Equal(t, "", NormalizeTitle("   "))
}

func TestNormalizeAuthor(t *testing.T) {
	assert.Equal(t, "jane austen", NormalizeAuthor("Austen, Jane"))
	assert.Equal(t, "jane austen", NormalizeAuthor("Jane Austen"))
}

func TestTokenSet(t *testing.T) {
	assert.Equal(t, []string{"the", "cat", "sat", "mat"}, TokenSet("The cat sat on the mat"))
	assert.Empty(t, TokenSet("a of"))
}

func TestSearchTokens(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"The Hobbit", []string{"hobbit"}},
		{"War and Peace", []string{"war", "peace"}},
		{"The And", []string{"the", "and"}},
		{"a of", nil},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SearchTokens(tt.in))
		})
	}
}

func TestParseDate(t *testing.T) {
	d, ok := ParseDate("1984-06")
	assert.True(t, ok)
	assert.Equal(t, PartialDate{Year: 1984, Month: 6}, d)
	assert.Equal(t, "1984-06", d.String())
	assert.Equal(t, 2, d.Precision())

	d, ok = ParseDate("June 8, 1949")
	assert.True(t, ok)
	assert.Equal(t, "1949-06-08", d.String())

	d, ok = ParseDate("January 1950")
	assert.True(t, ok)
	assert.Equal(t, PartialDate{Year: 1950, Month: 1}, d)

	_, ok = ParseDate("n.d.")
	assert.False(t, ok)
}
