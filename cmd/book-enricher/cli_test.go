// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/book-enricher/internal/provider"
	"github.com/pdiddy/book-enricher/pkg/types"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{" error ", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.in))
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger("info", "json", &buf)
	require.NoError(t, err)
	logger.Debug("hidden")
	logger.Info("shown", "provider", "loc")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "shown", line["msg"])
	assert.Equal(t, "loc", line["provider"])

	_, err = newLogger("info", "xml", &buf)
	assert.Error(t, err)
}

func TestTableView_Render(t *testing.T) {
	tv := newTableView("Catalog", "Name", "Count").alignRight(2)
	tv.add("works", "2")
	tv.add("assets")
	tv.add("editions", "3", "ignored")
	out := tv.render()

	assert.Contains(t, out, "Catalog")
	assert.Contains(t, out, "Name")
	assert.Contains(t, out, "Count")
	assert.NotContains(t, out, "NAME", "headers keep their case")
	assert.NotContains(t, out, "COUNT")
	assert.Contains(t, out, "works")
	assert.Contains(t, out, "assets")
	assert.NotContains(t, out, "ignored")

	assert.Empty(t, newTableView("").render())
}

func TestLanguageRegistry(t *testing.T) {
	providers := []provider.Provider{
		provider.NewStatic(types.ProviderConfig{Name: "bnf", Languages: []string{"fr", "German"}}),
		provider.NewStatic(types.ProviderConfig{Name: "loc"}),
	}
	reg := languageRegistry(providers)

	assert.Equal(t, []string{"fr", "de"}, reg.Languages("bnf"))
	assert.Equal(t, []string{"en"}, reg.Languages("loc"))
	assert.Equal(t, 1, reg.Coverage("bnf", []string{"fr", "en"}))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "a b", truncate("a\n  b", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}

func TestFieldValue(t *testing.T) {
	m := types.EnrichedRecord{
		Title:       "Dune",
		Authors:     []string{"Frank Herbert"},
		Identifiers: []types.Identifier{{Type: types.IdentifierISBN, Normalized: "9780441172719"}},
		PageCount:   412,
		Publisher:   &types.Publisher{Name: "Ace Books"},
	}
	assert.Equal(t, "Dune", fieldValue(m, "title"))
	assert.Equal(t, "isbn:9780441172719", fieldValue(m, "identifiers"))
	assert.Equal(t, "412", fieldValue(m, "pageCount"))
	assert.Equal(t, "Ace Books", fieldValue(m, "publisher"))
	assert.Empty(t, fieldValue(m, "place"))
}

func testCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("title", "", "")
	cmd.Flags().StringSlice("author", nil, "")
	cmd.Flags().StringSlice("isbn", nil, "")
	cmd.Flags().String("publisher", "", "")
	cmd.Flags().String("language", "", "")
	cmd.Flags().String("date", "", "")
	cmd.Flags().String("baseline", "", "")
	return cmd
}

func TestBaselineFromFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "baseline.yaml")
	require.NoError(t, os.WriteFile(path, []byte("title: Dune\nauthors: [Frank Herbert]\npage_count: 412\n"), 0o644))

	cmd := testCommand()
	require.NoError(t, cmd.Flags().Set("baseline", path))
	require.NoError(t, cmd.Flags().Set("title", "Dune Messiah"))
	require.NoError(t, cmd.Flags().Set("isbn", "0441172695"))

	rec, err := baselineFromFlags(cmd)
	require.NoError(t, err)
	assert.Equal(t, "Dune Messiah", rec.Title, "flags override the file")
	assert.Equal(t, []string{"Frank Herbert"}, rec.Authors)
	assert.Equal(t, []string{"0441172695"}, rec.ISBN)
	assert.Equal(t, 412, rec.PageCount)
}

func TestWriteStructured(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	addOutputFlags(cmd)

	var buf bytes.Buffer
	done, err := writeStructured(cmd, &buf, map[string]int{"works": 2})
	require.NoError(t, err)
	assert.False(t, done)
	assert.Empty(t, buf.String())

	require.NoError(t, cmd.Flags().Set("yaml", "true"))
	done, err = writeStructured(cmd, &buf, map[string]int{"works": 2})
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, "works: 2", strings.TrimSpace(buf.String()))
}
