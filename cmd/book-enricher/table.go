// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"
)

// tableView collects rows for a rounded terminal table. Headers keep the
// case they are given.
type tableView struct {
	title   string
	headers []string
	right   []int // 1-based columns aligned right
	rows    [][]string
}

func newTableView(title string, headers ...string) *tableView {
	return &tableView{title: title, headers: headers}
}

// alignRight marks 1-based columns for right alignment, typically numbers.
func (v *tableView) alignRight(columns ...int) *tableView {
	v.right = append(v.right, columns...)
	return v
}

// add appends a row. Missing cells render empty and extra cells are dropped.
func (v *tableView) add(cells ...string) {
	v.rows = append(v.rows, cells)
}

func (v *tableView) render() string {
	width := len(v.headers)
	if width == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.Style().Format.Header = text.FormatDefault
	if v.title != "" {
		tw.SetTitle(v.title)
	}

	tw.AppendHeader(fitRow(v.headers, width))
	for _, cells := range v.rows {
		tw.AppendRow(fitRow(cells, width))
	}

	configs := make([]table.ColumnConfig, width)
	for i := range configs {
		n := i + 1
		configs[i] = table.ColumnConfig{Number: n, Align: text.AlignLeft, AlignHeader: text.AlignLeft}
		if slices.Contains(v.right, n) {
			configs[i].Align = text.AlignRight
		}
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

func fitRow(cells []string, width int) table.Row {
	row := make(table.Row, width)
	for i := range row {
		row[i] = ""
		if i < len(cells) {
			row[i] = cells[i]
		}
	}
	return row
}

// writeStructured writes v as JSON or YAML when the command's --json or
// --yaml flag is set and reports whether it did.
func writeStructured(cmd *cobra.Command, w io.Writer, v any) (bool, error) {
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	}
	if asYAML, _ := cmd.Flags().GetBool("yaml"); asYAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return true, fmt.Errorf("encoding yaml: %w", err)
		}
		return true, enc.Close()
	}
	return false, nil
}

func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("json", false, "output as JSON")
	cmd.Flags().Bool("yaml", false, "output as YAML")
	cmd.MarkFlagsMutuallyExclusive("json", "yaml")
}

func formatFloat(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
