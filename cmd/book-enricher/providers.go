// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/book-enricher/pkg/types"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List configured metadata providers",
	Long: `Providers lists every provider from the configuration and any
--fixtures file with its kind, priority, languages, and the data types it
supports with their reliability scores.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		providers, err := loadProviders(cmd, cfg)
		if err != nil {
			return err
		}

		type row struct {
			Name        string                      `json:"name" yaml:"name"`
			Kind        string                      `json:"kind" yaml:"kind"`
			Priority    int                         `json:"priority" yaml:"priority"`
			Languages   []string                    `json:"languages" yaml:"languages"`
			Reliability map[types.FieldType]float64 `json:"reliability" yaml:"reliability"`
		}
		list := make([]row, 0, len(providers))
		for _, p := range providers {
			r := row{
				Name: p.Name(), Kind: string(p.Kind()), Priority: p.Priority(),
				Languages: p.Languages(), Reliability: map[types.FieldType]float64{},
			}
			for _, f := range types.AllFieldTypes() {
				if p.SupportsDataType(f) {
					r.Reliability[f] = p.ReliabilityScore(f)
				}
			}
			list = append(list, r)
		}
		sort.SliceStable(list, func(i, j int) bool { return list[i].Priority > list[j].Priority })

		if done, err := writeStructured(cmd, cmd.OutOrStdout(), list); done {
			return err
		}

		tv := newTableView("", "Name", "Kind", "Priority", "Languages", "Reliability").alignRight(3)
		for _, r := range list {
			fields := make([]string, 0, len(r.Reliability))
			for _, f := range types.AllFieldTypes() {
				if v, ok := r.Reliability[f]; ok {
					fields = append(fields, fmt.Sprintf("%s=%.2f", f, v))
				}
			}
			tv.add(r.Name, r.Kind, strconv.Itoa(r.Priority),
				strings.Join(r.Languages, ","), strings.Join(fields, " "))
		}
		fmt.Fprintln(cmd.OutOrStdout(), tv.render())
		return nil
	},
}

func init() {
	providersCmd.Flags().String("fixtures", "", "YAML file of static providers and their records")
	addOutputFlags(providersCmd)
	rootCmd.AddCommand(providersCmd)
}
