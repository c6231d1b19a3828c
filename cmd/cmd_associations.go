// Copyright 2025 The CartoBDX Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/cartobdx/cartobdx/geocode"
	"github.com/cartobdx/cartobdx/poi"
	"github.com/cartobdx/cartobdx/utils/textutils"
)

var associationsOptions struct {
	Query       string
	FoldAccents bool
	LocatedOnly bool
	JSON        bool
}

var associationsCmd = &cobra.Command{
	Use:   "associations",
	Short: "Associations de Bordeaux Métropole",
}

var associationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Charge, géolocalise et filtre les associations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		p, err := appOptions.pipeline(ctx)
		if err != nil {
			return err
		}

		res, err := p.loader.LoadAssociations(ctx, newProgress("Géolocalisation"))
		if err != nil {
			return err
		}

		filter := poi.FilterAssociations
		if associationsOptions.FoldAccents {
			filter = poi.FilterAssociationsFolded
		}

		records := filter(res.Associations, associationsOptions.Query)
		if associationsOptions.LocatedOnly {
			records, _ = poi.SplitLocated(records)
		}

		if associationsOptions.JSON {
			return writeJSON(os.Stdout, records)
		}

		printAssociations(os.Stdout, records)

		stats := p.geocoder.Stats()
		fmt.Printf("✅ %s associations affichées sur %s (%s)\n",
			textutils.FormatInt(int64(len(records))),
			textutils.FormatInt(int64(res.Stats.Total)),
			res.Status)
		log.Printf("Chargement en %s, cache open data: %t, cache géocodage: %d hits / %d lookups",
			res.Stats.LoadingTime.Round(1e6), res.Stats.CacheHit, stats.Hits, stats.Lookups)

		return nil
	},
}

// newProgress reports geocoding progress with a bar on a terminal and with
// log lines otherwise.
func newProgress(description string) geocode.ProgressFunc {
	if !isatty.IsTerminal(os.Stderr.Fd()) {
		return func(processed, total int) {
			log.Printf("%s %d/%d", description, processed, total)
		}
	}

	var bar *progressbar.ProgressBar

	return func(processed, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetDescription(description),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
		}

		if err := bar.Set(processed); err != nil {
			log.Printf("⚠️  updating progress bar: %v", err)
		}
	}
}

func printAssociations(w io.Writer, records []poi.Association) {
	a, b, c := strings.Repeat("─", 40), strings.Repeat("─", 24), strings.Repeat("─", 22)
	fmt.Fprintf(w, "╭─%s─┬─%s─┬─%s─╮\n", a, b, c)
	fmt.Fprintf(w, "│ %-40s │ %-24s │ %-22s │\n", "Nom", "Ville", "Position")
	fmt.Fprintf(w, "├─%s─┼─%s─┼─%s─┤\n", a, b, c)

	for i := range records {
		r := &records[i]

		position := "-"
		if r.Point != nil {
			position = fmt.Sprintf("%.5f, %.5f", r.Point.Lat, r.Point.Lng)
		}

		fmt.Fprintf(w, "│ %s │ %s │ %s │\n",
			pad(textutils.Truncate(r.Name, 40), 40),
			pad(textutils.Truncate(r.City, 24), 24),
			pad(textutils.Truncate(position, 22), 22))
	}

	fmt.Fprintf(w, "╰─%s─┴─%s─┴─%s─╯\n", a, b, c)
}

// pad right-pads s with spaces to n runes.
func pad(s string, n int) string {
	if l := len([]rune(s)); l < n {
		return s + strings.Repeat(" ", n-l)
	}

	return s
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding json: %w", err)
	}

	return nil
}

func init() {
	rootCmd.AddCommand(associationsCmd)
	associationsCmd.AddCommand(associationsListCmd)
	associationsListCmd.Flags().StringVarP(&associationsOptions.Query, "query", "q", "", "Filtre sur le nom, la ville, la description, le sigle ou les activités")
	associationsListCmd.Flags().BoolVar(&associationsOptions.FoldAccents, "fold-accents", false, "Ignore les accents dans le filtre (theatre trouve Théâtre)")
	associationsListCmd.Flags().BoolVar(&associationsOptions.LocatedOnly, "located-only", false, "N'affiche que les associations géolocalisées")
	associationsListCmd.Flags().BoolVar(&associationsOptions.JSON, "json", false, "Sortie JSON")
}
