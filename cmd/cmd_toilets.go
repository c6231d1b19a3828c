// Copyright 2025 The CartoBDX Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cartobdx/cartobdx/loader"
	"github.com/cartobdx/cartobdx/poi"
	"github.com/cartobdx/cartobdx/spatial"
	"github.com/cartobdx/cartobdx/utils/textutils"
)

var toiletsOptions struct {
	File    string
	Filter  string
	Lat     float64
	Lng     float64
	Nearest int
	JSON    bool
}

var toiletsCmd = &cobra.Command{
	Use:   "toilets",
	Short: "Toilettes publiques de Bordeaux Métropole",
}

// loadToilets reads --file when set, the open data export otherwise.
func loadToilets(ctx context.Context) ([]poi.Toilet, error) {
	if toiletsOptions.File != "" {
		return loader.LoadToiletsFile(toiletsOptions.File)
	}

	return appOptions.fetcher(appOptions.httpClient()).FetchToilets(ctx)
}

var toiletsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Liste les toilettes (ALL, ACCESSIBLE ou un type)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		filter, err := poi.ParseToiletFilter(toiletsOptions.Filter)
		if err != nil {
			return err
		}

		toilets, err := loadToilets(cmd.Context())
		if err != nil {
			return err
		}

		selected := poi.FilterToilets(toilets, filter)
		if toiletsOptions.JSON {
			return writeJSON(os.Stdout, selected)
		}

		printToilets(os.Stdout, selected, nil)
		fmt.Printf("✅ %s toilettes (%s)\n", textutils.FormatInt(int64(len(selected))), filter)

		return nil
	},
}

var toiletsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Compte les toilettes par type et accessibilité",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		toilets, err := loadToilets(cmd.Context())
		if err != nil {
			return err
		}

		summary := poi.SummarizeToilets(toilets)
		if toiletsOptions.JSON {
			return writeJSON(os.Stdout, summary)
		}

		fmt.Printf("Total:       %s\n", textutils.FormatInt(int64(summary.Total)))
		fmt.Printf("Accessibles: %s\n", textutils.FormatInt(int64(summary.Accessible)))

		for _, k := range poi.KnownKinds {
			fmt.Printf("%-12s %s\n", k.Label()+":", textutils.FormatInt(int64(summary.ByKind[k])))
		}

		return nil
	},
}

var toiletsNearestCmd = &cobra.Command{
	Use:   "nearest",
	Short: "Trouve les toilettes les plus proches d'un point",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		toilets, err := loadToilets(cmd.Context())
		if err != nil {
			return err
		}

		origin := spatial.Point{Lat: toiletsOptions.Lat, Lng: toiletsOptions.Lng}

		nearest, err := poi.NearestToilets(toilets, origin, toiletsOptions.Nearest)
		if err != nil {
			return err
		}

		if toiletsOptions.JSON {
			return writeJSON(os.Stdout, nearest)
		}

		selected := make([]poi.Toilet, len(nearest))
		distances := make([]float64, len(nearest))

		for i, n := range nearest {
			selected[i] = n.Item
			distances[i] = n.Distance
		}

		printToilets(os.Stdout, selected, distances)

		return nil
	},
}

func printToilets(w io.Writer, toilets []poi.Toilet, distances []float64) {
	a, b, c, d := strings.Repeat("─", 36), strings.Repeat("─", 22), strings.Repeat("─", 4), strings.Repeat("─", 9)
	fmt.Fprintf(w, "╭─%s─┬─%s─┬─%s─┬─%s─╮\n", a, b, c, d)
	fmt.Fprintf(w, "│ %-36s │ %-22s │ %-4s │ %9s │\n", "Adresse", "Type", "PMR", "Distance")
	fmt.Fprintf(w, "├─%s─┼─%s─┼─%s─┼─%s─┤\n", a, b, c, d)

	for i := range toilets {
		t := &toilets[i]

		distance := ""
		if distances != nil {
			distance = fmt.Sprintf("%.0f m", distances[i])
		}

		fmt.Fprintf(w, "│ %s │ %s │ %-4s │ %9s │\n",
			pad(textutils.Truncate(t.Address, 36), 36),
			pad(textutils.Truncate(t.Kind.Label(), 22), 22),
			t.Handi,
			distance)
	}

	fmt.Fprintf(w, "╰─%s─┴─%s─┴─%s─┴─%s─╯\n", a, b, c, d)
}

func init() {
	rootCmd.AddCommand(toiletsCmd)
	toiletsCmd.AddCommand(toiletsListCmd)
	toiletsCmd.AddCommand(toiletsStatsCmd)
	toiletsCmd.AddCommand(toiletsNearestCmd)

	toiletsCmd.PersistentFlags().StringVar(&toiletsOptions.File, "file", "", "Export CSV local (séparateur ;) au lieu de l'open data")
	toiletsCmd.PersistentFlags().BoolVar(&toiletsOptions.JSON, "json", false, "Sortie JSON")
	toiletsListCmd.Flags().StringVar(&toiletsOptions.Filter, "filter", string(poi.FilterAll), "ALL, ACCESSIBLE ou un type de toilette")
	toiletsNearestCmd.Flags().Float64Var(&toiletsOptions.Lat, "lat", spatial.BordeauxCenter.Lat, "Latitude")
	toiletsNearestCmd.Flags().Float64Var(&toiletsOptions.Lng, "lng", spatial.BordeauxCenter.Lng, "Longitude")
	toiletsNearestCmd.Flags().IntVarP(&toiletsOptions.Nearest, "count", "n", 5, "Nombre de toilettes")
}
