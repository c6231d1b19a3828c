// Copyright 2025 The CartoBDX Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cartobdx/cartobdx/annotation"
	"github.com/cartobdx/cartobdx/spatial"
	"github.com/cartobdx/cartobdx/utils/textutils"
)

const annotationsFile = "annotations.json"

var annotateCmd = &cobra.Command{
	Use:   "annotate",
	Short: "Notes et remarques personnelles sur les toilettes",
}

// withAnnotations runs fn with the annotation store of the toilet at the
// "lat,lng" argument.
func withAnnotations(arg string, fn func(*annotation.Store, spatial.Point) error) error {
	p, err := spatial.ParsePoint(arg)
	if err != nil {
		return fmt.Errorf("invalid position %q, expected lat,lng: %w", arg, err)
	}

	db, store, err := appOptions.openAnnotations()
	if err != nil {
		return err
	}
	defer db.Close()

	return fn(store, p)
}

func printAnnotation(store *annotation.Store, p spatial.Point) error {
	a, err := store.Annotation(p)
	if err != nil {
		return err
	}

	stars := "non notée"
	if a.Rating > 0 {
		stars = strings.Repeat("★", a.Rating) + strings.Repeat("☆", annotation.MaxRating-a.Rating)
	}

	fmt.Printf("📍 %s\n", p.Key())
	fmt.Printf("Note:    %s\n", stars)

	if a.Remark != "" {
		fmt.Printf("Remarque: %s\n", a.Remark)
	}

	return nil
}

var annotateShowCmd = &cobra.Command{
	Use:   "show <lat,lng>",
	Short: "Affiche la note et la remarque d'une toilette",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return withAnnotations(args[0], printAnnotation)
	},
}

var annotateRatingCmd = &cobra.Command{
	Use:   "rating <lat,lng> <0-5>",
	Short: "Note une toilette de 1 à 5 étoiles, 0 efface la note",
	Args:  cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		rating, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid rating %q: %w", args[1], err)
		}

		return withAnnotations(args[0], func(store *annotation.Store, p spatial.Point) error {
			if err := store.SaveRating(p, rating); err != nil {
				return err
			}

			fmt.Println("✅ Note enregistrée")

			return printAnnotation(store, p)
		})
	},
}

var annotateRemarkCmd = &cobra.Command{
	Use:   "remark <lat,lng> [texte...]",
	Short: "Enregistre une remarque, sans texte efface la remarque",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		remark := strings.Join(args[1:], " ")

		return withAnnotations(args[0], func(store *annotation.Store, p spatial.Point) error {
			if err := store.SaveRemark(p, remark); err != nil {
				return err
			}

			fmt.Println("✅ Remarque enregistrée")

			return printAnnotation(store, p)
		})
	},
}

var annotateExportCmd = &cobra.Command{
	Use:   "export [fichier]",
	Short: "Exporte toutes les annotations dans un fichier JSON",
	Long:  `Les annotations sont triées par position pour que le fichier se compare facilement entre deux exports.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		path := annotationsFile
		if len(args) > 0 {
			path = args[0]
		}

		db, store, err := appOptions.openAnnotations()
		if err != nil {
			return err
		}
		defer db.Close()

		entries, err := store.Entries()
		if err != nil {
			return fmt.Errorf("listing annotations: %w", err)
		}

		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling annotations: %w", err)
		}

		if err := os.WriteFile(path, data, 0o600); err != nil {
			return fmt.Errorf("writing annotations file: %w", err)
		}

		fmt.Printf("✅ Exported %s annotations to %s\n", textutils.FormatInt(int64(len(entries))), path)

		return nil
	},
}

var annotateImportCmd = &cobra.Command{
	Use:   "import [fichier]",
	Short: "Importe des annotations depuis un fichier JSON",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		path := annotationsFile
		if len(args) > 0 {
			path = args[0]
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading annotations file: %w", err)
		}

		var entries []annotation.Entry
		if err := json.Unmarshal(data, &entries); err != nil {
			return fmt.Errorf("unmarshaling annotations: %w", err)
		}

		db, store, err := appOptions.openAnnotations()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := store.Import(entries); err != nil {
			return fmt.Errorf("importing annotations: %w", err)
		}

		log.Printf("✅ Imported %s annotations from %s\n", textutils.FormatInt(int64(len(entries))), path)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(annotateCmd)
	annotateCmd.AddCommand(annotateShowCmd)
	annotateCmd.AddCommand(annotateRatingCmd)
	annotateCmd.AddCommand(annotateRemarkCmd)
	annotateCmd.AddCommand(annotateExportCmd)
	annotateCmd.AddCommand(annotateImportCmd)
}
