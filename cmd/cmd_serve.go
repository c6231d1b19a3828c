// Copyright 2025 The CartoBDX Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cartobdx/cartobdx/server"
)

var serveOptions struct {
	Addr    string
	Preload bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Lance l'API HTTP locale",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		p, err := appOptions.pipeline(ctx)
		if err != nil {
			return err
		}

		db, store, err := appOptions.openAnnotations()
		if err != nil {
			return err
		}
		defer db.Close()

		if serveOptions.Preload {
			p.fetcher.Preload(ctx)
		}

		s := server.NewServer(p.loader, store, p.fetcher, p.geocoder)

		fmt.Println("🗺️  cartobdx API starting...")
		fmt.Printf("📍 Open http://%s/api/toilets in your browser\n", serveOptions.Addr)
		fmt.Println("📈 Metrics on /metrics")

		return s.Run(serveOptions.Addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveOptions.Addr, "addr", server.DefaultAddr, "Adresse d'écoute")
	serveCmd.Flags().BoolVar(&serveOptions.Preload, "preload", true, "Précharge les associations au démarrage")
}
