// Copyright 2025 The CartoBDX Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type logWriter struct {
	writer io.Writer
}

func (w *logWriter) Write(bytes []byte) (int, error) {
	return fmt.Fprintf(w.writer, "%s %s", time.Now().Format("2006-01-02 15:04:05"), string(bytes))
}

func init() {
	log.SetFlags(0)
	log.SetOutput(&logWriter{writer: os.Stderr})
}

var rootCmd = &cobra.Command{
	Use:   "cartobdx",
	Short: "toilettes publiques et associations de Bordeaux Métropole",
	Long: `
cartobdx charge les toilettes publiques et les associations publiées en open
data par Bordeaux Métropole, géolocalise les adresses manquantes avec
Nominatim et conserve localement vos notes et remarques.
`,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		return loadEnv(appOptions.EnvFile)
	},
}

// loadEnv reads path into the environment. A missing default file is not
// an error.
func loadEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil {
		log.Printf("📄 Loaded environment from %s", path)

		return nil
	}

	if errors.Is(err, fs.ErrNotExist) && path == defaultEnvFile {
		return nil
	}

	return fmt.Errorf("loading %s: %w", path, err)
}

var Version = "dev"

func Execute(version string) {
	Version = version

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)

	stop()

	if err != nil {
		os.Exit(1)
	}
}
