//
// Copyright (C) 2023 Dmitry Kolesnikov
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/fogfish/mediatype
//

package main

import (
	"log/slog"
	"os"

	_ "github.com/fogfish/logger/v3"
	"github.com/fogfish/mediatype/internal/config"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "mediatype",
	Short: "responsive media types for the media manager",
	Long: `mediatype manages media types of the media manager, renders their
srcset variants and expands srcset placeholders of HTML pages.

Example usage:
  mediatype migrate                       # create catalog tables
  mediatype types import types.json       # install media types
  mediatype serve                         # serve variants and filter upstream HTML
  mediatype rewrite < page.html           # expand srcset placeholders`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./mediatype.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

func initConfig() (err error) {
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return err
	}

	if verbose || cfg.Log.Level == "debug" {
		slog.SetDefault(
			slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})),
		)
	}

	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", slog.Any("error", err))
		os.Exit(1)
	}
}
