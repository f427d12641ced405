//
// Copyright (C) 2023 Dmitry Kolesnikov
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/fogfish/mediatype
//

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fogfish/mediatype/internal/server"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "serve media variants and filter upstream HTML",
	Long: `Serve rendered variants of media files at {media.base}/{type}/{file}
and index.php?rex_media_type={type}&rex_media_file={file}. Requests of other
paths are proxied to http.upstream, its HTML pages are filtered expanding
srcset placeholders.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "create tables of media types catalog",
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

var rewriteCmd = &cobra.Command{
	Use:   "rewrite",
	Short: "expand srcset placeholders of HTML from stdin to stdout",
	Args:  cobra.NoArgs,
	RunE:  runRewrite,
}

var warmCmd = &cobra.Command{
	Use:   "warm FILE...",
	Short: "render srcset variants of media files",
	Long: `Render media files through the media types and each of their srcset
variants into the variant cache.

Examples:
  mediatype warm pic.jpg                  # all media types
  mediatype warm -t hero -t thumb pic.jpg # selected media types`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWarm,
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, rewriteCmd, warmCmd)

	serveCmd.Flags().String("listen", "", "listen address (default is http.listen)")
	warmCmd.Flags().StringSliceP("type", "t", nil, "media types to render (default is all)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	srv, err := server.New(server.Config{
		Types:     rt.manager,
		Renderer:  rt.codec,
		Cache:     rt.cache,
		Rewriter:  rt.rewriter,
		MediaPath: cfg.Media.Base,
		Upstream:  cfg.HTTP.Upstream,
	})
	if err != nil {
		return err
	}

	listen, _ := cmd.Flags().GetString("listen")
	if listen == "" {
		listen = cfg.HTTP.Listen
	}

	go func() {
		slog.Info("serving media types",
			slog.String("listen", listen),
			slog.String("upstream", cfg.HTTP.Upstream),
		)
		if err := srv.Start(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()

	shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdown)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	db, err := openDB(cfg.DB)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := catalogOf(db, cfg.DB).Migrate(cmd.Context(), dialectOf(cfg.DB.Driver)); err != nil {
		return err
	}

	slog.Info("catalog migrated",
		slog.String("driver", cfg.DB.Driver),
		slog.String("prefix", cfg.DB.Prefix),
	)
	return nil
}

func runRewrite(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	doc, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return err
	}

	_, err = io.WriteString(cmd.OutOrStdout(), rt.rewriter.ReplaceMediaTags(cmd.Context(), string(doc)))
	return err
}

func runWarm(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	rt, err := newRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	types, _ := cmd.Flags().GetStringSlice("type")
	if len(types) == 0 {
		if types, err = rt.manager.Names(ctx); err != nil {
			return err
		}
	}

	for _, file := range args {
		seq, err := rt.codec.Warm(ctx, file, types...)
		if err != nil {
			return err
		}

		for _, media := range seq {
			fmt.Fprintln(cmd.OutOrStdout(), media.PathKey())
		}
	}

	return nil
}
