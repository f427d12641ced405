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
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	"github.com/fogfish/mediatype/internal/catalog"
	"github.com/fogfish/mediatype/internal/codec"
	"github.com/fogfish/mediatype/internal/config"
	"github.com/fogfish/mediatype/internal/manager"
	"github.com/fogfish/mediatype/internal/markup"
)

// runtime is the wired graph of services
type runtime struct {
	db       *sql.DB
	catalog  *catalog.Catalog
	manager  *manager.Manager
	cache    *codec.DirCache
	codec    *codec.Codec
	rewriter *markup.Rewriter
}

func openDB(cfg config.DB) (*sql.DB, error) {
	dsn := cfg.DSN

	if cfg.Driver == config.DriverMySQL {
		conf, err := mysql.ParseDSN(dsn)
		if err != nil {
			return nil, fmt.Errorf("invalid mysql dsn: %w", err)
		}
		conf.ParseTime = true
		dsn = conf.FormatDSN()
	}

	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, err
	}

	if cfg.Driver == config.DriverSQLite {
		db.SetMaxOpenConns(1)
	}

	return db, nil
}

func catalogOf(db *sql.DB, conf config.DB) *catalog.Catalog {
	return catalog.New(db,
		catalog.WithPrefix(conf.Prefix),
		catalog.WithUser(conf.User),
	)
}

func newRuntime(ctx context.Context, cfg *config.Config) (*runtime, error) {
	db, err := openDB(cfg.DB)
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("catalog is not available: %w", err)
	}

	store := catalogOf(db, cfg.DB)

	cache, err := codec.NewDirCache(cfg.Media.Cache)
	if err != nil {
		db.Close()
		return nil, err
	}

	m, err := manager.New(store, cfg.Cache.Size, manager.WithInvalidator(cache))
	if err != nil {
		db.Close()
		return nil, err
	}

	types, err := cfg.MediaTypes()
	if err != nil {
		db.Close()
		return nil, err
	}
	if len(types) > 0 {
		if err := m.Ensure(ctx, types...); err != nil {
			db.Close()
			return nil, err
		}
		slog.Debug("media types ensured from config", slog.Int("types", len(types)))
	}

	resolver, err := markup.NewResolver(cfg.Media.URL, cfg.Media.Base)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &runtime{
		db:      db,
		catalog: store,
		manager: m,
		cache:   cache,
		codec: codec.NewCodec(m, os.DirFS(cfg.Media.Dir), cache,
			codec.WithOrigin(cfg.Media.Origin),
			codec.WithEffects(m.Effects()),
		),
		rewriter: markup.New(m, resolver),
	}, nil
}

func (rt *runtime) Close() error {
	return rt.db.Close()
}

func dialectOf(driver string) catalog.Dialect {
	if driver == config.DriverMySQL {
		return catalog.MySQL
	}
	return catalog.SQLite
}
