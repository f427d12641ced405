//
// Copyright (C) 2023 Dmitry Kolesnikov
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/fogfish/mediatype
//

package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Dialect of SQL schema
type Dialect string

const (
	MySQL  = Dialect("mysql")
	SQLite = Dialect("sqlite")
)

var schema = map[Dialect][]string{
	MySQL: {
		`CREATE TABLE IF NOT EXISTS {prefix}media_manager_type (
			id int(10) unsigned NOT NULL AUTO_INCREMENT,
			status int(10) unsigned NOT NULL DEFAULT 0,
			name varchar(255) NOT NULL,
			description varchar(255) DEFAULT NULL,
			createdate datetime NOT NULL,
			updatedate datetime NOT NULL,
			createuser varchar(255) NOT NULL,
			updateuser varchar(255) NOT NULL,
			PRIMARY KEY (id),
			UNIQUE KEY name (name)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		`CREATE TABLE IF NOT EXISTS {prefix}media_manager_type_effect (
			id int(10) unsigned NOT NULL AUTO_INCREMENT,
			type_id int(10) unsigned NOT NULL,
			effect varchar(255) NOT NULL,
			parameters text NOT NULL,
			priority int(10) unsigned NOT NULL,
			createdate datetime NOT NULL,
			updatedate datetime NOT NULL,
			createuser varchar(255) NOT NULL,
			updateuser varchar(255) NOT NULL,
			PRIMARY KEY (id),
			KEY type_id (type_id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	},
	SQLite: {
		`CREATE TABLE IF NOT EXISTS {prefix}media_manager_type (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			status INTEGER NOT NULL DEFAULT 0,
			name TEXT NOT NULL UNIQUE,
			description TEXT,
			createdate DATETIME NOT NULL,
			updatedate DATETIME NOT NULL,
			createuser TEXT NOT NULL,
			updateuser TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS {prefix}media_manager_type_effect (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			type_id INTEGER NOT NULL,
			effect TEXT NOT NULL,
			parameters TEXT NOT NULL,
			priority INTEGER NOT NULL,
			createdate DATETIME NOT NULL,
			updatedate DATETIME NOT NULL,
			createuser TEXT NOT NULL,
			updateuser TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS {prefix}media_manager_type_effect_type_id
			ON {prefix}media_manager_type_effect (type_id)`,
	},
}

// Migrate creates tables if they do not exist
func (c *Catalog) Migrate(ctx context.Context, dialect Dialect) error {
	seq, has := schema[dialect]
	if !has {
		return fmt.Errorf("sql dialect %s is not supported", dialect)
	}

	for _, ddl := range seq {
		stmt := strings.ReplaceAll(ddl, "{prefix}", c.prefix)
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return errCatalogIO.New(err)
		}
	}

	slog.Debug("catalog schema is ready",
		slog.String("dialect", string(dialect)),
		slog.String("prefix", c.prefix),
	)

	return nil
}
