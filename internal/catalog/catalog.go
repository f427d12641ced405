//
// Copyright (C) 2023 Dmitry Kolesnikov
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/fogfish/mediatype
//

// Package catalog persists media types and their effect chains into two
// relational tables: {prefix}media_manager_type and
// {prefix}media_manager_type_effect.
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fogfish/faults"
	"github.com/fogfish/mediatype"
)

var ErrNotFound = errors.New("media type not found")

const (
	errCatalogIO = faults.Type("catalog I/O error")
	errCodec     = faults.Safe1[string]("invalid parameters of effect (%s)")
)

// Record of media type table joined with effects
type Record struct {
	ID          int64
	Name        string
	Description string
	Effects     []EffectRecord
}

// EffectRecord is the row of effects table
type EffectRecord struct {
	Effect   string
	Priority int
	Params   mediatype.Params
}

// Type converts record into media type definition
func (r Record) Type() mediatype.Type {
	seq := make([]mediatype.Effect, len(r.Effects))
	for i, e := range r.Effects {
		seq[i] = mediatype.Effect{Effect: e.Effect, Params: e.Params}
	}

	return mediatype.Type{Name: r.Name, Description: r.Description, Effects: seq}
}

// Catalog is database/sql repository of media types
type Catalog struct {
	db     *sql.DB
	prefix string
	user   string
	clock  func() time.Time
}

type Option func(*Catalog)

// WithPrefix of tables, default rex_
func WithPrefix(prefix string) Option {
	return func(c *Catalog) { c.prefix = prefix }
}

// WithUser recorded into audit columns
func WithUser(user string) Option {
	return func(c *Catalog) { c.user = user }
}

// WithClock overrides time source of audit columns
func WithClock(clock func() time.Time) Option {
	return func(c *Catalog) { c.clock = clock }
}

func New(db *sql.DB, opts ...Option) *Catalog {
	c := &Catalog{
		db:     db,
		prefix: "rex_",
		user:   "mediatype",
		clock:  time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *Catalog) typeTable() string   { return c.prefix + "media_manager_type" }
func (c *Catalog) effectTable() string { return c.prefix + "media_manager_type_effect" }

// Lookup media type by name
func (c *Catalog) Lookup(ctx context.Context, name string) (*Record, error) {
	row := c.db.QueryRowContext(ctx,
		"SELECT id, name, description FROM "+c.typeTable()+" WHERE name = ?",
		name,
	)

	var (
		rec  Record
		desc sql.NullString
	)
	if err := row.Scan(&rec.ID, &rec.Name, &desc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, errCatalogIO.New(err)
	}
	rec.Description = desc.String

	effects, err := c.effects(ctx, rec.ID)
	if err != nil {
		return nil, err
	}
	rec.Effects = effects

	return &rec, nil
}

func (c *Catalog) effects(ctx context.Context, id int64) ([]EffectRecord, error) {
	rows, err := c.db.QueryContext(ctx,
		"SELECT effect, parameters, priority FROM "+c.effectTable()+" WHERE type_id = ? ORDER BY priority",
		id,
	)
	if err != nil {
		return nil, errCatalogIO.New(err)
	}
	defer rows.Close()

	seq := []EffectRecord{}
	for rows.Next() {
		var (
			e   EffectRecord
			raw sql.NullString
		)
		if err := rows.Scan(&e.Effect, &raw, &e.Priority); err != nil {
			return nil, errCatalogIO.New(err)
		}

		e.Params, err = mediatype.UnmarshalParams(e.Effect, []byte(raw.String))
		if err != nil {
			return nil, errCodec.With(err, e.Effect)
		}

		seq = append(seq, e)
	}

	if err := rows.Err(); err != nil {
		return nil, errCatalogIO.New(err)
	}

	return seq, nil
}

// Insert new media type with effects, returns id of the type
func (c *Catalog) Insert(ctx context.Context, t mediatype.Type) (int64, error) {
	var id int64

	err := c.tx(ctx, func(tx *sql.Tx) error {
		now := c.clock().UTC()
		res, err := tx.ExecContext(ctx,
			"INSERT INTO "+c.typeTable()+" (name, description, createdate, updatedate, createuser, updateuser) VALUES (?, ?, ?, ?, ?, ?)",
			t.Name, t.Description, now, now, c.user, c.user,
		)
		if err != nil {
			return err
		}

		id, err = res.LastInsertId()
		if err != nil {
			return err
		}

		return c.insertEffects(ctx, tx, id, t.Effects)
	})
	if err != nil {
		return 0, err
	}

	slog.Debug("media type created", slog.String("type", t.Name), slog.Int64("id", id))
	return id, nil
}

// Update media type attributes and replaces its effect chain
func (c *Catalog) Update(ctx context.Context, id int64, t mediatype.Type) error {
	err := c.tx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			"UPDATE "+c.typeTable()+" SET name = ?, description = ?, updatedate = ?, updateuser = ? WHERE id = ?",
			t.Name, t.Description, c.clock().UTC(), c.user, id,
		)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM "+c.effectTable()+" WHERE type_id = ?", id); err != nil {
			return err
		}

		return c.insertEffects(ctx, tx, id, t.Effects)
	})
	if err != nil {
		return err
	}

	slog.Debug("media type altered", slog.String("type", t.Name), slog.Int64("id", id))
	return nil
}

func (c *Catalog) insertEffects(ctx context.Context, tx *sql.Tx, id int64, seq []mediatype.Effect) error {
	now := c.clock().UTC()
	for i, e := range seq {
		raw, err := json.Marshal(mediatype.EncodeParams(e.Effect, e.Params))
		if err != nil {
			return errCodec.With(err, e.Effect)
		}

		_, err = tx.ExecContext(ctx,
			"INSERT INTO "+c.effectTable()+" (type_id, effect, parameters, priority, createdate, updatedate, createuser, updateuser) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
			id, e.Effect, string(raw), i+1, now, now, c.user, c.user,
		)
		if err != nil {
			return err
		}
	}

	return nil
}

// Delete media type and its effects
func (c *Catalog) Delete(ctx context.Context, id int64) error {
	return c.tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+c.effectTable()+" WHERE type_id = ?", id); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx, "DELETE FROM "+c.typeTable()+" WHERE id = ?", id)
		return err
	})
}

// Names of media types matching the prefix, sorted by name
func (c *Catalog) Names(ctx context.Context, prefix string) ([]string, error) {
	rows, err := c.db.QueryContext(ctx,
		"SELECT name FROM "+c.typeTable()+" WHERE name LIKE ? ESCAPE '!' ORDER BY name",
		escapeLike(prefix)+"%",
	)
	if err != nil {
		return nil, errCatalogIO.New(err)
	}
	defer rows.Close()

	seq := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errCatalogIO.New(err)
		}
		seq = append(seq, name)
	}

	if err := rows.Err(); err != nil {
		return nil, errCatalogIO.New(err)
	}

	return seq, nil
}

// List media types with effects. Nil names selects all types,
// system types (rex_media_*) are excluded unless requested.
func (c *Catalog) List(ctx context.Context, names []string, includeSystem bool) ([]Record, error) {
	all, err := c.Names(ctx, "")
	if err != nil {
		return nil, err
	}

	var want map[string]struct{}
	if names != nil {
		want = make(map[string]struct{}, len(names))
		for _, n := range names {
			want[n] = struct{}{}
		}
	}

	seq := []Record{}
	for _, name := range all {
		if !includeSystem && strings.HasPrefix(name, mediatype.SystemPrefix) {
			continue
		}
		if want != nil {
			if _, has := want[name]; !has {
				continue
			}
		}

		rec, err := c.Lookup(ctx, name)
		if err != nil {
			return nil, err
		}
		seq = append(seq, *rec)
	}

	return seq, nil
}

// Srcset configuration of the media type, taken from its first srcset helper
// effect. Unknown type or type without helper has empty configuration.
func (c *Catalog) Srcset(ctx context.Context, name string) (mediatype.Srcset, error) {
	row := c.db.QueryRowContext(ctx,
		"SELECT e.parameters FROM "+c.typeTable()+" t JOIN "+c.effectTable()+" e ON t.id = e.type_id "+
			"WHERE t.name = ? AND e.effect = ? ORDER BY e.priority LIMIT 1",
		name, mediatype.EffectSrcset,
	)

	var raw sql.NullString
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return mediatype.Srcset{}, nil
		}
		return nil, errCatalogIO.New(err)
	}

	params, err := mediatype.UnmarshalParams(mediatype.EffectSrcset, []byte(raw.String))
	if err != nil {
		return nil, errCodec.With(err, mediatype.EffectSrcset)
	}

	return mediatype.ParseSrcset(params.String("srcset", "")), nil
}

func (c *Catalog) tx(ctx context.Context, f func(*sql.Tx) error) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return errCatalogIO.New(err)
	}

	if err := f(tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			slog.Error("rollback failed", "error", rerr)
		}
		return errCatalogIO.New(err)
	}

	if err := tx.Commit(); err != nil {
		return errCatalogIO.New(err)
	}

	return nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return r.Replace(s)
}
