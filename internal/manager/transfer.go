//
// Copyright (C) 2023 Dmitry Kolesnikov
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/fogfish/mediatype
//

package manager

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"

	"github.com/fogfish/faults"
	"github.com/fogfish/mediatype"
)

const (
	errImport = faults.Type("media types import failed")
	errExport = faults.Type("media types export failed")
)

// ExportOptions selects types for export
type ExportOptions struct {
	// Names of exported types, nil exports all
	Names []string
	// IncludeSystem exports rex_media_* types
	IncludeSystem bool
	Pretty        bool
}

// Export media types as JSON array
func (m *Manager) Export(ctx context.Context, w io.Writer, opts ExportOptions) error {
	seq, err := m.store.List(ctx, opts.Names, opts.IncludeSystem)
	if err != nil {
		return err
	}

	types := make([]mediatype.Type, len(seq))
	for i, rec := range seq {
		types[i] = rec.Type()
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if opts.Pretty {
		enc.SetIndent("", "    ")
	}

	if err := enc.Encode(types); err != nil {
		return errExport.New(err)
	}

	return nil
}

// Import media types from JSON array. Existing types are altered, effects
// are placed at the priorities given by the document.
func (m *Manager) Import(ctx context.Context, r io.Reader) error {
	var types []mediatype.Type
	if err := json.NewDecoder(r).Decode(&types); err != nil {
		return errImport.New(err)
	}

	return m.Ensure(ctx, types...)
}

// Ensure definitions of media types
func (m *Manager) Ensure(ctx context.Context, types ...mediatype.Type) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, def := range types {
		if err := m.ensure(ctx, def); err != nil {
			// staged changes of failed type are not kept at the cache
			m.Forget(def.Name)
			return err
		}

		slog.Debug("media type imported", slog.String("type", def.Name), slog.Int("effects", len(def.Effects)))
	}

	return nil
}

// must be called with m.mu
func (m *Manager) ensure(ctx context.Context, def mediatype.Type) error {
	t, err := m.Get(ctx, def.Name)
	if err != nil {
		return err
	}

	t.SetDescription(def.Description)
	for i, e := range def.Effects {
		if err := t.EnsureEffect(e, i+1); err != nil {
			return errImport.New(err)
		}
	}

	return t.Ensure(ctx)
}
