//
// Copyright (C) 2023 Dmitry Kolesnikov
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/fogfish/mediatype
//

package manager_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/fogfish/it/v2"
	"github.com/fogfish/mediatype"
	"github.com/fogfish/mediatype/internal/catalog"
	"github.com/fogfish/mediatype/internal/effect"
	"github.com/fogfish/mediatype/internal/manager"
	_ "modernc.org/sqlite"
)

type counter struct{ n int }

func (c *counter) Invalidate(context.Context) error { c.n++; return nil }

func newManager(t *testing.T) (*manager.Manager, *counter) {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	store := catalog.New(db)
	if err := store.Migrate(context.Background(), catalog.SQLite); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	purge := &counter{}
	m, err := manager.New(store, 16, manager.WithInvalidator(purge))
	if err != nil {
		t.Fatalf("manager: %v", err)
	}

	return m, purge
}

func TestType(t *testing.T) {
	ctx := context.Background()

	t.Run("Create", func(t *testing.T) {
		m, purge := newManager(t)

		h, err := m.Get(ctx, "hero")
		it.Then(t).Should(
			it.Nil(err),
			it.Equal(h.Exists(), false),
		)

		h.SetDescription("hero image")
		it.Then(t).Should(
			it.Nil(h.Append("resize", mediatype.Params{"width": 1200})),
			it.Nil(h.Append(mediatype.EffectSrcset, mediatype.Params{"srcset": "400 480w, 800 960w"})),
			it.Nil(h.Create(ctx)),
			it.Equal(h.Exists(), true),
			it.Equal(purge.n, 1),
		)

		err = h.Create(ctx)
		it.Then(t).Should(it.True(errors.Is(err, manager.ErrExists)))

		def, err := m.Definition(ctx, "hero")
		it.Then(t).Should(
			it.Nil(err),
			it.Equal(def.Description, "hero image"),
			it.Equal(len(def.Effects), 2),
			it.Equal(def.Effects[0].Params.String("style", ""), "maximum"),
		)
	})

	t.Run("EnsureEffectNoop", func(t *testing.T) {
		m, purge := newManager(t)

		h, _ := m.Get(ctx, "thumb")
		it.Then(t).Should(
			it.Nil(h.EnsureEffect(mediatype.Resize(100, 100), 1)),
			it.Nil(h.Ensure(ctx)),
		)

		h, _ = m.Get(ctx, "thumb")
		it.Then(t).Should(
			it.Nil(h.EnsureEffect(mediatype.Resize(100, 100), 1)),
			it.Equal(h.Changed(), false),
			it.Nil(h.Ensure(ctx)),
			it.Equal(purge.n, 1),
		)

		it.Then(t).Should(
			it.Nil(h.EnsureEffect(mediatype.Resize(200, 100), 1)),
			it.Equal(h.Changed(), true),
			it.Nil(h.Ensure(ctx)),
			it.Equal(purge.n, 2),
		)
	})

	t.Run("Prepend", func(t *testing.T) {
		m, _ := newManager(t)

		h, _ := m.Get(ctx, "thumb")
		it.Then(t).Should(
			it.Nil(h.Append("resize", mediatype.Params{"width": 100})),
			it.Nil(h.Prepend("filter_greyscale", nil)),
		)

		seq := h.Effects()
		it.Then(t).Should(
			it.Equal(len(seq), 2),
			it.Equal(seq[0].Priority, 1),
			it.Equal(seq[0].Effect.Effect, "filter_greyscale"),
			it.Equal(seq[1].Effect.Effect, "resize"),
		)
	})

	t.Run("RemoveEffect", func(t *testing.T) {
		m, _ := newManager(t)

		h, _ := m.Get(ctx, "thumb")
		it.Then(t).Should(
			it.Nil(h.Append("resize", mediatype.Params{"width": 100})),
			it.Nil(h.Append("filter_greyscale", nil)),
			it.Nil(h.Append("filter_blur", nil)),
			it.Nil(h.Ensure(ctx)),
		)

		h.RemoveEffect(2)
		it.Then(t).Should(it.Nil(h.Ensure(ctx)))

		def, err := m.Definition(ctx, "thumb")
		it.Then(t).Should(
			it.Nil(err),
			it.Equal(len(def.Effects), 2),
			it.Equal(def.Effects[1].Effect, "filter_blur"),
		)
	})

	t.Run("UnknownEffect", func(t *testing.T) {
		m, _ := newManager(t)

		h, _ := m.Get(ctx, "thumb")
		err := h.Append("unknown", nil)
		it.Then(t).Should(it.True(errors.Is(err, effect.ErrUnknownEffect)))

		err = h.Append("resize", mediatype.Params{"depth": 1})
		it.Then(t).Should(it.True(errors.Is(err, effect.ErrUnknownParam)))
	})

	t.Run("Rename", func(t *testing.T) {
		m, _ := newManager(t)

		h, _ := m.Get(ctx, "old")
		it.Then(t).Should(it.Nil(h.Ensure(ctx)))

		h.SetName("new")
		it.Then(t).Should(it.Nil(h.Ensure(ctx)))

		_, err := m.Definition(ctx, "old")
		it.Then(t).Should(it.True(errors.Is(err, catalog.ErrNotFound)))

		def, err := m.Definition(ctx, "new")
		it.Then(t).Should(
			it.Nil(err),
			it.Equal(def.Name, "new"),
		)
	})

	t.Run("Drop", func(t *testing.T) {
		m, purge := newManager(t)

		h, _ := m.Get(ctx, "hero")
		it.Then(t).Should(
			it.Nil(h.Append(mediatype.EffectSrcset, mediatype.Params{"srcset": "400 480w"})),
			it.Nil(h.Ensure(ctx)),
		)

		srcset, err := m.SrcsetConfig(ctx, "hero")
		it.Then(t).Should(
			it.Nil(err),
			it.Equal(len(srcset), 1),
		)

		it.Then(t).Should(
			it.Nil(h.Drop(ctx)),
			it.Equal(h.Exists(), false),
			it.Equal(purge.n, 2),
		)

		srcset, err = m.SrcsetConfig(ctx, "hero")
		it.Then(t).Should(
			it.Nil(err),
			it.Equal(len(srcset), 0),
		)
	})
}

func TestSrcsetConfigCache(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t)

	srcset, err := m.SrcsetConfig(ctx, "hero")
	it.Then(t).Should(
		it.Nil(err),
		it.Equal(len(srcset), 0),
	)

	err = m.Ensure(ctx, mediatype.Define("hero").Apply(
		mediatype.SrcsetOf(500, "800 960w, 400 480w"),
	))
	it.Then(t).Should(it.Nil(err))

	srcset, err = m.SrcsetConfig(ctx, "hero")
	it.Then(t).Should(
		it.Nil(err),
		it.Equiv(srcset, mediatype.Srcset{
			{Width: 400, Descriptor: "480w"},
			{Width: 800, Descriptor: "960w"},
		}),
	)
}

func TestEnsureEffectToTypes(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) *manager.Manager {
		m, _ := newManager(t)
		err := m.Ensure(ctx,
			mediatype.Define("team_small").Apply(mediatype.Resize(100, 100)),
			mediatype.Define("team_large").Apply(mediatype.Resize(800, 800)),
			mediatype.Define("hero").Apply(mediatype.Resize(1200, 0)),
		)
		it.Then(t).Should(it.Nil(err))
		return m
	}

	t.Run("Pattern", func(t *testing.T) {
		m := setup(t)

		err := m.EnsureEffectToTypes(ctx, manager.Pattern("team_*"), "filter_greyscale", nil, manager.Prepend)
		it.Then(t).Should(it.Nil(err))

		for _, name := range []string{"team_small", "team_large"} {
			def, err := m.Definition(ctx, name)
			it.Then(t).Should(
				it.Nil(err),
				it.Equal(len(def.Effects), 2),
				it.Equal(def.Effects[0].Effect, "filter_greyscale"),
			)
		}

		def, err := m.Definition(ctx, "hero")
		it.Then(t).Should(
			it.Nil(err),
			it.Equal(len(def.Effects), 1),
		)
	})

	t.Run("Names", func(t *testing.T) {
		m := setup(t)

		err := m.EnsureEffectToTypes(ctx, manager.Select("hero", "fresh"), "filter_greyscale", nil, manager.Append)
		it.Then(t).Should(it.Nil(err))

		def, err := m.Definition(ctx, "hero")
		it.Then(t).Should(
			it.Nil(err),
			it.Equal(def.Effects[1].Effect, "filter_greyscale"),
		)

		def, err = m.Definition(ctx, "fresh")
		it.Then(t).Should(
			it.Nil(err),
			it.Equal(len(def.Effects), 1),
		)
	})

	t.Run("Position", func(t *testing.T) {
		m := setup(t)

		err := m.EnsureEffectToTypes(ctx, manager.Select("hero"), "filter_greyscale", nil, manager.Position("middle"))
		it.Then(t).Should(it.True(errors.Is(err, manager.ErrPosition)))
	})

	t.Run("Selector", func(t *testing.T) {
		m := setup(t)

		err := m.EnsureEffectToTypes(ctx, manager.Pattern("team_"), "filter_greyscale", nil, manager.Append)
		it.Then(t).Should(it.True(errors.Is(err, manager.ErrSelector)))
	})
}

func TestTransfer(t *testing.T) {
	ctx := context.Background()

	t.Run("ExportImport", func(t *testing.T) {
		src, _ := newManager(t)
		err := src.Ensure(ctx,
			mediatype.Define("hero").Describe("hero image").Apply(
				mediatype.Resize(1200, 0),
				mediatype.SrcsetOf(500, "400 480w, 800 960w"),
			),
			mediatype.Define("rex_media_small").Apply(mediatype.Resize(64, 64)),
		)
		it.Then(t).Should(it.Nil(err))

		var buf bytes.Buffer
		err = src.Export(ctx, &buf, manager.ExportOptions{Pretty: true})
		it.Then(t).Should(it.Nil(err))

		var raw []map[string]any
		it.Then(t).Should(
			it.Nil(json.Unmarshal(buf.Bytes(), &raw)),
			it.Equal(len(raw), 1),
			it.True(strings.Contains(buf.String(), `"rex_effect_resize_width": 1200`)),
		)

		dst, _ := newManager(t)
		err = dst.Import(ctx, &buf)
		it.Then(t).Should(it.Nil(err))

		srcset, err := dst.SrcsetConfig(ctx, "hero")
		it.Then(t).Should(
			it.Nil(err),
			it.Equal(len(srcset), 2),
		)

		def, err := dst.Definition(ctx, "hero")
		it.Then(t).Should(
			it.Nil(err),
			it.Equal(def.Description, "hero image"),
		)
	})

	t.Run("IncludeSystem", func(t *testing.T) {
		m, _ := newManager(t)
		err := m.Ensure(ctx, mediatype.Define("rex_media_small").Apply(mediatype.Resize(64, 64)))
		it.Then(t).Should(it.Nil(err))

		var buf bytes.Buffer
		err = m.Export(ctx, &buf, manager.ExportOptions{IncludeSystem: true})
		it.Then(t).Should(
			it.Nil(err),
			it.True(strings.Contains(buf.String(), "rex_media_small")),
		)
	})

	t.Run("Corrupted", func(t *testing.T) {
		m, _ := newManager(t)
		err := m.Import(ctx, strings.NewReader(`[{"effects": {}}]`))
		it.Then(t).ShouldNot(it.Nil(err))
	})

	t.Run("RejectedImport", func(t *testing.T) {
		m, _ := newManager(t)
		err := m.Ensure(ctx, mediatype.Define("hero").Apply(mediatype.Resize(1200, 0)))
		it.Then(t).Should(it.Nil(err))

		saved, err := m.Definition(ctx, "hero")
		it.Then(t).Should(it.Nil(err))

		err = m.Ensure(ctx,
			mediatype.Define("hero").Apply(
				mediatype.Resize(600, 0),
				mediatype.Use("unknown", nil),
			),
		)
		it.Then(t).ShouldNot(it.Nil(err))

		def, err := m.Definition(ctx, "hero")
		it.Then(t).Should(
			it.Nil(err),
			it.Equiv(def, saved),
		)

		h, _ := m.Get(ctx, "hero")
		it.Then(t).Should(
			it.Nil(h.Append("filter_greyscale", nil)),
			it.Nil(h.Ensure(ctx)),
		)

		def, err = m.Definition(ctx, "hero")
		it.Then(t).Should(
			it.Nil(err),
			it.Equal(len(def.Effects), 2),
			it.Equiv(def.Effects[0], saved.Effects[0]),
			it.Equal(def.Effects[1].Effect, "filter_greyscale"),
		)
	})

	t.Run("StagedNotVisible", func(t *testing.T) {
		m, _ := newManager(t)
		err := m.Ensure(ctx, mediatype.Define("hero").Apply(mediatype.Resize(1200, 0)))
		it.Then(t).Should(it.Nil(err))

		h, _ := m.Get(ctx, "hero")
		it.Then(t).Should(it.Nil(h.Append("filter_greyscale", nil)))

		def, err := m.Definition(ctx, "hero")
		it.Then(t).Should(
			it.Nil(err),
			it.Equal(len(def.Effects), 1),
			it.Equal(h.Changed(), true),
		)
	})

	t.Run("Concurrent", func(t *testing.T) {
		m, _ := newManager(t)

		errs := make([]error, 8)
		var wg sync.WaitGroup
		for i := range errs {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs[i] = m.Import(ctx, strings.NewReader(
					`[{"name": "thumb", "effects": {"1": {"effect": "resize", "params": {"rex_effect_resize": {"rex_effect_resize_width": 100}}}}}]`,
				))
			}()
		}
		wg.Wait()

		for _, err := range errs {
			it.Then(t).Should(it.Nil(err))
		}

		def, err := m.Definition(ctx, "thumb")
		it.Then(t).Should(
			it.Nil(err),
			it.Equal(len(def.Effects), 1),
		)
	})
}
