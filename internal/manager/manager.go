//
// Copyright (C) 2023 Dmitry Kolesnikov
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/fogfish/mediatype
//

// Package manager maintains definitions of media types: handles to create,
// alter and drop types, bulk edit of effect chains and JSON import/export.
// Handles and srcset configurations are kept in the keyed cache owned by
// the Manager, every write invalidates the cache explicitly.
package manager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/fogfish/mediatype"
	"github.com/fogfish/mediatype/internal/catalog"
	"github.com/fogfish/mediatype/internal/effect"
	lru "github.com/hashicorp/golang-lru/v2"
)

var (
	ErrExists   = errors.New("media type already exists")
	ErrPosition = errors.New("invalid position")
	ErrSelector = errors.New("invalid selector")
)

// Store is persistent storage of media types
type Store interface {
	Lookup(context.Context, string) (*catalog.Record, error)
	Insert(context.Context, mediatype.Type) (int64, error)
	Update(context.Context, int64, mediatype.Type) error
	Delete(context.Context, int64) error
	Names(context.Context, string) ([]string, error)
	List(context.Context, []string, bool) ([]catalog.Record, error)
	Srcset(context.Context, string) (mediatype.Srcset, error)
}

// Invalidator of derived artifacts (e.g. rendered variants), it is called
// after every change of media types.
type Invalidator interface {
	Invalidate(context.Context) error
}

// InvalidatorFunc is functional adapter of Invalidator
type InvalidatorFunc func(context.Context) error

func (f InvalidatorFunc) Invalidate(ctx context.Context) error { return f(ctx) }

type Manager struct {
	// serializes bulk writes: Ensure, Import and EnsureEffectToTypes
	mu          sync.Mutex
	store       Store
	effects     *effect.Registry
	invalidator Invalidator
	types       *lru.Cache[string, *Type]
	srcsets     *lru.Cache[string, mediatype.Srcset]
}

type Option func(*Manager)

// WithEffects overrides registry of effects
func WithEffects(reg *effect.Registry) Option {
	return func(m *Manager) { m.effects = reg }
}

// WithInvalidator is called after every write
func WithInvalidator(f Invalidator) Option {
	return func(m *Manager) { m.invalidator = f }
}

// New manager with cache of given size
func New(store Store, size int, opts ...Option) (*Manager, error) {
	if size <= 0 {
		size = 128
	}

	types, err := lru.New[string, *Type](size)
	if err != nil {
		return nil, err
	}

	srcsets, err := lru.New[string, mediatype.Srcset](size)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		store:   store,
		effects: effect.Default(),
		types:   types,
		srcsets: srcsets,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

// Effects registry used by the manager
func (m *Manager) Effects() *effect.Registry { return m.effects }

// Get handle of media type. Unknown type gives the handle that creates it.
func (m *Manager) Get(ctx context.Context, name string) (*Type, error) {
	if t, has := m.types.Get(name); has {
		return t, nil
	}

	rec, err := m.store.Lookup(ctx, name)
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		t := newType(m, name)
		m.types.Add(name, t)
		return t, nil
	case err != nil:
		return nil, err
	}

	t := loadType(m, rec)
	m.types.Add(name, t)
	return t, nil
}

// Forget cached state of the media type
func (m *Manager) Forget(name string) {
	m.types.Remove(name)
	m.srcsets.Remove(name)
}

// Purge cache
func (m *Manager) Purge() {
	m.types.Purge()
	m.srcsets.Purge()
}

func (m *Manager) invalidate(ctx context.Context, names ...string) error {
	for _, name := range names {
		m.Forget(name)
	}

	if m.invalidator == nil {
		return nil
	}

	if err := m.invalidator.Invalidate(ctx); err != nil {
		slog.Error("cache invalidation failed", "error", err)
		return err
	}

	return nil
}

// SrcsetConfig of media type, empty if type is unknown or does not declare
// srcset breakpoints.
func (m *Manager) SrcsetConfig(ctx context.Context, name string) (mediatype.Srcset, error) {
	if srcset, has := m.srcsets.Get(name); has {
		return srcset, nil
	}

	srcset, err := m.store.Srcset(ctx, name)
	if err != nil {
		return nil, err
	}

	m.srcsets.Add(name, srcset)
	return srcset, nil
}

// Definition of the media type as it is persisted, unknown type fails with
// catalog.ErrNotFound.
func (m *Manager) Definition(ctx context.Context, name string) (mediatype.Type, error) {
	t, err := m.Get(ctx, name)
	if err != nil {
		return mediatype.Type{}, err
	}

	if !t.Exists() {
		return mediatype.Type{}, fmt.Errorf("%w: %s", catalog.ErrNotFound, name)
	}

	return t.Saved(), nil
}

// Names of persisted media types
func (m *Manager) Names(ctx context.Context) ([]string, error) {
	return m.store.Names(ctx, "")
}

//------------------------------------------------------------------------------

// Position of effect in the chain
type Position string

const (
	Append  = Position("append")
	Prepend = Position("prepend")
)

// Selector of media types
type Selector interface {
	selectTypes(context.Context, Store) ([]string, error)
}

// Pattern selects types by name prefix, the pattern must end with * (e.g. team_*)
type Pattern string

func (p Pattern) selectTypes(ctx context.Context, store Store) ([]string, error) {
	s := string(p)
	if len(s) == 0 || s[len(s)-1] != '*' {
		return nil, fmt.Errorf("%w: pattern %q must end with *", ErrSelector, s)
	}

	return store.Names(ctx, s[:len(s)-1])
}

// Names selects types by names, missing types are created
type Names []string

func (n Names) selectTypes(context.Context, Store) ([]string, error) {
	return n, nil
}

// Select names of media types
func Select(spec ...string) Selector {
	if len(spec) == 1 && len(spec[0]) > 0 && spec[0][len(spec[0])-1] == '*' {
		return Pattern(spec[0])
	}
	return Names(spec)
}

// EnsureEffectToTypes adds the effect to every selected type at the position.
func (m *Manager) EnsureEffectToTypes(ctx context.Context, sel Selector, name string, params mediatype.Params, pos Position) error {
	if pos != Append && pos != Prepend {
		return fmt.Errorf("%w: %s", ErrPosition, pos)
	}

	names, err := sel.selectTypes(ctx, m.store)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, typeName := range names {
		t, err := m.Get(ctx, typeName)
		if err != nil {
			return err
		}

		switch pos {
		case Append:
			err = t.Append(name, params)
		case Prepend:
			err = t.Prepend(name, params)
		}
		if err == nil {
			err = t.Ensure(ctx)
		}
		if err != nil {
			m.Forget(typeName)
			return err
		}

		slog.Debug("effect ensured",
			slog.String("type", typeName),
			slog.String("effect", name),
			slog.String("position", string(pos)),
		)
	}

	return nil
}
