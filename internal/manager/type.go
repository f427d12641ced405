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
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/fogfish/mediatype"
	"github.com/fogfish/mediatype/internal/catalog"
)

// Step of effect chain
type Step struct {
	Priority int
	mediatype.Effect
}

// Type is mutable handle of media type. Changes are staged in memory
// until Ensure, Create or Drop.
type Type struct {
	mu          sync.Mutex
	m           *Manager
	id          int64
	exists      bool
	name        string
	stored      string
	description string
	storedDesc  string
	effects     map[int]mediatype.Effect
	persisted   map[int]mediatype.Effect
}

func newType(m *Manager, name string) *Type {
	return &Type{
		m:         m,
		name:      name,
		stored:    name,
		effects:   map[int]mediatype.Effect{},
		persisted: map[int]mediatype.Effect{},
	}
}

func loadType(m *Manager, rec *catalog.Record) *Type {
	t := newType(m, rec.Name)
	t.id = rec.ID
	t.exists = true
	t.description = rec.Description
	t.storedDesc = rec.Description
	for _, e := range rec.Effects {
		eff := mediatype.Effect{Effect: e.Effect, Params: e.Params}
		t.effects[e.Priority] = eff
		t.persisted[e.Priority] = eff
	}
	return t
}

// Exists returns true if type is persisted
func (t *Type) Exists() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.exists
}

func (t *Type) Name() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.name
}

// SetName renames the type on next Ensure
func (t *Type) SetName(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.name = name
}

func (t *Type) Description() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.description
}

func (t *Type) SetDescription(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.description = text
}

// Effects in priority order
func (t *Type) Effects() []Step {
	t.mu.Lock()
	defer t.mu.Unlock()

	seq := make([]Step, 0, len(t.effects))
	for _, p := range slices.Sorted(maps.Keys(t.effects)) {
		seq = append(seq, Step{Priority: p, Effect: t.effects[p]})
	}
	return seq
}

// Definition of the type with effects in priority order
func (t *Type) Definition() mediatype.Type {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.definition()
}

// Saved definition of the type, staged changes are excluded
func (t *Type) Saved() mediatype.Type {
	t.mu.Lock()
	defer t.mu.Unlock()

	effects := make([]mediatype.Effect, 0, len(t.persisted))
	for _, p := range slices.Sorted(maps.Keys(t.persisted)) {
		effects = append(effects, t.persisted[p])
	}
	return mediatype.Type{Name: t.stored, Description: t.storedDesc, Effects: effects}
}

// Changed reports staged changes that are not persisted yet
func (t *Type) Changed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.changed()
}

// EnsureEffect places the effect at the priority, 0 appends the effect.
// Effect identical to the one already at the priority is not changed.
func (t *Type) EnsureEffect(e mediatype.Effect, priority int) error {
	params, err := t.m.effects.Validate(e.Effect, e.Params)
	if err != nil {
		return err
	}
	e = mediatype.Effect{Effect: e.Effect, Params: params}

	t.mu.Lock()
	defer t.mu.Unlock()

	if priority < 0 {
		return fmt.Errorf("%w: priority %d", ErrPosition, priority)
	}

	if priority == 0 {
		priority = t.lastPriority() + 1
	}

	if has, exists := t.effects[priority]; exists && has.Equal(e) {
		return nil
	}

	t.effects[priority] = e
	return nil
}

// EnsureEffectByName is EnsureEffect with effect given by name
func (t *Type) EnsureEffectByName(name string, params mediatype.Params, priority int) error {
	return t.EnsureEffect(mediatype.Use(name, params), priority)
}

// Append the effect to the end of chain
func (t *Type) Append(name string, params mediatype.Params) error {
	return t.EnsureEffectByName(name, params, 0)
}

// Prepend the effect to the beginning of chain
func (t *Type) Prepend(name string, params mediatype.Params) error {
	e := mediatype.Use(name, params)
	params, err := t.m.effects.Validate(e.Effect, e.Params)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	shifted := make(map[int]mediatype.Effect, len(t.effects)+1)
	for _, p := range slices.Sorted(maps.Keys(t.effects)) {
		shifted[p+1] = t.effects[p]
	}
	shifted[1] = mediatype.Effect{Effect: name, Params: params}
	t.effects = shifted

	return nil
}

// RemoveEffect at the priority
func (t *Type) RemoveEffect(priority int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.effects, priority)
}

// Ensure persists the type, creating it if it does not exist
func (t *Type) Ensure(ctx context.Context) error {
	if !t.Exists() {
		return t.Create(ctx)
	}

	return t.alter(ctx)
}

// Create persists the new type
func (t *Type) Create(ctx context.Context) error {
	t.mu.Lock()
	if t.exists {
		t.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrExists, t.name)
	}

	t.renumber()
	def := t.definition()
	id, err := t.m.store.Insert(ctx, def)
	if err != nil {
		t.mu.Unlock()
		return err
	}

	t.id = id
	t.exists = true
	t.persisted = maps.Clone(t.effects)
	stored := t.stored
	t.stored = t.name
	t.storedDesc = t.description
	t.mu.Unlock()

	return t.m.invalidate(ctx, stored, def.Name)
}

func (t *Type) alter(ctx context.Context) error {
	t.mu.Lock()
	if !t.changed() {
		t.mu.Unlock()
		return nil
	}

	t.renumber()
	def := t.definition()
	if err := t.m.store.Update(ctx, t.id, def); err != nil {
		t.mu.Unlock()
		return err
	}

	t.persisted = maps.Clone(t.effects)
	stored := t.stored
	t.stored = t.name
	t.storedDesc = t.description
	t.mu.Unlock()

	return t.m.invalidate(ctx, stored, def.Name)
}

// Drop the type with its effects
func (t *Type) Drop(ctx context.Context) error {
	t.mu.Lock()
	if !t.exists {
		t.mu.Unlock()
		return nil
	}

	if err := t.m.store.Delete(ctx, t.id); err != nil {
		t.mu.Unlock()
		return err
	}

	stored := t.stored
	t.id = 0
	t.exists = false
	t.effects = map[int]mediatype.Effect{}
	t.persisted = map[int]mediatype.Effect{}
	t.mu.Unlock()

	return t.m.invalidate(ctx, stored)
}

// must be called with lock
func (t *Type) lastPriority() int {
	last := 0
	for p := range t.effects {
		if p > last {
			last = p
		}
	}
	return last
}

// must be called with lock
func (t *Type) changed() bool {
	if t.name != t.stored || t.description != t.storedDesc {
		return true
	}

	if len(t.effects) != len(t.persisted) {
		return true
	}

	for p, e := range t.effects {
		was, has := t.persisted[p]
		if !has || !was.Equal(e) {
			return true
		}
	}

	return false
}

// must be called with lock
func (t *Type) renumber() {
	seq := make(map[int]mediatype.Effect, len(t.effects))
	for i, p := range slices.Sorted(maps.Keys(t.effects)) {
		seq[i+1] = t.effects[p]
	}
	t.effects = seq
}

// must be called with lock
func (t *Type) definition() mediatype.Type {
	effects := make([]mediatype.Effect, 0, len(t.effects))
	for _, p := range slices.Sorted(maps.Keys(t.effects)) {
		effects = append(effects, t.effects[p])
	}
	return mediatype.Type{Name: t.name, Description: t.description, Effects: effects}
}
