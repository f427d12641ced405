//
// Copyright (C) 2023 Dmitry Kolesnikov
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/fogfish/mediatype
//

// Package effect is the registry of image processing steps that composes
// media types. Each effect declares the schema of its parameters and applies
// itself to the decoded image.
package effect

import (
	"errors"
	"fmt"
	"image"
	"sort"

	"github.com/fogfish/mediatype"
)

var (
	ErrUnknownEffect = errors.New("effect is not available")
	ErrUnknownParam  = errors.New("unknown parameter")
)

// Param declares the parameter of effect
type Param struct {
	Name    string   `json:"name"`
	Label   string   `json:"label,omitempty"`
	Type    string   `json:"type"`
	Default any      `json:"default,omitempty"`
	Options []string `json:"options,omitempty"`
	Notice  string   `json:"notice,omitempty"`
}

// Effect is the processing step of media type
type Effect interface {
	Name() string
	Params() []Param
	Apply(image.Image, mediatype.Params) (image.Image, error)
}

// Info describes effect and its parameters
type Info struct {
	Name   string  `json:"name"`
	Params []Param `json:"params"`
}

// Registry of supported effects
type Registry struct {
	effects map[string]Effect
}

// New registry from effects
func New(seq ...Effect) *Registry {
	r := &Registry{effects: make(map[string]Effect, len(seq))}
	for _, e := range seq {
		r.effects[e.Name()] = e
	}
	return r
}

// Default registry with built-in effects
func Default() *Registry {
	return New(
		Resize{},
		Crop{},
		Rotate{},
		Flip{},
		Blur{},
		Sharpen{},
		Brightness{},
		Contrast{},
		Greyscale{},
		Srcset{},
	)
}

// Lookup effect by name
func (r *Registry) Lookup(name string) (Effect, error) {
	e, has := r.effects[name]
	if !has {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEffect, name)
	}
	return e, nil
}

// Available effects, sorted by name
func (r *Registry) Available() []string {
	seq := make([]string, 0, len(r.effects))
	for name := range r.effects {
		seq = append(seq, name)
	}
	sort.Strings(seq)
	return seq
}

// Describe parameters of effect
func (r *Registry) Describe(name string) (Info, error) {
	e, err := r.Lookup(name)
	if err != nil {
		return Info{}, err
	}

	return Info{Name: e.Name(), Params: e.Params()}, nil
}

// Validate parameters against the effect schema. Unknown parameters are
// rejected, missing parameters get defaults.
func (r *Registry) Validate(name string, params mediatype.Params) (mediatype.Params, error) {
	e, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}

	schema := map[string]Param{}
	for _, p := range e.Params() {
		schema[p.Name] = p
	}

	for key := range params {
		if _, has := schema[key]; !has {
			return nil, fmt.Errorf("%w %q for effect %s", ErrUnknownParam, key, name)
		}
	}

	val := make(mediatype.Params, len(schema))
	for key, p := range schema {
		if v, has := params[key]; has {
			val[key] = v
			continue
		}
		if p.Default != nil {
			val[key] = p.Default
		}
	}

	return val, nil
}

// Apply the chain of effects to the image
func (r *Registry) Apply(img image.Image, chain []mediatype.Effect) (image.Image, error) {
	for _, step := range chain {
		e, err := r.Lookup(step.Effect)
		if err != nil {
			return nil, err
		}

		img, err = e.Apply(img, step.Params)
		if err != nil {
			return nil, fmt.Errorf("effect %s failed: %w", step.Effect, err)
		}
	}

	return img, nil
}
