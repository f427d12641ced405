//
// Copyright (C) 2023 Dmitry Kolesnikov
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/fogfish/mediatype
//

// Package viewport re-evaluates the source of displayed images against
// their rendered width. The same pass ships to browsers as the embedded
// Script.
package viewport

import (
	_ "embed"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fogfish/mediatype"
)

// Script is the browser implementation of the pass. It exposes the global
// mediatypeSrcsetProcess() to re-run the pass manually.
//
//go:embed assets/srcset.js
var Script []byte

// DataSrcset is the marker attribute of re-evaluated images
const DataSrcset = "data-srcset"

// Element of the displayed document
type Element interface {
	ClientWidth() int
	Parent() Element
	Attr(string) string
	SetAttr(string, string)
}

// Document gives access to images carrying data-srcset
type Document interface {
	Images() []Element
}

// ParseSources parses "<url> <width>w, ..." into candidates sorted by width.
// Items without integer width are skipped.
func ParseSources(value string) []mediatype.Candidate[string] {
	seq := []mediatype.Candidate[string]{}
	for _, item := range strings.Split(value, ",") {
		parts := strings.Fields(item)
		if len(parts) < 2 {
			continue
		}

		w, ok := mediatype.LeadingInt(parts[1])
		if !ok {
			continue
		}

		seq = append(seq, mediatype.Candidate[string]{Width: w, Value: parts[0]})
	}

	slices.SortStableFunc(seq, func(a, b mediatype.Candidate[string]) int { return a.Width - b.Width })
	return seq
}

// Width of element as rendered, falls back to parent, 0 if unknown
func Width(el Element) int {
	if w := el.ClientWidth(); w > 0 {
		return w
	}

	if p := el.Parent(); p != nil {
		if w := p.ClientWidth(); w > 0 {
			return w
		}
	}

	return 0
}

// Pick the source of element best fitting its width
func Pick(el Element) (string, bool) {
	return mediatype.Match(ParseSources(el.Attr(DataSrcset)), Width(el))
}

//------------------------------------------------------------------------------

// Reevaluator runs the pass over the document on load, on resize
// (debounced) and on manual trigger. Passes never overlap.
type Reevaluator struct {
	mu     sync.Mutex
	doc    Document
	resize *Debouncer
}

type Option func(*Reevaluator)

// WithDebounce overrides resize debounce delay, default 100ms
func WithDebounce(delay time.Duration) Option {
	return func(r *Reevaluator) {
		r.resize = NewDebouncer(delay, func() { r.Process() })
	}
}

func New(doc Document, opts ...Option) *Reevaluator {
	r := &Reevaluator{doc: doc}
	r.resize = NewDebouncer(100*time.Millisecond, func() { r.Process() })

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Process sets src of every image to the best fitting source,
// returns number of updated images.
func (r *Reevaluator) Process() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, el := range r.doc.Images() {
		if el.Attr(DataSrcset) == "" {
			continue
		}

		url, ok := Pick(el)
		if !ok {
			continue
		}

		el.SetAttr("src", url)
		n++
	}

	slog.Debug("srcset re-evaluated", slog.Int("images", n))
	return n
}

// OnLoad handles document load
func (r *Reevaluator) OnLoad() { r.Process() }

// OnResize handles window resize, bursts collapse into single pass
func (r *Reevaluator) OnResize() { r.resize.Trigger() }

// Trigger the pass manually
func (r *Reevaluator) Trigger() int { return r.Process() }

// Close cancels pending pass
func (r *Reevaluator) Close() { r.resize.Stop() }

//------------------------------------------------------------------------------

// Debouncer runs f once the trigger calls are quiet for the delay (trailing edge)
type Debouncer struct {
	mu    sync.Mutex
	delay time.Duration
	timer *time.Timer
	f     func()
}

func NewDebouncer(delay time.Duration, f func()) *Debouncer {
	return &Debouncer{delay: delay, f: f}
}

func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.f)
}

func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
