//
// Copyright (C) 2023 Dmitry Kolesnikov
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/fogfish/mediatype
//

package viewport_test

import (
	"bytes"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fogfish/it/v2"
	"github.com/fogfish/mediatype"
	"github.com/fogfish/mediatype/internal/viewport"
)

type node struct {
	sync.Mutex
	width  int
	parent *node
	attrs  map[string]string
}

func (n *node) ClientWidth() int { return n.width }

func (n *node) Parent() viewport.Element {
	if n.parent == nil {
		return nil
	}
	return n.parent
}

func (n *node) Attr(key string) string {
	n.Lock()
	defer n.Unlock()
	return n.attrs[key]
}

func (n *node) SetAttr(key, val string) {
	n.Lock()
	defer n.Unlock()
	n.attrs[key] = val
}

func img(width int, parent *node, srcset string) *node {
	return &node{
		width:  width,
		parent: parent,
		attrs:  map[string]string{"src": "default.jpg", viewport.DataSrcset: srcset},
	}
}

type document []*node

func (doc document) Images() []viewport.Element {
	seq := make([]viewport.Element, len(doc))
	for i, n := range doc {
		seq[i] = n
	}
	return seq
}

const sources = "/m/hero__800/a.jpg 800w, /m/hero__200/a.jpg 200w, broken, /m/hero__400/a.jpg 400w"

func TestParseSources(t *testing.T) {
	it.Then(t).Should(
		it.Equiv(viewport.ParseSources(sources), []mediatype.Candidate[string]{
			{Width: 200, Value: "/m/hero__200/a.jpg"},
			{Width: 400, Value: "/m/hero__400/a.jpg"},
			{Width: 800, Value: "/m/hero__800/a.jpg"},
		}),
		it.Equal(len(viewport.ParseSources("")), 0),
		it.Equal(len(viewport.ParseSources("a.jpg x2, b.jpg wide")), 0),
	)
}

func TestPick(t *testing.T) {
	for width, expect := range map[int]string{
		100: "/m/hero__200/a.jpg",
		300: "/m/hero__200/a.jpg",
		301: "/m/hero__400/a.jpg",
		600: "/m/hero__400/a.jpg",
		700: "/m/hero__800/a.jpg",
		999: "/m/hero__800/a.jpg",
	} {
		url, ok := viewport.Pick(img(width, nil, sources))
		it.Then(t).Should(
			it.True(ok),
			it.Equal(url, expect),
		)
	}

	t.Run("ParentWidth", func(t *testing.T) {
		url, ok := viewport.Pick(img(0, &node{width: 790}, sources))
		it.Then(t).Should(
			it.True(ok),
			it.Equal(url, "/m/hero__800/a.jpg"),
		)
	})

	t.Run("Unknown", func(t *testing.T) {
		_, ok := viewport.Pick(img(0, &node{}, sources))
		it.Then(t).ShouldNot(it.True(ok))

		_, ok = viewport.Pick(img(0, nil, sources))
		it.Then(t).ShouldNot(it.True(ok))

		_, ok = viewport.Pick(img(300, nil, ""))
		it.Then(t).ShouldNot(it.True(ok))
	})
}

func TestReevaluator(t *testing.T) {
	t.Run("Process", func(t *testing.T) {
		a := img(390, nil, sources)
		b := img(0, nil, sources)
		c := img(500, nil, "")
		r := viewport.New(document{a, b, c})
		defer r.Close()

		it.Then(t).Should(
			it.Equal(r.Trigger(), 1),
			it.Equal(a.Attr("src"), "/m/hero__400/a.jpg"),
			it.Equal(b.Attr("src"), "default.jpg"),
			it.Equal(c.Attr("src"), "default.jpg"),
		)

		a.width = 150
		r.OnLoad()
		it.Then(t).Should(
			it.Equal(a.Attr("src"), "/m/hero__200/a.jpg"),
		)
	})

	t.Run("OnResize", func(t *testing.T) {
		a := img(800, nil, sources)
		r := viewport.New(document{a}, viewport.WithDebounce(20*time.Millisecond))
		defer r.Close()

		for i := 0; i < 10; i++ {
			r.OnResize()
		}
		it.Then(t).Should(
			it.Equal(a.Attr("src"), "default.jpg"),
		)

		time.Sleep(200 * time.Millisecond)
		it.Then(t).Should(
			it.Equal(a.Attr("src"), "/m/hero__800/a.jpg"),
		)
	})
}

func TestDebouncer(t *testing.T) {
	var n atomic.Int32
	d := viewport.NewDebouncer(20*time.Millisecond, func() { n.Add(1) })

	for i := 0; i < 5; i++ {
		d.Trigger()
		time.Sleep(2 * time.Millisecond)
	}
	time.Sleep(200 * time.Millisecond)
	it.Then(t).Should(it.Equal(n.Load(), int32(1)))

	d.Trigger()
	d.Stop()
	time.Sleep(100 * time.Millisecond)
	it.Then(t).Should(it.Equal(n.Load(), int32(1)))
}

func TestScript(t *testing.T) {
	it.Then(t).Should(
		it.True(bytes.Contains(viewport.Script, []byte("window.mediatypeSrcsetProcess"))),
		it.True(bytes.Contains(viewport.Script, []byte("img[data-srcset]"))),
	)
}
