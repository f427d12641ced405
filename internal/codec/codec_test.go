//
// Copyright (C) 2023 Dmitry Kolesnikov
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/fogfish/mediatype
//

package codec_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/fogfish/it/v2"
	"github.com/fogfish/mediatype"
	"github.com/fogfish/mediatype/internal/codec"
)

func encodePNG(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 64, A: 255})
		}
	}

	var buf bytes.Buffer
	png.Encode(&buf, img)
	return buf.Bytes()
}

type store struct {
	sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func newStore() *store {
	return &store{objects: map[string][]byte{}, types: map[string]string{}}
}

func (s *store) Put(_ context.Context, key, contentType string, r io.Reader) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	s.Lock()
	defer s.Unlock()
	s.objects[key] = b
	s.types[key] = contentType
	return nil
}

func (s *store) size(key string) image.Point {
	s.Lock()
	defer s.Unlock()

	img, _, err := image.Decode(bytes.NewReader(s.objects[key]))
	if err != nil {
		return image.Point{}
	}
	return img.Bounds().Size()
}

func (s *store) keys() []string {
	s.Lock()
	defer s.Unlock()

	seq := make([]string, 0, len(s.objects))
	for k := range s.objects {
		seq = append(seq, k)
	}
	sort.Strings(seq)
	return seq
}

var types = codec.NewStaticTypes(
	mediatype.Define("hero").Apply(
		mediatype.Resize(160, 0),
		mediatype.SrcsetOf(160, "40 480w, 80 960w"),
	),
	mediatype.Define("thumb").Apply(
		mediatype.Crop(20, 20),
	),
)

var inbox = fstest.MapFS{
	"pic.png":     {Data: encodePNG(200, 100)},
	"broken.png":  {Data: []byte("not an image")},
	"dir/pic.png": {Data: encodePNG(20, 10)},
}

func TestRender(t *testing.T) {
	ctx := context.Background()

	t.Run("Type", func(t *testing.T) {
		s := newStore()
		c := codec.NewCodec(types, inbox, s)

		media, err := c.Render(ctx, "hero", "pic.png")
		it.Then(t).Should(
			it.Nil(err),
			it.Equal(media.Key().PathKey(), "hero/pic.png"),
			it.Equal(media.Format(), codec.MEDIA_PNG),
			it.Equiv(s.size("hero/pic.png"), image.Point{X: 160, Y: 80}),
			it.Equal(s.types["hero/pic.png"], "image/png"),
		)
	})

	t.Run("Variant", func(t *testing.T) {
		s := newStore()
		c := codec.NewCodec(types, inbox, s)

		_, err := c.Render(ctx, "hero__40", "pic.png")
		it.Then(t).Should(
			it.Nil(err),
			it.Equiv(s.size("hero__40/pic.png"), image.Point{X: 40, Y: 20}),
		)
	})

	t.Run("NeverEnlarge", func(t *testing.T) {
		s := newStore()
		c := codec.NewCodec(types, inbox, s)

		_, err := c.Render(ctx, "hero__80", "dir/pic.png")
		it.Then(t).Should(
			it.Nil(err),
			it.Equiv(s.size("hero__80/dir/pic.png"), image.Point{X: 20, Y: 10}),
		)
	})

	t.Run("Failures", func(t *testing.T) {
		c := codec.NewCodec(types, inbox, newStore())

		for _, tc := range []struct{ variant, file string }{
			{"hero", "pic.svg"},
			{"hero", "missing.png"},
			{"hero", "broken.png"},
			{"unknown", "pic.png"},
			{"unknown__40", "pic.png"},
		} {
			_, err := c.Render(ctx, tc.variant, tc.file)
			it.Then(t).ShouldNot(it.Nil(err))
		}
	})
}

func TestWarm(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	c := codec.NewCodec(types, inbox, s)

	seq, err := c.Warm(ctx, "pic.png", "hero", "thumb")
	it.Then(t).Should(
		it.Nil(err),
		it.Equal(len(seq), 4),
		it.Equiv(s.keys(), []string{
			"hero/pic.png",
			"hero__40/pic.png",
			"hero__80/pic.png",
			"thumb/pic.png",
		}),
		it.Equiv(s.size("thumb/pic.png"), image.Point{X: 20, Y: 20}),
		it.Equiv(s.size("hero__80/pic.png"), image.Point{X: 80, Y: 40}),
	)

	_, err = c.Warm(ctx, "pic.png", "unknown")
	it.Then(t).ShouldNot(it.Nil(err))
}

func TestScaleToWidth(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 300, 200))

	it.Then(t).Should(
		it.Equiv(codec.ScaleToWidth(img, 150).Bounds().Size(), image.Point{X: 150, Y: 100}),
		it.Equiv(codec.ScaleToWidth(img, 600).Bounds().Size(), image.Point{X: 300, Y: 200}),
		it.Equiv(codec.ScaleToWidth(img, 0).Bounds().Size(), image.Point{X: 300, Y: 200}),
	)
}

func TestDirCache(t *testing.T) {
	ctx := context.Background()
	root := filepath.Join(t.TempDir(), "cache")

	cache, err := codec.NewDirCache(root)
	it.Then(t).Should(it.Nil(err))

	err = cache.Put(ctx, "hero__40/dir/pic.png", "image/png", strings.NewReader("png"))
	it.Then(t).Should(it.Nil(err))

	fd, err := cache.Open("hero__40/dir/pic.png")
	it.Then(t).Should(it.Nil(err))
	b, _ := io.ReadAll(fd)
	fd.Close()
	it.Then(t).Should(it.Equal(string(b), "png"))

	err = cache.Put(ctx, "../escape.png", "image/png", strings.NewReader("png"))
	it.Then(t).ShouldNot(it.Nil(err))

	err = cache.Invalidate(ctx)
	it.Then(t).Should(it.Nil(err))

	_, err = cache.Open("hero__40/dir/pic.png")
	it.Then(t).ShouldNot(it.Nil(err))

	seq, err := os.ReadDir(root)
	it.Then(t).Should(
		it.Nil(err),
		it.Equal(len(seq), 0),
	)

	t.Run("Codec", func(t *testing.T) {
		c := codec.NewCodec(types, inbox, cache)
		_, err := c.Render(ctx, "thumb", "pic.png")
		it.Then(t).Should(it.Nil(err))

		path, err := cache.Path("thumb/pic.png")
		it.Then(t).Should(it.Nil(err))

		_, err = os.Stat(path)
		it.Then(t).Should(it.Nil(err))
	})
}
