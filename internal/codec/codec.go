//
// Copyright (C) 2023 Dmitry Kolesnikov
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/fogfish/mediatype
//

package codec

import (
	"context"
	"io/fs"
	"log/slog"

	"github.com/fogfish/gurl/v2/http"
	"github.com/fogfish/mediatype"
	"github.com/fogfish/mediatype/internal/effect"
	"golang.org/x/sync/errgroup"
)

type Codec struct {
	reader *Reader
	scaler *Scaler
	writer *Writer
	types  Types
}

type Option func(*config)

type config struct {
	origin  string
	effects *effect.Registry
	stack   http.Stack
}

// WithOrigin fetches originals missing at file system from the url
func WithOrigin(url string) Option {
	return func(c *config) { c.origin = url }
}

// WithEffects overrides registry of effects
func WithEffects(reg *effect.Registry) Option {
	return func(c *config) { c.effects = reg }
}

// WithHTTP overrides HTTP stack used to fetch originals
func WithHTTP(stack http.Stack) Option {
	return func(c *config) { c.stack = stack }
}

func NewCodec(types Types, getter fs.FS, putter Putter, opts ...Option) *Codec {
	c := config{effects: effect.Default()}
	for _, opt := range opts {
		opt(&c)
	}

	if c.stack == nil {
		// defines HTTP client to download media objects
		client := http.Client()
		client.CheckRedirect = nil
		c.stack = http.New(http.WithClient(client))
	}

	return &Codec{
		reader: NewReader(c.stack, getter, c.origin),
		scaler: NewScaler(c.effects, types),
		writer: NewWriter(putter),
		types:  types,
	}
}

// Render the variant of the file and write it
func (codec *Codec) Render(ctx context.Context, variant string, file string) (*Media, error) {
	media, err := codec.reader.Get(ctx, file)
	if err != nil {
		return nil, err
	}

	img, err := codec.scaler.Process(ctx, variant, media)
	if err != nil {
		return nil, err
	}

	if err := codec.writer.Put(ctx, img); err != nil {
		return nil, err
	}

	return img, nil
}

// Warm renders the file through each type and each of its srcset
// variants, returns keys of rendered media.
func (codec *Codec) Warm(ctx context.Context, file string, types ...string) ([]mediatype.Media, error) {
	media, err := codec.reader.Get(ctx, file)
	if err != nil {
		return nil, err
	}

	variants := []string{}
	for _, name := range types {
		def, err := codec.types.Definition(ctx, name)
		if err != nil {
			return nil, errCodecType.With(err, name)
		}

		variants = append(variants, name)
		for _, w := range def.Srcset().Widths() {
			variants = append(variants, mediatype.Variant(name, w))
		}
	}

	g, ctx := errgroup.WithContext(ctx)

	for _, variant := range variants {
		v := variant

		g.Go(func() error {
			img, err := codec.scaler.Process(ctx, v, media)
			if err != nil {
				return err
			}

			return codec.writer.Put(ctx, img)
		})
	}

	if err := g.Wait(); err != nil {
		return nil, errCodecIO.New(err)
	}

	seq := make([]mediatype.Media, len(variants))
	for i, v := range variants {
		seq[i] = mediatype.Media{Type: v, File: media.key.File}
	}

	slog.Debug("media variants rendered", slog.String("file", media.key.File), slog.Int("variants", len(seq)))
	return seq, nil
}
