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
	"image"
	"log/slog"

	"github.com/anthonynsimon/bild/transform"
	"github.com/fogfish/mediatype"
	"github.com/fogfish/mediatype/internal/effect"
)

// Scaler renders media through the effect chain of the type. The srcset
// variant type__W is scaled to width W after the chain.
type Scaler struct {
	effects *effect.Registry
	types   Types
}

func NewScaler(effects *effect.Registry, types Types) *Scaler {
	return &Scaler{
		effects: effects,
		types:   types,
	}
}

func (s Scaler) Process(ctx context.Context, variant string, media *Media) (*Media, error) {
	name, width, isVariant := mediatype.ParseVariant(variant)
	if !isVariant {
		name, width = variant, 0
	}

	def, err := s.types.Definition(ctx, name)
	if err != nil {
		return nil, errCodecType.With(err, name)
	}

	img, err := s.effects.Apply(media.image, def.Effects)
	if err != nil {
		return nil, errCodecType.With(err, name)
	}

	slog.Debug("scaling media object",
		slog.String("file", media.key.File),
		slog.String("type", variant),
		slog.Group("source", "x", img.Bounds().Dx(), "y", img.Bounds().Dy()),
		slog.Int("width", width),
	)

	return &Media{
		key:    mediatype.Media{Type: variant, File: media.key.File},
		format: media.format,
		image:  ScaleToWidth(img, width),
	}, nil
}

// ScaleToWidth preserves aspect ratio, images narrower than width are not enlarged.
func ScaleToWidth(img image.Image, width int) image.Image {
	size := img.Bounds().Size()
	if width <= 0 || size.X <= width || size.X == 0 {
		return img
	}

	height := size.Y * width / size.X
	if height < 1 {
		height = 1
	}

	return transform.Resize(img, width, height, transform.Lanczos)
}
