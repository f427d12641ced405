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
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
)

type Writer struct {
	putter Putter
}

func NewWriter(putter Putter) *Writer {
	return &Writer{
		putter: putter,
	}
}

func (wrt Writer) Put(ctx context.Context, media *Media) error {
	slog.Debug("write media object",
		slog.String("key", media.key.PathKey()),
		slog.Group("source", "x", media.image.Bounds().Dx(), "y", media.image.Bounds().Dy()),
	)

	r, w := io.Pipe()
	defer r.Close()

	go func() {
		err := encode(w, media.format, media.image)
		if err != nil {
			slog.Error("failed encode media", "format", media.format, "error", err)
		}
		w.CloseWithError(err)
	}()

	if err := wrt.putter.Put(ctx, media.key.PathKey(), ContentType(media.format), r); err != nil {
		return errCodecIO.New(err)
	}

	return nil
}

func encode(w io.Writer, format string, img image.Image) error {
	switch format {
	case MEDIA_PNG:
		return png.Encode(w, img)
	case MEDIA_GIF:
		return gif.Encode(w, img, nil)
	default:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 93})
	}
}

// ContentType of media format
func ContentType(format string) string {
	switch format {
	case MEDIA_PNG:
		return "image/png"
	case MEDIA_GIF:
		return "image/gif"
	default:
		return "image/jpeg"
	}
}
