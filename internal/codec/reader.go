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
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"log/slog"
	"path"
	"strings"

	"github.com/fogfish/gurl/v2/http"
	ƒ "github.com/fogfish/gurl/v2/http/recv"
	ø "github.com/fogfish/gurl/v2/http/send"
	"github.com/fogfish/mediatype"
)

// Reader of original media files from file system, missing files are
// fetched from origin if it is configured.
type Reader struct {
	http.Stack
	fsys   fs.FS
	origin string
}

func NewReader(stack http.Stack, fsys fs.FS, origin string) *Reader {
	return &Reader{
		Stack:  stack,
		fsys:   fsys,
		origin: strings.TrimSuffix(origin, "/"),
	}
}

func (r Reader) Get(ctx context.Context, file string) (*Media, error) {
	format, supported := FormatOf(file)
	if !supported {
		return nil, errCodecNotSupported.With(nil, format)
	}

	file = strings.TrimPrefix(path.Clean("/"+file), "/")
	if !fs.ValidPath(file) {
		return nil, errCodecNotSupported.With(nil, file)
	}

	slog.Debug("getting media object",
		slog.String("file", file),
		slog.String("format", format),
	)

	img, err := r.fetchMediaFile(file)
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist) && r.origin != "":
		img, err = r.fetchMediaLink(ctx, r.origin+"/"+file)
		if err != nil {
			return nil, errCodecIO.New(err)
		}
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("%w: %s", ErrNotFound, file)
	default:
		return nil, errCodecIO.New(err)
	}

	return &Media{
		key:    mediatype.Media{File: file},
		format: format,
		image:  img,
	}, nil
}

// FormatOf media file, false if format is not supported
func FormatOf(file string) (string, bool) {
	ext := strings.ToLower(path.Ext(file))
	switch ext {
	case ".jpg", ".jpeg":
		return MEDIA_JPEG, true
	case ".png":
		return MEDIA_PNG, true
	case ".gif":
		return MEDIA_GIF, true
	default:
		return ext, false
	}
}

func (r Reader) fetchMediaFile(file string) (image.Image, error) {
	if r.fsys == nil {
		return nil, fs.ErrNotExist
	}

	fd, err := r.fsys.Open(file)
	if err != nil {
		return nil, err
	}
	defer fd.Close()

	img, _, err := image.Decode(fd)
	if err != nil {
		return nil, err
	}

	return img, nil
}

func (r Reader) fetchMediaLink(ctx context.Context, url string) (image.Image, error) {
	slog.Debug("fetching media object from origin", slog.String("url", url))

	img, err := http.IO[image.Image](r.WithContext(ctx),
		http.GET(
			ø.URI(url),
			ø.Accept.Set("image/*"),
			ƒ.Status.OK,
		),
	)
	if err != nil {
		return nil, err
	}

	return *img, nil
}
