//
// Copyright (C) 2023 Dmitry Kolesnikov
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/fogfish/mediatype
//

// Package codec renders variants of media files: original is read from the
// inbox (or fetched from origin), passed through the effect chain of the
// media type, scaled to the srcset width and encoded into the cache.
package codec

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/fogfish/faults"
	"github.com/fogfish/mediatype"
)

// Abstract media file writer, provide interface implementation.
type Putter interface {
	Put(ctx context.Context, key string, contentType string, r io.Reader) error
}

// PutterFunc is functional adapter of Putter
type PutterFunc func(context.Context, string, string, io.Reader) error

func (f PutterFunc) Put(ctx context.Context, key, contentType string, r io.Reader) error {
	return f(ctx, key, contentType, r)
}

// Types gives definitions of media types
type Types interface {
	Definition(context.Context, string) (mediatype.Type, error)
}

// StaticTypes serves in-memory definitions of media types
type StaticTypes map[string]mediatype.Type

func NewStaticTypes(seq ...mediatype.Type) StaticTypes {
	types := make(StaticTypes, len(seq))
	for _, t := range seq {
		types[t.Name] = t
	}
	return types
}

func (types StaticTypes) Definition(_ context.Context, name string) (mediatype.Type, error) {
	t, has := types[name]
	if !has {
		return mediatype.Type{}, fmt.Errorf("media type %s is not defined", name)
	}
	return t, nil
}

var ErrNotFound = errors.New("media file not found")

const (
	errCodecIO           = faults.Type("codec I/O error")
	errCodecNotSupported = faults.Safe1[string]("not supported (%s)")
	errCodecType         = faults.Safe1[string]("media type failed (%s)")
)

const (
	MEDIA_JPEG = "jpeg"
	MEDIA_PNG  = "png"
	MEDIA_GIF  = "gif"
)

// Container for digital media
type Media struct {
	key    mediatype.Media
	format string
	image  image.Image
}

func (media *Media) Key() mediatype.Media { return media.key }
func (media *Media) Format() string        { return media.format }
func (media *Media) Image() image.Image    { return media.image }
