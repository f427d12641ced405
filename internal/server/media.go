//
// Copyright (C) 2023 Dmitry Kolesnikov
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/fogfish/mediatype
//

package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/fogfish/mediatype"
	"github.com/fogfish/mediatype/internal/catalog"
	"github.com/fogfish/mediatype/internal/codec"
	"github.com/labstack/echo/v4"
)

// width hints of the client, in the order of preference
var widthHints = []string{"Sec-CH-Width", "Width"}

// media serves {type}/{file} paths
func (s *Server) media(c echo.Context) error {
	raw, err := url.PathUnescape(c.Param("*"))
	if err != nil {
		return echo.ErrNotFound
	}

	media, err := mediatype.NewMediaFromPath(raw)
	if err != nil {
		return echo.ErrNotFound
	}

	return s.serveMedia(c, media.Type, media.File)
}

// index serves REDAXO style urls index.php?rex_media_type=T&rex_media_file=F,
// other requests belong to upstream.
func (s *Server) index(c echo.Context) error {
	typ, file := c.QueryParam("rex_media_type"), c.QueryParam("rex_media_file")
	if typ != "" && file != "" {
		return s.serveMedia(c, typ, file)
	}

	if s.upstream != nil {
		return s.upstream(c)
	}

	return echo.ErrNotFound
}

func (s *Server) serveMedia(c echo.Context, typ, file string) error {
	ctx := c.Request().Context()

	file = strings.TrimPrefix(path.Clean("/"+file), "/")
	if typ == "" || file == "" {
		return echo.ErrNotFound
	}

	if _, supported := codec.FormatOf(file); !supported {
		return echo.NewHTTPError(http.StatusUnsupportedMediaType, "media format is not supported")
	}

	variant, err := s.variantOf(ctx, typ, widthHint(c))
	if err != nil {
		return err
	}

	key := mediatype.Media{Type: variant, File: file}.PathKey()
	fd, err := s.cache.Open(key)
	if err != nil {
		if _, err := s.renderer.Render(ctx, variant, file); err != nil {
			if errors.Is(err, codec.ErrNotFound) {
				return echo.ErrNotFound
			}
			return err
		}

		fd, err = s.cache.Open(key)
		if err != nil {
			return err
		}
	}
	defer fd.Close()

	h := c.Response().Header()
	h.Set("Vary", "Sec-CH-Width, Width")
	h.Set("Cache-Control", "public, max-age=604800")

	rs, seekable := fd.(io.ReadSeeker)
	fi, err := fd.Stat()
	if !seekable || err != nil {
		format, _ := codec.FormatOf(file)
		return c.Stream(http.StatusOK, codec.ContentType(format), fd)
	}

	http.ServeContent(c.Response(), c.Request(), path.Base(file), fi.ModTime(), rs)
	return nil
}

// variantOf resolves type into srcset variant nearest to the width
func (s *Server) variantOf(ctx context.Context, typ string, width int) (string, error) {
	base := typ
	if name, _, isVariant := mediatype.ParseVariant(typ); isVariant {
		base = name
	}

	if _, err := s.types.Definition(ctx, base); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return "", echo.ErrNotFound
		}
		return "", err
	}

	if width == 0 || base != typ {
		return typ, nil
	}

	srcset, err := s.types.SrcsetConfig(ctx, typ)
	if err != nil {
		return "", err
	}

	d, has := srcset.Match(width)
	if !has {
		return typ, nil
	}

	slog.Debug("variant selected by width hint",
		slog.String("type", typ),
		slog.Int("hint", width),
		slog.Int("width", d.Width),
	)

	return mediatype.Variant(typ, d.Width), nil
}

func widthHint(c echo.Context) int {
	for _, header := range widthHints {
		if w, ok := mediatype.LeadingInt(c.Request().Header.Get(header)); ok && w > 0 {
			return w
		}
	}

	if w, ok := mediatype.LeadingInt(c.QueryParam("w")); ok {
		return w
	}

	return 0
}
