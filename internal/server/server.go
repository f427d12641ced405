//
// Copyright (C) 2023 Dmitry Kolesnikov
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/fogfish/mediatype
//

// Package server is HTTP frontend of media types: it serves rendered
// variants, filters HTML of upstream CMS expanding srcset placeholders and
// exposes admin api for types and effects.
package server

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/fogfish/mediatype"
	"github.com/fogfish/mediatype/internal/codec"
	"github.com/fogfish/mediatype/internal/effect"
	"github.com/fogfish/mediatype/internal/manager"
	"github.com/fogfish/mediatype/internal/markup"
	"github.com/fogfish/mediatype/internal/viewport"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Types of media, see manager.Manager
type Types interface {
	Get(context.Context, string) (*manager.Type, error)
	Definition(context.Context, string) (mediatype.Type, error)
	SrcsetConfig(context.Context, string) (mediatype.Srcset, error)
	Export(context.Context, io.Writer, manager.ExportOptions) error
	Import(context.Context, io.Reader) error
	Effects() *effect.Registry
}

// Renderer of media variants, see codec.Codec
type Renderer interface {
	Render(ctx context.Context, variant string, file string) (*codec.Media, error)
}

// Cache of rendered variants, see codec.DirCache
type Cache interface {
	Open(string) (fs.File, error)
}

type Config struct {
	Types    Types
	Renderer Renderer
	Cache    Cache
	Rewriter *markup.Rewriter

	// Path prefix of media variants, default /media
	MediaPath string

	// Upstream CMS, its HTML responses are filtered
	Upstream string
}

type Server struct {
	*echo.Echo
	types    Types
	renderer Renderer
	cache    Cache
	rewriter *markup.Rewriter
	upstream echo.HandlerFunc
}

func New(cfg Config) (*Server, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		Echo:     e,
		types:    cfg.Types,
		renderer: cfg.Renderer,
		cache:    cfg.Cache,
		rewriter: cfg.Rewriter,
	}

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogError:    true,
		LogMethod:   true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				slog.Error("request failed",
					slog.String("method", v.Method),
					slog.String("uri", v.URI),
					slog.Int("status", v.Status),
					slog.Any("error", v.Error),
				)
				return nil
			}
			slog.Debug("request completed",
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
			)
			return nil
		},
	}))
	e.Use(middleware.Recover())

	mediaPath := strings.TrimSuffix(cfg.MediaPath, "/")
	if mediaPath == "" {
		mediaPath = "/media"
	}

	e.GET(mediaPath+"/*", s.media)
	e.GET("/index.php", s.index)
	e.GET("/assets/srcset.js", s.script)

	api := e.Group("/api")
	api.GET("/types", s.exportTypes)
	api.POST("/types", s.importTypes)
	api.DELETE("/types/:name", s.dropType)
	api.GET("/effects", s.listEffects)
	api.GET("/effects/:name", s.describeEffect)

	if cfg.Upstream != "" {
		target, err := url.Parse(cfg.Upstream)
		if err != nil {
			return nil, fmt.Errorf("invalid upstream %s: %w", cfg.Upstream, err)
		}

		proxy := middleware.ProxyWithConfig(middleware.ProxyConfig{
			Balancer: middleware.NewRoundRobinBalancer([]*middleware.ProxyTarget{{URL: target}}),
		})

		s.upstream = s.OutputFilter()(proxy(func(c echo.Context) error { return echo.ErrNotFound }))
		e.Any("/*", s.upstream)
	}

	return s, nil
}

func (s *Server) script(c echo.Context) error {
	c.Response().Header().Set("Cache-Control", "public, max-age=86400")
	return c.Blob(http.StatusOK, "application/javascript; charset=utf-8", viewport.Script)
}
