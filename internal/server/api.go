//
// Copyright (C) 2023 Dmitry Kolesnikov
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/fogfish/mediatype
//

package server

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/fogfish/mediatype/internal/effect"
	"github.com/fogfish/mediatype/internal/manager"
	"github.com/labstack/echo/v4"
)

// GET /api/types?names=a,b&system=true&pretty=true
func (s *Server) exportTypes(c echo.Context) error {
	opts := manager.ExportOptions{}

	if names := c.QueryParam("names"); names != "" {
		opts.Names = strings.Split(names, ",")
	}
	opts.IncludeSystem, _ = strconv.ParseBool(c.QueryParam("system"))
	opts.Pretty, _ = strconv.ParseBool(c.QueryParam("pretty"))

	var buf bytes.Buffer
	if err := s.types.Export(c.Request().Context(), &buf, opts); err != nil {
		return err
	}

	return c.Blob(http.StatusOK, echo.MIMEApplicationJSONCharsetUTF8, buf.Bytes())
}

// POST /api/types
func (s *Server) importTypes(c echo.Context) error {
	if err := s.types.Import(c.Request().Context(), c.Request().Body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
	}

	return c.NoContent(http.StatusNoContent)
}

// DELETE /api/types/:name
func (s *Server) dropType(c echo.Context) error {
	ctx := c.Request().Context()

	t, err := s.types.Get(ctx, c.Param("name"))
	if err != nil {
		return err
	}

	if !t.Exists() {
		return echo.ErrNotFound
	}

	if err := t.Drop(ctx); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

// GET /api/effects
func (s *Server) listEffects(c echo.Context) error {
	reg := s.types.Effects()

	seq := []effect.Info{}
	for _, name := range reg.Available() {
		info, err := reg.Describe(name)
		if err != nil {
			return err
		}
		seq = append(seq, info)
	}

	return c.JSON(http.StatusOK, seq)
}

// GET /api/effects/:name
func (s *Server) describeEffect(c echo.Context) error {
	info, err := s.types.Effects().Describe(c.Param("name"))
	switch {
	case errors.Is(err, effect.ErrUnknownEffect):
		return echo.ErrNotFound
	case err != nil:
		return err
	}

	return c.JSON(http.StatusOK, info)
}
