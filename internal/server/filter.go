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
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// OutputFilter buffers HTML responses of the next handler and expands
// srcset placeholders of media tags. Other responses are passed as is.
func (s *Server) OutputFilter() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if s.rewriter == nil {
				return next(c)
			}

			// compressed body cannot be rewritten
			c.Request().Header.Del("Accept-Encoding")

			w := c.Response().Writer
			buf := &bufferedWriter{ResponseWriter: w, status: http.StatusOK}
			c.Response().Writer = buf

			err := next(c)
			c.Response().Writer = w
			if err != nil {
				return err
			}

			body := buf.body.Bytes()
			if isHTML(w.Header()) {
				doc := s.rewriter.ReplaceMediaTags(c.Request().Context(), string(body))
				if len(doc) != len(body) {
					slog.Debug("media tags rewritten", slog.String("uri", c.Request().RequestURI))
				}
				body = []byte(doc)
				w.Header().Set(echo.HeaderContentLength, strconv.Itoa(len(body)))
				w.Header().Add("Accept-CH", "Sec-CH-Width")
			}

			w.WriteHeader(buf.status)
			_, err = w.Write(body)
			return err
		}
	}
}

func isHTML(h http.Header) bool {
	if h.Get(echo.HeaderContentEncoding) != "" {
		return false
	}

	mediaType, _, err := mime.ParseMediaType(h.Get(echo.HeaderContentType))
	if err != nil {
		return false
	}

	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}

// bufferedWriter captures status and body of the response
type bufferedWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (w *bufferedWriter) WriteHeader(status int) { w.status = status }

func (w *bufferedWriter) Write(b []byte) (int, error) { return w.body.Write(b) }

// Flush is no-op, the body is released after filtering.
func (w *bufferedWriter) Flush() {}
