//
// Copyright (C) 2023 Dmitry Kolesnikov
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/fogfish/mediatype
//

package markup

import (
	"fmt"
	"net/url"
	"strings"
)

// Resolver of variant urls
type Resolver interface {
	URL(variant, file string) string
}

// ResolverFunc is functional adapter of Resolver
type ResolverFunc func(variant, file string) string

func (f ResolverFunc) URL(variant, file string) string { return f(variant, file) }

// PathURL resolves variants as {base}/{variant}/{file}
func PathURL(base string) Resolver {
	base = strings.TrimSuffix(base, "/")
	return ResolverFunc(func(variant, file string) string {
		return base + "/" + url.PathEscape(variant) + "/" + escapePath(file)
	})
}

// escapePath escapes segments of the path, separators are kept
func escapePath(file string) string {
	seq := strings.Split(file, "/")
	for i, s := range seq {
		seq[i] = url.PathEscape(s)
	}
	return strings.Join(seq, "/")
}

// RedaxoURL resolves variants as {base}index.php?rex_media_type={variant}&rex_media_file={file}
func RedaxoURL(base string) Resolver {
	if base != "" && !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return ResolverFunc(func(variant, file string) string {
		return base + "index.php?rex_media_type=" + url.QueryEscape(variant) + "&rex_media_file=" + url.QueryEscape(file)
	})
}

// NewResolver by the url style: path or redaxo
func NewResolver(style, base string) (Resolver, error) {
	switch style {
	case "", "path":
		return PathURL(base), nil
	case "redaxo":
		return RedaxoURL(base), nil
	default:
		return nil, fmt.Errorf("url style %q is not supported", style)
	}
}
