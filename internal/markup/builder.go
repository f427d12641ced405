//
// Copyright (C) 2023 Dmitry Kolesnikov
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/fogfish/mediatype
//

package markup

import (
	"strings"

	"github.com/fogfish/mediatype"
	"golang.org/x/net/html"
)

// Attr is attribute of generated tag
type Attr struct{ Name, Value string }

// A is shortcut of Attr
func A(name, value string) Attr { return Attr{Name: name, Value: value} }

// Source of picture element for art direction. File defaults to the picture's file.
type Source struct {
	Media string
	Type  string
	File  string
	Sizes string
}

// Builder of img and picture tags carrying srcset placeholders
type Builder struct {
	resolver Resolver
}

func NewBuilder(resolver Resolver) *Builder {
	return &Builder{resolver: resolver}
}

// Img tag of the file rendered through media type. Non-raster files are
// referenced without srcset placeholder.
func (b *Builder) Img(file, typ string, attrs ...Attr) string {
	var sb strings.Builder
	sb.WriteString(`<img`)
	writeAttr(&sb, "src", b.resolver.URL(typ, file))
	if !mediatype.IsNonPixelFormat(file) {
		writeAttr(&sb, "srcset", placeholder+typ)
		writeAttr(&sb, "data-file", file)
	}
	for _, a := range attrs {
		writeAttr(&sb, a.Name, a.Value)
	}
	sb.WriteString(` />`)

	return sb.String()
}

// Picture tag with sources for art direction, the last source and img use
// the default type. Non-raster files fall back to img.
func (b *Builder) Picture(file, typ string, sources []Source, attrs ...Attr) string {
	if mediatype.IsNonPixelFormat(file) {
		return b.Img(file, typ, attrs...)
	}

	var sb strings.Builder
	sb.WriteString(`<picture>`)

	for _, s := range sources {
		if s.Media == "" || s.Type == "" {
			continue
		}

		sf := s.File
		if sf == "" {
			sf = file
		}

		sb.WriteString(`<source`)
		writeAttr(&sb, "media", s.Media)
		writeAttr(&sb, "srcset", placeholder+s.Type)
		writeAttr(&sb, "data-file", sf)
		if s.Sizes != "" {
			writeAttr(&sb, "sizes", s.Sizes)
		}
		sb.WriteString(`>`)
	}

	sb.WriteString(`<source`)
	writeAttr(&sb, "srcset", placeholder+typ)
	writeAttr(&sb, "data-file", file)
	sb.WriteString(`>`)

	sb.WriteString(`<img`)
	writeAttr(&sb, "src", b.resolver.URL(typ, file))
	writeAttr(&sb, "data-file", file)
	for _, a := range attrs {
		writeAttr(&sb, a.Name, a.Value)
	}
	sb.WriteString(`>`)

	sb.WriteString(`</picture>`)

	return sb.String()
}

func writeAttr(sb *strings.Builder, name, value string) {
	sb.WriteString(" ")
	sb.WriteString(name)
	sb.WriteString(`="`)
	sb.WriteString(html.EscapeString(value))
	sb.WriteString(`"`)
}
