//
// Copyright (C) 2023 Dmitry Kolesnikov
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/fogfish/mediatype
//

// Package markup expands srcset placeholders of rendered HTML and builds
// responsive image tags.
//
// The placeholder is authored as
//
//	<img src="index.php?rex_media_type=hero&rex_media_file=pic.jpg" srcset="rex_media_type=hero">
//	<source srcset="rex_media_type=hero" data-file="pic.jpg">
//
// and expanded into urls of every variant declared by the srcset config of
// the type.
package markup

import (
	"context"
	"log/slog"
	"net/url"
	"slices"
	"strings"

	"github.com/fogfish/mediatype"
	"golang.org/x/net/html"
)

const (
	placeholder = "rex_media_type="
	fileMarker  = "rex_media_file="
)

// Config of srcset breakpoints per media type
type Config interface {
	SrcsetConfig(context.Context, string) (mediatype.Srcset, error)
}

// ConfigFunc is functional adapter of Config
type ConfigFunc func(context.Context, string) (mediatype.Srcset, error)

func (f ConfigFunc) SrcsetConfig(ctx context.Context, name string) (mediatype.Srcset, error) {
	return f(ctx, name)
}

// StaticConfig serves srcset config from in-memory definitions
func StaticConfig(types ...mediatype.Type) Config {
	seq := make(map[string]mediatype.Srcset, len(types))
	for _, t := range types {
		seq[t.Name] = t.Srcset()
	}

	return ConfigFunc(func(_ context.Context, name string) (mediatype.Srcset, error) {
		return seq[name], nil
	})
}

// Rewriter of srcset placeholders
type Rewriter struct {
	config    Config
	resolver  Resolver
	separator string
}

type Option func(*Rewriter)

// WithSeparator of srcset items, default ",\n "
func WithSeparator(sep string) Option {
	return func(r *Rewriter) { r.separator = sep }
}

func New(config Config, resolver Resolver, opts ...Option) *Rewriter {
	r := &Rewriter{
		config:    config,
		resolver:  resolver,
		separator: ",\n ",
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Srcset expands srcset of the file rendered through the media type.
// It returns false for non-raster files and types without breakpoints.
func (r *Rewriter) Srcset(ctx context.Context, typ, file string) (string, bool) {
	if typ == "" || file == "" || mediatype.IsNonPixelFormat(file) {
		return "", false
	}

	srcset, err := r.config.SrcsetConfig(ctx, typ)
	if err != nil {
		slog.Debug("srcset config is not available", slog.String("type", typ), slog.Any("error", err))
		return "", false
	}
	if len(srcset) == 0 {
		return "", false
	}

	srcset = slices.Clone(srcset)
	slices.SortFunc(srcset, func(a, b mediatype.Descriptor) int { return a.Width - b.Width })

	seq := make([]string, len(srcset))
	for i, d := range srcset {
		seq[i] = mediatype.Source{
			URL:        r.resolver.URL(mediatype.Variant(typ, d.Width), file),
			Descriptor: d.Descriptor,
		}.String()
	}

	return strings.Join(seq, r.separator), true
}

// ReplaceMediaTags expands srcset placeholders of img and source tags.
// Tags that cannot be expanded are left unchanged, as the rest of document.
func (r *Rewriter) ReplaceMediaTags(ctx context.Context, doc string) string {
	if indexFold(doc, placeholder) < 0 {
		return doc
	}

	tokens, tail := tokenize(doc)
	files := pictureFiles(tokens)

	var b strings.Builder
	b.Grow(len(doc) + len(doc)/4)
	for _, tk := range tokens {
		b.WriteString(r.rewrite(ctx, tk, files))
	}
	b.WriteString(tail)

	return b.String()
}

func (r *Rewriter) rewrite(ctx context.Context, tk token, files map[int]string) string {
	if !tk.isStart() || (tk.name != "img" && tk.name != "source") {
		return tk.raw
	}

	attrs := scanAttributes(tk.raw)
	srcset, has := attrs.get("srcset")
	if !has {
		return tk.raw
	}

	typ, ok := placeholderOf(srcset.value)
	if !ok {
		return tk.raw
	}

	var file string
	switch tk.name {
	case "img":
		file, ok = fileOf(attrs)
	case "source":
		if file, ok = dataFileOf(attrs); !ok {
			file, ok = files[tk.picture]
		}
	}
	if !ok {
		return tk.raw
	}

	value, ok := r.Srcset(ctx, typ, file)
	if !ok {
		return tk.raw
	}

	slog.Debug("srcset expanded", slog.String("type", typ), slog.String("file", file))

	return tk.raw[:srcset.span[0]] + `"` + html.EscapeString(value) + `"` + tk.raw[srcset.span[1]:]
}

// placeholderOf returns type name of `rex_media_type=<TYPE>`
func placeholderOf(value string) (string, bool) {
	if len(value) <= len(placeholder) || !strings.EqualFold(value[:len(placeholder)], placeholder) {
		return "", false
	}

	return value[len(placeholder):], true
}

// fileOf returns the file referenced by src of img tag, the query value is
// decoded. The img tag built for path style urls carries the file at data-file.
func fileOf(attrs attributes) (string, bool) {
	src, has := attrs.get("src")
	if !has {
		return "", false
	}

	at := indexFold(src.value, fileMarker)
	if at < 0 {
		return dataFileOf(attrs)
	}

	file := src.value[at+len(fileMarker):]
	if end := strings.IndexAny(file, `&"#`); end >= 0 {
		file = file[:end]
	}

	if name, err := url.QueryUnescape(file); err == nil {
		file = name
	}

	return file, file != ""
}

func dataFileOf(attrs attributes) (string, bool) {
	df, has := attrs.get("data-file")
	if !has || df.value == "" {
		return "", false
	}
	return df.value, true
}

// indexFold is ASCII case-insensitive strings.Index, the pattern is lower case
func indexFold(s, pattern string) int {
	for i := 0; i+len(pattern) <= len(s); i++ {
		if strings.EqualFold(s[i:i+len(pattern)], pattern) {
			return i
		}
	}
	return -1
}

//------------------------------------------------------------------------------

type token struct {
	raw     string
	name    string
	kind    html.TokenType
	picture int
}

func (tk token) isStart() bool {
	return tk.kind == html.StartTagToken || tk.kind == html.SelfClosingTagToken
}

// tokenize splits document into tokens, each token knows its enclosing
// picture element. The tail is the input left unread by the tokenizer.
func tokenize(doc string) ([]token, string) {
	z := html.NewTokenizer(strings.NewReader(doc))

	seq := []token{}
	stack := []int{}
	pictures := 0
	offset := 0

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}

		tk := token{raw: string(z.Raw()), kind: tt, picture: -1}
		offset += len(tk.raw)

		if tt == html.StartTagToken || tt == html.SelfClosingTagToken || tt == html.EndTagToken {
			name, _ := z.TagName()
			tk.name = string(name)
		}

		switch {
		case tk.name == "picture" && tt == html.StartTagToken:
			stack = append(stack, pictures)
			pictures++
		case tk.name == "picture" && tt == html.EndTagToken:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}

		if len(stack) > 0 {
			tk.picture = stack[len(stack)-1]
		}

		seq = append(seq, tk)
	}

	return seq, doc[offset:]
}

// pictureFiles maps picture to the file of its first img
func pictureFiles(tokens []token) map[int]string {
	files := map[int]string{}
	for _, tk := range tokens {
		if tk.picture < 0 || tk.name != "img" || !tk.isStart() {
			continue
		}
		if _, has := files[tk.picture]; has {
			continue
		}
		if file, ok := fileOf(scanAttributes(tk.raw)); ok {
			files[tk.picture] = file
		}
	}
	return files
}
