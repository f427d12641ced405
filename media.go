//
// Copyright (C) 2023 Dmitry Kolesnikov
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/fogfish/mediatype
//

package mediatype

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// Media is a reference to source image rendered through the named media type.
type Media struct {
	File string
	Type string
}

func (m Media) PathKey() string { return m.Type + "/" + m.File }

// Parses path {Type}/{File} into reference to media object
func NewMediaFromPath(path string) (*Media, error) {
	seq := strings.SplitN(strings.TrimPrefix(path, "/"), "/", 2)
	if len(seq) != 2 || seq[0] == "" || seq[1] == "" {
		return nil, fmt.Errorf("path format is not supported: %s", path)
	}

	return &Media{
		Type: seq[0],
		File: seq[1],
	}, nil
}

// Source is resolved entry of srcset attribute
type Source struct {
	URL        string
	Descriptor string
}

func (s Source) String() string { return s.URL + " " + s.Descriptor }

// formats that are not resampled, the original is served as-is
var nonPixelFormats = map[string]struct{}{
	"svg": {},
	"pdf": {},
	"eps": {},
}

// IsNonPixelFormat checks file extension against vector/document formats
func IsNonPixelFormat(file string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(file), "."))
	_, has := nonPixelFormats[ext]
	return has
}

// variant separator between media type and srcset width
const variantSep = "__"

// Variant names the srcset sub-variant of media type, e.g. hero__400
func Variant(mediatype string, width int) string {
	return mediatype + variantSep + strconv.Itoa(width)
}

// ParseVariant splits hero__400 into (hero, 400, true).
// Plain media type returns (name, 0, false).
func ParseVariant(name string) (string, int, bool) {
	at := strings.LastIndex(name, variantSep)
	if at <= 0 {
		return name, 0, false
	}

	width, err := strconv.Atoi(name[at+len(variantSep):])
	if err != nil || width <= 0 {
		return name, 0, false
	}

	return name[:at], width, true
}
