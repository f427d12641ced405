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

	"golang.org/x/net/html"
)

// attribute of the tag. The span points to the value token inside the raw
// tag, quotes included.
type attribute struct {
	name  string
	value string
	span  [2]int
}

type attributes []attribute

// get returns first attribute with the name, as browsers do
func (seq attributes) get(name string) (attribute, bool) {
	for _, a := range seq {
		if a.name == name {
			return a, true
		}
	}
	return attribute{}, false
}

// scanAttributes reads the attribute list of the raw start tag
// (e.g. `<img src="a.jpg" alt=x hidden>`). Names are lower cased, values
// are unescaped. Scanning stops at unterminated quoted value.
func scanAttributes(raw string) attributes {
	n := len(raw)
	i := 0
	if i < n && raw[i] == '<' {
		i++
	}
	for i < n && !isSpace(raw[i]) && raw[i] != '>' && raw[i] != '/' {
		i++
	}

	seq := attributes{}
	for i < n {
		for i < n && (isSpace(raw[i]) || raw[i] == '/') {
			i++
		}
		if i >= n || raw[i] == '>' {
			break
		}

		start := i
		i++
		for i < n && !isSpace(raw[i]) && raw[i] != '=' && raw[i] != '>' && raw[i] != '/' {
			i++
		}
		a := attribute{name: strings.ToLower(raw[start:i])}

		j := i
		for j < n && isSpace(raw[j]) {
			j++
		}
		if j >= n || raw[j] != '=' {
			seq = append(seq, a)
			continue
		}

		j++
		for j < n && isSpace(raw[j]) {
			j++
		}

		switch {
		case j < n && (raw[j] == '"' || raw[j] == '\''):
			k := strings.IndexByte(raw[j+1:], raw[j])
			if k < 0 {
				return seq
			}
			a.span = [2]int{j, j + k + 2}
			a.value = html.UnescapeString(raw[j+1 : j+1+k])
		default:
			k := j
			for k < n && !isSpace(raw[k]) && raw[k] != '>' {
				k++
			}
			a.span = [2]int{j, k}
			a.value = html.UnescapeString(raw[j:k])
		}

		i = a.span[1]
		seq = append(seq, a)
	}

	return seq
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}
