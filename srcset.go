//
// Copyright (C) 2023 Dmitry Kolesnikov
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/fogfish/mediatype
//

package mediatype

import (
	"sort"
	"strconv"
	"strings"
)

// Descriptor is a single srcset breakpoint: the width of rendered variant and
// the hint appended to its url inside the srcset attribute (e.g. 480w, 2x).
type Descriptor struct {
	Width      int
	Descriptor string
}

// Srcset is an ordered (ascending by width) set of descriptors with unique widths.
type Srcset []Descriptor

// Parses srcset configuration from string "{Width} {Descriptor}, {Width} {Descriptor}"
//
// Malformed items (less than two tokens or no leading width) are skipped,
// duplicate width overrides the earlier one.
func ParseSrcset(spec string) Srcset {
	seen := map[int]string{}

	for _, item := range strings.Split(spec, ",") {
		seq := strings.Fields(item)
		if len(seq) < 2 {
			continue
		}

		width, ok := LeadingInt(seq[0])
		if !ok || width == 0 {
			continue
		}

		seen[width] = strings.Join(seq[1:], " ")
	}

	srcset := make(Srcset, 0, len(seen))
	for w, d := range seen {
		srcset = append(srcset, Descriptor{Width: w, Descriptor: d})
	}

	sort.Slice(srcset, func(i, j int) bool { return srcset[i].Width < srcset[j].Width })

	return srcset
}

func (s Srcset) String() string {
	seq := make([]string, len(s))
	for i, d := range s {
		seq[i] = strconv.Itoa(d.Width) + " " + d.Descriptor
	}

	return strings.Join(seq, ", ")
}

// Widths of the set in ascending order
func (s Srcset) Widths() []int {
	seq := make([]int, len(s))
	for i, d := range s {
		seq[i] = d.Width
	}
	return seq
}

// Lookup descriptor of the given width
func (s Srcset) Lookup(width int) (string, bool) {
	for _, d := range s {
		if d.Width == width {
			return d.Descriptor, true
		}
	}
	return "", false
}

// Match the nearest descriptor to observed width
func (s Srcset) Match(width int) (Descriptor, bool) {
	seq := make([]Candidate[Descriptor], len(s))
	for i, d := range s {
		seq[i] = Candidate[Descriptor]{Width: d.Width, Value: d}
	}

	return Match(seq, width)
}

// Candidate is a value bound to the breakpoint width
type Candidate[T any] struct {
	Width int
	Value T
}

// Match selects the candidate nearest to the observed width w. Candidates
// must be sorted ascending by width. Unknown width (0) or empty sequence has
// no match. Below the smallest (above the largest) width the smallest
// (largest) candidate wins. In between, the upper neighbor wins only if it is
// strictly closer, equal distance picks the lower one.
func Match[T any](seq []Candidate[T], w int) (T, bool) {
	var none T

	if len(seq) == 0 || w == 0 {
		return none, false
	}

	if w <= seq[0].Width {
		return seq[0].Value, true
	}

	last := seq[len(seq)-1]
	if w >= last.Width {
		return last.Value, true
	}

	for i := 0; i < len(seq)-1; i++ {
		lo, hi := seq[i], seq[i+1]
		if w >= lo.Width && w < hi.Width {
			if w-lo.Width > hi.Width-w {
				return hi.Value, true
			}
			return lo.Value, true
		}
	}

	return last.Value, true
}

// LeadingInt parses decimal prefix of the string, "480w" -> 480.
func LeadingInt(s string) (int, bool) {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}

	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}
