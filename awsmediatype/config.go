//
// Copyright (C) 2023 Dmitry Kolesnikov
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/fogfish/mediatype
//

package awsmediatype

import (
	"github.com/fogfish/mediatype"
)

//
// Configures the stack properties based on the context
//

var (
	TypesResponsive = mediatype.Types(
		//
		// Full width hero image
		mediatype.Define("hero").
			Describe("full width hero image").
			Apply(
				mediatype.Resize(1920, 0),
				mediatype.SrcsetOf(1920, "480 480w, 960 960w, 1440 1440w, 1920 1920w"),
			),
		//
		// Teaser of article
		mediatype.Define("teaser").
			Describe("teaser of article").
			Apply(
				mediatype.Crop(1200, 675),
				mediatype.SrcsetOf(1200, "400 400w, 800 800w, 1200 1200w"),
			),
		//
		// Thumbnail
		mediatype.Define("thumb").
			Describe("square thumbnail").
			Apply(
				mediatype.Crop(240, 240),
				mediatype.SrcsetOf(240, "120 1x, 240 2x"),
			),
	)

	Types = map[string][]mediatype.Type{
		"responsive": TypesResponsive,
	}
)
