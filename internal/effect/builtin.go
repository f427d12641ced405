//
// Copyright (C) 2023 Dmitry Kolesnikov
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/fogfish/mediatype
//

package effect

import (
	"fmt"
	"image"
	"math"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/anthonynsimon/bild/blur"
	bild "github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/transform"
	"github.com/fogfish/mediatype"
)

//------------------------------------------------------------------------------

// Resize image into the box
type Resize struct{}

func (Resize) Name() string { return "resize" }

func (Resize) Params() []Param {
	return []Param{
		{Name: "width", Label: "Width", Type: "int"},
		{Name: "height", Label: "Height", Type: "int"},
		{Name: "style", Label: "Style", Type: "select", Default: "maximum", Options: []string{"maximum", "minimum", "exact"}},
		{Name: "allow_enlarge", Label: "Allow enlarge", Type: "select", Default: "not_enlarge", Options: []string{"enlarge", "not_enlarge"}},
	}
}

func (Resize) Apply(img image.Image, p mediatype.Params) (image.Image, error) {
	box := image.Point{X: p.Int("width", 0), Y: p.Int("height", 0)}
	if box.X < 0 || box.Y < 0 {
		return nil, fmt.Errorf("invalid box %dx%d", box.X, box.Y)
	}

	enlarge := p.String("allow_enlarge", "not_enlarge") == "enlarge"
	size := img.Bounds().Size()
	dest := ResizeTo(size, box, p.String("style", "maximum"), enlarge)
	if dest == size {
		return img, nil
	}

	return transform.Resize(img, dest.X, dest.Y, transform.Lanczos), nil
}

// ResizeTo calculates dimension of the image resized into the box.
// Zero side of the box is unconstrained.
func ResizeTo(source, box image.Point, style string, enlarge bool) image.Point {
	if source.X == 0 || source.Y == 0 || (box.X == 0 && box.Y == 0) {
		return source
	}

	if style == "exact" && box.X > 0 && box.Y > 0 {
		if !enlarge && (box.X > source.X || box.Y > source.Y) {
			return source
		}
		return box
	}

	rx := float64(box.X) / float64(source.X)
	ry := float64(box.Y) / float64(source.Y)

	var ratio float64
	switch {
	case box.X == 0:
		ratio = ry
	case box.Y == 0:
		ratio = rx
	case style == "minimum":
		ratio = math.Max(rx, ry)
	default:
		ratio = math.Min(rx, ry)
	}

	if ratio > 1 && !enlarge {
		return source
	}

	return image.Point{
		X: max(1, int(math.Round(float64(source.X)*ratio))),
		Y: max(1, int(math.Round(float64(source.Y)*ratio))),
	}
}

//------------------------------------------------------------------------------

// Crop the box from image at given position. The box bigger than image is
// cropped by aspect ratio and scaled to the box.
type Crop struct{}

func (Crop) Name() string { return "crop" }

func (Crop) Params() []Param {
	return []Param{
		{Name: "width", Label: "Width", Type: "int"},
		{Name: "height", Label: "Height", Type: "int"},
		{Name: "hpos", Label: "Horizontal position", Type: "select", Default: "center", Options: []string{"left", "center", "right"}},
		{Name: "vpos", Label: "Vertical position", Type: "select", Default: "middle", Options: []string{"top", "middle", "bottom"}},
	}
}

func (Crop) Apply(img image.Image, p mediatype.Params) (image.Image, error) {
	box := image.Point{X: p.Int("width", 0), Y: p.Int("height", 0)}
	if box.X <= 0 || box.Y <= 0 {
		return nil, fmt.Errorf("invalid box %dx%d", box.X, box.Y)
	}

	size := img.Bounds().Size()
	region := box
	if box.X > size.X || box.Y > size.Y {
		cropX, cropY := CropToScale(size, box)
		region = image.Point{X: size.X - cropX, Y: size.Y - cropY}
	}

	x := position(p.String("hpos", "center"), size.X-region.X)
	y := position(p.String("vpos", "middle"), size.Y-region.Y)
	at := img.Bounds().Min.Add(image.Point{X: x, Y: y})

	cropped := transform.Crop(img, image.Rectangle{Min: at, Max: at.Add(region)})
	if region == box {
		return cropped, nil
	}

	return transform.Resize(cropped, box.X, box.Y, transform.Lanczos), nil
}

func position(pos string, slack int) int {
	switch pos {
	case "left", "top":
		return 0
	case "right", "bottom":
		return slack
	default:
		return slack / 2
	}
}

// CropToScale calculates the amount of pixels to crop from source image so
// that it matches aspect ratio of the target.
func CropToScale(source image.Point, target image.Point) (int, int) {
	aspectSource := float64(source.X) / float64(source.Y)
	aspectTarget := float64(target.X) / float64(target.Y)

	if aspectSource > aspectTarget {
		width := int(float64(source.Y) * aspectTarget)
		return source.X - width, 0
	}

	if aspectSource < aspectTarget {
		height := int(float64(source.X) / aspectTarget)
		return 0, source.Y - height
	}

	return 0, 0
}

//------------------------------------------------------------------------------

// Rotate image clockwise
type Rotate struct{}

func (Rotate) Name() string { return "rotate" }

func (Rotate) Params() []Param {
	return []Param{
		{Name: "rotate", Label: "Rotation", Type: "select", Default: "0", Options: []string{"0", "90", "180", "270"}},
	}
}

func (Rotate) Apply(img image.Image, p mediatype.Params) (image.Image, error) {
	angle := p.Int("rotate", 0) % 360
	if angle == 0 {
		return img, nil
	}
	if angle%90 != 0 {
		return nil, fmt.Errorf("unsupported rotation %d", angle)
	}

	return transform.Rotate(img, float64(angle), &transform.RotationOptions{ResizeBounds: true}), nil
}

//------------------------------------------------------------------------------

// Flip image
type Flip struct{}

func (Flip) Name() string { return "flip" }

func (Flip) Params() []Param {
	return []Param{
		{Name: "flip", Label: "Flip", Type: "select", Default: "X", Options: []string{"X", "Y", "XY"}},
	}
}

func (Flip) Apply(img image.Image, p mediatype.Params) (image.Image, error) {
	switch p.String("flip", "X") {
	case "X":
		return transform.FlipH(img), nil
	case "Y":
		return transform.FlipV(img), nil
	case "XY":
		return transform.FlipV(transform.FlipH(img)), nil
	default:
		return nil, fmt.Errorf("unsupported flip %s", p.String("flip", ""))
	}
}

//------------------------------------------------------------------------------

// Blur image with gaussian filter
type Blur struct{}

func (Blur) Name() string { return "filter_blur" }

func (Blur) Params() []Param {
	return []Param{
		{Name: "radius", Label: "Radius", Type: "int", Default: 3},
	}
}

func (Blur) Apply(img image.Image, p mediatype.Params) (image.Image, error) {
	radius := p.Float("radius", 3)
	if radius <= 0 {
		return img, nil
	}
	return blur.Gaussian(img, radius), nil
}

//------------------------------------------------------------------------------

// Sharpen image
type Sharpen struct{}

func (Sharpen) Name() string { return "filter_sharpen" }

func (Sharpen) Params() []Param { return []Param{} }

func (Sharpen) Apply(img image.Image, _ mediatype.Params) (image.Image, error) {
	return bild.Sharpen(img), nil
}

//------------------------------------------------------------------------------

// Brightness adjustment in range -100..100 percent
type Brightness struct{}

func (Brightness) Name() string { return "filter_brightness" }

func (Brightness) Params() []Param {
	return []Param{
		{Name: "brightness", Label: "Brightness", Type: "int", Default: 0},
	}
}

func (Brightness) Apply(img image.Image, p mediatype.Params) (image.Image, error) {
	change := percent(p.Float("brightness", 0))
	if change == 0 {
		return img, nil
	}
	return adjust.Brightness(img, change), nil
}

// Contrast adjustment in range -100..100 percent
type Contrast struct{}

func (Contrast) Name() string { return "filter_contrast" }

func (Contrast) Params() []Param {
	return []Param{
		{Name: "contrast", Label: "Contrast", Type: "int", Default: 0},
	}
}

func (Contrast) Apply(img image.Image, p mediatype.Params) (image.Image, error) {
	change := percent(p.Float("contrast", 0))
	if change == 0 {
		return img, nil
	}
	return adjust.Contrast(img, change), nil
}

func percent(v float64) float64 {
	return math.Max(-1, math.Min(1, v/100))
}

//------------------------------------------------------------------------------

// Greyscale image
type Greyscale struct{}

func (Greyscale) Name() string { return "filter_greyscale" }

func (Greyscale) Params() []Param { return []Param{} }

func (Greyscale) Apply(img image.Image, _ mediatype.Params) (image.Image, error) {
	return bild.Grayscale(img), nil
}

//------------------------------------------------------------------------------

// Srcset declares responsive breakpoints of media type, image is not changed.
type Srcset struct{}

func (Srcset) Name() string { return mediatype.EffectSrcset }

func (Srcset) Params() []Param {
	return []Param{
		{Name: "width", Label: "Width", Type: "int", Default: 500, Notice: "default width of the image"},
		{Name: "srcset", Label: "Srcset", Type: "string", Notice: "e.g. 400 480w, 800 480w 2x, 700 768w"},
	}
}

func (Srcset) Apply(img image.Image, _ mediatype.Params) (image.Image, error) {
	return img, nil
}
