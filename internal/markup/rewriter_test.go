//
// Copyright (C) 2023 Dmitry Kolesnikov
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/fogfish/mediatype
//

package markup_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/fogfish/it/v2"
	"github.com/fogfish/mediatype"
	"github.com/fogfish/mediatype/internal/markup"
)

var types = markup.StaticConfig(
	mediatype.Define("hero").Apply(
		mediatype.Resize(1200, 0),
		mediatype.SrcsetOf(500, "800 960w, 400 480w"),
	),
	mediatype.Define("plain").Apply(
		mediatype.Resize(100, 100),
	),
)

func newRewriter() *markup.Rewriter {
	return markup.New(types, markup.PathURL("/m"))
}

func TestReplaceMediaTags(t *testing.T) {
	ctx := context.Background()
	r := newRewriter()

	t.Run("Img", func(t *testing.T) {
		html := `<img src="index.php?rex_media_file=pic.jpg" srcset="rex_media_type=hero">`
		it.Then(t).Should(
			it.Equal(r.ReplaceMediaTags(ctx, html),
				"<img src=\"index.php?rex_media_file=pic.jpg\" srcset=\"/m/hero__400/pic.jpg 480w,\n /m/hero__800/pic.jpg 960w\">",
			),
		)
	})

	t.Run("NonRaster", func(t *testing.T) {
		for _, html := range []string{
			`<img src="index.php?rex_media_file=pic.svg" srcset="rex_media_type=hero">`,
			`<img src="index.php?rex_media_file=doc.PDF" srcset="rex_media_type=hero">`,
			`<picture><source srcset="rex_media_type=hero" data-file="logo.eps"></picture>`,
		} {
			it.Then(t).Should(
				it.Equal(r.ReplaceMediaTags(ctx, html), html),
			)
		}
	})

	t.Run("EmptyConfig", func(t *testing.T) {
		for _, html := range []string{
			`<img src="index.php?rex_media_file=pic.jpg" srcset="rex_media_type=plain">`,
			`<img src="index.php?rex_media_file=pic.jpg" srcset="rex_media_type=unknown">`,
			`<img src="index.php?rex_media_file=pic.jpg" srcset="rex_media_type=">`,
		} {
			it.Then(t).Should(
				it.Equal(r.ReplaceMediaTags(ctx, html), html),
			)
		}
	})

	t.Run("Unresolved", func(t *testing.T) {
		for _, html := range []string{
			`<img src="pic.jpg" srcset="rex_media_type=hero">`,
			`<img srcset="rex_media_type=hero">`,
			`<source srcset="rex_media_type=hero">`,
			`<picture><source srcset="rex_media_type=hero"><img src="pic.jpg"></picture>`,
		} {
			it.Then(t).Should(
				it.Equal(r.ReplaceMediaTags(ctx, html), html),
			)
		}
	})

	t.Run("Passthrough", func(t *testing.T) {
		for _, html := range []string{
			``,
			`<p>no images</p>`,
			`<img src="index.php?rex_media_file=pic.jpg" srcset="a.jpg 1x">`,
			`<div data-note="rex_media_type=hero"><img src="index.php?rex_media_file=pic.jpg"></div>`,
			`<img src="index.php?rex_media_file=pic.jpg" srcset="rex_media_type=hero"`,
			`<img src="index.php?rex_media_file=pic.jpg" srcset="rex_media_type=hero>`,
			`<<<>>> rex_media_type=hero </img`,
		} {
			it.Then(t).Should(
				it.Equal(r.ReplaceMediaTags(ctx, html), html),
			)
		}
	})

	t.Run("SourceDataFile", func(t *testing.T) {
		html := `<picture><source srcset="rex_media_type=hero" data-file="a.png"><img src="index.php?rex_media_file=b.jpg"></picture>`
		it.Then(t).Should(
			it.Equal(r.ReplaceMediaTags(ctx, html),
				"<picture><source srcset=\"/m/hero__400/a.png 480w,\n /m/hero__800/a.png 960w\" data-file=\"a.png\"><img src=\"index.php?rex_media_file=b.jpg\"></picture>",
			),
		)
	})

	t.Run("SourcePictureImg", func(t *testing.T) {
		html := `<picture><img src="index.php?rex_media_file=a.jpg"></picture>` +
			`<picture><source media="(min-width: 800px)" srcset="rex_media_type=hero"><img src="index.php?rex_media_type=hero&amp;rex_media_file=b.jpg"></picture>`
		it.Then(t).Should(
			it.Equal(r.ReplaceMediaTags(ctx, html),
				`<picture><img src="index.php?rex_media_file=a.jpg"></picture>`+
					"<picture><source media=\"(min-width: 800px)\" srcset=\"/m/hero__400/b.jpg 480w,\n /m/hero__800/b.jpg 960w\"><img src=\"index.php?rex_media_type=hero&amp;rex_media_file=b.jpg\"></picture>",
			),
		)
	})

	t.Run("Independent", func(t *testing.T) {
		html := `<p><img src="index.php?rex_media_file=a.jpg" srcset="rex_media_type=hero" alt="a"></p>` +
			`<img src="index.php?rex_media_file=b.svg" srcset="rex_media_type=hero">` +
			`<img class="x" src='index.php?rex_media_file=c.gif' srcset='rex_media_type=hero' />`
		it.Then(t).Should(
			it.Equal(r.ReplaceMediaTags(ctx, html),
				"<p><img src=\"index.php?rex_media_file=a.jpg\" srcset=\"/m/hero__400/a.jpg 480w,\n /m/hero__800/a.jpg 960w\" alt=\"a\"></p>"+
					`<img src="index.php?rex_media_file=b.svg" srcset="rex_media_type=hero">`+
					"<img class=\"x\" src='index.php?rex_media_file=c.gif' srcset=\"/m/hero__400/c.gif 480w,\n /m/hero__800/c.gif 960w\" />",
			),
		)
	})

	t.Run("CaseInsensitive", func(t *testing.T) {
		html := `<IMG SRC="index.php?REX_MEDIA_FILE=pic.jpg" SRCSET="rex_media_type=hero">`
		it.Then(t).Should(
			it.Equal(r.ReplaceMediaTags(ctx, html),
				"<IMG SRC=\"index.php?REX_MEDIA_FILE=pic.jpg\" SRCSET=\"/m/hero__400/pic.jpg 480w,\n /m/hero__800/pic.jpg 960w\">",
			),
		)
	})

	t.Run("ConfigFailure", func(t *testing.T) {
		failing := markup.New(
			markup.ConfigFunc(func(context.Context, string) (mediatype.Srcset, error) {
				return nil, errors.New("database is down")
			}),
			markup.PathURL("/m"),
		)

		html := `<img src="index.php?rex_media_file=pic.jpg" srcset="rex_media_type=hero">`
		it.Then(t).Should(
			it.Equal(failing.ReplaceMediaTags(ctx, html), html),
		)
	})

	t.Run("Separator", func(t *testing.T) {
		compact := markup.New(types, markup.RedaxoURL(""), markup.WithSeparator(", "))

		html := `<img src="index.php?rex_media_file=pic.jpg" srcset="rex_media_type=hero">`
		it.Then(t).Should(
			it.Equal(compact.ReplaceMediaTags(ctx, html),
				`<img src="index.php?rex_media_file=pic.jpg" srcset="index.php?rex_media_type=hero__400&amp;rex_media_file=pic.jpg 480w, index.php?rex_media_type=hero__800&amp;rex_media_file=pic.jpg 960w">`,
			),
		)
	})
}

func TestSrcset(t *testing.T) {
	ctx := context.Background()
	r := newRewriter()

	value, ok := r.Srcset(ctx, "hero", "pic.jpg")
	it.Then(t).Should(
		it.True(ok),
		it.Equal(value, "/m/hero__400/pic.jpg 480w,\n /m/hero__800/pic.jpg 960w"),
	)

	_, ok = r.Srcset(ctx, "hero", "pic.svg")
	it.Then(t).ShouldNot(it.True(ok))
}

func TestBuilder(t *testing.T) {
	ctx := context.Background()
	b := markup.NewBuilder(markup.PathURL("/m"))

	t.Run("Img", func(t *testing.T) {
		tag := b.Img("pic.jpg", "hero", markup.A("alt", `say "hi"`))
		it.Then(t).Should(
			it.Equal(tag, `<img src="/m/hero/pic.jpg" srcset="rex_media_type=hero" data-file="pic.jpg" alt="say &#34;hi&#34;" />`),
			it.Equal(newRewriter().ReplaceMediaTags(ctx, tag),
				"<img src=\"/m/hero/pic.jpg\" srcset=\"/m/hero__400/pic.jpg 480w,\n /m/hero__800/pic.jpg 960w\" data-file=\"pic.jpg\" alt=\"say &#34;hi&#34;\" />",
			),
		)
	})

	t.Run("ImgNonRaster", func(t *testing.T) {
		it.Then(t).Should(
			it.Equal(b.Img("logo.svg", "hero"), `<img src="/m/hero/logo.svg" />`),
		)
	})

	t.Run("Picture", func(t *testing.T) {
		tag := b.Picture("pic.jpg", "hero",
			[]markup.Source{
				{Media: "(max-width: 600px)", Type: "hero", File: "crop.jpg", Sizes: "100vw"},
				{Media: "", Type: "hero"},
			},
			markup.A("alt", "pic"),
		)
		it.Then(t).Should(
			it.Equal(tag,
				`<picture>`+
					`<source media="(max-width: 600px)" srcset="rex_media_type=hero" data-file="crop.jpg" sizes="100vw">`+
					`<source srcset="rex_media_type=hero" data-file="pic.jpg">`+
					`<img src="/m/hero/pic.jpg" data-file="pic.jpg" alt="pic">`+
					`</picture>`,
			),
		)
	})

	t.Run("RedaxoRoundTrip", func(t *testing.T) {
		res := markup.RedaxoURL("/")
		rex := markup.New(types, res)
		for _, file := range []string{"pic.jpg", "bäume.jpg", "my pic.jpg", "a+b.jpg"} {
			doc := rex.ReplaceMediaTags(ctx, markup.NewBuilder(res).Img(file, "hero"))
			it.Then(t).Should(
				it.True(strings.Contains(doc, strings.ReplaceAll(res.URL("hero__400", file), "&", "&amp;")+" 480w")),
				it.True(strings.Contains(doc, strings.ReplaceAll(res.URL("hero__800", file), "&", "&amp;")+" 960w")),
			)
		}
	})

	t.Run("PictureNonRaster", func(t *testing.T) {
		it.Then(t).Should(
			it.Equal(b.Picture("logo.svg", "hero", nil), `<img src="/m/hero/logo.svg" />`),
		)
	})
}

func TestResolver(t *testing.T) {
	for style, expect := range map[string]string{
		"":       "/m/hero__400/my%20pic.jpg",
		"path":   "/m/hero__400/my%20pic.jpg",
		"redaxo": "/m/index.php?rex_media_type=hero__400&rex_media_file=my+pic.jpg",
	} {
		r, err := markup.NewResolver(style, "/m")
		it.Then(t).Should(
			it.Nil(err),
			it.Equal(r.URL("hero__400", "my pic.jpg"), expect),
		)
	}

	it.Then(t).Should(
		it.Equal(markup.PathURL("/m/").URL("hero", "dir/a b.jpg"), "/m/hero/dir/a%20b.jpg"),
	)

	_, err := markup.NewResolver("cdn", "")
	it.Then(t).ShouldNot(it.Nil(err))
}
