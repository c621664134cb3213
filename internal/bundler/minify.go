package bundler

import (
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/svg"
	"github.com/wolfeidau/pagepack/internal/config"
)

const (
	mediaCSS  = "text/css"
	mediaHTML = "text/html"
	mediaSVG  = "image/svg+xml"
)

// optimizeCSS is the postcss stage: it minifies a stylesheet.
func optimizeCSS(_ string, src []byte) ([]byte, error) {
	m := minify.New()
	m.AddFunc(mediaCSS, css.Minify)
	return m.Bytes(mediaCSS, src)
}

// minifyHTML applies the page minify options. The minifier always shortens the
// doctype and drops default script and style type attributes.
func minifyHTML(src []byte, opts config.MinifyOptions) ([]byte, error) {
	m := minify.New()
	m.Add(mediaHTML, &html.Minifier{
		KeepWhitespace:      !opts.CollapseWhitespace,
		KeepComments:        !opts.RemoveComments,
		KeepDefaultAttrVals: !opts.RemoveRedundantAttributes,
		KeepDocumentTags:    true,
		KeepEndTags:         true,
		KeepQuotes:          true,
	})
	m.AddFunc(mediaCSS, css.Minify)
	m.AddFunc(mediaSVG, svg.Minify)
	return m.Bytes(mediaHTML, src)
}

func minifySVG(src []byte) ([]byte, error) {
	m := minify.New()
	m.AddFunc(mediaSVG, svg.Minify)
	return m.Bytes(mediaSVG, src)
}
