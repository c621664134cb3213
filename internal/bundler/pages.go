package bundler

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/wolfeidau/pagepack/internal/config"
	"github.com/wolfeidau/pagepack/internal/util"
	"golang.org/x/net/html"
)

// renderPage injects the manifest's styles and scripts into a page template
// and writes the result below dist.
func renderPage(dist string, page config.HTMLPage, manifest *Manifest) error {
	tmpl, err := os.ReadFile(page.Template)
	if err != nil {
		return fmt.Errorf("failed to read page template: %w", err)
	}

	head, body := assetTags(manifest)
	out := injectTags(tmpl, head, body)

	if page.Minify.Enabled() {
		if out, err = minifyHTML(out, page.Minify); err != nil {
			return fmt.Errorf("failed to minify %s: %w", page.Filename, err)
		}
	}

	if err := util.WriteFile(filepath.Join(dist, filepath.FromSlash(page.Filename)), out); err != nil {
		return fmt.Errorf("failed to write page %s: %w", page.Filename, err)
	}

	return nil
}

// assetTags renders the tags for every entry in name order.
func assetTags(manifest *Manifest) (head, body string) {
	names := make([]string, 0, len(manifest.Entries))
	for name := range manifest.Entries {
		names = append(names, name)
	}
	sort.Strings(names)

	var h, b strings.Builder
	for _, name := range names {
		assets := manifest.Entries[name]
		for _, style := range assets.Styles {
			fmt.Fprintf(&h, "<link href=\"%s\" rel=\"stylesheet\">", html.EscapeString(style))
		}
		for _, imp := range assets.Imports {
			fmt.Fprintf(&h, "<link href=\"%s\" rel=\"modulepreload\">", html.EscapeString(imp))
		}
		fmt.Fprintf(&b, "<script type=\"module\" src=\"%s\"></script>", html.EscapeString(assets.Script))
	}

	return h.String(), b.String()
}

// injectTags places head tags before </head> and body tags before </body>.
// End tags are found with the HTML tokenizer, so matching is case insensitive,
// ignores tags inside comments or scripts and leaves every other byte of doc untouched.
// Without </head> the head tags are prepended; without </body> the body tags are appended.
func injectTags(doc []byte, head, body string) []byte {
	headAt, bodyAt := endTagOffsets(doc)

	inserts := []struct {
		at   int
		tags string
	}{
		{at: util.Cond(headAt >= 0, headAt, 0), tags: head},
		{at: util.Cond(bodyAt >= 0, bodyAt, len(doc)), tags: body},
	}
	sort.SliceStable(inserts, func(i, j int) bool { return inserts[i].at < inserts[j].at })

	out := make([]byte, 0, len(doc)+len(head)+len(body))
	prev := 0
	for _, ins := range inserts {
		out = append(out, doc[prev:ins.at]...)
		out = append(out, ins.tags...)
		prev = ins.at
	}
	return append(out, doc[prev:]...)
}

// endTagOffsets returns the byte offsets of the last </head> and </body> end tags, or -1.
func endTagOffsets(doc []byte) (head, body int) {
	head, body = -1, -1

	z := html.NewTokenizer(bytes.NewReader(doc))
	offset := 0
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return head, body
		}

		size := len(z.Raw())
		if tt == html.EndTagToken {
			name, _ := z.TagName()
			switch string(name) {
			case "head":
				head = offset
			case "body":
				body = offset
			}
		}
		offset += size
	}
}
