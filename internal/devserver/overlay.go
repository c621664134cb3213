package devserver

import (
	"errors"
	"html/template"
	"net/http"
	"path"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/pagepack/internal/bundler"
	"github.com/wolfeidau/pagepack/internal/util"
)

var overlayTemplate = template.Must(template.New("overlay").Parse(`<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body{margin:0;background:#1d1f21;color:#e8e8e8;font:14px/1.5 ui-monospace,Menlo,Consolas,monospace}
header{padding:16px 24px;background:{{if .Failed}}#b3261e{{else}}#8a6d00{{end}};color:#fff;font-weight:bold}
ol{padding:16px 48px}
li{margin-bottom:12px;white-space:pre-wrap}
.loc{color:#9aa0a6}
</style>
</head>
<body>
<header>{{.Title}}</header>
<ol>{{range .Messages}}
<li>{{if .File}}<span class="loc">{{.File}}:{{.Line}}:{{.Column}}</span> {{end}}{{.Text}}</li>{{end}}
</ol>
</body>
</html>
`))

type overlayData struct {
	Title    string
	Failed   bool
	Messages []bundler.Message
}

// overlayFor returns the overlay to show for the last build, or nil when the page should be served normally.
func (s *Server) overlayFor() *overlayData {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.lastErr != nil && s.overlay.Errors {
		var buildErr *bundler.BuildError
		msgs := []bundler.Message{{Text: s.lastErr.Error()}}
		if errors.As(s.lastErr, &buildErr) {
			msgs = buildErr.Messages
		}
		return &overlayData{Title: "Build failed", Failed: true, Messages: msgs}
	}

	if s.lastErr == nil && s.overlay.Warnings && s.last != nil && len(s.last.Warnings) > 0 {
		return &overlayData{Title: "Build finished with warnings", Messages: s.last.Warnings}
	}

	return nil
}

func isDocumentRequest(r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return false
	}
	ext := path.Ext(r.URL.Path)
	return ext == "" || ext == ".html"
}

// overlayHandler replaces page responses with the build diagnostics while the overlay is active.
func (s *Server) overlayHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data := s.overlayFor()
		if data == nil || !isDocumentRequest(r) {
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(util.Cond(data.Failed, http.StatusInternalServerError, http.StatusOK))
		if err := overlayTemplate.Execute(w, data); err != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("Failed to render overlay")
		}
	})
}
