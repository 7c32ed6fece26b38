//go:build !dev

package resources

import (
	"embed"
	"io/fs"
	"net/http"
)

// Dev reports whether assets are served from disk with hot reload.
const Dev = false

//go:embed static/*
var staticFS embed.FS

// Dir returns an empty path: embedded assets never change.
func Dir() string {
	return ""
}

// Handler serves the embedded static files.
func Handler() http.Handler {
	fsys, _ := fs.Sub(staticFS, "static")
	fileServer := http.FileServer(http.FS(fsys))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// embedded assets only change with the binary
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		http.StripPrefix("/static/", fileServer).ServeHTTP(w, r)
	})
}
