package server

import (
	"io/fs"
	"net/http"
	"path"
	"strings"
)

// spaFileServer serves the embedded board UI. Requests for files that exist
// in assets are served as-is; every other path (/projects/{id}/board,
// /backlog, ...) gets index.html so the client router can take over.
func spaFileServer(assets fs.FS) http.Handler {
	files := http.FileServerFS(assets)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
		if name == "" || name == "." {
			files.ServeHTTP(w, r)
			return
		}

		if info, err := fs.Stat(assets, name); err != nil || info.IsDir() {
			r.URL.Path = "/"
		}
		files.ServeHTTP(w, r)
	})
}
