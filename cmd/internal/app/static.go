package app

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"

	"authd/cmd/internal/auth/api"
)

// spaHandler serves files from dir and falls back to index.html for paths
// that do not name a file, so client-side routes survive a reload.
func spaHandler(dir string) http.Handler {
	root := os.DirFS(dir)
	files := http.FileServerFS(root)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			api.MethodNotAllowed(w, http.MethodGet, http.MethodHead)
			return
		}

		name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
		if name == "" {
			name = "."
		}
		if st, err := fs.Stat(root, name); err == nil && !st.IsDir() {
			files.ServeHTTP(w, r)
			return
		} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
			http.Error(w, "static: unavailable", http.StatusInternalServerError)
			return
		}

		http.ServeFileFS(w, r, root, "index.html")
	})
}
