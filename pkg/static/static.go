// Package static serves files and directory listings from the site
// root. It is deliberately unexciting: all access-control decisions
// happen upstream in the auth and authz gates, and the only policy this
// package carries is refusing to serve the server's own control files.
package static

import (
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// Handler serves files under a root directory.
type Handler struct {
	root    string
	index   string
	listing bool
	hidden  map[string]bool
}

// New creates a handler for the given root. index is the file served
// for directory requests; listing enables HTML directory listings when
// the index is absent. Files named in hidden are never served — the
// credential file, the pending-request queue, and the authorization
// manifests belong to the server, not the site.
func New(root, index string, listing bool, hidden ...string) *Handler {
	h := &Handler{
		root:    filepath.Clean(root),
		index:   index,
		listing: listing,
		hidden:  make(map[string]bool, len(hidden)),
	}
	for _, name := range hidden {
		if name != "" {
			h.hidden[filepath.Base(name)] = true
		}
	}
	return h
}

// Resolve maps a URL path to a filesystem path under the root. The URL
// path is cleaned first, so no sequence of dot segments can escape.
func (h *Handler) Resolve(urlPath string) string {
	clean := path.Clean("/" + urlPath)
	return filepath.Join(h.root, filepath.FromSlash(clean))
}

// Dir returns the directory that governs authorization for a URL path:
// the target itself when it is a directory, its parent otherwise. A
// target that does not exist yields its would-be parent, so a manifest
// still covers requests for missing names beneath it.
func (h *Handler) Dir(urlPath string) string {
	fsPath := h.Resolve(urlPath)
	if info, err := os.Stat(fsPath); err == nil && info.IsDir() {
		return fsPath
	}
	return filepath.Dir(fsPath)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	fsPath := h.Resolve(r.URL.Path)
	if h.hidden[filepath.Base(fsPath)] {
		http.NotFound(w, r)
		return
	}

	info, err := os.Stat(fsPath)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	if info.IsDir() {
		// Prefer the index file; fall back to a listing if enabled.
		indexPath := filepath.Join(fsPath, h.index)
		if _, err := os.Stat(indexPath); err == nil {
			http.ServeFile(w, r, indexPath)
			return
		}
		if h.listing {
			h.serveListing(w, r, fsPath)
			return
		}
		http.Error(w, "directory listing disabled", http.StatusForbidden)
		return
	}

	http.ServeFile(w, r, fsPath)
}

// listingTemplate renders a directory listing.
var listingTemplate = template.Must(template.New("listing").Parse(`<!DOCTYPE html>
<html>
<head><title>Index of {{.Path}}</title></head>
<body>
<h1>Index of {{.Path}}</h1>
<ul>
{{range .Entries}}<li><a href="{{.Href}}">{{.Name}}</a></li>
{{end}}</ul>
</body>
</html>
`))

type listingEntry struct {
	Name string
	Href string
}

type listingData struct {
	Path    string
	Entries []listingEntry
}

// serveListing renders the HTML directory listing, skipping hidden
// control files.
func (h *Handler) serveListing(w http.ResponseWriter, r *http.Request, fsPath string) {
	entries, err := os.ReadDir(fsPath)
	if err != nil {
		http.Error(w, "reading directory", http.StatusInternalServerError)
		return
	}

	base := strings.TrimSuffix(r.URL.Path, "/")
	data := listingData{Path: r.URL.Path}
	for _, e := range entries {
		name := e.Name()
		if h.hidden[name] {
			continue
		}
		display := name
		if e.IsDir() {
			display += "/"
		}
		data.Entries = append(data.Entries, listingEntry{
			Name: display,
			Href: base + "/" + name,
		})
	}
	sort.Slice(data.Entries, func(i, j int) bool { return data.Entries[i].Name < data.Entries[j].Name })

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := listingTemplate.Execute(w, data); err != nil {
		slog.Error("rendering directory listing", "dir", fsPath, "error", err)
	}
}
