package httpadapter

import (
	"fmt"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Media types the browser can render directly; everything else is sent
// as a download.
var inlineMediaTypes = map[string]struct{}{
	"application/pdf": {},
	"text/plain":      {},
	"text/html":       {},
}

// viewFile serves an indexed document from the data root so the links
// in the references block resolve to the underlying file.
func (rt *Router) viewFile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	relative := r.URL.Query().Get("path")
	if strings.TrimSpace(relative) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "path is required"})
		return
	}

	// Cleaning the rooted form eats every ".." segment, so the join
	// cannot escape the data root.
	cleaned := path.Clean("/" + filepath.ToSlash(relative))
	target := filepath.Join(rt.cfg.DataRoot, filepath.FromSlash(cleaned))

	info, err := os.Stat(target)
	if err != nil || !info.Mode().IsRegular() {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "fichier introuvable"})
		return
	}

	mediaType := mime.TypeByExtension(filepath.Ext(target))
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}
	disposition := "attachment"
	if base, _, err := mime.ParseMediaType(mediaType); err == nil {
		if _, ok := inlineMediaTypes[base]; ok {
			disposition = "inline"
		}
	}
	w.Header().Set("Content-Type", mediaType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, filepath.Base(target)))
	http.ServeFile(w, r, target)
}
