package handlers

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// maxUploadBytes caps raw-body uploads at 15 MiB, matching the largest
// group photo the generation models accept.
const maxUploadBytes = 15 << 20

// Upload stores a raw request body as a blob. The client names the file via
// X-Filename and its type via X-Content-Type; both are optional.
func (a *App) Upload(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxUploadBytes+1))
	if err != nil {
		a.error(w, http.StatusBadRequest, "BAD_REQUEST", "could not read upload body")
		return
	}
	if len(data) == 0 {
		a.error(w, http.StatusBadRequest, "BAD_REQUEST", "empty upload")
		return
	}
	if len(data) > maxUploadBytes {
		a.error(w, http.StatusRequestEntityTooLarge, "TOO_LARGE", "upload exceeds 15 MiB")
		return
	}

	contentType := r.Header.Get("X-Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	name := safeFilename(r.Header.Get("X-Filename"))
	key := fmt.Sprintf("uploads/%s-%s-%s", time.Now().UTC().Format("20060102"), uuid.NewString(), name)

	url, err := a.Blobs.Put(r.Context(), key, data, contentType)
	if err != nil {
		a.Logger.Error().Err(err).Str("key", key).Msg("upload store failed")
		a.error(w, http.StatusInternalServerError, "INTERNAL", "upload failed")
		return
	}

	a.json(w, http.StatusOK, map[string]any{
		"ok":   true,
		"url":  url,
		"key":  key,
		"size": len(data),
	})
}

// safeFilename reduces a client-supplied filename to a single safe path
// component.
func safeFilename(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "." || name == string(filepath.Separator) || name == "" {
		return "upload.bin"
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" {
		return "upload.bin"
	}
	return out
}
