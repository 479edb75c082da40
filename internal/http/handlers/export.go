package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/magictales/server/pkg/zip"
)

type exportRequest struct {
	URLs []string `json:"urls"`
}

const maxExportAssets = 24

// Export bundles generated artifacts into a zip download so customers get
// their whole book in one file.
func (a *App) Export(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if !a.decode(w, r, &req) {
		return
	}
	if len(req.URLs) == 0 {
		a.error(w, http.StatusBadRequest, "BAD_REQUEST", "at least one url is required")
		return
	}
	if len(req.URLs) > maxExportAssets {
		a.error(w, http.StatusBadRequest, "TOO_MANY", "too many assets requested")
		return
	}

	client := &http.Client{Timeout: 60 * time.Second}
	assets := make([]zip.Asset, 0, len(req.URLs))
	for i, rawURL := range req.URLs {
		data, mime, err := fetchAsset(r.Context(), client, rawURL)
		if err != nil {
			a.Logger.Warn().Err(err).Str("url", rawURL).Msg("export asset fetch failed")
			a.error(w, http.StatusBadGateway, "FETCH_FAILED", fmt.Sprintf("could not fetch asset %d", i+1))
			return
		}
		assets = append(assets, zip.Asset{
			Filename: exportFilename(i, rawURL, mime),
			MIME:     mime,
			Data:     data,
		})
	}

	archive, err := zip.ArchiveAssets(assets)
	if err != nil {
		a.Logger.Error().Err(err).Msg("export archive failed")
		a.error(w, http.StatusInternalServerError, "INTERNAL", "archive failed")
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="magictales-export.zip"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(archive)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}

func fetchAsset(ctx context.Context, client *http.Client, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, "", err
	}
	return data, resp.Header.Get("Content-Type"), nil
}

func exportFilename(index int, rawURL, mime string) string {
	base := safeFilename(path.Base(rawURL))
	if base == "upload.bin" || !strings.Contains(base, ".") {
		ext := ".png"
		if strings.Contains(mime, "jpeg") || strings.Contains(mime, "jpg") {
			ext = ".jpg"
		} else if strings.Contains(mime, "pdf") {
			ext = ".pdf"
		}
		base = fmt.Sprintf("asset-%02d%s", index+1, ext)
	}
	return base
}
