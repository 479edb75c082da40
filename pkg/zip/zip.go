// Package zip bundles generated artifacts into a single downloadable archive.
package zip

import (
	"archive/zip"
	"bytes"
	"fmt"
)

// Asset is one file destined for the archive.
type Asset struct {
	Filename string
	MIME     string
	Data     []byte
}

// ArchiveAssets writes every asset into a zip archive and returns its bytes.
// Duplicate filenames get a numeric suffix so no asset silently overwrites
// another.
func ArchiveAssets(assets []Asset) ([]byte, error) {
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	seen := make(map[string]int, len(assets))
	for _, asset := range assets {
		name := asset.Filename
		if n := seen[name]; n > 0 {
			name = fmt.Sprintf("%d-%s", n, name)
		}
		seen[asset.Filename]++

		w, err := zw.Create(name)
		if err != nil {
			return nil, fmt.Errorf("zip: create entry %q: %w", name, err)
		}
		if _, err := w.Write(asset.Data); err != nil {
			return nil, fmt.Errorf("zip: write entry %q: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("zip: finalize archive: %w", err)
	}
	return buf.Bytes(), nil
}
