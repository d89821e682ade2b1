package sqlite

import (
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/papercomputeco/aff4meta/pkg/rdfvalue"
)

// ResolveCacheDir picks the directory holding index databases. The override
// wins, then AFF4_INDEX_DIR, then $XDG_CACHE_HOME/aff4/index, then
// fallback.
func ResolveCacheDir(override, fallback string) (string, error) {
	if override != "" {
		return override, nil
	}

	if envPath := strings.TrimSpace(os.Getenv("AFF4_INDEX_DIR")); envPath != "" {
		return envPath, nil
	}

	if xdgHome := strings.TrimSpace(os.Getenv("XDG_CACHE_HOME")); xdgHome != "" {
		return filepath.Join(xdgHome, "aff4", "index"), nil
	}

	if fallback != "" {
		return fallback, nil
	}
	return "", errors.New("could not find an index cache directory; set index.cache_dir")
}

// CachePath is the index database of volume inside dir.
func CachePath(dir string, volume rdfvalue.URN) string {
	id := strings.TrimPrefix(volume.String(), "aff4://")
	return filepath.Join(dir, url.PathEscape(id)+".db")
}
