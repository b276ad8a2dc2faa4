package ingest

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// CleanupOutputs keeps only the most recent maxKeep digest pairs in dir,
// removing the oldest .txt files (by modification time) together with their
// _llm.json sidecars. Missing sidecars are not an error.
func CleanupOutputs(dir string, maxKeep int, log *slog.Logger) {
	if maxKeep <= 0 {
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	type candidate struct {
		name  string
		mtime int64
	}
	var digests []candidate
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".txt") || strings.HasPrefix(name, ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		digests = append(digests, candidate{name: name, mtime: info.ModTime().UnixNano()})
	}
	if len(digests) <= maxKeep {
		return
	}

	sort.Slice(digests, func(i, j int) bool { return digests[i].mtime < digests[j].mtime })

	for _, c := range digests[:len(digests)-maxKeep] {
		base := strings.TrimSuffix(c.name, ".txt")
		for _, name := range []string{base + ".txt", base + "_llm.json"} {
			path := filepath.Join(dir, name)
			if err := os.Remove(path); err == nil {
				log.Info("cleanup: removed old digest file", "path", path)
			}
		}
	}
}
