package harness

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// Asset extensions the extractor can open (lowercase, with leading dot).
var assetExtensions = map[string]bool{
	".mp4":  true,
	".m4a":  true,
	".3gp":  true,
	".mov":  true,
	".mkv":  true,
	".webm": true,
	".ts":   true,
	".m2ts": true,
	".mp3":  true,
	".yuv":  true,
	".raw":  true,
}

// Discover lists asset files directly under dir by base name, sorted.
// Subdirectories are not descended into.
func Discover(dir string) ([]string, error) {
	var names []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if assetExtensions[strings.ToLower(filepath.Ext(path))] {
			names = append(names, d.Name())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// missingAssets returns the inputs not present in found, in input order
// and without duplicates.
func missingAssets(inputs, found []string) []string {
	have := make(map[string]bool, len(found))
	for _, f := range found {
		have[f] = true
	}
	var missing []string
	for _, in := range inputs {
		if !have[in] {
			missing = append(missing, in)
			have[in] = true
		}
	}
	return missing
}
