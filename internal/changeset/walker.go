package changeset

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
)

// FileFilter decides whether a relative, slash-separated path belongs in a listing.
type FileFilter func(relativePath string) bool

// ExtensionFilter accepts files whose extension, compared case-insensitively, is in the list.
func ExtensionFilter(extensions []string) FileFilter {
	allowed := make(map[string]struct{}, len(extensions))
	for _, extension := range extensions {
		normalized := strings.ToLower(strings.TrimSpace(extension))
		if len(normalized) == 0 {
			continue
		}
		if !strings.HasPrefix(normalized, ".") {
			normalized = "." + normalized
		}
		allowed[normalized] = struct{}{}
	}
	return func(relativePath string) bool {
		_, accepted := allowed[strings.ToLower(filepath.Ext(relativePath))]
		return accepted
	}
}

// ListFiles walks root in lexical order, skipping excluded directory names, and returns up to limit
// accepted paths relative to root. A non-positive limit lists every accepted file.
func ListFiles(root string, excludedDirectories []string, filter FileFilter, limit int) ([]string, error) {
	excluded := make(map[string]struct{}, len(excludedDirectories))
	for _, directory := range excludedDirectories {
		excluded[strings.TrimSpace(directory)] = struct{}{}
	}

	files := make([]string, 0)
	walkError := filepath.WalkDir(root, func(path string, entry fs.DirEntry, entryError error) error {
		if entryError != nil {
			if path == root {
				return entryError
			}
			return nil
		}

		if entry.IsDir() {
			if path != root {
				if _, skip := excluded[entry.Name()]; skip {
					return fs.SkipDir
				}
			}
			return nil
		}
		if !entry.Type().IsRegular() {
			return nil
		}

		relativePath, relativeError := filepath.Rel(root, path)
		if relativeError != nil {
			return nil
		}
		relativePath = filepath.ToSlash(relativePath)
		if filter != nil && !filter(relativePath) {
			return nil
		}

		files = append(files, relativePath)
		if limit > 0 && len(files) >= limit {
			return fs.SkipAll
		}
		return nil
	})
	if walkError != nil && !errors.Is(walkError, fs.SkipAll) {
		return nil, walkError
	}
	return files, nil
}
