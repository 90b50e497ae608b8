// Package utils contains general helper functions used across ctxpack.
package utils

import (
	"path/filepath"
	"strings"

	"github.com/samber/lo"
)

const (
	// GitIgnoreFileName is the name of the Git ignore file.
	GitIgnoreFileName = ".gitignore"
	// GitDirectoryName is the name of the Git repository directory.
	GitDirectoryName = ".git"
	// ConfigFileName is the name of the project-local configuration file.
	ConfigFileName = ".ctxpack.yaml"
	// GlobalConfigDirectoryName is the directory under the user's home holding global configuration.
	GlobalConfigDirectoryName = ".ctxpack"
	// GlobalConfigFileName is the name of the global configuration file.
	GlobalConfigFileName = "config.yaml"
)

// DeduplicatePatterns removes duplicate and blank patterns while preserving order.
// The first occurrence of each unique pattern is kept.
func DeduplicatePatterns(patterns []string) []string {
	trimmedPatterns := lo.FilterMap(patterns, func(pattern string, _ int) (string, bool) {
		trimmedPattern := strings.TrimSpace(pattern)
		return trimmedPattern, trimmedPattern != ""
	})
	return lo.Uniq(trimmedPatterns)
}

// RelativePathWithin returns the forward-slash path of fullPath relative to root,
// or "" when both resolve to the same directory. The boolean is false when fullPath
// lies outside root.
func RelativePathWithin(fullPath string, root string) (string, bool) {
	cleanPath := filepath.Clean(fullPath)
	cleanRoot := filepath.Clean(root)
	if cleanPath == cleanRoot {
		return "", true
	}
	relativePath, relativeError := filepath.Rel(cleanRoot, cleanPath)
	if relativeError != nil {
		return "", false
	}
	if relativePath == ".." || strings.HasPrefix(relativePath, ".."+string(filepath.Separator)) || filepath.IsAbs(relativePath) {
		return "", false
	}
	return filepath.ToSlash(relativePath), true
}
