// Package selection normalizes the set of user-selected paths.
package selection

import (
	"path/filepath"
	"strings"

	"github.com/samber/lo"
)

// Prune removes every path that is a strict descendant of another path in the input.
// Paths are cleaned and exact duplicates collapse to their first occurrence; the
// survivors keep their input order.
func Prune(selectedPaths []string) []string {
	cleanedPaths := lo.Uniq(lo.FilterMap(selectedPaths, func(selectedPath string, _ int) (string, bool) {
		if strings.TrimSpace(selectedPath) == "" {
			return "", false
		}
		return filepath.Clean(selectedPath), true
	}))

	pruned := make([]string, 0, len(cleanedPaths))
	for _, candidatePath := range cleanedPaths {
		hasAncestor := lo.ContainsBy(cleanedPaths, func(otherPath string) bool {
			return IsDescendant(candidatePath, otherPath)
		})
		if !hasAncestor {
			pruned = append(pruned, candidatePath)
		}
	}
	return pruned
}

// IsDescendant reports whether candidatePath lies strictly beneath ancestorPath,
// i.e. candidatePath == ancestorPath + separator + suffix.
func IsDescendant(candidatePath string, ancestorPath string) bool {
	if candidatePath == ancestorPath {
		return false
	}
	separator := string(filepath.Separator)
	prefix := strings.TrimSuffix(ancestorPath, separator) + separator
	return len(candidatePath) > len(prefix) && strings.HasPrefix(candidatePath, prefix)
}
