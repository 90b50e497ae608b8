// Package glob tests relative paths against named glob pattern lists.
package glob

import (
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

const pathSegmentSeparator = "/"

// Matches reports whether relativePath matches any of patterns. isDirectory tells
// whether relativePath itself names a directory.
//
// Matching is case-sensitive and uses doublestar semantics (`*`, `**`, `?`,
// character classes and `{a,b}` alternation). A pattern without a slash also
// matches the final path segment, so "*.lock" matches "pkg/index.lock". A
// pattern ending with a slash matches a directory of that name and everything
// below it, never a file of that name. Backslashes in either argument are
// treated as separators. The project root (an empty relative path) and an empty
// pattern list never match.
func Matches(relativePath string, isDirectory bool, patterns []string) bool {
	if len(patterns) == 0 {
		return false
	}
	normalizedPath := strings.Trim(strings.ReplaceAll(relativePath, "\\", pathSegmentSeparator), pathSegmentSeparator)
	if normalizedPath == "" {
		return false
	}
	lastSegment := path.Base(normalizedPath)

	for _, patternValue := range patterns {
		normalizedPattern := strings.TrimSpace(strings.ReplaceAll(patternValue, "\\", pathSegmentSeparator))
		normalizedPattern = strings.TrimPrefix(normalizedPattern, "./")
		if normalizedPattern == "" {
			continue
		}

		if strings.HasSuffix(normalizedPattern, pathSegmentSeparator) {
			if matchesDirectoryPattern(normalizedPath, isDirectory, strings.TrimSuffix(normalizedPattern, pathSegmentSeparator)) {
				return true
			}
			continue
		}

		if match(normalizedPattern, normalizedPath) {
			return true
		}
		if !strings.Contains(normalizedPattern, pathSegmentSeparator) && match(normalizedPattern, lastSegment) {
			return true
		}
	}
	return false
}

// MatchesAny reports whether relativePath matches at least one of the pattern lists.
func MatchesAny(relativePath string, isDirectory bool, patternLists ...[]string) bool {
	for _, patterns := range patternLists {
		if Matches(relativePath, isDirectory, patterns) {
			return true
		}
	}
	return false
}

// matchesDirectoryPattern reports whether candidatePath is the directory named by
// directoryPattern or lies beneath it. Every segment but the last is a directory;
// the last one only counts when isDirectory is set.
func matchesDirectoryPattern(candidatePath string, isDirectory bool, directoryPattern string) bool {
	if directoryPattern == "" {
		return false
	}
	if strings.Contains(directoryPattern, pathSegmentSeparator) {
		if isDirectory && match(directoryPattern, candidatePath) {
			return true
		}
		for index := 0; index < len(candidatePath); index++ {
			if candidatePath[index] == pathSegmentSeparator[0] && match(directoryPattern, candidatePath[:index]) {
				return true
			}
		}
		return false
	}
	segments := strings.Split(candidatePath, pathSegmentSeparator)
	if !isDirectory {
		segments = segments[:len(segments)-1]
	}
	for _, segment := range segments {
		if match(directoryPattern, segment) {
			return true
		}
	}
	return false
}

func match(pattern string, candidate string) bool {
	isMatched, matchError := doublestar.Match(pattern, candidate)
	return matchError == nil && isMatched
}
