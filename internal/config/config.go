// Package config loads ctxpack configuration files and translates ignore files into glob patterns.
package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/temirov/ctxpack/internal/utils"
)

const (
	// GitDirectoryPattern excludes the Git directory and everything beneath it.
	GitDirectoryPattern = utils.GitDirectoryName + "/"

	gitignoreCommentPrefix  = "#"
	gitignoreNegationPrefix = "!"
	gitignoreAnchorPrefix   = "/"
	gitignoreEscapePrefix   = "\\"
)

// LoadGitignorePatterns reads the .gitignore file at the top of rootDirectory and returns its
// entries as glob patterns. A missing file yields no patterns.
//
// Comments, blank lines and negated entries are skipped. A leading slash is dropped.
func LoadGitignorePatterns(fileSystem afero.Fs, rootDirectory string) ([]string, error) {
	gitignorePath := filepath.Join(rootDirectory, utils.GitIgnoreFileName)
	fileHandle, openFileError := fileSystem.Open(gitignorePath)
	if openFileError != nil {
		if os.IsNotExist(openFileError) {
			return nil, nil
		}
		return nil, fmt.Errorf("open %s: %w", gitignorePath, openFileError)
	}
	defer func() {
		closeError := fileHandle.Close()
		if closeError != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close %s: %v\n", gitignorePath, closeError)
		}
	}()

	var patterns []string
	scanner := bufio.NewScanner(fileHandle)
	for scanner.Scan() {
		if pattern, ok := TranslateGitignoreLine(scanner.Text()); ok {
			patterns = append(patterns, pattern)
		}
	}
	if scanError := scanner.Err(); scanError != nil {
		return nil, fmt.Errorf("read %s: %w", gitignorePath, scanError)
	}
	return utils.DeduplicatePatterns(patterns), nil
}

// TranslateGitignoreLine converts one .gitignore line into a glob pattern.
// It reports false for lines that carry no pattern or cannot be expressed as one.
func TranslateGitignoreLine(line string) (string, bool) {
	trimmedLine := strings.TrimSpace(line)
	if trimmedLine == "" || strings.HasPrefix(trimmedLine, gitignoreCommentPrefix) {
		return "", false
	}
	if strings.HasPrefix(trimmedLine, gitignoreNegationPrefix) {
		return "", false
	}
	if strings.HasPrefix(trimmedLine, gitignoreEscapePrefix+gitignoreCommentPrefix) ||
		strings.HasPrefix(trimmedLine, gitignoreEscapePrefix+gitignoreNegationPrefix) {
		trimmedLine = strings.TrimPrefix(trimmedLine, gitignoreEscapePrefix)
	}
	trimmedLine = strings.TrimPrefix(trimmedLine, gitignoreAnchorPrefix)
	if trimmedLine == "" || trimmedLine == gitignoreAnchorPrefix {
		return "", false
	}
	return trimmedLine, true
}

// CombineIgnorePatterns merges configured ignore patterns with the Git directory
// pattern and, when useGitignore is set, the root .gitignore entries.
func CombineIgnorePatterns(fileSystem afero.Fs, rootDirectory string, configured []string, useGitignore bool) ([]string, error) {
	combined := append([]string{GitDirectoryPattern}, configured...)
	if useGitignore {
		gitignorePatterns, loadError := LoadGitignorePatterns(fileSystem, rootDirectory)
		if loadError != nil {
			return nil, loadError
		}
		combined = append(combined, gitignorePatterns...)
	}
	return utils.DeduplicatePatterns(combined), nil
}
