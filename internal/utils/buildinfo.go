// Package utils provides helper functions, including version retrieval.
package utils

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime/debug"
	"strings"
)

const (
	unknownVersion = "unknown"
	develVersion   = "(devel)"
	gitExecutable  = "git"
)

// Version is stamped at release time with -ldflags "-X github.com/temirov/ctxpack/internal/utils.Version=v1.2.3".
var Version string

var errGitDirectoryNotFound = errors.New(".git directory not found")

// describeArguments are tried in order when no stamped or module version exists.
var describeArguments = [][]string{
	{"describe", "--tags", "--exact-match"},
	{"describe", "--tags", "--long", "--dirty"},
}

// GetApplicationVersion reports the stamped version, then the module version from build
// info, then git describe output for development builds.
func GetApplicationVersion() string {
	if Version != "" {
		return Version
	}
	if buildInfo, available := debug.ReadBuildInfo(); available {
		if moduleVersion := buildInfo.Main.Version; moduleVersion != "" && moduleVersion != develVersion {
			return moduleVersion
		}
	}

	repositoryDirectory, lookupError := findGitDirectory(".")
	if lookupError != nil {
		return unknownVersion
	}
	for _, arguments := range describeArguments {
		// #nosec G204
		describeCommand := exec.Command(gitExecutable, arguments...)
		describeCommand.Dir = repositoryDirectory
		output, describeError := describeCommand.Output()
		if describeError == nil {
			if described := strings.TrimSpace(string(output)); described != "" {
				return described
			}
		}
	}
	return unknownVersion
}

// findGitDirectory walks upward from startDirectory to the first directory holding .git.
func findGitDirectory(startDirectory string) (string, error) {
	currentDirectory, absoluteError := filepath.Abs(startDirectory)
	if absoluteError != nil {
		return "", fmt.Errorf("resolve %s: %w", startDirectory, absoluteError)
	}
	for {
		information, statError := os.Stat(filepath.Join(currentDirectory, GitDirectoryName))
		if statError == nil && information.IsDir() {
			return currentDirectory, nil
		}
		parentDirectory := filepath.Dir(currentDirectory)
		if parentDirectory == currentDirectory {
			return "", fmt.Errorf("%w above %s", errGitDirectoryNotFound, startDirectory)
		}
		currentDirectory = parentDirectory
	}
}
