package utils_test

import (
	"path/filepath"
	"testing"

	"github.com/temirov/ctxpack/internal/utils"
)

// projectRoot defines the root directory used for relative path tests.
var projectRoot = filepath.FromSlash("/work/project")

// TestDeduplicatePatterns verifies that DeduplicatePatterns removes duplicate and blank patterns.
func TestDeduplicatePatterns(testingInstance *testing.T) {
	testCases := []struct {
		testName string
		patterns []string
		expected []string
	}{
		{
			testName: "removes duplicates",
			patterns: []string{"a", "b", "a"},
			expected: []string{"a", "b"},
		},
		{
			testName: "keeps unique",
			patterns: []string{"a", "b"},
			expected: []string{"a", "b"},
		},
		{
			testName: "drops blanks and trims",
			patterns: []string{" a ", "", "a", "  "},
			expected: []string{"a"},
		},
		{
			testName: "keeps first occurrence order",
			patterns: []string{"node_modules/", "*.lock", " node_modules/", "dist/", "*.lock"},
			expected: []string{"node_modules/", "*.lock", "dist/"},
		},
	}
	for index, testCase := range testCases {
		actual := utils.DeduplicatePatterns(testCase.patterns)
		if len(actual) != len(testCase.expected) {
			testingInstance.Errorf("case %d (%s): expected length %d, got %d", index, testCase.testName, len(testCase.expected), len(actual))
			continue
		}
		for position, value := range actual {
			if value != testCase.expected[position] {
				testingInstance.Errorf("case %d (%s): expected %s at position %d, got %s", index, testCase.testName, testCase.expected[position], position, value)
			}
		}
	}
}

// TestRelativePathWithin verifies relative path calculation and the project root bound check.
func TestRelativePathWithin(testingInstance *testing.T) {
	testCases := []struct {
		testName       string
		fullPath       string
		expected       string
		expectedInside bool
	}{
		{
			testName:       "root path returns empty",
			fullPath:       projectRoot,
			expected:       "",
			expectedInside: true,
		},
		{
			testName:       "nested path uses forward slashes",
			fullPath:       filepath.Join(projectRoot, "src", "main.go"),
			expected:       "src/main.go",
			expectedInside: true,
		},
		{
			testName:       "parent directory is outside",
			fullPath:       filepath.Dir(projectRoot),
			expectedInside: false,
		},
		{
			testName:       "sibling with shared prefix is outside",
			fullPath:       projectRoot + "-other",
			expectedInside: false,
		},
		{
			testName:       "name starting with dots is inside",
			fullPath:       filepath.Join(projectRoot, "..hidden"),
			expected:       "..hidden",
			expectedInside: true,
		},
	}
	for index, testCase := range testCases {
		actual, inside := utils.RelativePathWithin(testCase.fullPath, projectRoot)
		if inside != testCase.expectedInside {
			testingInstance.Errorf("case %d (%s): expected inside %t, got %t", index, testCase.testName, testCase.expectedInside, inside)
			continue
		}
		if inside && actual != testCase.expected {
			testingInstance.Errorf("case %d (%s): expected %q, got %q", index, testCase.testName, testCase.expected, actual)
		}
	}
}
