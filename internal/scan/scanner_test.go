package scan_test

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/ctxpack/internal/scan"
	"github.com/temirov/ctxpack/internal/types"
)

var projectRoot = filepath.FromSlash("/project")

// failingFileSystem refuses to open the configured directory, simulating a permission error.
type failingFileSystem struct {
	afero.Fs
	failingPath string
}

func (fileSystem failingFileSystem) Open(name string) (afero.File, error) {
	if filepath.Clean(name) == fileSystem.failingPath {
		return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrPermission}
	}
	return fileSystem.Fs.Open(name)
}

func writeProjectFiles(t *testing.T, fileSystem afero.Fs, files map[string]string) {
	t.Helper()
	for relativePath, content := range files {
		absolutePath := filepath.Join(projectRoot, filepath.FromSlash(relativePath))
		require.NoError(t, fileSystem.MkdirAll(filepath.Dir(absolutePath), 0o755))
		require.NoError(t, afero.WriteFile(fileSystem, absolutePath, []byte(content), 0o644))
	}
}

func projectPath(relativePath string) string {
	if relativePath == "" {
		return projectRoot
	}
	return filepath.Join(projectRoot, filepath.FromSlash(relativePath))
}

func relativePaths(entryMap *types.EntryMap) []string {
	var result []string
	for _, entry := range entryMap.Entries() {
		result = append(result, entry.RelativePath)
	}
	return result
}

func contentRelativePaths(contentSet *types.ContentSet) []string {
	var result []string
	for _, absolutePath := range contentSet.Paths() {
		relativePath, _ := filepath.Rel(projectRoot, absolutePath)
		result = append(result, filepath.ToSlash(relativePath))
	}
	sort.Strings(result)
	return result
}

func standardProject(t *testing.T) afero.Fs {
	fileSystem := afero.NewMemMapFs()
	writeProjectFiles(t, fileSystem, map[string]string{
		"a.txt":               "alpha",
		"b/b.txt":             "bravo",
		"b/c/deep.txt":        "deep",
		"node_modules/pkg.js": "module",
		"dist/out.js":         "bundle",
		"secret/key.pem":      "key",
	})
	return fileSystem
}

func TestScanAllAppliesRules(t *testing.T) {
	scanner := scan.NewScanner(scan.Options{RootPath: projectRoot, FileSystem: standardProject(t)})

	entryMap := scanner.Scan([]string{projectRoot}, []string{"node_modules"}, []string{"secret/"}, []string{"dist"})

	assert.Equal(t, []string{"", "a.txt", "b", "b/b.txt", "b/c", "b/c/deep.txt", "dist"}, relativePaths(entryMap))

	fileEntry, found := entryMap.Get(projectPath("a.txt"))
	require.True(t, found)
	assert.True(t, fileEntry.IsFile)
	assert.True(t, fileEntry.HasSize)
	assert.Equal(t, int64(len("alpha")), fileEntry.Size)
	assert.Equal(t, "a.txt", fileEntry.Name)

	directoryEntry, found := entryMap.Get(projectPath("dist"))
	require.True(t, found)
	assert.False(t, directoryEntry.IsFile)
	assert.False(t, directoryEntry.HasSize)
}

func TestScanSelectedRootsOnly(t *testing.T) {
	scanner := scan.NewScanner(scan.Options{RootPath: projectRoot, FileSystem: standardProject(t)})

	entryMap := scanner.Scan([]string{projectPath("b/c"), projectPath("a.txt")}, nil, nil, nil)

	assert.Equal(t, []string{"a.txt", "b/c", "b/c/deep.txt"}, relativePaths(entryMap))
}

func TestScanRejectsPathsOutsideRoot(t *testing.T) {
	fileSystem := standardProject(t)
	require.NoError(t, afero.WriteFile(fileSystem, filepath.FromSlash("/elsewhere/x.txt"), []byte("x"), 0o644))
	core, logs := observer.New(zapcore.WarnLevel)
	scanner := scan.NewScanner(scan.Options{RootPath: projectRoot, FileSystem: fileSystem, Logger: zap.New(core)})

	entryMap := scanner.Scan([]string{filepath.FromSlash("/elsewhere")}, nil, nil, nil)

	assert.Zero(t, entryMap.Len())
	assert.Equal(t, 1, logs.FilterMessage("skipping path outside project root").Len())
}

func TestScanContinuesPastFailingBranch(t *testing.T) {
	memoryFileSystem := standardProject(t)
	core, logs := observer.New(zapcore.WarnLevel)
	scanner := scan.NewScanner(scan.Options{
		RootPath:   projectRoot,
		FileSystem: failingFileSystem{Fs: memoryFileSystem, failingPath: projectPath("b")},
		Logger:     zap.New(core),
	})

	entryMap := scanner.Scan([]string{projectRoot}, nil, nil, nil)

	assert.True(t, entryMap.Contains(projectPath("b")))
	assert.False(t, entryMap.Contains(projectPath("b/b.txt")))
	assert.True(t, entryMap.Contains(projectPath("a.txt")))
	assert.True(t, entryMap.Contains(projectPath("dist/out.js")))
	assert.Equal(t, 1, logs.FilterMessage("unable to read directory").Len())
}

func TestScanMissingRootLogsAndYieldsNothing(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	scanner := scan.NewScanner(scan.Options{RootPath: projectRoot, FileSystem: afero.NewMemMapFs(), Logger: zap.New(core)})

	entryMap := scanner.Scan([]string{projectPath("missing")}, nil, nil, nil)

	assert.Zero(t, entryMap.Len())
	assert.Equal(t, 1, logs.FilterMessage("unable to stat path").Len())
}

func TestScanWithSingleSlotCompletesDeepTree(t *testing.T) {
	fileSystem := afero.NewMemMapFs()
	files := map[string]string{}
	deepPath := ""
	for depth := 0; depth < 12; depth++ {
		deepPath += "level/"
		for sibling := 0; sibling < 3; sibling++ {
			files[deepPath+strings.Repeat("f", sibling+1)+".txt"] = "x"
		}
	}
	writeProjectFiles(t, fileSystem, files)
	scanner := scan.NewScanner(scan.Options{RootPath: projectRoot, FileSystem: fileSystem, Concurrency: 1})

	entryMap := scanner.Scan([]string{projectRoot}, nil, nil, nil)

	assert.Equal(t, 1+12+36, entryMap.Len())
}

func TestResolveContentFiles(t *testing.T) {
	scanner := scan.NewScanner(scan.Options{RootPath: projectRoot, FileSystem: standardProject(t)})

	testCases := []struct {
		name     string
		roots    []string
		ignore   []string
		hidden   []string
		expected []string
	}{
		{
			name:     "whole project",
			roots:    []string{projectRoot},
			expected: []string{"a.txt", "b/b.txt", "b/c/deep.txt", "dist/out.js", "node_modules/pkg.js", "secret/key.pem"},
		},
		{
			name:     "ignore and hidden block subtrees",
			roots:    []string{projectRoot},
			ignore:   []string{"node_modules"},
			hidden:   []string{"secret", "b/c/**"},
			expected: []string{"a.txt", "b/b.txt", "dist/out.js"},
		},
		{
			name:     "selected file and directory",
			roots:    []string{projectPath("a.txt"), projectPath("b/c")},
			expected: []string{"a.txt", "b/c/deep.txt"},
		},
		{
			name:     "selected root that is ignored",
			roots:    []string{projectPath("node_modules")},
			ignore:   []string{"node_modules"},
			expected: nil,
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			contentSet := scanner.ResolveContentFiles(testCase.roots, testCase.ignore, testCase.hidden)
			assert.Equal(t, testCase.expected, contentRelativePaths(contentSet))
		})
	}
}

func TestReconcileOrphans(t *testing.T) {
	scanner := scan.NewScanner(scan.Options{RootPath: projectRoot, FileSystem: standardProject(t)})
	entryMap := scanner.Scan([]string{projectRoot}, nil, nil, []string{"dist"})
	contentSet := scanner.ResolveContentFiles([]string{projectPath("dist")}, nil, nil)
	require.False(t, entryMap.Contains(projectPath("dist/out.js")))

	added := scanner.ReconcileOrphans(contentSet, entryMap)

	assert.Equal(t, 1, added)
	orphan, found := entryMap.Get(projectPath("dist/out.js"))
	require.True(t, found)
	assert.Equal(t, "dist/out.js", orphan.RelativePath)
	assert.Equal(t, int64(len("bundle")), orphan.Size)
	assert.Zero(t, scanner.ReconcileOrphans(contentSet, entryMap))
}

func TestDanglingSymlinkIsSkipped(t *testing.T) {
	rootDirectory := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(rootDirectory, "kept.txt"), []byte("kept"), 0o600))
	if linkError := os.Symlink(filepath.Join(rootDirectory, "missing.txt"), filepath.Join(rootDirectory, "broken")); linkError != nil {
		t.Skipf("symlinks unavailable: %v", linkError)
	}
	core, logs := observer.New(zapcore.WarnLevel)
	scanner := scan.NewScanner(scan.Options{RootPath: rootDirectory, FileSystem: afero.NewOsFs(), Logger: zap.New(core)})

	contentSet := scanner.ResolveContentFiles([]string{rootDirectory}, nil, nil)
	entryMap := scanner.Scan([]string{rootDirectory}, nil, nil, nil)

	assert.Equal(t, []string{filepath.Join(rootDirectory, "kept.txt")}, contentSet.Paths())
	assert.False(t, entryMap.Contains(filepath.Join(rootDirectory, "broken")))
	assert.True(t, entryMap.Contains(filepath.Join(rootDirectory, "kept.txt")))
	assert.Equal(t, 2, logs.FilterMessage("unable to stat path").Len())
}

func TestTrailingSlashPatternSkipsFileOfSameName(t *testing.T) {
	fileSystem := afero.NewMemMapFs()
	writeProjectFiles(t, fileSystem, map[string]string{
		"src/build":         "a file named build",
		"pkg/build/out.txt": "generated",
	})
	scanner := scan.NewScanner(scan.Options{RootPath: projectRoot, FileSystem: fileSystem})

	contentSet := scanner.ResolveContentFiles([]string{projectRoot}, []string{"build/"}, nil)
	entryMap := scanner.Scan([]string{projectRoot}, []string{"build/"}, nil, nil)

	assert.Equal(t, []string{"src/build"}, contentRelativePaths(contentSet))
	assert.True(t, entryMap.Contains(projectPath("src/build")))
	assert.False(t, entryMap.Contains(projectPath("pkg/build")))
}
