// Package scan walks the project tree under glob filtering policies.
//
// Two walks share one traversal shape. Scan discovers the entries that make up the
// project tree; ResolveContentFiles narrows a selection down to the concrete files
// whose contents will be bundled. Sibling entries of a directory are visited
// concurrently, bounded by Options.Concurrency, and a failure on one branch is
// logged without affecting the others.
package scan

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/temirov/ctxpack/internal/glob"
	"github.com/temirov/ctxpack/internal/types"
	"github.com/temirov/ctxpack/internal/utils"
)

const (
	// DefaultConcurrency bounds concurrent stat and list operations when Options.Concurrency is unset.
	DefaultConcurrency = 16

	warningOutsideRootMessage   = "skipping path outside project root"
	warningStatPathMessage      = "unable to stat path"
	warningReadDirectoryMessage = "unable to read directory"
	errorSymlinkTargetFormat    = "resolve symlink target: %w"
	logFieldPath                = "path"
	logFieldRoot                = "root"
)

// Options configures a Scanner.
type Options struct {
	RootPath    string
	FileSystem  afero.Fs
	Logger      *zap.Logger
	Concurrency int
}

// Scanner walks paths beneath a single project root.
type Scanner struct {
	rootPath    string
	fileSystem  afero.Fs
	logger      *zap.Logger
	concurrency int
}

// NewScanner constructs a Scanner. A nil file system selects the OS file system and
// a nil logger discards log output.
func NewScanner(options Options) *Scanner {
	fileSystem := options.FileSystem
	if fileSystem == nil {
		fileSystem = afero.NewOsFs()
	}
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	concurrency := options.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Scanner{
		rootPath:    filepath.Clean(options.RootPath),
		fileSystem:  fileSystem,
		logger:      logger,
		concurrency: concurrency,
	}
}

// Scan walks every root and returns the discovered entries.
//
// An entry whose relative path matches ignore or hidden is dropped together with its
// subtree. A directory matching collapsed is recorded but its children are not visited.
func (scanner *Scanner) Scan(roots []string, ignore []string, hidden []string, collapsed []string) *types.EntryMap {
	entryMap := types.NewEntryMap()
	scanner.ScanInto(entryMap, roots, ignore, hidden, collapsed)
	return entryMap
}

// ScanInto behaves like Scan but records entries in an existing map.
func (scanner *Scanner) ScanInto(entryMap *types.EntryMap, roots []string, ignore []string, hidden []string, collapsed []string) {
	treeWalker := scanner.newWalker()
	treeWalker.visit = func(absolutePath string) {
		relativePath, inside := scanner.relativePath(absolutePath)
		if !inside {
			return
		}
		entry, descendable, statError := scanner.statEntry(absolutePath, relativePath)
		if statError != nil {
			scanner.logger.Warn(warningStatPathMessage, zap.String(logFieldPath, absolutePath), zap.Error(statError))
			return
		}
		if glob.MatchesAny(relativePath, !entry.IsFile, ignore, hidden) {
			return
		}
		entryMap.Insert(entry)
		if entry.IsFile || !descendable || glob.Matches(relativePath, true, collapsed) {
			return
		}
		treeWalker.descend(absolutePath)
	}
	treeWalker.run(roots)
}

// ReconcileOrphans stats every content path missing from entryMap and inserts it, so
// later size and name lookups succeed. It returns the number of entries added.
func (scanner *Scanner) ReconcileOrphans(contentSet *types.ContentSet, entryMap *types.EntryMap) int {
	added := 0
	for _, absolutePath := range contentSet.Paths() {
		if entryMap.Contains(absolutePath) {
			continue
		}
		relativePath, inside := scanner.relativePath(absolutePath)
		if !inside {
			continue
		}
		entry, _, statError := scanner.statEntry(absolutePath, relativePath)
		if statError != nil {
			scanner.logger.Warn(warningStatPathMessage, zap.String(logFieldPath, absolutePath), zap.Error(statError))
			continue
		}
		if entryMap.Insert(entry) {
			added++
		}
	}
	return added
}

// relativePath resolves absolutePath against the project root, logging paths that escape it.
func (scanner *Scanner) relativePath(absolutePath string) (string, bool) {
	relativePath, inside := utils.RelativePathWithin(absolutePath, scanner.rootPath)
	if !inside {
		scanner.logger.Warn(warningOutsideRootMessage, zap.String(logFieldPath, absolutePath), zap.String(logFieldRoot, scanner.rootPath))
	}
	return relativePath, inside
}

// statEntry builds the entry for absolutePath. Symbolic links are resolved for their
// metadata but a link to a directory is reported as not descendable, which keeps link
// cycles from recursing forever. A link whose target is missing is an error.
func (scanner *Scanner) statEntry(absolutePath string, relativePath string) (types.FileSystemEntry, bool, error) {
	info, statError := scanner.lstat(absolutePath)
	if statError != nil {
		return types.FileSystemEntry{}, false, statError
	}
	descendable := true
	if info.Mode()&os.ModeSymlink != 0 {
		targetInfo, targetError := scanner.fileSystem.Stat(absolutePath)
		if targetError != nil {
			return types.FileSystemEntry{}, false, fmt.Errorf(errorSymlinkTargetFormat, targetError)
		}
		info = targetInfo
		descendable = false
	}

	entry := types.FileSystemEntry{
		Path:         absolutePath,
		Name:         filepath.Base(absolutePath),
		RelativePath: relativePath,
		IsFile:       !info.IsDir(),
	}
	if entry.IsFile {
		entry.Size = info.Size()
		entry.HasSize = true
	}
	return entry, descendable, nil
}

func (scanner *Scanner) lstat(absolutePath string) (os.FileInfo, error) {
	if lstater, supportsLstat := scanner.fileSystem.(afero.Lstater); supportsLstat {
		info, _, lstatError := lstater.LstatIfPossible(absolutePath)
		return info, lstatError
	}
	return scanner.fileSystem.Stat(absolutePath)
}

// walker fans a recursive visit out over an errgroup with a concurrency limit.
// When every slot is busy the visit runs inline on the calling goroutine, so a
// deep tree can never block waiting on its own ancestors.
type walker struct {
	scanner *Scanner
	group   errgroup.Group
	visit   func(absolutePath string)
}

func (scanner *Scanner) newWalker() *walker {
	treeWalker := &walker{scanner: scanner}
	treeWalker.group.SetLimit(scanner.concurrency)
	return treeWalker
}

func (treeWalker *walker) run(roots []string) {
	for _, rootPath := range roots {
		treeWalker.dispatch(filepath.Clean(rootPath))
	}
	_ = treeWalker.group.Wait()
}

func (treeWalker *walker) dispatch(absolutePath string) {
	started := treeWalker.group.TryGo(func() error {
		treeWalker.visit(absolutePath)
		return nil
	})
	if !started {
		treeWalker.visit(absolutePath)
	}
}

// descend lists directoryPath and dispatches a visit for every child.
func (treeWalker *walker) descend(directoryPath string) {
	childInfos, readError := afero.ReadDir(treeWalker.scanner.fileSystem, directoryPath)
	if readError != nil {
		treeWalker.scanner.logger.Warn(warningReadDirectoryMessage, zap.String(logFieldPath, directoryPath), zap.Error(readError))
		return
	}
	for _, childInfo := range childInfos {
		treeWalker.dispatch(filepath.Join(directoryPath, childInfo.Name()))
	}
}
