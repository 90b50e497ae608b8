package scan

import (
	"go.uber.org/zap"

	"github.com/temirov/ctxpack/internal/glob"
	"github.com/temirov/ctxpack/internal/types"
)

// ResolveContentFiles expands the selected roots into the set of files eligible for
// content inclusion. Directories only serve as recursion points. Anything matching
// ignore or hidden is skipped together with its subtree; tree-only collapsing rules
// do not apply here, so files inside a collapsed directory remain eligible.
func (scanner *Scanner) ResolveContentFiles(roots []string, ignore []string, hidden []string) *types.ContentSet {
	contentSet := types.NewContentSet()
	contentWalker := scanner.newWalker()
	contentWalker.visit = func(absolutePath string) {
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
		if entry.IsFile {
			contentSet.Add(absolutePath)
			return
		}
		if descendable {
			contentWalker.descend(absolutePath)
		}
	}
	contentWalker.run(roots)
	return contentSet
}
