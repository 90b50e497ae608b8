package tree

import (
	"path/filepath"
	"strings"

	"github.com/temirov/ctxpack/internal/glob"
	"github.com/temirov/ctxpack/internal/types"
	"github.com/temirov/ctxpack/internal/utils"
)

const (
	branchConnector        = "├─"
	lastBranchConnector    = "└─"
	parentMarker           = "┬ "
	leafMarker             = "─ "
	continuationIndent     = "│ "
	lastContinuationIndent = "  "
	directorySuffix        = "/"
	sizeAnnotationOpen     = " ["
	sizeAnnotationClose    = "]"
	lineTerminator         = "\n"
)

// VisibilityRules are the ordered pattern lists that decide whether an entry is drawn.
type VisibilityRules struct {
	AlwaysShow     []string
	AlwaysHide     []string
	ShowIfSelected []string
}

// IsVisible applies the precedence rules to one entry: AlwaysShow wins, then AlwaysHide,
// then ShowIfSelected (visible only when the entry itself was selected); anything else is visible.
func (rules VisibilityRules) IsVisible(entry types.FileSystemEntry, selectedPaths map[string]struct{}) bool {
	isDirectory := !entry.IsFile
	if glob.Matches(entry.RelativePath, isDirectory, rules.AlwaysShow) {
		return true
	}
	if glob.Matches(entry.RelativePath, isDirectory, rules.AlwaysHide) {
		return false
	}
	if glob.Matches(entry.RelativePath, isDirectory, rules.ShowIfSelected) {
		_, selected := selectedPaths[filepath.Clean(entry.Path)]
		return selected
	}
	return true
}

// Render filters the entries of entryMap through rules and draws the surviving tree.
//
// It returns "" when entryMap is empty and "<rootLabel>/\n" when entries exist but
// none of them survive below the root.
func Render(entryMap *types.EntryMap, rootPath string, rootLabel string, rules VisibilityRules, selectedPaths []string) string {
	if entryMap == nil || entryMap.Len() == 0 {
		return ""
	}
	if rootLabel == "" {
		rootLabel = filepath.Base(filepath.Clean(rootPath))
	}

	selectedSet := make(map[string]struct{}, len(selectedPaths))
	for _, selectedPath := range selectedPaths {
		selectedSet[filepath.Clean(selectedPath)] = struct{}{}
	}

	var visibleEntries []types.FileSystemEntry
	for _, entry := range entryMap.Entries() {
		if rules.IsVisible(entry, selectedSet) {
			visibleEntries = append(visibleEntries, entry)
		}
	}

	rootNode := Build(visibleEntries, rootLabel)
	if rootNode == nil || len(rootNode.Children) == 0 {
		return rootLabel + directorySuffix + lineTerminator
	}
	return RenderNode(rootNode)
}

// RenderNode draws rootNode and its descendants as an indented ASCII tree.
func RenderNode(rootNode *types.TreeNode) string {
	var builder strings.Builder
	builder.WriteString(rootNode.Entry.Name)
	builder.WriteString(directorySuffix)
	builder.WriteString(lineTerminator)
	writeChildren(&builder, rootNode, "")
	return builder.String()
}

func writeChildren(builder *strings.Builder, parent *types.TreeNode, indent string) {
	for childIndex, child := range parent.Children {
		isLastChild := childIndex == len(parent.Children)-1
		connector := branchConnector
		childIndent := indent + continuationIndent
		if isLastChild {
			connector = lastBranchConnector
			childIndent = indent + lastContinuationIndent
		}
		marker := leafMarker
		if !child.Entry.IsFile && len(child.Children) > 0 {
			marker = parentMarker
		}

		builder.WriteString(indent)
		builder.WriteString(connector)
		builder.WriteString(marker)
		builder.WriteString(describe(child.Entry))
		builder.WriteString(lineTerminator)

		if len(child.Children) > 0 {
			writeChildren(builder, child, childIndent)
		}
	}
}

func describe(entry types.FileSystemEntry) string {
	if !entry.IsFile {
		return entry.Name + directorySuffix
	}
	if !entry.HasSize {
		return entry.Name
	}
	return entry.Name + sizeAnnotationOpen + utils.FormatFileSize(entry.Size) + sizeAnnotationClose
}
