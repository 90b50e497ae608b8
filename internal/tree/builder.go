// Package tree converts flat entry maps into nested trees and renders them as text.
package tree

import (
	"sort"
	"strings"

	"github.com/temirov/ctxpack/internal/types"
)

// Build converts entries into a tree rooted at a node labelled rootLabel.
// Missing intermediate directories are synthesized. It returns nil for an empty input.
func Build(entries []types.FileSystemEntry, rootLabel string) *types.TreeNode {
	if len(entries) == 0 {
		return nil
	}
	sortedEntries := append([]types.FileSystemEntry(nil), entries...)
	sort.SliceStable(sortedEntries, func(left, right int) bool {
		return sortedEntries[left].RelativePath < sortedEntries[right].RelativePath
	})

	rootNode := &types.TreeNode{Entry: types.FileSystemEntry{Name: rootLabel}}
	nodeByRelativePath := map[string]*types.TreeNode{"": rootNode}
	synthesized := map[string]bool{"": true}

	for _, entry := range sortedEntries {
		if entry.RelativePath == "" {
			if synthesized[""] {
				rootNode.Entry = entry
				rootNode.Entry.Name = rootLabel
				synthesized[""] = false
			}
			continue
		}

		segments := strings.Split(entry.RelativePath, types.RelativePathSeparator)
		parentNode := rootNode
		for segmentIndex, segment := range segments {
			key := strings.Join(segments[:segmentIndex+1], types.RelativePathSeparator)
			isFinalSegment := segmentIndex == len(segments)-1
			existingNode, exists := nodeByRelativePath[key]
			if exists {
				if isFinalSegment && synthesized[key] {
					existingNode.Entry = entry
					synthesized[key] = false
					sortChildren(parentNode)
				}
				parentNode = existingNode
				continue
			}

			childNode := &types.TreeNode{Entry: types.FileSystemEntry{Name: segment, RelativePath: key}}
			if isFinalSegment {
				childNode.Entry = entry
			} else {
				synthesized[key] = true
			}
			nodeByRelativePath[key] = childNode
			insertChild(parentNode, childNode)
			parentNode = childNode
		}
	}
	return rootNode
}

// insertChild places child among parent's children, keeping them ordered.
func insertChild(parent *types.TreeNode, child *types.TreeNode) {
	position := sort.Search(len(parent.Children), func(index int) bool {
		return !lessNode(parent.Children[index], child)
	})
	parent.Children = append(parent.Children, nil)
	copy(parent.Children[position+1:], parent.Children[position:])
	parent.Children[position] = child
}

func sortChildren(parent *types.TreeNode) {
	sort.SliceStable(parent.Children, func(left, right int) bool {
		return lessNode(parent.Children[left], parent.Children[right])
	})
}

// lessNode orders directories before files, then names by byte value.
func lessNode(left *types.TreeNode, right *types.TreeNode) bool {
	leftIsDirectory := !left.Entry.IsFile
	rightIsDirectory := !right.Entry.IsFile
	if leftIsDirectory != rightIsDirectory {
		return leftIsDirectory
	}
	return left.Entry.Name < right.Entry.Name
}
