// Package types defines every cross‑package data structure used by the ctxpack engine.
package types

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ContentMode selects which project tree, if any, accompanies the bundled files.
type ContentMode string

const (
	ModeAll      ContentMode = "all"
	ModeSelected ContentMode = "selected"
	ModeNone     ContentMode = "none"

	// RelativePathSeparator separates segments of FileSystemEntry.RelativePath on every platform.
	RelativePathSeparator = "/"

	errorUnknownModeFormat = "unknown content mode %q (expected all, selected, or none)"
)

// ParseContentMode converts user input into a ContentMode.
func ParseContentMode(value string) (ContentMode, error) {
	switch ContentMode(strings.ToLower(strings.TrimSpace(value))) {
	case ModeAll:
		return ModeAll, nil
	case ModeSelected:
		return ModeSelected, nil
	case ModeNone:
		return ModeNone, nil
	default:
		return "", fmt.Errorf(errorUnknownModeFormat, value)
	}
}

// IncludesTree reports whether the mode renders a project tree.
func (mode ContentMode) IncludesTree() bool {
	return mode == ModeAll || mode == ModeSelected
}

// FileSystemEntry is a discovered filesystem node. RelativePath is empty for the project root.
type FileSystemEntry struct {
	Path         string
	Name         string
	RelativePath string
	IsFile       bool
	Size         int64
	HasSize      bool
}

// GlobRuleSet holds the named pattern lists supplied by the host.
type GlobRuleSet struct {
	Ignore          []string `json:"ignore" mapstructure:"ignore"`
	HideChildren    []string `json:"hideChildren" mapstructure:"hide_children"`
	AlwaysShow      []string `json:"alwaysShow" mapstructure:"always_show"`
	AlwaysHide      []string `json:"alwaysHide" mapstructure:"always_hide"`
	ShowIfSelected  []string `json:"showIfSelected" mapstructure:"show_if_selected"`
	HideAndContents []string `json:"hideAndContents" mapstructure:"hide_and_contents"`
}

// TreeNode is one node of a rendered tree. Children are ordered directories first, then by name.
type TreeNode struct {
	Entry    FileSystemEntry
	Children []*TreeNode
}

// EntryMap maps absolute paths to entries. Inserts are idempotent and safe for concurrent use.
type EntryMap struct {
	mutex   sync.RWMutex
	entries map[string]FileSystemEntry
}

// NewEntryMap returns an empty EntryMap.
func NewEntryMap() *EntryMap {
	return &EntryMap{entries: make(map[string]FileSystemEntry)}
}

// Insert stores entry under entry.Path unless that path is already present.
// It reports whether the entry was stored.
func (entryMap *EntryMap) Insert(entry FileSystemEntry) bool {
	entryMap.mutex.Lock()
	defer entryMap.mutex.Unlock()
	if _, exists := entryMap.entries[entry.Path]; exists {
		return false
	}
	entryMap.entries[entry.Path] = entry
	return true
}

// Get returns the entry stored for absolutePath.
func (entryMap *EntryMap) Get(absolutePath string) (FileSystemEntry, bool) {
	entryMap.mutex.RLock()
	defer entryMap.mutex.RUnlock()
	entry, found := entryMap.entries[absolutePath]
	return entry, found
}

// Contains reports whether absolutePath has an entry.
func (entryMap *EntryMap) Contains(absolutePath string) bool {
	_, found := entryMap.Get(absolutePath)
	return found
}

// Len returns the number of entries.
func (entryMap *EntryMap) Len() int {
	entryMap.mutex.RLock()
	defer entryMap.mutex.RUnlock()
	return len(entryMap.entries)
}

// Entries returns a snapshot of all entries ordered by RelativePath.
func (entryMap *EntryMap) Entries() []FileSystemEntry {
	entryMap.mutex.RLock()
	result := make([]FileSystemEntry, 0, len(entryMap.entries))
	for _, entry := range entryMap.entries {
		result = append(result, entry)
	}
	entryMap.mutex.RUnlock()
	sort.Slice(result, func(left, right int) bool {
		if result[left].RelativePath != result[right].RelativePath {
			return result[left].RelativePath < result[right].RelativePath
		}
		return result[left].Path < result[right].Path
	})
	return result
}

// ContentSet is the set of absolute file paths slated for content inclusion.
type ContentSet struct {
	mutex sync.RWMutex
	paths map[string]struct{}
}

// NewContentSet returns an empty ContentSet.
func NewContentSet() *ContentSet {
	return &ContentSet{paths: make(map[string]struct{})}
}

// Add inserts absolutePath.
func (contentSet *ContentSet) Add(absolutePath string) {
	contentSet.mutex.Lock()
	defer contentSet.mutex.Unlock()
	contentSet.paths[absolutePath] = struct{}{}
}

// Contains reports whether absolutePath is in the set.
func (contentSet *ContentSet) Contains(absolutePath string) bool {
	contentSet.mutex.RLock()
	defer contentSet.mutex.RUnlock()
	_, found := contentSet.paths[absolutePath]
	return found
}

// Len returns the number of paths.
func (contentSet *ContentSet) Len() int {
	contentSet.mutex.RLock()
	defer contentSet.mutex.RUnlock()
	return len(contentSet.paths)
}

// Paths returns the members in lexical order.
func (contentSet *ContentSet) Paths() []string {
	contentSet.mutex.RLock()
	result := make([]string, 0, len(contentSet.paths))
	for absolutePath := range contentSet.paths {
		result = append(result, absolutePath)
	}
	contentSet.mutex.RUnlock()
	sort.Strings(result)
	return result
}
