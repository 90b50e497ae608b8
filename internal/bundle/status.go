package bundle

import (
	"fmt"

	"github.com/temirov/ctxpack/internal/types"
)

// Status classifies the outcome of a bundle request.
type Status string

const (
	StatusOK                  Status = "ok"
	StatusNoSelectionTreeNone Status = "no_selection_tree_none"
	StatusNoFilesTreeNone     Status = "no_files_tree_none"
	StatusUnreadableTreeNone  Status = "unreadable_tree_none"
	StatusEmptyTreeAndFiles   Status = "empty_tree_and_files"
	StatusUnreadableEmptyTree Status = "unreadable_empty_tree"
	StatusBudgetExceeded      Status = "budget_exceeded"
)

const (
	messageNoSelectionTreeNone       = "No items selected, and project tree is set to none."
	messageNoFilesTreeNone           = "No files found in the selection, and project tree is set to none."
	messageUnreadableTreeNone        = "Selected files could not be read, and project tree is set to none."
	messageEmptyTreeAndFiles         = "Nothing to copy: the project tree is empty and no files were selected."
	messageUnreadableEmptyTreeFormat = "Selected files could not be read, and the %s tree is empty."
	messageBudgetExceededFormat      = "The first file (%s) exceeds the token budget of %d."

	treeScopeFullProject = "full project"
	treeScopeSelected    = "selected"
)

// IsOK reports whether the request produced envelope text.
func (status Status) IsOK() bool {
	return status == StatusOK
}

// outcome carries the facts classify needs.
type outcome struct {
	mode          types.ContentMode
	selectionSize int
	treeEmpty     bool
	contentSize   int
	filesIncluded int
	limitReached  bool
	excludedFile  string
	maxTokens     int
}

// classify maps an outcome to a status and its user-facing message. StatusOK carries no message.
func classify(result outcome) (Status, string) {
	budgetBlocked := result.filesIncluded == 0 && result.limitReached

	if !result.mode.IncludesTree() {
		switch {
		case result.selectionSize == 0:
			return StatusNoSelectionTreeNone, messageNoSelectionTreeNone
		case result.contentSize == 0:
			return StatusNoFilesTreeNone, messageNoFilesTreeNone
		case budgetBlocked:
			return StatusBudgetExceeded, fmt.Sprintf(messageBudgetExceededFormat, result.excludedFile, result.maxTokens)
		case result.filesIncluded == 0:
			return StatusUnreadableTreeNone, messageUnreadableTreeNone
		}
		return StatusOK, ""
	}

	if !result.treeEmpty {
		return StatusOK, ""
	}
	switch {
	case result.contentSize == 0:
		return StatusEmptyTreeAndFiles, messageEmptyTreeAndFiles
	case budgetBlocked:
		return StatusBudgetExceeded, fmt.Sprintf(messageBudgetExceededFormat, result.excludedFile, result.maxTokens)
	case result.filesIncluded == 0:
		scope := treeScopeSelected
		if result.mode == types.ModeAll {
			scope = treeScopeFullProject
		}
		return StatusUnreadableEmptyTree, fmt.Sprintf(messageUnreadableEmptyTreeFormat, scope)
	}
	return StatusOK, ""
}
