// Package bundle orchestrates scanning, tree rendering and content assembly into a
// single context envelope.
package bundle

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/temirov/ctxpack/internal/assemble"
	"github.com/temirov/ctxpack/internal/scan"
	"github.com/temirov/ctxpack/internal/selection"
	"github.com/temirov/ctxpack/internal/tokenizer"
	"github.com/temirov/ctxpack/internal/tree"
	"github.com/temirov/ctxpack/internal/types"
)

var (
	// ErrEmptyRoot is returned when a request names no project root.
	ErrEmptyRoot = errors.New("project root is required")
	// ErrInvalidMode is returned for a content mode other than all, selected or none.
	ErrInvalidMode = errors.New("invalid content mode")
	// ErrInvalidBudget is returned when MaxTokens is not positive.
	ErrInvalidBudget = errors.New("max tokens must be positive")
)

const (
	errorInvalidModeFormat   = "%w: %q"
	errorInvalidBudgetFormat = "%w: %d"
	errorRootStatFormat      = "stat project root %s: %w"
	errorRootNotDirectory    = "project root %s is not a directory"
	errorCountTreeFormat     = "count tree tokens: %w"
	errorCounterFormat       = "initialize token counter: %w"

	logMessageBundled   = "bundle assembled"
	logMessageNothing   = "nothing to copy"
	logMessageOrphans   = "added content files missing from the tree"
	logFieldMode        = "mode"
	logFieldStatus      = "status"
	logFieldTokens      = "tokens"
	logFieldFiles       = "files"
	logFieldUnreadable  = "unreadable"
	logFieldOrphanCount = "count"
)

// EngineOptions configures an Engine.
type EngineOptions struct {
	FileSystem  afero.Fs
	Counter     tokenizer.Counter
	Logger      *zap.Logger
	Concurrency int
}

// Request describes one bundle invocation.
type Request struct {
	RootPath      string
	RootLabel     string
	SelectedPaths []string
	Mode          types.ContentMode
	MaxTokens     int
	Rules         types.GlobRuleSet
	// CountTreeTokens charges the rendered tree and envelope against MaxTokens.
	CountTreeTokens bool
}

// Result is the outcome of a bundle request. Text is empty unless Status is StatusOK.
type Result struct {
	Text            string
	Tree            string
	Status          Status
	Message         string
	TokensUsed      int
	LimitReached    bool
	ExcludedFile    string
	FilesTotal      int
	FilesIncluded   int
	FilesUnreadable int
	Warnings        []string
}

// Engine runs bundle requests against a file system.
type Engine struct {
	fileSystem  afero.Fs
	counter     tokenizer.Counter
	logger      *zap.Logger
	concurrency int
}

// NewEngine constructs an Engine. Nil options fall back to the OS file system, the
// approximate token counter and a no-op logger.
func NewEngine(options EngineOptions) (*Engine, error) {
	fileSystem := options.FileSystem
	if fileSystem == nil {
		fileSystem = afero.NewOsFs()
	}
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	counter := options.Counter
	if counter == nil {
		approximateCounter, _, counterError := tokenizer.NewCounter(tokenizer.Config{Model: tokenizer.ApproximateModel})
		if counterError != nil {
			return nil, fmt.Errorf(errorCounterFormat, counterError)
		}
		counter = approximateCounter
	}
	return &Engine{
		fileSystem:  fileSystem,
		counter:     counter,
		logger:      logger,
		concurrency: options.Concurrency,
	}, nil
}

// Bundle prunes the selection, scans the tree for the requested mode, assembles file
// contents under the token budget and wraps everything in the context envelope.
//
// Only invalid requests return an error. Traversal and read failures are logged and
// reported through Result.Warnings and the file counters.
func (engine *Engine) Bundle(request Request) (Result, error) {
	rootPath, mode, validationError := engine.validate(request)
	if validationError != nil {
		return Result{}, validationError
	}
	rootLabel := request.RootLabel
	if rootLabel == "" {
		rootLabel = filepath.Base(rootPath)
	}

	selectedPaths := absolutePaths(rootPath, request.SelectedPaths)
	prunedPaths := selection.Prune(selectedPaths)
	rules := request.Rules
	scanner := scan.NewScanner(scan.Options{
		RootPath:    rootPath,
		FileSystem:  engine.fileSystem,
		Logger:      engine.logger,
		Concurrency: engine.concurrency,
	})

	contentSet := scanner.ResolveContentFiles(prunedPaths, rules.Ignore, rules.HideAndContents)

	var treeText string
	entryMap := types.NewEntryMap()
	if mode.IncludesTree() {
		treeRoots := prunedPaths
		if mode == types.ModeAll {
			treeRoots = []string{rootPath}
		}
		scanner.ScanInto(entryMap, treeRoots, rules.Ignore, rules.HideAndContents, rules.HideChildren)
		if added := scanner.ReconcileOrphans(contentSet, entryMap); added > 0 {
			engine.logger.Debug(logMessageOrphans, zap.Int(logFieldOrphanCount, added))
		}
		visibility := tree.VisibilityRules{
			AlwaysShow:     rules.AlwaysShow,
			AlwaysHide:     rules.AlwaysHide,
			ShowIfSelected: rules.ShowIfSelected,
		}
		treeText = tree.Render(entryMap, rootPath, rootLabel, visibility, selectedPaths)
	} else {
		scanner.ReconcileOrphans(contentSet, entryMap)
	}

	tokensAlreadyUsed := 0
	if request.CountTreeTokens {
		overheadTokens, countError := engine.counter.CountString(renderEnvelope(treeText, "", mode.IncludesTree()))
		if countError != nil {
			return Result{}, fmt.Errorf(errorCountTreeFormat, countError)
		}
		tokensAlreadyUsed = overheadTokens
	}

	assembler := assemble.NewAssembler(engine.fileSystem, engine.counter, engine.logger)
	assembled := assembler.Assemble(contentSet, entryMap, request.MaxTokens, tokensAlreadyUsed)

	result := Result{
		Tree:            treeText,
		TokensUsed:      tokensAlreadyUsed + assembled.TokensUsed,
		LimitReached:    assembled.LimitReached,
		ExcludedFile:    assembled.ExcludedFile,
		FilesTotal:      contentSet.Len(),
		FilesIncluded:   assembled.FilesIncluded,
		FilesUnreadable: assembled.FilesUnreadable,
		Warnings:        assembled.Warnings,
	}
	result.Status, result.Message = classify(outcome{
		mode:          mode,
		selectionSize: len(prunedPaths),
		treeEmpty:     isTreeEmpty(treeText),
		contentSize:   contentSet.Len(),
		filesIncluded: assembled.FilesIncluded,
		limitReached:  assembled.LimitReached,
		excludedFile:  assembled.ExcludedFile,
		maxTokens:     request.MaxTokens,
	})

	if !result.Status.IsOK() {
		engine.logger.Info(logMessageNothing, zap.String(logFieldStatus, string(result.Status)), zap.String(logFieldMode, string(mode)))
		return result, nil
	}
	result.Text = renderEnvelope(treeText, assembled.Text, mode.IncludesTree())
	engine.logger.Debug(logMessageBundled,
		zap.String(logFieldMode, string(mode)),
		zap.Int(logFieldTokens, result.TokensUsed),
		zap.Int(logFieldFiles, result.FilesIncluded),
		zap.Int(logFieldUnreadable, result.FilesUnreadable),
	)
	return result, nil
}

func (engine *Engine) validate(request Request) (string, types.ContentMode, error) {
	if strings.TrimSpace(request.RootPath) == "" {
		return "", "", ErrEmptyRoot
	}
	requestedMode := request.Mode
	if requestedMode == "" {
		requestedMode = types.ModeAll
	}
	mode, parseError := types.ParseContentMode(string(requestedMode))
	if parseError != nil {
		return "", "", fmt.Errorf(errorInvalidModeFormat, ErrInvalidMode, request.Mode)
	}
	if request.MaxTokens <= 0 {
		return "", "", fmt.Errorf(errorInvalidBudgetFormat, ErrInvalidBudget, request.MaxTokens)
	}

	rootPath := filepath.Clean(request.RootPath)
	rootInfo, statError := engine.fileSystem.Stat(rootPath)
	if statError != nil {
		return "", "", fmt.Errorf(errorRootStatFormat, rootPath, statError)
	}
	if !rootInfo.IsDir() {
		return "", "", fmt.Errorf(errorRootNotDirectory, rootPath)
	}
	return rootPath, mode, nil
}

// absolutePaths resolves relative selections against rootPath.
func absolutePaths(rootPath string, selectedPaths []string) []string {
	resolved := make([]string, 0, len(selectedPaths))
	for _, selectedPath := range selectedPaths {
		if strings.TrimSpace(selectedPath) == "" {
			continue
		}
		if !filepath.IsAbs(selectedPath) {
			selectedPath = filepath.Join(rootPath, selectedPath)
		}
		resolved = append(resolved, filepath.Clean(selectedPath))
	}
	return resolved
}

// isTreeEmpty reports whether treeText draws nothing below the root label.
func isTreeEmpty(treeText string) bool {
	return strings.Count(treeText, newline) <= 1
}
