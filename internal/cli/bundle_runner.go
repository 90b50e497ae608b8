package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/temirov/ctxpack/internal/bundle"
	"github.com/temirov/ctxpack/internal/config"
	"github.com/temirov/ctxpack/internal/tokenizer"
	"github.com/temirov/ctxpack/internal/types"
)

const (
	errorAbsolutePathFormat = "abs failed for '%s': %w"
	errorIgnorePatterns     = "load ignore patterns: %w"
	errorTokenizerFormat    = "initialize tokenizer %q: %w"

	logMessageTokenizer = "tokenizer selected"
	logFieldModel       = "model"
)

// bundleOptions are the fully resolved inputs of one bundle run.
type bundleOptions struct {
	rootPath        string
	selectedPaths   []string
	mode            types.ContentMode
	maxTokens       int
	model           string
	rules           types.GlobRuleSet
	useGitignore    bool
	countTreeTokens bool
	concurrency     int
}

// runBundle resolves ignore files and the tokenizer, then runs the bundle engine.
func runBundle(fileSystem afero.Fs, logger *zap.Logger, options bundleOptions) (bundle.Result, error) {
	absoluteRoot, absoluteError := filepath.Abs(options.rootPath)
	if absoluteError != nil {
		return bundle.Result{}, fmt.Errorf(errorAbsolutePathFormat, options.rootPath, absoluteError)
	}

	ignorePatterns, ignoreError := config.CombineIgnorePatterns(fileSystem, absoluteRoot, options.rules.Ignore, options.useGitignore)
	if ignoreError != nil {
		return bundle.Result{}, fmt.Errorf(errorIgnorePatterns, ignoreError)
	}
	rules := options.rules
	rules.Ignore = ignorePatterns

	counter, resolvedModel, counterError := tokenizer.NewCounter(tokenizer.Config{Model: options.model})
	if counterError != nil {
		return bundle.Result{}, fmt.Errorf(errorTokenizerFormat, options.model, counterError)
	}
	logger.Debug(logMessageTokenizer, zap.String(logFieldModel, resolvedModel))

	engine, engineError := bundle.NewEngine(bundle.EngineOptions{
		FileSystem:  fileSystem,
		Counter:     counter,
		Logger:      logger,
		Concurrency: options.concurrency,
	})
	if engineError != nil {
		return bundle.Result{}, engineError
	}

	return engine.Bundle(bundle.Request{
		RootPath:        absoluteRoot,
		SelectedPaths:   options.selectedPaths,
		Mode:            options.mode,
		MaxTokens:       options.maxTokens,
		Rules:           rules,
		CountTreeTokens: options.countTreeTokens,
	})
}
