package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/ctxpack/internal/config"
)

const (
	bundleUse              = "bundle [paths...]"
	bundleAlias            = "b"
	bundleShortDescription = "assemble project context (" + bundleAlias + ")"
	bundleLongDescription  = `Render the project tree and the contents of the selected paths into a
<context> document. Files are added in path order until the token budget is reached.
Flags override values from .ctxpack.yaml and ~/.ctxpack/config.yaml.`
	bundleUsageExample = `  # Bundle the whole project with the full tree
  ctxpack bundle

  # Bundle two directories, show only their tree, and copy the result
  ctxpack bundle --mode selected --copy ./cmd ./internal

  # Contents only, with a smaller budget
  ctxpack b --mode none --max-tokens 32000 main.go`

	rootFlagName            = "root"
	modeFlagName            = "mode"
	maxTokensFlagName       = "max-tokens"
	modelFlagName           = "model"
	configFlagName          = "config"
	copyFlagName            = "copy"
	ignoreFlagName          = "ignore"
	alwaysShowFlagName      = "always-show"
	alwaysHideFlagName      = "always-hide"
	noGitignoreFlagName     = "no-gitignore"
	countTreeTokensFlagName = "count-tree-tokens"
	concurrencyFlagName     = "concurrency"

	rootFlagDescription            = "project root (defaults to the working directory)"
	modeFlagDescription            = "tree mode: all, selected, or none"
	maxTokensFlagDescription       = "token budget for the bundle"
	modelFlagDescription           = "tokenizer model; \"approx\" uses a character heuristic"
	configFlagDescription          = "configuration file used instead of ./.ctxpack.yaml"
	copyFlagDescription            = "copy the bundle to the clipboard"
	ignoreFlagDescription          = "glob excluded from the tree and the contents"
	alwaysShowFlagDescription      = "glob always drawn in the tree"
	alwaysHideFlagDescription      = "glob never drawn in the tree unless always shown"
	noGitignoreFlagDescription     = "do not read the root .gitignore"
	countTreeTokensFlagDescription = "charge the tree against the token budget"
	concurrencyFlagDescription     = "maximum concurrent filesystem operations while scanning"

	workingDirectoryErrorFormat = "unable to determine working directory: %w"
	errorModeFormat             = "resolve mode: %w"
	errorCopyFormat             = "copy bundle to clipboard: %w"
	errorWriteFormat            = "write bundle: %w"

	logMessageCopied     = "bundle copied to clipboard"
	logFieldTokensUsed   = "tokens_used"
	logFieldFiles        = "files"
	logFieldLimitReached = "limit_reached"
	logFieldStatus       = "status"
)

// bundleFlags holds the raw command line values of the bundle command.
type bundleFlags struct {
	rootPath        string
	mode            string
	maxTokens       int
	model           string
	configPath      string
	copy            optionalBoolean
	noGitignore     optionalBoolean
	countTreeTokens optionalBoolean
	concurrency     int
	ignore          []string
	alwaysShow      []string
	alwaysHide      []string
}

func createBundleCommand(dependencies applicationDependencies) *cobra.Command {
	var flags bundleFlags

	bundleCommand := &cobra.Command{
		Use:     bundleUse,
		Aliases: []string{bundleAlias},
		Short:   bundleShortDescription,
		Long:    bundleLongDescription,
		Example: bundleUsageExample,
		Args:    cobra.ArbitraryArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			return executeBundleCommand(command, dependencies, flags, arguments)
		},
	}

	flagSet := bundleCommand.Flags()
	flagSet.StringVar(&flags.rootPath, rootFlagName, "", rootFlagDescription)
	flagSet.StringVar(&flags.mode, modeFlagName, "", modeFlagDescription)
	flagSet.IntVar(&flags.maxTokens, maxTokensFlagName, 0, maxTokensFlagDescription)
	flagSet.StringVar(&flags.model, modelFlagName, "", modelFlagDescription)
	flagSet.StringVar(&flags.configPath, configFlagName, "", configFlagDescription)
	flagSet.IntVar(&flags.concurrency, concurrencyFlagName, 0, concurrencyFlagDescription)
	flagSet.StringArrayVar(&flags.ignore, ignoreFlagName, nil, ignoreFlagDescription)
	flagSet.StringArrayVar(&flags.alwaysShow, alwaysShowFlagName, nil, alwaysShowFlagDescription)
	flagSet.StringArrayVar(&flags.alwaysHide, alwaysHideFlagName, nil, alwaysHideFlagDescription)
	registerOptionalBooleanFlag(flagSet, &flags.copy, copyFlagName, copyFlagDescription)
	registerOptionalBooleanFlag(flagSet, &flags.noGitignore, noGitignoreFlagName, noGitignoreFlagDescription)
	registerOptionalBooleanFlag(flagSet, &flags.countTreeTokens, countTreeTokensFlagName, countTreeTokensFlagDescription)
	return bundleCommand
}

func executeBundleCommand(command *cobra.Command, dependencies applicationDependencies, flags bundleFlags, arguments []string) error {
	workingDirectory, workingDirectoryError := os.Getwd()
	if workingDirectoryError != nil {
		return fmt.Errorf(workingDirectoryErrorFormat, workingDirectoryError)
	}
	applicationConfiguration, configurationError := config.LoadApplicationConfiguration(config.LoadOptions{
		WorkingDirectory: workingDirectory,
		ExplicitFilePath: flags.configPath,
	})
	if configurationError != nil {
		return configurationError
	}

	options, optionsError := resolveBundleOptions(command, applicationConfiguration, flags, arguments, workingDirectory)
	if optionsError != nil {
		return optionsError
	}

	result, bundleError := runBundle(dependencies.fileSystem, dependencies.logger, options)
	if bundleError != nil {
		return bundleError
	}
	for _, warning := range result.Warnings {
		dependencies.logger.Warn(warning)
	}
	if !result.Status.IsOK() {
		dependencies.logger.Warn(result.Message, zap.String(logFieldStatus, string(result.Status)))
		return nil
	}

	if _, writeError := fmt.Fprint(dependencies.stdout, result.Text); writeError != nil {
		return fmt.Errorf(errorWriteFormat, writeError)
	}
	if flags.copy.resolve(applicationConfiguration.ShouldCopy()) && dependencies.copier != nil {
		if copyError := dependencies.copier.Copy(result.Text); copyError != nil {
			return fmt.Errorf(errorCopyFormat, copyError)
		}
		dependencies.logger.Info(logMessageCopied,
			zap.Int(logFieldTokensUsed, result.TokensUsed),
			zap.Int(logFieldFiles, result.FilesIncluded),
			zap.Bool(logFieldLimitReached, result.LimitReached),
		)
	}
	return nil
}

// resolveBundleOptions layers command line flags over the loaded configuration.
func resolveBundleOptions(command *cobra.Command, applicationConfiguration config.ApplicationConfiguration, flags bundleFlags, arguments []string, workingDirectory string) (bundleOptions, error) {
	rootPath := workingDirectory
	if flags.rootPath != "" {
		rootPath = resolveAgainst(workingDirectory, flags.rootPath)
	}

	if command.Flags().Changed(modeFlagName) {
		applicationConfiguration.Mode = flags.mode
	}
	mode, modeError := applicationConfiguration.ResolvedMode()
	if modeError != nil {
		return bundleOptions{}, fmt.Errorf(errorModeFormat, modeError)
	}

	maxTokens := applicationConfiguration.ResolvedMaxTokens()
	if command.Flags().Changed(maxTokensFlagName) {
		maxTokens = flags.maxTokens
	}
	model := applicationConfiguration.ResolvedModel()
	if flags.model != "" {
		model = flags.model
	}
	concurrency := applicationConfiguration.ResolvedConcurrency()
	if command.Flags().Changed(concurrencyFlagName) {
		concurrency = flags.concurrency
	}

	rules := applicationConfiguration.Patterns.RuleSet()
	rules.Ignore = append(rules.Ignore, flags.ignore...)
	rules.AlwaysShow = append(rules.AlwaysShow, flags.alwaysShow...)
	rules.AlwaysHide = append(rules.AlwaysHide, flags.alwaysHide...)

	selectedPaths := lo.Map(arguments, func(argument string, _ int) string {
		return resolveAgainst(workingDirectory, argument)
	})
	if len(selectedPaths) == 0 {
		selectedPaths = []string{rootPath}
	}

	return bundleOptions{
		rootPath:        rootPath,
		selectedPaths:   selectedPaths,
		mode:            mode,
		maxTokens:       maxTokens,
		model:           model,
		rules:           rules,
		useGitignore:    !flags.noGitignore.resolve(!applicationConfiguration.ShouldUseGitignore()),
		countTreeTokens: flags.countTreeTokens.resolve(applicationConfiguration.ShouldCountTreeTokens()),
		concurrency:     concurrency,
	}, nil
}

func resolveAgainst(baseDirectory string, candidate string) string {
	if filepath.IsAbs(candidate) {
		return filepath.Clean(candidate)
	}
	return filepath.Join(baseDirectory, candidate)
}
