package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/temirov/ctxpack/internal/types"
	"github.com/temirov/ctxpack/internal/utils"
)

const (
	// DefaultMaxTokens is the token budget used when neither configuration nor flags set one.
	DefaultMaxTokens = 500000
	// DefaultModel is the tokenizer model used when none is configured.
	DefaultModel = "gpt-4o"
)

// LoadOptions controls how application configuration is discovered.
type LoadOptions struct {
	WorkingDirectory string
	ExplicitFilePath string
}

// ApplicationConfiguration holds bundle defaults read from configuration files.
// Pointer fields distinguish "unset" from zero values so that local files can
// override global ones selectively.
type ApplicationConfiguration struct {
	Mode            string               `mapstructure:"mode"`
	MaxTokens       *int                 `mapstructure:"max_tokens"`
	Model           string               `mapstructure:"model"`
	Copy            *bool                `mapstructure:"copy"`
	Concurrency     *int                 `mapstructure:"concurrency"`
	UseGitignore    *bool                `mapstructure:"use_gitignore"`
	CountTreeTokens *bool                `mapstructure:"count_tree_tokens"`
	Patterns        PatternConfiguration `mapstructure:"patterns"`
}

// PatternConfiguration lists the glob rules applied during scanning and rendering.
type PatternConfiguration struct {
	Ignore          []string `mapstructure:"ignore"`
	HideChildren    []string `mapstructure:"hide_children"`
	AlwaysShow      []string `mapstructure:"always_show"`
	AlwaysHide      []string `mapstructure:"always_hide"`
	ShowIfSelected  []string `mapstructure:"show_if_selected"`
	HideAndContents []string `mapstructure:"hide_and_contents"`
}

// LoadApplicationConfiguration loads configuration from the global file and then
// overlays the local (or explicitly named) file.
func LoadApplicationConfiguration(options LoadOptions) (ApplicationConfiguration, error) {
	workingDirectory := options.WorkingDirectory
	if workingDirectory == "" {
		currentDirectory, err := os.Getwd()
		if err != nil {
			return ApplicationConfiguration{}, fmt.Errorf("determine working directory: %w", err)
		}
		workingDirectory = currentDirectory
	}

	var merged ApplicationConfiguration

	if homeDirectory, err := os.UserHomeDir(); err == nil && homeDirectory != "" {
		globalPath := filepath.Join(homeDirectory, utils.GlobalConfigDirectoryName, utils.GlobalConfigFileName)
		globalConfig, loadErr := loadConfigurationFromPath(globalPath)
		if loadErr != nil {
			return ApplicationConfiguration{}, loadErr
		}
		merged = merged.Merge(globalConfig)
	}

	localPath := resolveLocalConfigPath(workingDirectory, options.ExplicitFilePath)
	localConfig, loadErr := loadConfigurationFromPath(localPath)
	if loadErr != nil {
		return ApplicationConfiguration{}, loadErr
	}
	merged = merged.Merge(localConfig)

	return merged, nil
}

func resolveLocalConfigPath(workingDirectory, explicitPath string) string {
	if explicitPath != "" {
		if filepath.IsAbs(explicitPath) {
			return explicitPath
		}
		return filepath.Join(workingDirectory, explicitPath)
	}
	return filepath.Join(workingDirectory, utils.ConfigFileName)
}

func loadConfigurationFromPath(path string) (ApplicationConfiguration, error) {
	info, statErr := os.Stat(path)
	if statErr != nil {
		if os.IsNotExist(statErr) {
			return ApplicationConfiguration{}, nil
		}
		return ApplicationConfiguration{}, fmt.Errorf("stat configuration %s: %w", path, statErr)
	}
	if info.IsDir() {
		return ApplicationConfiguration{}, fmt.Errorf("configuration path %s is a directory", path)
	}

	reader := viper.New()
	reader.SetConfigFile(path)
	reader.SetConfigType("yaml")
	if readErr := reader.ReadInConfig(); readErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("read configuration from %s: %w", path, readErr)
	}
	var config ApplicationConfiguration
	if decodeErr := reader.Unmarshal(&config); decodeErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("decode configuration from %s: %w", path, decodeErr)
	}
	return config, nil
}

// Merge overlays override onto the receiver returning the combined configuration.
func (config ApplicationConfiguration) Merge(override ApplicationConfiguration) ApplicationConfiguration {
	result := config
	if override.Mode != "" {
		result.Mode = override.Mode
	}
	if override.MaxTokens != nil {
		result.MaxTokens = cloneInt(override.MaxTokens)
	}
	if override.Model != "" {
		result.Model = override.Model
	}
	if override.Copy != nil {
		result.Copy = cloneBool(override.Copy)
	}
	if override.Concurrency != nil {
		result.Concurrency = cloneInt(override.Concurrency)
	}
	if override.UseGitignore != nil {
		result.UseGitignore = cloneBool(override.UseGitignore)
	}
	if override.CountTreeTokens != nil {
		result.CountTreeTokens = cloneBool(override.CountTreeTokens)
	}
	result.Patterns = result.Patterns.merge(override.Patterns)
	return result
}

func (config PatternConfiguration) merge(override PatternConfiguration) PatternConfiguration {
	return PatternConfiguration{
		Ignore:          overridePatterns(config.Ignore, override.Ignore),
		HideChildren:    overridePatterns(config.HideChildren, override.HideChildren),
		AlwaysShow:      overridePatterns(config.AlwaysShow, override.AlwaysShow),
		AlwaysHide:      overridePatterns(config.AlwaysHide, override.AlwaysHide),
		ShowIfSelected:  overridePatterns(config.ShowIfSelected, override.ShowIfSelected),
		HideAndContents: overridePatterns(config.HideAndContents, override.HideAndContents),
	}
}

// RuleSet converts the pattern configuration into the engine's rule set.
func (config PatternConfiguration) RuleSet() types.GlobRuleSet {
	return types.GlobRuleSet{
		Ignore:          utils.DeduplicatePatterns(config.Ignore),
		HideChildren:    utils.DeduplicatePatterns(config.HideChildren),
		AlwaysShow:      utils.DeduplicatePatterns(config.AlwaysShow),
		AlwaysHide:      utils.DeduplicatePatterns(config.AlwaysHide),
		ShowIfSelected:  utils.DeduplicatePatterns(config.ShowIfSelected),
		HideAndContents: utils.DeduplicatePatterns(config.HideAndContents),
	}
}

// ResolvedMaxTokens returns the configured budget or DefaultMaxTokens.
func (config ApplicationConfiguration) ResolvedMaxTokens() int {
	if config.MaxTokens == nil || *config.MaxTokens <= 0 {
		return DefaultMaxTokens
	}
	return *config.MaxTokens
}

// ResolvedModel returns the configured tokenizer model or DefaultModel.
func (config ApplicationConfiguration) ResolvedModel() string {
	if config.Model == "" {
		return DefaultModel
	}
	return config.Model
}

// ResolvedMode returns the configured content mode, defaulting to all.
func (config ApplicationConfiguration) ResolvedMode() (types.ContentMode, error) {
	if config.Mode == "" {
		return types.ModeAll, nil
	}
	return types.ParseContentMode(config.Mode)
}

func overridePatterns(base []string, override []string) []string {
	if len(override) == 0 {
		return base
	}
	return append([]string{}, utils.DeduplicatePatterns(override)...)
}

func boolValue(value *bool, fallback bool) bool {
	if value == nil {
		return fallback
	}
	return *value
}

func intValue(value *int, fallback int) int {
	if value == nil {
		return fallback
	}
	return *value
}

// ShouldCopy reports whether results are copied to the clipboard by default.
func (config ApplicationConfiguration) ShouldCopy() bool {
	return boolValue(config.Copy, false)
}

// ShouldUseGitignore reports whether root .gitignore patterns extend the ignore list.
func (config ApplicationConfiguration) ShouldUseGitignore() bool {
	return boolValue(config.UseGitignore, true)
}

// ShouldCountTreeTokens reports whether the tree is charged against the budget.
func (config ApplicationConfiguration) ShouldCountTreeTokens() bool {
	return boolValue(config.CountTreeTokens, false)
}

// ResolvedConcurrency returns the configured fan-out limit, or zero for the scanner default.
func (config ApplicationConfiguration) ResolvedConcurrency() int {
	return intValue(config.Concurrency, 0)
}

func cloneBool(value *bool) *bool {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}

func cloneInt(value *int) *int {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}
