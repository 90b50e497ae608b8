package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/samber/lo"

	"github.com/temirov/ctxpack/internal/config"
	"github.com/temirov/ctxpack/internal/services/mcp"
	"github.com/temirov/ctxpack/internal/types"
	"github.com/temirov/ctxpack/internal/utils"
)

const (
	commandNameBundle  = "bundle"
	commandNameVersion = "version"

	capabilityBundleDescription  = "Assemble a <context> document from a project root and a path selection"
	capabilityVersionDescription = "Report the ctxpack version"

	responseFormatXML  = "xml"
	responseFormatText = "text"

	errorDecodeBundleRequestFormat = "decode bundle request: %w"
	errorRootRequired              = "root is required"
	errorResolveRootFormat         = "resolve root %q: %w"
	errorExecuteBundleFormat       = "execute bundle: %w"
)

// bundleRequestPayload is the JSON body accepted by the bundle command.
type bundleRequestPayload struct {
	Root            string            `json:"root"`
	Paths           []string          `json:"paths"`
	Mode            string            `json:"mode"`
	MaxTokens       *int              `json:"maxTokens"`
	Model           string            `json:"model"`
	Patterns        types.GlobRuleSet `json:"patterns"`
	UseGitignore    *bool             `json:"useGitignore"`
	CountTreeTokens *bool             `json:"countTreeTokens"`
	Concurrency     *int              `json:"concurrency"`
}

func mcpCapabilities() []mcp.Capability {
	return []mcp.Capability{
		{Name: commandNameBundle, Description: capabilityBundleDescription},
		{Name: commandNameVersion, Description: capabilityVersionDescription},
	}
}

func mcpCommandExecutors(dependencies applicationDependencies) map[string]mcp.CommandExecutor {
	return map[string]mcp.CommandExecutor{
		commandNameBundle: mcp.CommandExecutorFunc(func(_ context.Context, request mcp.CommandRequest) (mcp.CommandResponse, error) {
			return executeBundleRequest(dependencies, request)
		}),
		commandNameVersion: mcp.CommandExecutorFunc(executeVersionRequest),
	}
}

// executeBundleRequest runs one bundle for an HTTP client. A relative root resolves against
// the server's working directory and relative paths resolve against the root. Unlike the
// CLI, an empty path list is passed through so the caller receives the "no selection" status.
func executeBundleRequest(dependencies applicationDependencies, request mcp.CommandRequest) (mcp.CommandResponse, error) {
	var payload bundleRequestPayload
	if len(request.Payload) > 0 {
		if decodeError := json.Unmarshal(request.Payload, &payload); decodeError != nil {
			return mcp.CommandResponse{}, mcp.NewCommandExecutionError(http.StatusBadRequest, fmt.Errorf(errorDecodeBundleRequestFormat, decodeError))
		}
	}
	requestedRoot := strings.TrimSpace(payload.Root)
	if requestedRoot == "" {
		return mcp.CommandResponse{}, mcp.NewCommandExecutionError(http.StatusBadRequest, errors.New(errorRootRequired))
	}
	rootPath, absoluteError := filepath.Abs(requestedRoot)
	if absoluteError != nil {
		return mcp.CommandResponse{}, mcp.NewCommandExecutionError(http.StatusBadRequest, fmt.Errorf(errorResolveRootFormat, requestedRoot, absoluteError))
	}

	mode := types.ModeAll
	if strings.TrimSpace(payload.Mode) != "" {
		parsedMode, modeError := types.ParseContentMode(payload.Mode)
		if modeError != nil {
			return mcp.CommandResponse{}, mcp.NewCommandExecutionError(http.StatusBadRequest, fmt.Errorf(errorDecodeBundleRequestFormat, modeError))
		}
		mode = parsedMode
	}
	model := payload.Model
	if model == "" {
		model = config.DefaultModel
	}

	selectedPaths := lo.FilterMap(payload.Paths, func(candidate string, _ int) (string, bool) {
		trimmed := strings.TrimSpace(candidate)
		if trimmed == "" {
			return "", false
		}
		return resolveAgainst(rootPath, trimmed), true
	})

	result, bundleError := runBundle(dependencies.fileSystem, dependencies.logger, bundleOptions{
		rootPath:        rootPath,
		selectedPaths:   selectedPaths,
		mode:            mode,
		maxTokens:       lo.FromPtrOr(payload.MaxTokens, config.DefaultMaxTokens),
		model:           model,
		rules:           payload.Patterns,
		useGitignore:    lo.FromPtrOr(payload.UseGitignore, true),
		countTreeTokens: lo.FromPtr(payload.CountTreeTokens),
		concurrency:     lo.FromPtr(payload.Concurrency),
	})
	if bundleError != nil {
		return mcp.CommandResponse{}, mcp.NewCommandExecutionError(http.StatusBadRequest, fmt.Errorf(errorExecuteBundleFormat, bundleError))
	}

	return mcp.CommandResponse{
		Output:       result.Text,
		Format:       responseFormatXML,
		Warnings:     result.Warnings,
		Status:       string(result.Status),
		Message:      result.Message,
		TokensUsed:   result.TokensUsed,
		LimitReached: result.LimitReached,
	}, nil
}

func executeVersionRequest(_ context.Context, _ mcp.CommandRequest) (mcp.CommandResponse, error) {
	return mcp.CommandResponse{
		Output: utils.GetApplicationVersion(),
		Format: responseFormatText,
	}, nil
}

