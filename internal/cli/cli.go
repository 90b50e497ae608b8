// Package cli provides the command line interface.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/ctxpack/internal/services/clipboard"
	"github.com/temirov/ctxpack/internal/utils"
)

const (
	versionFlagName        = "version"
	versionTemplate        = "ctxpack version: %s\n"
	versionFlagDescription = "display application version"
	rootUse                = "ctxpack"
	rootShortDescription   = "ctxpack assembles project context for language models"
	rootLongDescription    = `ctxpack bundles a project tree and selected file contents into a single
<context> document sized to a token budget.
Use bundle to produce the document, init to write a configuration file, and mcp to
serve bundles to an editor over HTTP.`
)

// applicationDependencies carries the collaborators shared by every command.
type applicationDependencies struct {
	logger     *zap.Logger
	fileSystem afero.Fs
	copier     clipboard.Copier
	stdout     io.Writer
	stderr     io.Writer
}

// Execute runs the ctxpack application.
func Execute(logger *zap.Logger) error {
	rootCommand := createRootCommand(applicationDependencies{
		logger:     logger,
		fileSystem: afero.NewOsFs(),
		copier:     clipboard.NewService(),
		stdout:     os.Stdout,
		stderr:     os.Stderr,
	})
	rootCommand.SetArgs(normalizeBooleanFlagArguments(rootCommand, os.Args[1:]))
	return rootCommand.Execute()
}

// createRootCommand builds the root Cobra command.
func createRootCommand(dependencies applicationDependencies) *cobra.Command {
	if dependencies.logger == nil {
		dependencies.logger = zap.NewNop()
	}
	var showVersion bool

	rootCommand := &cobra.Command{
		Use:          rootUse,
		Short:        rootShortDescription,
		Long:         rootLongDescription,
		SilenceUsage: true,
		RunE: func(command *cobra.Command, arguments []string) error {
			if showVersion {
				_, writeError := fmt.Fprintf(dependencies.stdout, versionTemplate, utils.GetApplicationVersion())
				return writeError
			}
			return command.Help()
		},
	}
	rootCommand.SetOut(dependencies.stdout)
	rootCommand.SetErr(dependencies.stderr)
	rootCommand.Flags().BoolVar(&showVersion, versionFlagName, false, versionFlagDescription)
	rootCommand.AddCommand(
		createBundleCommand(dependencies),
		createInitCommand(dependencies),
		createMCPCommand(dependencies),
	)
	rootCommand.InitDefaultHelpCmd()
	rootCommand.InitDefaultCompletionCmd()
	return rootCommand
}
