package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/temirov/ctxpack/internal/config"
)

const (
	initUse              = "init"
	initShortDescription = "write a default configuration file"
	initLongDescription  = `Write .ctxpack.yaml into the working directory, or ~/.ctxpack/config.yaml with --global.
Existing files are kept unless --force is given.`

	globalFlagName        = "global"
	globalFlagDescription = "write the global configuration instead of the local one"
	forceFlagName         = "force"
	forceFlagDescription  = "overwrite an existing configuration file"

	initWrittenTemplate = "configuration written to %s\n"
)

func createInitCommand(dependencies applicationDependencies) *cobra.Command {
	var useGlobal bool
	var force bool
	initCommand := &cobra.Command{
		Use:   initUse,
		Short: initShortDescription,
		Long:  initLongDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			target := config.InitTargetLocal
			if useGlobal {
				target = config.InitTargetGlobal
			}
			destinationPath, initError := config.InitializeConfiguration(config.InitOptions{
				Target: target,
				Force:  force,
			})
			if initError != nil {
				return initError
			}
			_, writeError := fmt.Fprintf(dependencies.stdout, initWrittenTemplate, destinationPath)
			return writeError
		},
	}
	initCommand.Flags().BoolVar(&useGlobal, globalFlagName, false, globalFlagDescription)
	initCommand.Flags().BoolVar(&force, forceFlagName, false, forceFlagDescription)
	return initCommand
}
