package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/temirov/ctxpack/internal/services/mcp"
)

const (
	mcpUse              = "mcp"
	mcpShortDescription = "serve bundles to editors over local HTTP"
	mcpLongDescription  = `Start a local HTTP server that exposes the bundle command.
GET /capabilities lists the commands; POST /commands/bundle accepts a JSON body with
root, paths, mode, maxTokens, model, patterns, useGitignore and countTreeTokens.`

	addressFlagName        = "address"
	addressFlagDescription = "listen address; port 0 picks a free port"
	defaultMCPAddress      = "127.0.0.1:0"

	mcpListeningTemplate = "command server listening on %s\n"
)

func createMCPCommand(dependencies applicationDependencies) *cobra.Command {
	var address string
	mcpCommand := &cobra.Command{
		Use:   mcpUse,
		Short: mcpShortDescription,
		Long:  mcpLongDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			signalContext, stop := signal.NotifyContext(command.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return startMCPServer(signalContext, dependencies.stdout, dependencies, address)
		},
	}
	mcpCommand.Flags().StringVar(&address, addressFlagName, defaultMCPAddress, addressFlagDescription)
	return mcpCommand
}

// startMCPServer blocks until ctx is canceled, announcing the bound address on writer.
func startMCPServer(ctx context.Context, writer io.Writer, dependencies applicationDependencies, address string) error {
	server := mcp.NewServer(mcp.Config{
		Address:      address,
		Capabilities: mcpCapabilities(),
		Executors:    mcpCommandExecutors(dependencies),
		Logger:       dependencies.logger,
	})
	return server.Run(ctx, func(boundAddress string) {
		fmt.Fprintf(writer, mcpListeningTemplate, boundAddress)
	})
}
