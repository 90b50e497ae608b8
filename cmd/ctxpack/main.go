package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/temirov/ctxpack/internal/cli"
	"github.com/temirov/ctxpack/internal/utils"
)

// main is the entry point for the ctxpack command.
func main() {
	loggerInstance, loggerInitializationError := utils.NewApplicationLogger()
	if loggerInitializationError != nil {
		panic(fmt.Errorf(utils.LoggerInitializationFailedMessageFormat, loggerInitializationError))
	}
	defer loggerInstance.Sync()
	if applicationExecutionError := cli.Execute(loggerInstance); applicationExecutionError != nil {
		loggerInstance.Fatal(utils.ApplicationExecutionFailedMessage, zap.Error(applicationExecutionError))
	}
}
