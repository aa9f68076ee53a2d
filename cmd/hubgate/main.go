// Package main is the entry point for the hubgate gateway.
package main

import (
	"os"

	"github.com/stacklok/hubgate/cmd/hubgate/app"
	"github.com/stacklok/hubgate/pkg/logger"
)

func main() {
	// Initialize the logger
	logger.Initialize()

	if err := app.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
