package main

import (
	"context"
	_ "embed"
	"os"
	"os/signal"
	"strings"
	"syscall"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/fx"

	"github.com/tigerroll/caseflow/internal/app"
	"github.com/tigerroll/caseflow/pkg/engine/support/util/logger"
)

// embeddedConfig is the application's YAML configuration.
//
//go:embed resources/application.yaml
var embeddedConfig []byte

// embeddedDefinitions lists the process and case definitions deployed at startup.
//
//go:embed resources/definitions.yaml
var embeddedDefinitions []byte

// getDBProviderOptions selects the DB providers named in DB_ADAPTORS
// (comma-separated). All of sqlite, postgres and mysql are used when unset.
func getDBProviderOptions() []fx.Option {
	adaptors := os.Getenv("DB_ADAPTORS")
	if adaptors == "" {
		adaptors = "sqlite,postgres,mysql"
	}

	options := make([]fx.Option, 0)
	for _, name := range strings.Split(adaptors, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if module, ok := app.DBProviderMap[name]; ok {
			options = append(options, module)
			logger.Debugf("DB Provider '%s' selected and registered.", name)
		} else {
			logger.Warnf("DB Provider '%s' is configured but not recognized/supported. Skipping.", name)
		}
	}
	return options
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Warnf("Received signal '%v'. Shutting down...", sig)
		cancel()
	}()

	envFilePath := os.Getenv("ENV_FILE_PATH")
	if envFilePath == "" {
		envFilePath = ".env"
	}

	app.RunApplication(ctx, envFilePath, embeddedConfig, embeddedDefinitions, getDBProviderOptions())
}
