// Command lexroute answers legal questions over a local case collection.
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/custodia-labs/lexroute/internal/adapters/driven/ai"
	"github.com/custodia-labs/lexroute/internal/adapters/driven/config/file"
	"github.com/custodia-labs/lexroute/internal/adapters/driving/cli"
	"github.com/custodia-labs/lexroute/internal/core/ports/driven"
	"github.com/custodia-labs/lexroute/internal/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := file.LoadDotEnv(dotEnvPaths()...); err != nil {
		logger.Warn("%v", err)
	}

	cli.SetVersion(version)
	cli.Configure(cli.Wiring{
		Bootstrap: bootstrap,
		SettingsStore: func(path string) (driven.SettingsStore, error) {
			return file.NewSettingsStore(path)
		},
		Validator: ai.NewConfigValidator(),
	})

	if err := cli.Execute(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// dotEnvPaths lists .env files in precedence order: the working
// directory first, then the user's lexroute directory.
func dotEnvPaths() []string {
	paths := []string{".env"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, file.DefaultDirName, ".env"))
	}
	return paths
}
