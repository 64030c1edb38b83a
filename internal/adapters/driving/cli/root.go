// Package cli implements the lexroute command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/lexroute/internal/core/domain"
	"github.com/custodia-labs/lexroute/internal/core/ports/driven"
	"github.com/custodia-labs/lexroute/internal/core/ports/driving"
	"github.com/custodia-labs/lexroute/internal/logger"
)

// annotationStandalone marks commands that run without services.
const annotationStandalone = "standalone"

var (
	version    = "dev"
	verbose    bool
	configPath string
)

// Services are the ports the commands drive.
type Services struct {
	Settings  domain.AppSettings
	Assistant driving.Assistant
	Index     driving.IndexService
	Ingest    driving.IngestService

	// Close releases model clients and storage.
	Close func() error
}

// Wiring is supplied by the composition root.
type Wiring struct {
	// Bootstrap builds the services from the configuration file at path.
	Bootstrap func(ctx context.Context, path string) (*Services, error)

	// SettingsStore opens the configuration file at path.
	SettingsStore func(path string) (driven.SettingsStore, error)

	// Validator checks model provider connectivity.
	Validator driven.AIConfigValidator
}

var (
	wiring   Wiring
	services *Services
)

var rootCmd = &cobra.Command{
	Use:   "lexroute",
	Short: "Route legal questions to case discovery, legal aid and drafting",
	Long: `lexroute answers legal questions over a local collection of case documents.

A query may combine several requests ("find cases on dowry harassment and also
draft a legal notice"). Each request is classified and answered separately from
the passages most similar to it in the case index.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
		return teardown()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.lexroute/config.toml)")
}

// Configure installs the composition root's wiring.
func Configure(w Wiring) {
	wiring = w
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command. Command output goes to stdout; logs
// and warnings go to stderr.
func Execute(ctx context.Context) error {
	defer teardown() //nolint:errcheck
	rootCmd.SetOut(os.Stdout)
	return rootCmd.ExecuteContext(ctx)
}

func setup(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)
	logger.SetOutput(cmd.ErrOrStderr())

	if cmd.Annotations[annotationStandalone] != "" || services != nil {
		return nil
	}
	if wiring.Bootstrap == nil {
		return errors.New("services not configured")
	}
	svc, err := wiring.Bootstrap(cmd.Context(), configPath)
	if err != nil {
		return err
	}
	services = svc
	return nil
}

func teardown() error {
	if services == nil || services.Close == nil {
		services = nil
		return nil
	}
	err := services.Close()
	services = nil
	return err
}

func requireServices() (*Services, error) {
	if services == nil {
		return nil, errors.New("services not configured")
	}
	return services, nil
}

// loadIndex restores the saved index. A snapshot that is damaged or was
// built with another embedding model points at a rebuild.
func loadIndex(ctx context.Context, svc *Services) error {
	err := svc.Index.Load(ctx)
	if errors.Is(err, domain.ErrIndexCorruption) || errors.Is(err, domain.ErrMisconfigured) {
		return fmt.Errorf("%w (run `lexroute index --rebuild` to start over)", err)
	}
	return err
}
