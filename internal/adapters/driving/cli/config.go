package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/lexroute/internal/core/domain"
	"github.com/custodia-labs/lexroute/internal/core/ports/driven"
)

var standalone = map[string]string{annotationStandalone: "true"}

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `View, create and check the configuration file.

Without a subcommand the effective configuration is printed.`,
	Annotations: standalone,
	RunE:        runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:         "show",
	Short:       "Show the effective configuration",
	Annotations: standalone,
	RunE:        runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:         "init",
	Short:       "Write a configuration file with the defaults",
	Annotations: standalone,
	RunE:        runConfigInit,
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the configuration and reach the model providers",
	Long: `Validates the configuration file, then pings the embedding provider and,
when one is configured, the text generation provider.`,
	Annotations: standalone,
	RunE:        runConfigCheck,
}

func init() {
	configInitCmd.Flags().BoolVarP(&configForce, "force", "f", false, "overwrite an existing file")
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configCheckCmd)
	rootCmd.AddCommand(configCmd)
}

func openSettingsStore() (driven.SettingsStore, error) {
	if wiring.SettingsStore == nil {
		return nil, errors.New("settings store not configured")
	}
	return wiring.SettingsStore(configPath)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	store, err := openSettingsStore()
	if err != nil {
		return err
	}
	settings, err := store.Load()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	cmd.Printf("# %s\n", store.Path())
	if _, err := os.Stat(store.Path()); errors.Is(err, fs.ErrNotExist) {
		cmd.Println("# (file does not exist, showing defaults)")
	}

	data, err := toml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	cmd.Println(strings.TrimSpace(string(data)))

	cmd.Println()
	cmd.Printf("# Embedding: %s, %s\n", settings.Embedding.Provider.Description(), apiKeyStatus(settings.Embedding.Provider, settings.Embedding.APIKey))
	cmd.Printf("# LLM: %s, %s\n", settings.LLM.Provider.Description(), apiKeyStatus(settings.LLM.Provider, settings.LLM.APIKey))
	return nil
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	store, err := openSettingsStore()
	if err != nil {
		return err
	}
	if _, err := os.Stat(store.Path()); err == nil && !configForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", store.Path())
	}
	if err := store.Save(domain.DefaultAppSettings()); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	cmd.Printf("Wrote %s\n", store.Path())
	return nil
}

func runConfigCheck(cmd *cobra.Command, _ []string) error {
	store, err := openSettingsStore()
	if err != nil {
		return err
	}
	settings, err := store.Load()
	if err != nil {
		return err
	}
	if err := settings.Validate(); err != nil {
		return err
	}
	cmd.Println("Configuration: ok")

	if wiring.Validator == nil {
		return nil
	}

	var failed bool
	if err := wiring.Validator.ValidateEmbedding(&settings.Embedding); err != nil {
		cmd.Printf("Embedding (%s): %v\n", settings.Embedding.Provider, err)
		failed = true
	} else {
		cmd.Printf("Embedding (%s): ok\n", settings.Embedding.Provider)
	}

	switch {
	case !settings.LLM.IsConfigured():
		cmd.Println("LLM: not configured, answers will list retrieved passages")
	default:
		if err := wiring.Validator.ValidateLLM(&settings.LLM); err != nil {
			cmd.Printf("LLM (%s): %v\n", settings.LLM.Provider, err)
			failed = true
		} else {
			cmd.Printf("LLM (%s): ok\n", settings.LLM.Provider)
		}
	}

	if failed {
		return errors.New("provider check failed")
	}
	return nil
}

func apiKeyStatus(provider domain.AIProvider, key string) string {
	switch {
	case !provider.RequiresAPIKey():
		return "no API key needed"
	case key == "":
		return "API key not set"
	default:
		return "API key " + maskAPIKey(key)
	}
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
