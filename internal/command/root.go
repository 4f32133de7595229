// Package command contains the CLI command constructors.
package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"campushub-backend/internal/config"
	"campushub-backend/internal/observability"
)

// RootCommand instantiates the root command, with all sub-commands bound.
func RootCommand() *cobra.Command {
	configFilePath := config.DefaultPath()
	cmd := &cobra.Command{
		Use:          "campushub [command] [flags]",
		Short:        "The campus community backend",
		Version:      version(),
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfigFile(configFilePath, cmd.Flags().Changed("config"))
			if err != nil {
				return fmt.Errorf("failed to load configuration file: %w", err)
			}
			level, _ := config.ParseLevel(cfg.LogLevel)
			logger := observability.InitSlog(level, cfg.DevMode)
			logger.DebugContext(cmd.Context(), "configuration loaded",
				slog.String("database", cfg.Database.Path),
				slog.String("address", cfg.HTTP.Address),
			)
			slog.SetDefault(logger)
			cmd.SetContext(context.WithValue(cmd.Context(), configKey{}, cfg))
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(
		&configFilePath,
		"config", "c",
		configFilePath,
		"path to the configuration file",
	)

	cmd.AddCommand(
		serveCommand(),
		userCommand(),
		sessionsCommand(),
	)

	return cmd
}

// loadConfigFile loads path, falling back to defaults when the default
// config file does not exist. An explicitly given path must exist.
func loadConfigFile(path string, explicit bool) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err == nil || explicit || !errors.Is(err, os.ErrNotExist) {
		return cfg, err
	}
	return config.Load("")
}
