package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tastefeed/internal/config"
	logpkg "github.com/kailas-cloud/tastefeed/internal/logger"
)

// NewRootCmd builds the tastefeed command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "tastefeed",
		Short:         "Feed personalization service",
		Long:          `Fingerprints articles, clusters each user's likes into taste profiles and ranks unseen articles against them.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}

	rootCmd.PersistentFlags().String("env", "", "Config environment (config/<env>.yaml); defaults to $ENV or local")

	rootCmd.AddCommand(
		NewServeCmd(),
		NewBackfillCmd(),
	)
	return rootCmd
}

// loadRuntime reads the config and builds the logger for a subcommand.
func loadRuntime(cmd *cobra.Command) (string, config.Config, *zap.Logger, error) {
	env, _ := cmd.Flags().GetString("env")
	if env == "" {
		env = config.GetEnv()
	}

	cfg, err := config.Load(env)
	if err != nil {
		return "", config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return "", config.Config{}, nil, fmt.Errorf("create logger: %w", err)
	}
	return env, cfg, logger, nil
}
