package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chatter/infrastructure/config"
	"chatter/infrastructure/di"
	"chatter/interfaces/cli"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type globalFlags struct {
	configFile string
	storage    string
}

// loadConfig reads configuration the way the API server does, then applies
// the command line overrides
func (f *globalFlags) loadConfig() (*config.Config, error) {
	if f.configFile != "" {
		os.Setenv("CONFIG_FILE", f.configFile)
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	// Keep service logs from interleaving with the prompt
	if os.Getenv("LOG_LEVEL") == "" {
		cfg.LogLevel = "warn"
	}
	if f.storage != "" {
		cfg.StorageBackend = f.storage
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func newRootCommand() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:   "chatter-cli",
		Short: "Interactive shell for the Chatter recommendation engine",
		Long: `Starts a shell that logs in as a user, edits their preferences and asks
for recommendations. Configuration is read the same way as the API server.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			container, cleanup, err := di.InitializeContainer(ctx, cfg)
			if err != nil {
				return err
			}
			defer cleanup()
			defer container.Logger.Sync() //nolint:errcheck

			shell := cli.NewShell(container.CommandBus, container.QueryBus, cmd.OutOrStdout(), container.Logger)
			return shell.Run(ctx, cmd.InOrStdin())
		},
	}

	cmd.PersistentFlags().StringVar(&flags.configFile, "config", "", "YAML config file (overrides CONFIG_FILE)")
	cmd.Flags().StringVar(&flags.storage, "storage", "", "storage backend: memory or dynamodb")

	cmd.AddCommand(newTokenCommand(flags))
	return cmd
}

func newTokenCommand(flags *globalFlags) *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token {user}",
		Short: "Print a bearer token for calling the REST API as user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			logger, err := di.ProvideLogger(cfg)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			generator, err := di.ProvideJWTGenerator(cfg, ttl, logger)
			if err != nil {
				return err
			}
			token, err := generator.GenerateToken(args[0])
			if err != nil {
				return err
			}

			logger.Debug("Issued token", zap.String("userID", args[0]), zap.Duration("ttl", ttl))
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}
