// Package cli implements the medrag command line.
package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/0xcro3dile/medrag-go/internal/infrastructure/bootstrap"
	"github.com/0xcro3dile/medrag-go/internal/infrastructure/config"
	"github.com/0xcro3dile/medrag-go/internal/infrastructure/logging"
)

// version is set at build time with -ldflags "-X .../internal/cli.version=...".
var version = "dev"

var (
	cfgFile  string
	logLevel string

	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "medrag",
	Short: "Retrieval-augmented medical question answering",
	Long: `medrag answers medical questions from a reference book.

PDF pages are split into overlapping chunks, embedded, and stored in a vector
index. Each question retrieves the closest chunks and the language model answers
from them alone.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a YAML or TOML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// setup loads .env, the config file and the environment, then installs the logger.
func setup(cmd *cobra.Command, _ []string) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}

	loaded, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if logLevel != "" {
		loaded.Log.Level = logLevel
	}

	l, err := logging.Setup(cmd.ErrOrStderr(), loaded.Log.Level, loaded.Log.Format)
	if err != nil {
		return fmt.Errorf("configuring logging: %w", err)
	}

	cfg, logger = loaded, l
	return nil
}

// buildServices constructs every client from the loaded configuration.
func buildServices(ctx context.Context) (*bootstrap.Services, error) {
	return bootstrap.Build(ctx, cfg, logger)
}

// newBackend returns a lazy initializer so servers can start before the providers are reachable.
func newBackend() *bootstrap.Lazy {
	return bootstrap.NewLazy(buildServices, logger)
}
