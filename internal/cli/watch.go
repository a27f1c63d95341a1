package cli

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/0xcro3dile/medrag-go/internal/adapters/filewatcher"
	"github.com/0xcro3dile/medrag-go/internal/adapters/loader"
	"github.com/0xcro3dile/medrag-go/internal/domain/ports"
	"github.com/0xcro3dile/medrag-go/internal/domain/usecases"
)

var (
	watchDir         string
	watchSkipInitial bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-ingest documents as they change in the data directory",
	Long: `Ingest the data directory once, then watch it. A document that is created or
modified is loaded and upserted again. Deleted files are only logged: their
chunks stay in the index until it is rebuilt.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchDir, "dir", "", "data directory (default from config)")
	watchCmd.Flags().BoolVar(&watchSkipInitial, "skip-initial", false, "do not ingest existing files on start")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if watchDir != "" {
		cfg.Ingest.DataDir = watchDir
	}

	services, err := buildServices(ctx)
	if err != nil {
		return err
	}
	defer services.Close()

	if _, err := services.Ingest.EnsureIndex(ctx); err != nil {
		return err
	}

	docLoader := loader.NewMultiLoader(services.Parser)
	if !watchSkipInitial {
		source := loader.NewDirectorySource(cfg.Ingest.DataDir, cfg.Ingest.Glob, docLoader, logger)
		report, err := services.Ingest.IngestSource(ctx, source)
		if err != nil {
			logger.Warn("initial ingest", slog.Any("error", err))
		} else {
			printReport(cmd.OutOrStdout(), report, false)
		}
	}

	watcher, err := filewatcher.NewFSNotifyWatcher(docLoader.SupportedExtensions(), cfg.Ingest.WatchDebounce(), logger)
	if err != nil {
		return err
	}
	defer watcher.Stop()

	events, err := watcher.Watch(ctx, cfg.Ingest.DataDir)
	if err != nil {
		return err
	}
	for event := range events {
		handleFileEvent(ctx, services.Ingest, docLoader, event, cfg.Ingest.Glob, logger)
	}
	return nil
}

// handleFileEvent re-ingests created or modified files that match glob.
func handleFileEvent(ctx context.Context, ingest *usecases.IngestUseCase, docLoader ports.DocumentLoader, event ports.FileEvent, glob string, logger *slog.Logger) {
	log := logger.With(slog.String("path", event.Path), slog.String("op", event.Operation.String()))

	if glob != "" {
		if ok, _ := filepath.Match(glob, filepath.Base(event.Path)); !ok {
			log.Debug("ignoring file outside glob")
			return
		}
	}

	switch event.Operation {
	case ports.FileCreated, ports.FileModified:
		report, err := ingest.IngestFile(ctx, docLoader, event.Path)
		if err != nil {
			log.Error("re-ingest failed", slog.Any("error", err))
			return
		}
		log.Info("re-ingested", slog.Int("chunks", report.Chunks), slog.Int("upserted", report.Upserted))
	case ports.FileDeleted:
		log.Info("file removed; its chunks stay in the index")
	}
}
