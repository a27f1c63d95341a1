package cli

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/0xcro3dile/medrag-go/internal/domain/entities"
	"github.com/0xcro3dile/medrag-go/internal/domain/usecases"
	"github.com/0xcro3dile/medrag-go/internal/infrastructure/bootstrap"
)

var (
	ingestDir    string
	ingestGlob   string
	ingestBucket string
	ingestPrefix string
	ingestDryRun bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Split, embed and upsert the reference documents",
	Long: `Load every matching document from the data directory (or a bucket), split it
into overlapping chunks, and upsert the chunks into the vector index in paced
batches. The index is created first if it does not exist.

Chunk ids are the md5 of the chunk text, so running ingest again overwrites
rather than duplicates.`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestDir, "dir", "", "data directory (default from config)")
	ingestCmd.Flags().StringVar(&ingestGlob, "glob", "", "file pattern inside the data directory (default *.pdf)")
	ingestCmd.Flags().StringVar(&ingestBucket, "bucket", "", "read PDFs from this S3-compatible bucket instead")
	ingestCmd.Flags().StringVar(&ingestPrefix, "prefix", "", "object key prefix inside the bucket")
	ingestCmd.Flags().BoolVar(&ingestDryRun, "dry-run", false, "load and split only; no embedding or upload")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ingestDir != "" {
		cfg.Ingest.DataDir = ingestDir
	}
	if ingestGlob != "" {
		cfg.Ingest.Glob = ingestGlob
	}
	if ingestBucket != "" {
		cfg.Bucket.Bucket = ingestBucket
	}
	if ingestPrefix != "" {
		cfg.Bucket.Prefix = ingestPrefix
	}

	if ingestDryRun {
		source, err := bootstrap.NewSource(cfg, bootstrap.NewParser(cfg.Parser, logger), logger)
		if err != nil {
			return err
		}
		docs, err := source.Load(ctx)
		if err != nil {
			return err
		}
		splitter := usecases.NewSplitter(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap)
		chunks := splitter.SplitDocuments(docs)

		unique := make(map[string]struct{}, len(chunks))
		for _, c := range chunks {
			unique[c.ID] = struct{}{}
		}
		printReport(cmd.OutOrStdout(), entities.IngestReport{
			Documents:  len(docs),
			Chunks:     len(unique),
			Duplicates: len(chunks) - len(unique),
		}, true)
		return nil
	}

	services, err := buildServices(ctx)
	if err != nil {
		return err
	}
	defer services.Close()

	dim, err := services.Ingest.EnsureIndex(ctx)
	if err != nil {
		return err
	}
	logger.Info("index ready", slog.Int("dimension", dim))

	source, err := bootstrap.NewSource(cfg, services.Parser, logger)
	if err != nil {
		return err
	}
	report, err := services.Ingest.IngestSource(ctx, source)
	if err != nil {
		return err
	}
	printReport(cmd.OutOrStdout(), report, false)
	return nil
}

func printReport(w io.Writer, r entities.IngestReport, dryRun bool) {
	if dryRun {
		fmt.Fprintf(w, "dry run: %d pages, %d chunks (%d duplicate)\n", r.Documents, r.Chunks, r.Duplicates)
		return
	}
	fmt.Fprintf(w, "ingested %d pages: %d chunks (%d duplicate), %d upserted in %d batches, %s\n",
		r.Documents, r.Chunks, r.Duplicates, r.Upserted, r.Batches, r.Elapsed.Round(time.Millisecond))
}
