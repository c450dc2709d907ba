// Command ingest splits documents into chunks, embeds them and writes them
// to the retrieval collection used for open questions.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/nidhogg/smart-money/internal/config"
	"github.com/nidhogg/smart-money/internal/embedding"
	"github.com/nidhogg/smart-money/internal/rag"
	"github.com/nidhogg/smart-money/internal/vectorstore"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath   string
	collection   string
	chunkSize    int
	chunkOverlap int
	csvRows      int
	dryRun       bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ingest [path...]",
	Short: "Index documents for retrieval",
	Long: `ingest walks files and directories, splits .txt and .md files into
overlapping chunks and .csv files into row blocks, embeds every chunk and
upserts it into the configured vector index.

Examples:
  # Index everything under data/
  ingest data/

  # Preview the chunking without embedding
  ingest --dry-run data/budget_planning_examples.csv`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	_ = godotenv.Load()

	defaultConfig := os.Getenv("CONFIG_PATH")
	if defaultConfig == "" {
		defaultConfig = "configs/smartmoney.json"
	}
	rootCmd.Flags().StringVar(&configPath, "config", defaultConfig, "config file")
	rootCmd.Flags().StringVar(&collection, "collection", "", "collection to write (default from config)")
	rootCmd.Flags().IntVar(&chunkSize, "chunk-size", defaultChunkSize, "characters per text chunk")
	rootCmd.Flags().IntVar(&chunkOverlap, "chunk-overlap", defaultChunkOverlap, "characters shared by adjacent chunks")
	rootCmd.Flags().IntVar(&csvRows, "csv-rows", defaultCSVRows, "rows per CSV block")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "print chunk counts without indexing")
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, err := config.NewLogger(cfg.Server.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	files, err := collectFiles(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no .txt, .md or .csv files under %v", args)
	}

	loader := newLoader(chunkSize, chunkOverlap, csvRows)
	out := cmd.OutOrStdout()

	if dryRun {
		for _, f := range files {
			chunks, err := loader.Load(f)
			if err != nil {
				fmt.Fprintf(out, "skip %s: %v\n", f, err)
				continue
			}
			fmt.Fprintf(out, "%s: %d chunks\n", f, len(chunks))
		}
		return nil
	}

	index, err := vectorstore.Open(vectorstore.Config{
		Backend: cfg.Retrieval.Backend,
		Chromem: vectorstore.ChromemConfig{Path: cfg.Retrieval.Chromem.Path, Compress: cfg.Retrieval.Chromem.Compress},
		Qdrant:  vectorstore.QdrantConfig{Host: cfg.Retrieval.Qdrant.Host, Port: cfg.Retrieval.Qdrant.Port},
	})
	if err != nil {
		return fmt.Errorf("open vector index: %w", err)
	}
	defer index.Close()

	embedder, err := embedding.New(embedding.Config{
		Provider:  cfg.Embedding.Provider,
		Endpoint:  cfg.Embedding.Endpoint,
		Model:     cfg.Embedding.Model,
		APIKey:    cfg.Embedding.APIKey,
		Dimension: cfg.Embedding.Dimension,
	})
	if err != nil {
		return err
	}

	coll := collection
	if coll == "" {
		coll = cfg.Retrieval.Collection
	}
	ix := rag.NewIndexer(embedder, index, coll, logger)

	ctx := cmd.Context()
	total, failed := 0, 0
	for _, f := range files {
		chunks, err := loader.Load(f)
		if err != nil {
			logger.Warn("skipping file", zap.String("file", f), zap.Error(err))
			failed++
			continue
		}
		n, err := ix.StoreAll(ctx, chunks, map[string]string{"source": f})
		total += n
		if err != nil {
			logger.Error("indexing failed", zap.String("file", f), zap.Int("written", n), zap.Error(err))
			failed++
			continue
		}
		fmt.Fprintf(out, "indexed %s (%d chunks)\n", f, n)
	}

	fmt.Fprintf(out, "%d chunks indexed into %q from %d files, %d failed\n",
		total, coll, len(files)-failed, failed)
	if failed == len(files) {
		return fmt.Errorf("every file failed")
	}
	return nil
}
