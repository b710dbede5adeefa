package main

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/address-tagger/internal/gazetteer"
	"github.com/address-tagger/internal/phonetic"
	"github.com/address-tagger/internal/search"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Seed targets.
const (
	targetPostgres = "postgres"
	targetMongo    = "mongo"
	targetMeili    = "meili"
)

type seedOptions struct {
	target    string
	dir       string
	delimiter string
	dsn       string
	batchSize int
}

func (a *app) createSeedCmd() *cobra.Command {
	opts := seedOptions{}
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the gazetteer CSV files into a backing store",
		Long: `Read one file per category (states_uts.csv, cities.csv, mandals.csv, districts.csv,
villages.csv) from --dir and write every name into Postgres, MongoDB or Meilisearch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.seed(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.target, "target", targetPostgres, "postgres, mongo or meili")
	cmd.Flags().StringVar(&opts.dir, "dir", "resources", "directory holding the gazetteer CSV files")
	cmd.Flags().StringVar(&opts.delimiter, "delimiter", ",", "CSV field delimiter")
	cmd.Flags().StringVar(&opts.dsn, "dsn", "", "Postgres DSN (default from parser config)")
	cmd.Flags().IntVar(&opts.batchSize, "batch-size", 1000, "documents per insert batch")
	return cmd
}

func (a *app) seed(ctx context.Context, opts seedOptions) error {
	comma, size := utf8.DecodeRuneInString(opts.delimiter)
	if size == 0 || size != len(opts.delimiter) {
		return fmt.Errorf("%w: --delimiter must be a single character", errUsage)
	}

	start := time.Now()
	src := &gazetteer.CSVSource{Dir: opts.dir, Files: gazetteer.DefaultCSVFiles, Comma: comma}
	entries, err := src.Load(ctx)
	if err != nil {
		return err
	}
	a.logger.Info("Read gazetteer files", zap.String("dir", opts.dir), zap.Int("entries", len(entries)))

	encoder := phonetic.NewEncoder()
	var n int
	switch opts.target {
	case targetPostgres:
		n, err = a.seedPostgres(ctx, opts, entries, encoder)
	case targetMongo:
		n, err = a.seedMongo(ctx, opts, entries)
	case targetMeili:
		n, err = a.seedMeili(entries, opts.batchSize, encoder)
	default:
		return fmt.Errorf("%w: unknown --target %q", errUsage, opts.target)
	}
	if err != nil {
		return err
	}

	a.logger.Info("Seeding completed",
		zap.String("target", opts.target),
		zap.Int("written", n),
		zap.Duration("duration", time.Since(start)))
	return nil
}

func (a *app) seedPostgres(ctx context.Context, opts seedOptions, entries []gazetteer.Entry, encoder *phonetic.Encoder) (int, error) {
	dsn := opts.dsn
	if dsn == "" {
		dsn = a.cfg.Gazetteer.PostgresDSN
	}
	if dsn == "" {
		return 0, fmt.Errorf("%w: postgres target needs --dsn or gazetteer.postgres_dsn", errUsage)
	}

	db, err := gazetteer.OpenPostgres(dsn)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	store, err := gazetteer.NewSQLStore(ctx, db, a.cfg.Priority(), encoder, a.logger)
	if err != nil {
		return 0, err
	}
	if err := store.CreateSchema(ctx); err != nil {
		return 0, err
	}
	n, err := store.InsertEntries(ctx, entries)
	if err != nil {
		return n, err
	}

	version, err := store.Fingerprint(ctx)
	if err != nil {
		a.logger.Warn("Failed to fingerprint gazetteer table", zap.Error(err))
	} else {
		a.logger.Info("Gazetteer table version", zap.String("fingerprint", version))
	}
	return n, nil
}

func (a *app) seedMongo(ctx context.Context, opts seedOptions, entries []gazetteer.Entry) (int, error) {
	db, err := a.connectMongo(ctx)
	if err != nil {
		return 0, err
	}
	if db == nil {
		return 0, fmt.Errorf("%w: mongo target needs MONGO_URL", errUsage)
	}
	return gazetteer.NewMongoSource(db).InsertEntries(ctx, entries, opts.batchSize)
}

func (a *app) seedMeili(entries []gazetteer.Entry, batchSize int, encoder *phonetic.Encoder) (int, error) {
	if a.settings.MeiliURL == "" {
		return 0, fmt.Errorf("%w: meili target needs MEILISEARCH_URL", errUsage)
	}
	searcher, err := search.NewGazetteerSearcher(search.SearchConfig{
		Host:      a.settings.MeiliURL,
		APIKey:    a.settings.MeiliKey,
		IndexName: search.DefaultIndex,
		Timeout:   30 * time.Second,
	}, a.logger)
	if err != nil {
		return 0, err
	}
	if err := searcher.BuildIndexes(); err != nil {
		return 0, err
	}
	return searcher.SeedData(search.Documents(entries, encoder), batchSize)
}
