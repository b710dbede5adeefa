package providers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/address-tagger/app/config"
	"github.com/address-tagger/internal/features"
	"github.com/address-tagger/internal/gazetteer"
	"github.com/address-tagger/internal/phonetic"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Gazetteer is the loaded reference data with its version.
type Gazetteer struct {
	Classifier features.Classifier
	// Memory is nil for the sql backend.
	Memory  *gazetteer.MemoryStore
	Source  gazetteer.Source
	Version string

	db *sql.DB
}

// Close releases the Postgres pool, if any.
func (g *Gazetteer) Close() error {
	if g.db != nil {
		return g.db.Close()
	}
	return nil
}

// OpenSource returns the configured entry source. Postgres pools opened here
// are returned so the caller can close them.
func OpenSource(cfg config.GazetteerCfg, mongoDB *mongo.Database) (gazetteer.Source, *sql.DB, error) {
	switch cfg.Source {
	case config.SourceCSV:
		return gazetteer.NewCSVSource(cfg.CSVDir), nil, nil
	case config.SourcePostgres:
		db, err := gazetteer.OpenPostgres(cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %w", gazetteer.ErrStoreUnavailable, err)
		}
		return &gazetteer.PostgresSource{DB: db}, db, nil
	case config.SourceMongo:
		if mongoDB == nil {
			return nil, nil, fmt.Errorf("%w: mongo source needs mongo.url", gazetteer.ErrStoreUnavailable)
		}
		return gazetteer.NewMongoSource(mongoDB), nil, nil
	}
	return nil, nil, fmt.Errorf("unknown gazetteer source %q", cfg.Source)
}

// LoadGazetteer builds the classifier for cfg. Every failure wraps
// gazetteer.ErrStoreUnavailable or is a configuration error.
func LoadGazetteer(ctx context.Context, cfg config.ParserCfg, mongoDB *mongo.Database, encoder *phonetic.Encoder, logger *zap.Logger) (*Gazetteer, error) {
	src, db, err := OpenSource(cfg.Gazetteer, mongoDB)
	if err != nil {
		return nil, err
	}
	g := &Gazetteer{Source: src, db: db}

	switch cfg.Gazetteer.Backend {
	case config.BackendMemory:
		store, err := gazetteer.Load(ctx, src, cfg.Priority(), encoder, logger)
		if err != nil {
			g.Close()
			return nil, err
		}
		g.Classifier, g.Memory, g.Version = store, store, store.Fingerprint()

	case config.BackendSQL:
		if g.db == nil {
			g.db, err = gazetteer.OpenPostgres(cfg.Gazetteer.PostgresDSN)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", gazetteer.ErrStoreUnavailable, err)
			}
		}
		store, err := gazetteer.NewSQLStore(ctx, g.db, cfg.Priority(), encoder, logger)
		if err != nil {
			g.Close()
			return nil, err
		}
		version, err := store.Fingerprint(ctx)
		if err != nil {
			g.Close()
			return nil, fmt.Errorf("%w: %w", gazetteer.ErrStoreUnavailable, err)
		}
		g.Classifier, g.Version = store, version
		logger.Info("Gazetteer backed by Postgres", zap.String("fingerprint", version))

	default:
		g.Close()
		return nil, errors.New("unknown gazetteer backend " + cfg.Gazetteer.Backend)
	}
	return g, nil
}
