package providers

import (
	"context"
	"errors"
	"fmt"

	"github.com/address-tagger/app/config"
	"github.com/address-tagger/app/services"
	"github.com/address-tagger/internal/features"
	"github.com/address-tagger/internal/parser"
	"github.com/address-tagger/internal/phonetic"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Stack is the tagging pipeline without the HTTP layer, used by the CLI and
// the batch worker.
type Stack struct {
	Gazetteer *Gazetteer
	Encoder   *phonetic.Encoder
	Parser    *parser.AddressParser
	Places    *services.GazetteerService
	Addresses *services.AddressService
	Cache     services.ICacheService
}

// StackOptions selects the optional parts of a Stack.
type StackOptions struct {
	// WithCache builds the configured result cache; otherwise tagging is uncached.
	WithCache bool
}

// NewStack loads the gazetteer and the model and wires the services. A missing
// model is an error wrapping parser.ErrModelUnavailable.
func NewStack(ctx context.Context, cfg config.ParserCfg, s Settings, mongoDB *mongo.Database, opts StackOptions, logger *zap.Logger) (*Stack, error) {
	encoder := phonetic.NewEncoder()
	gz, err := LoadGazetteer(ctx, cfg, mongoDB, encoder, logger)
	if err != nil {
		return nil, fmt.Errorf("load gazetteer: %w", err)
	}

	tagger, err := LoadTagger(cfg.ModelPath, logger)
	if err != nil {
		gz.Close()
		return nil, fmt.Errorf("load model: %w", err)
	}

	st := &Stack{
		Gazetteer: gz,
		Encoder:   encoder,
		Parser:    parser.New(features.NewExtractor(gz.Classifier), tagger, logger),
	}

	if opts.WithCache {
		cache, err := NewCache(ctx, cfg, s, mongoDB, gz.Version, logger)
		if err != nil {
			gz.Close()
			return nil, err
		}
		if cache != nil {
			if err := cache.InvalidateByGazetteerVersion(ctx, gz.Version); err != nil {
				logger.Warn("Failed to drop stale cache entries", zap.Error(err))
			}
			st.Cache = cache
		}
	}

	st.Places = services.NewGazetteerService(gz.Classifier, gz.Version, services.GazetteerOptions{
		Memory:       gz.Memory,
		Source:       gz.Source,
		Encoder:      encoder,
		SuggestLimit: cfg.Suggest.Limit,
	}, logger)
	st.Addresses = services.NewAddressService(st.Parser, st.Places, services.AddressServiceOptions{
		Cache:        st.Cache,
		UseLibpostal: cfg.UseLibpostal,
	}, logger)
	return st, nil
}

// Close releases the cache and the gazetteer connection.
func (s *Stack) Close() error {
	var errs []error
	if s.Cache != nil {
		errs = append(errs, s.Cache.Close())
	}
	errs = append(errs, s.Gazetteer.Close())
	return errors.Join(errs...)
}
