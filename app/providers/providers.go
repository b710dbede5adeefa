// Package providers builds the long-lived dependencies shared by the HTTP
// server, the CLI and the batch worker.
package providers

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"strings"
	"time"

	"github.com/address-tagger/app/config"
	"github.com/address-tagger/app/models"
	"github.com/address-tagger/internal/crf"
	"github.com/address-tagger/internal/parser"
	"github.com/spf13/viper"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"
	"go.uber.org/zap"
)

const defaultMongoDatabase = "address_tagger"

// Settings are the service-level settings read through viper.
type Settings struct {
	Port         string
	Env          string
	ParserConfig string
	RedisURL     string
	MongoURL     string
	MeiliURL     string
	MeiliKey     string
	L1Size       int
}

// LoadSettings reads config/app.yaml and environment variables. A missing
// file is not an error; defaults and ENV still apply.
func LoadSettings() Settings {
	viper.SetConfigName("app")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	viper.SetDefault("app.port", "8080")
	viper.SetDefault("app.env", "development")
	viper.SetDefault("parser.config", "config/parser.yaml")
	viper.SetDefault("redis.url", "")
	viper.SetDefault("mongo.url", "")
	viper.SetDefault("meilisearch.url", "")
	viper.SetDefault("meilisearch.master_key", "")
	viper.SetDefault("cache.l1_size", 10000)

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: Cannot read config file: %v", err)
	}

	return Settings{
		Port:         viper.GetString("app.port"),
		Env:          viper.GetString("app.env"),
		ParserConfig: viper.GetString("parser.config"),
		RedisURL:     viper.GetString("redis.url"),
		MongoURL:     viper.GetString("mongo.url"),
		MeiliURL:     viper.GetString("meilisearch.url"),
		MeiliKey:     viper.GetString("meilisearch.master_key"),
		L1Size:       viper.GetInt("cache.l1_size"),
	}
}

// NewLogger builds the zap logger for env.
func NewLogger(env string) (*zap.Logger, error) {
	var cfg zap.Config
	if env == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	return cfg.Build()
}

// ConnectMongo connects and pings. The database is taken from the URL path,
// falling back to address_tagger.
func ConnectMongo(ctx context.Context, url string, logger *zap.Logger) (*mongo.Database, error) {
	cs, err := connstring.ParseAndValidate(url)
	if err != nil {
		return nil, fmt.Errorf("parse mongo url: %w", err)
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(url))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	dbName := cs.Database
	if dbName == "" {
		dbName = defaultMongoDatabase
	}
	logger.Info("Connected to MongoDB", zap.String("database", dbName))
	return client.Database(dbName), nil
}

// LoadTagger loads the CRF model at path. A missing file is reported as
// parser.ErrModelUnavailable.
func LoadTagger(path string, logger *zap.Logger) (*crf.Tagger, error) {
	if path == "" {
		return nil, parser.ErrModelUnavailable
	}

	m, err := crf.Load(path, models.LabelStrings())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w (%s not found)", parser.ErrModelUnavailable, path)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("Loaded CRF model",
		zap.String("path", path),
		zap.Int("labels", m.Labels.Size()),
		zap.Int("attributes", m.Attributes.Size()))
	return crf.NewTagger(m), nil
}

// ReadParserConfig loads the YAML parser config into config.C.
func ReadParserConfig(path string) (config.ParserCfg, error) {
	if err := config.Load(path); err != nil {
		return config.ParserCfg{}, err
	}
	return config.C, nil
}
