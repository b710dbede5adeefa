package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/address-tagger/internal/gazetteer"
	"gopkg.in/yaml.v3"
)

// Gazetteer source names.
const (
	SourceCSV      = "csv"
	SourcePostgres = "postgres"
	SourceMongo    = "mongo"
)

// Gazetteer lookup backends.
const (
	BackendMemory = "memory"
	BackendSQL    = "sql"
)

type GazetteerCfg struct {
	Source      string   `yaml:"source" json:"source"`
	Backend     string   `yaml:"backend" json:"backend"`
	CSVDir      string   `yaml:"csv_dir" json:"csv_dir"`
	PostgresDSN string   `yaml:"postgres_dsn" json:"-"`
	Priority    []string `yaml:"priority" json:"priority"`
}

type SuggestCfg struct {
	Limit    int  `yaml:"limit" json:"limit"`
	UseMeili bool `yaml:"use_meili" json:"use_meili"`
}

type CacheCfg struct {
	Enabled  bool `yaml:"enabled" json:"enabled"`
	TTLHours int  `yaml:"ttl_hours" json:"ttl_hours"`
}

type ParserCfg struct {
	ModelPath    string       `yaml:"model_path" json:"model_path"`
	UseLibpostal bool         `yaml:"use_libpostal" json:"use_libpostal"`
	MaxBatch     int          `yaml:"max_batch" json:"max_batch"`
	Gazetteer    GazetteerCfg `yaml:"gazetteer" json:"gazetteer"`
	Suggest      SuggestCfg   `yaml:"suggest" json:"suggest"`
	Cache        CacheCfg     `yaml:"cache" json:"cache"`
}

// C is the process-wide parser configuration, set by Load.
var C = Default()

// Default returns the configuration used for keys missing from the file.
func Default() ParserCfg {
	return ParserCfg{
		ModelPath: "models/address_crf.json",
		MaxBatch:  20000,
		Gazetteer: GazetteerCfg{
			Source:   SourceCSV,
			Backend:  BackendMemory,
			CSVDir:   "resources",
			Priority: []string{"state", "city", "mandal", "district", "village"},
		},
		Suggest: SuggestCfg{Limit: 10},
		Cache:   CacheCfg{Enabled: true, TTLHours: 24 * 7},
	}
}

// Load reads path into C.
func Load(path string) error {
	cfg, err := Read(path)
	if err != nil {
		return err
	}
	C = cfg
	return nil
}

// Read parses the YAML file at path on top of Default, applies ENV overrides
// and validates the result.
func Read(path string) (ParserCfg, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read parser config: %w", err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse parser config %s: %w", path, err)
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ENV overrides
func applyEnv(cfg *ParserCfg) {
	if v := os.Getenv("MODEL_PATH"); v != "" {
		cfg.ModelPath = v
	}
	if v := os.Getenv("GAZETTEER_SOURCE"); v != "" {
		cfg.Gazetteer.Source = strings.ToLower(v)
	}
	if v := os.Getenv("GAZETTEER_DIR"); v != "" {
		cfg.Gazetteer.CSVDir = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		cfg.Gazetteer.PostgresDSN = v
	}
	switch os.Getenv("USE_LIBPOSTAL") {
	case "0":
		cfg.UseLibpostal = false
	case "1":
		cfg.UseLibpostal = true
	}
}

// Validate rejects configurations the service cannot start with.
func (c ParserCfg) Validate() error {
	var errs []error

	switch c.Gazetteer.Source {
	case SourceCSV:
		if c.Gazetteer.CSVDir == "" {
			errs = append(errs, errors.New("gazetteer.csv_dir is required for the csv source"))
		}
	case SourcePostgres:
		if c.Gazetteer.PostgresDSN == "" {
			errs = append(errs, errors.New("gazetteer.postgres_dsn is required for the postgres source"))
		}
	case SourceMongo:
	default:
		errs = append(errs, fmt.Errorf("unknown gazetteer source %q", c.Gazetteer.Source))
	}

	switch c.Gazetteer.Backend {
	case BackendMemory:
	case BackendSQL:
		if c.Gazetteer.PostgresDSN == "" {
			errs = append(errs, errors.New("gazetteer.postgres_dsn is required for the sql backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown gazetteer backend %q", c.Gazetteer.Backend))
	}

	if _, err := gazetteer.ParsePriority(c.Gazetteer.Priority); err != nil {
		errs = append(errs, fmt.Errorf("gazetteer.priority: %w", err))
	}
	if c.MaxBatch <= 0 {
		errs = append(errs, errors.New("max_batch must be positive"))
	}
	return errors.Join(errs...)
}

// Priority returns the parsed category priority.
func (c ParserCfg) Priority() []gazetteer.Category {
	p, err := gazetteer.ParsePriority(c.Gazetteer.Priority)
	if err != nil {
		return gazetteer.DefaultPriority()
	}
	return p
}

// ResultTTL is how long cached tag results stay valid.
func (c ParserCfg) ResultTTL() time.Duration {
	return time.Duration(c.Cache.TTLHours) * time.Hour
}

// RequestTimeout bounds cache I/O for a single tag request.
func RequestTimeout() time.Duration { return 1500 * time.Millisecond }
