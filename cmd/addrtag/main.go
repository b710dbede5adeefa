package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/address-tagger/app/config"
	"github.com/address-tagger/app/providers"
	"github.com/address-tagger/app/requests"
	"github.com/address-tagger/internal/external"
	"github.com/address-tagger/internal/gazetteer"
	"github.com/address-tagger/internal/tokenizer"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// app holds what every subcommand needs after flag parsing.
type app struct {
	settings providers.Settings
	cfg      config.ParserCfg
	logger   *zap.Logger
	mongoDB  *mongo.Database
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := &app{}
	rootCmd := &cobra.Command{
		Use:           "addrtag",
		Short:         "Indian address tagger",
		Long:          `Tag free-form Indian addresses with a CRF model and manage the gazetteer data behind it`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}

	rootCmd.AddCommand(a.createTagCmd())
	rootCmd.AddCommand(a.createParseCmd())
	rootCmd.AddCommand(a.createCompareCmd())
	rootCmd.AddCommand(a.createSuggestCmd())
	rootCmd.AddCommand(a.createSeedCmd())
	rootCmd.AddCommand(createFormatCmd())

	err := rootCmd.ExecuteContext(ctx)
	a.close()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func (a *app) init() error {
	a.settings = providers.LoadSettings()

	logger, err := providers.NewLogger(a.settings.Env)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	a.logger = logger

	a.cfg, err = providers.ReadParserConfig(a.settings.ParserConfig)
	if err != nil {
		return fmt.Errorf("parser config %s: %w", a.settings.ParserConfig, err)
	}
	return nil
}

func (a *app) close() {
	if a.mongoDB != nil {
		if err := a.mongoDB.Client().Disconnect(context.Background()); err != nil {
			a.logger.Warn("Error disconnecting MongoDB", zap.Error(err))
		}
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

// connectMongo connects once, only when a URL is configured.
func (a *app) connectMongo(ctx context.Context) (*mongo.Database, error) {
	if a.mongoDB != nil || a.settings.MongoURL == "" {
		return a.mongoDB, nil
	}
	db, err := providers.ConnectMongo(ctx, a.settings.MongoURL, a.logger)
	if err != nil {
		return nil, err
	}
	a.mongoDB = db
	return db, nil
}

func (a *app) stack(ctx context.Context, withCache bool) (*providers.Stack, error) {
	db, err := a.connectMongo(ctx)
	if err != nil {
		return nil, err
	}
	return providers.NewStack(ctx, a.cfg, a.settings, db, providers.StackOptions{WithCache: withCache}, a.logger)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) createTagCmd() *cobra.Command {
	var (
		useCache      bool
		includeTokens bool
	)
	cmd := &cobra.Command{
		Use:   "tag [address]",
		Short: "Tag one address and print its components",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.stack(cmd.Context(), useCache)
			if err != nil {
				return err
			}
			defer st.Close()

			result, _, err := st.Addresses.TagAddress(cmd.Context(), args[0], requests.TagOptions{
				UseCache:      useCache,
				IncludeTokens: includeTokens,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().BoolVar(&useCache, "cache", false, "use the configured result cache")
	cmd.Flags().BoolVar(&includeTokens, "tokens", false, "include per-token labels")
	return cmd
}

func (a *app) createParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse [address]",
		Short: "Print every token of an address with its label",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.stack(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer st.Close()

			tokens, err := st.Addresses.ParseTokens(args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), tokens)
		},
	}
}

// comparison is the CRF result next to libpostal's parse of the same input.
type comparison struct {
	Raw       string            `json:"raw"`
	CRF       interface{}       `json:"crf"`
	Libpostal *external.Result  `json:"libpostal,omitempty"`
	Error     string            `json:"libpostal_error,omitempty"`
	Agreement map[string]bool   `json:"agreement,omitempty"`
	Only      map[string]string `json:"libpostal_only,omitempty"`
}

func (a *app) createCompareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compare [address]",
		Short: "Compare the CRF tagger with libpostal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.stack(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer st.Close()

			raw := args[0]
			result, _, err := st.Addresses.TagAddress(cmd.Context(), raw, requests.TagOptions{})
			if err != nil {
				return err
			}

			out := comparison{Raw: raw, CRF: result.Components}
			lp, err := external.ExtractWithLibpostal(raw)
			if err != nil {
				out.Error = err.Error()
				return printJSON(cmd.OutOrStdout(), out)
			}
			out.Libpostal = &lp

			crf := result.Components.Map()
			out.Agreement = make(map[string]bool)
			out.Only = make(map[string]string)
			for label, value := range lp.Components {
				got, ok := crf[label]
				if !ok {
					out.Only[label] = value
					continue
				}
				out.Agreement[label] = strings.EqualFold(got, value)
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}

func (a *app) createSuggestCmd() *cobra.Command {
	var (
		limit      int
		categories []string
	)
	cmd := &cobra.Command{
		Use:   "suggest [name]",
		Short: "List gazetteer names close to a misspelt name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var filter []gazetteer.Category
			if len(categories) > 0 {
				cs, err := gazetteer.ParsePriority(categories)
				if err != nil {
					return err
				}
				filter = cs
			}

			st, err := a.stack(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer st.Close()

			suggestions, source, err := st.Places.Suggest(args[0], filter, limit)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]interface{}{
				"query":       args[0],
				"source":      source,
				"suggestions": suggestions,
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum suggestions (default from config)")
	cmd.Flags().StringSliceVar(&categories, "category", nil, "restrict to these categories")
	return cmd
}

func createFormatCmd() *cobra.Command {
	var in, out string
	cmd := &cobra.Command{
		Use:   "format",
		Short: "Rewrite '!'-joined addresses as comma-separated text",
		Long:  `Read a space-delimited file whose first column joins address parts with '!' and write one quoted, comma-separated address per line`,
		// needs neither the parser config nor a logger
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.Open(in)
			if err != nil {
				return err
			}
			defer src.Close()

			dst, err := os.Create(out)
			if err != nil {
				return err
			}

			n, err := tokenizer.FormatJumbled(src, dst)
			if cerr := dst.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return fmt.Errorf("format %s: %w", in, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Formatted %d addresses into %s\n", n, out)
			return nil
		},
	}
	cmd.Flags().StringVar(&in, "in", "", "input file")
	cmd.Flags().StringVar(&out, "out", "", "output file")
	_ = cmd.MarkFlagRequired("in")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

// errUsage marks flag combinations cobra cannot validate itself.
var errUsage = errors.New("invalid usage")
