package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/address-tagger/app/providers"
	"github.com/address-tagger/internal/tokenizer"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Worker tags a file of addresses, one per line, and writes NDJSON results.
func main() {
	in := flag.String("in", "", "input file, one address per line (default stdin)")
	out := flag.String("out", "", "output NDJSON file (default stdout)")
	useCache := flag.Bool("cache", true, "use the configured result cache")
	flag.Parse()

	settings := providers.LoadSettings()
	logger, err := providers.NewLogger(settings.Env)
	if err != nil {
		log.Fatal("Cannot initialize logger:", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, settings, *in, *out, *useCache, logger); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn("Worker interrupted")
			os.Exit(130)
		}
		logger.Fatal("Worker failed", zap.Error(err))
	}
}

func run(ctx context.Context, settings providers.Settings, in, out string, useCache bool, logger *zap.Logger) error {
	cfg, err := providers.ReadParserConfig(settings.ParserConfig)
	if err != nil {
		return err
	}

	var mongoDB *mongo.Database
	if settings.MongoURL != "" {
		mongoDB, err = providers.ConnectMongo(ctx, settings.MongoURL, logger)
		if err != nil {
			return err
		}
		defer mongoDB.Client().Disconnect(context.Background())
	}

	st, err := providers.NewStack(ctx, cfg, settings, mongoDB, providers.StackOptions{WithCache: useCache}, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	var r io.Reader = os.Stdin
	if in != "" {
		f, err := os.Open(in)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	addresses, err := readLines(r)
	if err != nil {
		return fmt.Errorf("read %s: %w", in, err)
	}

	var w io.Writer = os.Stdout
	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	bw := bufio.NewWriter(w)

	logger.Info("Starting batch worker",
		zap.Int("addresses", len(addresses)),
		zap.String("gazetteer_version", st.Gazetteer.Version))
	start := time.Now()

	summary, err := st.Addresses.ProcessBatch(ctx, addresses, bw)
	if ferr := bw.Flush(); err == nil {
		err = ferr
	}

	logger.Info("Batch worker finished",
		zap.Int("processed", summary.Processed),
		zap.Int("failed", summary.Failed),
		zap.Duration("duration", time.Since(start)))
	return err
}

// readLines returns the non-blank lines of r. Lines that are not valid UTF-8
// are decoded as ISO-8859-1.
func readLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(tokenizer.Decode(scanner.Bytes()))
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}
