package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/address-tagger/app/controllers"
	"github.com/address-tagger/app/providers"
	"github.com/address-tagger/app/services"
	"github.com/address-tagger/internal/features"
	"github.com/address-tagger/internal/parser"
	"github.com/address-tagger/internal/phonetic"
	"github.com/address-tagger/routes"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func main() {
	// 1. Load configuration
	settings := providers.LoadSettings()

	// 2. Logger
	logger, err := providers.NewLogger(settings.Env)
	if err != nil {
		log.Fatal("Cannot initialize logger:", err)
	}
	defer logger.Sync()

	cfg, err := providers.ReadParserConfig(settings.ParserConfig)
	if err != nil {
		logger.Fatal("Invalid parser config", zap.String("path", settings.ParserConfig), zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting Address Tagger Service")

	// 3. MongoDB (optional)
	var mongoDB *mongo.Database
	if settings.MongoURL != "" {
		mongoDB, err = providers.ConnectMongo(ctx, settings.MongoURL, logger)
		if err != nil {
			logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
		}
		defer func() {
			if err := mongoDB.Client().Disconnect(context.Background()); err != nil {
				logger.Error("Error disconnecting MongoDB", zap.Error(err))
			}
		}()
	}

	// 4. Gazetteer and model
	encoder := phonetic.NewEncoder()
	gz, err := providers.LoadGazetteer(ctx, cfg, mongoDB, encoder, logger)
	if err != nil {
		logger.Fatal("Failed to load gazetteer", zap.Error(err))
	}
	defer gz.Close()

	tagger, err := providers.LoadTagger(cfg.ModelPath, logger)
	if err != nil {
		logger.Fatal("Failed to load tagger model", zap.Error(err))
	}
	addressParser := parser.New(features.NewExtractor(gz.Classifier), tagger, logger)

	// 5. Meilisearch (optional)
	var index services.SearchIndex
	searcher, err := providers.NewSearchIndex(cfg, settings, logger)
	if err != nil {
		logger.Warn("Meilisearch unavailable, suggestions use the in-memory gazetteer", zap.Error(err))
	} else if searcher != nil {
		index = searcher
	}

	// 6. Cache
	cache, err := providers.NewCache(ctx, cfg, settings, mongoDB, gz.Version, logger)
	if err != nil {
		logger.Fatal("Failed to initialize result cache", zap.Error(err))
	}
	if cache != nil {
		defer cache.Close()
		if err := cache.InvalidateByGazetteerVersion(ctx, gz.Version); err != nil {
			logger.Warn("Failed to drop stale cache entries", zap.Error(err))
		}
	}

	// 7. Services
	gazetteerService := services.NewGazetteerService(gz.Classifier, gz.Version, services.GazetteerOptions{
		Memory:       gz.Memory,
		Source:       gz.Source,
		Index:        index,
		Encoder:      encoder,
		SuggestLimit: cfg.Suggest.Limit,
	}, logger)
	addressService := services.NewAddressService(addressParser, gazetteerService, services.AddressServiceOptions{
		Cache:        cache,
		UseLibpostal: cfg.UseLibpostal,
	}, logger)
	adminService := services.NewAdminService(mongoDB, addressService, gazetteerService, logger)

	// 8. Controllers + routes
	if settings.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	routes.SetupAllRoutes(router, routes.Controllers{
		Address:   controllers.NewAddressController(addressService, cfg.MaxBatch, logger),
		Gazetteer: controllers.NewGazetteerController(gazetteerService, logger),
		Admin:     controllers.NewAdminController(adminService, addressService, gazetteerService, logger),
	})

	// 9. Start the server
	srv := &http.Server{Addr: ":" + settings.Port, Handler: router}
	go func() {
		logger.Info("Address Tagger Service starting",
			zap.String("port", settings.Port),
			zap.String("gazetteer_version", gz.Version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	logger.Info("Server exited")
}
