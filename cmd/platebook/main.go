// Package main is the entry point for the platebook application.
package main

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/platebook/platebook/internal/assetcache"
	"github.com/platebook/platebook/internal/config"
	"github.com/platebook/platebook/internal/domain"
	"github.com/platebook/platebook/internal/logger"
	"github.com/platebook/platebook/internal/normalize"
	"github.com/platebook/platebook/internal/relay"
	"github.com/platebook/platebook/internal/server"
	"github.com/platebook/platebook/internal/storage"
	"github.com/platebook/platebook/internal/storage/sqlite"
)

func main() {
	// A missing .env is fine; the environment may be set directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.LogLevel)

	if len(os.Args) < 2 {
		showUsage()
		return
	}

	switch os.Args[1] {
	case "serve":
		serve(cfg)
	case "import":
		if len(os.Args) < 4 {
			fmt.Println("Error: state code and image file required")
			fmt.Println("Usage: platebook import <CODE> <file>")
			os.Exit(1)
		}
		importStatePhoto(cfg, os.Args[2], os.Args[3])
	case "add":
		if len(os.Args) < 3 {
			fmt.Println("Error: image file required")
			fmt.Println("Usage: platebook add <file>")
			os.Exit(1)
		}
		addGalleryPhoto(cfg, os.Args[2])
	case "progress":
		showProgress(cfg)
	default:
		showUsage()
	}
}

func showUsage() {
	fmt.Println("Usage:")
	fmt.Println("  platebook serve                - Start the HTTP server")
	fmt.Println("  platebook import <CODE> <file> - Store a plate photo for a state")
	fmt.Println("  platebook add <file>           - Add a photo to the fun gallery")
	fmt.Println("  platebook progress             - Show how many states have photos")
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Println("  DATABASE_PATH          - SQLite database file (default platebook.db)")
	fmt.Println("  HOST, PORT             - Listen address (default 0.0.0.0:5173)")
	fmt.Println("  TELEGRAM_BOT_TOKEN     - Bot credential for relaying photos (optional)")
	fmt.Println("  TELEGRAM_CHAT_ID       - Target chat for relayed photos (optional)")
	fmt.Println("  TELEGRAM_SHARING_CODE  - Shared secret gating the relay (optional)")
	fmt.Println("  ASSET_ORIGIN           - Upstream origin for the offline asset cache (optional)")
	fmt.Println("  HEIF_CONVERTER         - External HEIC/HEIF decoder binary (optional)")
}

func openStore(cfg *config.AppConfig) storage.Store {
	store, err := sqlite.NewFileStore(cfg.DatabasePath)
	if err != nil {
		// No recovery path: every later operation would fail too.
		logger.Logger.Fatal().Err(err).Str("path", cfg.DatabasePath).Msg("cannot open photo store")
	}
	return store
}

func newNormalizer(cfg *config.AppConfig) *normalize.Normalizer {
	n := normalize.New()
	n.ConverterPath = cfg.HEIFConverter
	return n
}

func serve(cfg *config.AppConfig) {
	store := openStore(cfg)
	defer store.Close()

	relayClient := relay.NewClient(cfg.TelegramBotToken, cfg.TelegramChatID)
	if relayClient.Configured() {
		logger.Logger.Info().Msg("telegram relay configured")
	} else {
		logger.Logger.Info().Msg("telegram relay not configured; photos stay local")
	}

	var assets http.Handler
	if cfg.AssetOrigin != "" {
		cache, err := assetcache.New(cfg.AssetCacheDir, cfg.AssetCacheGeneration,
			cfg.AssetOrigin, config.AssetManifest(), logger.Logger)
		if err != nil {
			logger.Logger.Fatal().Err(err).Msg("cannot set up asset cache")
		}

		// Installation is opportunistic: a dead origin at boot still
		// leaves any previously installed generation servable.
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		if err := cache.Install(ctx); err != nil {
			logger.Logger.Warn().Err(err).Msg("asset cache install failed")
		} else if err := cache.Activate(); err != nil {
			logger.Logger.Warn().Err(err).Msg("asset cache activate failed")
		}
		cancel()

		assets = cache
	}

	svc := server.New(cfg, store, newNormalizer(cfg), relayClient, assets, logger.Logger)
	e := echo.New()
	svc.RegisterRoutes(e)

	go func() {
		if err := e.Start(cfg.ListenAddr()); err != nil && err != http.ErrServerClosed {
			logger.Logger.Fatal().Err(err).Msg("server stopped")
		}
	}()
	logger.Logger.Info().Str("addr", cfg.ListenAddr()).Msg("platebook listening")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Logger.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Logger.Error().Err(err).Msg("shutdown error")
	}
}

func importStatePhoto(cfg *config.AppConfig, code, path string) {
	code = strings.ToUpper(code)
	state, ok := domain.StateByCode(code)
	if !ok {
		fmt.Printf("Error: %q is not a US state code\n", code)
		os.Exit(1)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("Error reading %s: %v\n", path, err)
		os.Exit(1)
	}

	store := openStore(cfg)
	defer store.Close()

	ctx := context.Background()
	result := newNormalizer(cfg).Normalize(ctx, data, mime.TypeByExtension(filepath.Ext(path)), filepath.Base(path))

	if err := store.PutStatePhoto(ctx, code, result.Data); err != nil {
		fmt.Printf("Error storing photo: %v\n", err)
		os.Exit(1)
	}

	count, err := store.CountStatesWithPhotos(ctx)
	if err != nil {
		fmt.Printf("Error counting photos: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Stored photo for %s (%s): %d bytes\n", state.Name, state.Code, len(result.Data))
	fmt.Printf("Progress: %d/%d states\n", count, domain.StateCount)
}

func addGalleryPhoto(cfg *config.AppConfig, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("Error reading %s: %v\n", path, err)
		os.Exit(1)
	}

	store := openStore(cfg)
	defer store.Close()

	ctx := context.Background()
	result := newNormalizer(cfg).Normalize(ctx, data, mime.TypeByExtension(filepath.Ext(path)), filepath.Base(path))

	id, err := store.AddGalleryPhoto(ctx, result.Data)
	if err != nil {
		fmt.Printf("Error storing photo: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Added gallery photo #%d: %d bytes\n", id, len(result.Data))
}

func showProgress(cfg *config.AppConfig) {
	store := openStore(cfg)
	defer store.Close()

	ctx := context.Background()
	count, err := store.CountStatesWithPhotos(ctx)
	if err != nil {
		fmt.Printf("Error counting photos: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%d/%d states photographed\n", count, domain.StateCount)
	if count == domain.StateCount {
		fmt.Println("Collection complete!")
	}
}
