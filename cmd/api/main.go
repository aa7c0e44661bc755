package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/zhouzirui/tilawa/backend/internal/analysis/turn"
	"github.com/zhouzirui/tilawa/backend/internal/config"
	"github.com/zhouzirui/tilawa/backend/internal/handler"
	"github.com/zhouzirui/tilawa/backend/internal/handler/live"
	"github.com/zhouzirui/tilawa/backend/internal/logging"
	"github.com/zhouzirui/tilawa/backend/internal/metrics"
	"github.com/zhouzirui/tilawa/backend/internal/model/recital"
	"github.com/zhouzirui/tilawa/backend/internal/service/ai"
	recitalservice "github.com/zhouzirui/tilawa/backend/internal/service/recital"
	"github.com/zhouzirui/tilawa/backend/internal/service/session"
	"github.com/zhouzirui/tilawa/backend/internal/service/speech"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger.Desugar())

	if envErr != nil {
		logger.Infow("no .env file loaded, using process environment", "error", envErr)
	}

	m := metrics.New("tilawa")
	catalog := recital.NewMemoryCatalog(recital.Seed())
	if _, ok := catalog.Find(cfg.Recital.DefaultLanguage); !ok {
		logger.Fatalw("DEFAULT_LANGUAGE is not a supported language", "language", cfg.Recital.DefaultLanguage)
	}

	keywords, err := turn.LoadKeywords(cfg.Recital.KeywordsFile)
	if err != nil {
		logger.Fatalw("failed to load feedback keywords", "file", cfg.Recital.KeywordsFile, "error", err)
	}

	generator, err := ai.New(ctx, cfg.AI, logger.Named("ai"))
	if err != nil {
		logger.Fatalw("failed to initialize reply generator", "provider", cfg.AI.Provider, "error", err)
	}
	logger.Infow("reply generator ready", "provider", cfg.AI.Provider)

	synth := speech.New(cfg.Speech, logger.Named("speech"))
	if _, nop := synth.(speech.NopSynthesizer); nop {
		logger.Warnw("speech credentials not configured, replies will be text only")
	}

	store := session.NewMemoryStore()
	sweeper := session.NewSweeper(store, cfg.Session.EvictAfter, cfg.Session.SweepInterval, logger.Named("sweeper"), m)
	go sweeper.Run(ctx)

	orch := recitalservice.NewOrchestrator(recitalservice.Deps{
		Store:       store,
		Catalog:     catalog,
		Classifier:  turn.NewClassifier(keywords),
		Generator:   generator,
		Synthesizer: synth,
		Logger:      logger.Named("recital"),
		Metrics:     m,
	}, recitalservice.Options{
		DefaultLanguage:   cfg.Recital.DefaultLanguage,
		GenerationTimeout: cfg.AI.Timeout,
		SynthesisTimeout:  cfg.Speech.Timeout,
	})

	router := handler.NewRouter(handler.Deps{
		Orchestrator: orch,
		Sessions:     store,
		Catalog:      catalog,
		Registry:     live.NewRegistry(m),
		Metrics:      m,
		Logger:       logger.Named("http"),
		CORSOrigins:  cfg.Server.CORSOrigins,
	})

	startServer(ctx, cfg.Server, router, logger)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, logger *zap.SugaredLogger) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Infow("tilawa backend listening", "addr", addr)
	if err := runServer(ctx, srv); err != nil {
		logger.Fatalw("server error", "error", err)
	}
	logger.Infow("server stopped")
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
