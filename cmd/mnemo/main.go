package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gbrlmrll/mnemo/internal/chat"
	"github.com/gbrlmrll/mnemo/internal/config"
	"github.com/gbrlmrll/mnemo/internal/extract"
	"github.com/gbrlmrll/mnemo/internal/facts"
	"github.com/gbrlmrll/mnemo/internal/gemini"
	"github.com/gbrlmrll/mnemo/internal/history"
	"github.com/gbrlmrll/mnemo/internal/observability"
	"github.com/gbrlmrll/mnemo/internal/prompt"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if cfg.GeminiAPIKey == "" {
		log.Printf("GEMINI_API_KEY is not set; conversational triggers will answer with an offline notice")
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	store, err := facts.NewStore(ctx, cfg.DatabaseURL, cfg.UserFactsFile, cfg.BotFactsFile, metrics)
	if err != nil {
		log.Fatalf("fact store init failed: %v", err)
	}
	defer store.Close()
	if err := store.Load(ctx); err != nil {
		log.Fatalf("fact store load failed: %v", err)
	}

	window := history.NewWindow()
	client := gemini.NewHTTPClient(cfg.GeminiAPIURL, cfg.GeminiAPIKey)
	assembler := prompt.NewAssembler(cfg.Persona, cfg.MaxHistoryMessages, store, window)
	extractor := extract.NewExtractor(client, store, cfg.UserExtractPrompt, cfg.BotExtractPrompt, cfg.ExtractTimeout, metrics)
	bot := chat.NewBot(cfg, store, window, assembler, client, extractor, metrics)

	api := chat.NewServer(cfg, bot, metrics)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	go func() {
		log.Printf("mnemo listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	// Let in-flight extraction runs finish committing before the store closes.
	extractor.Wait()

	log.Printf("shutdown complete")
}
