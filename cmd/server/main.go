package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Duval1703/chatbot/internal/api"
	"github.com/Duval1703/chatbot/internal/auth"
	"github.com/Duval1703/chatbot/internal/cache"
	"github.com/Duval1703/chatbot/internal/config"
	"github.com/Duval1703/chatbot/internal/core"
	"github.com/Duval1703/chatbot/internal/logger"
	"github.com/Duval1703/chatbot/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty, ServiceName: "medichat"})
	l := logger.L()

	dbStore, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		l.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer dbStore.Close()

	// The model is loaded once and shared by every request.
	engine := core.LoadEngine(context.Background(), core.EngineConfig{
		Backend:      cfg.LLMBackend,
		ModelPath:    cfg.ModelPath,
		ModelName:    cfg.ModelName,
		OllamaURL:    cfg.OllamaURL,
		GeminiAPIKey: cfg.GeminiAPIKey,
	})
	generator := core.NewResponseGenerator(engine)
	defer generator.Close()

	var translationCache core.TranslationCache = dbStore
	if cfg.TranslationCache == "redis" {
		redisCache, err := cache.NewRedisTranslationCache(cache.RedisConfig{
			Address:  cfg.RedisAddress,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, cfg.RedisPrefix)
		if err != nil {
			l.Fatal().Err(err).Msg("failed to initialize redis translation cache")
		}
		defer redisCache.Close()
		translationCache = redisCache
	}
	l.Info().Str("cache", cfg.TranslationCache).Msg("translation cache ready")

	httpClient := &http.Client{Timeout: 10 * time.Second}

	chatService := core.NewChatService(dbStore, generator)
	userService := core.NewUserService(dbStore, auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL))
	translationService := core.NewTranslationService(translationCache, httpClient, cfg.TranslationAPIURL)

	apiHandler := api.NewAPIHandler(chatService, userService, translationService, generator, dbStore)
	router := api.NewRouter(apiHandler, l)

	serverAddr := fmt.Sprintf(":%s", cfg.HTTPPort)

	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // local generation can be slow
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		l.Info().Str("addr", serverAddr).Bool("model_loaded", generator.ModelLoaded()).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Fatal().Err(err).Str("addr", serverAddr).Msg("could not listen")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	l.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		l.Error().Err(err).Msg("server forced to shutdown")
	}

	l.Info().Msg("server exiting gracefully")
}
