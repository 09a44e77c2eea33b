package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukerupert/larder/internal/auth"
	"github.com/dukerupert/larder/internal/config"
	"github.com/dukerupert/larder/internal/database"
	"github.com/dukerupert/larder/internal/logging"
	"github.com/dukerupert/larder/internal/retrieval"
	"github.com/dukerupert/larder/internal/server"
	"github.com/google/uuid"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	if len(os.Args) > 1 && os.Args[1] == "token" {
		if err := issueToken(cfg, os.Args[2:]); err != nil {
			logger.Error("issue token", "error", err)
			os.Exit(1)
		}
		return
	}

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	var cache retrieval.Cache
	memCache := retrieval.NewMemoryCache(cfg.CacheTTL)
	cache = memCache
	if cfg.RedisAddr != "" {
		rc, err := retrieval.NewRedisCache(cfg.RedisAddr, cfg.RedisPrefix, cfg.CacheTTL, logger)
		if err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer rc.Close()
		cache = rc
		memCache = nil
		logger.Info("retrieval cache", "backend", "redis", "addr", cfg.RedisAddr)
	} else {
		logger.Info("retrieval cache", "backend", "memory")
	}

	srv := server.New(db, cache, server.Options{
		JWTSecret:     cfg.JWTSecret,
		TokenTTL:      cfg.TokenTTL,
		StoreTimeout:  cfg.StoreTimeout,
		JoinRateLimit: cfg.JoinRateLimit,
	}, logger)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go prune(ctx, srv, memCache, logger)

	go func() {
		logger.Info("larder listening", "port", cfg.Port, "env", cfg.Env)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

// prune periodically drops expired rate limiter windows and, for the memory
// backend, expired cache entries.
func prune(ctx context.Context, srv *server.Server, memCache *retrieval.MemoryCache, logger *slog.Logger) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			srv.RateLimiter().Cleanup()
			if memCache != nil {
				if n := memCache.Prune(); n > 0 {
					logger.Debug("pruned retrieval cache", "entries", n)
				}
			}
		}
	}
}

// issueToken prints a bearer token for local testing: larder token [user-id] [email].
func issueToken(cfg *config.Config, args []string) error {
	userID := uuid.New()
	if len(args) > 0 {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("parse user id: %w", err)
		}
		userID = id
	}
	email := ""
	if len(args) > 1 {
		email = args[1]
	}

	tok, err := auth.NewVerifier(cfg.JWTSecret, cfg.TokenTTL).Issue(userID, email)
	if err != nil {
		return err
	}
	fmt.Println(tok)
	return nil
}
