package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/viewdex/internal/auth"
	"github.com/kailas-cloud/viewdex/internal/config"
	chiTransport "github.com/kailas-cloud/viewdex/internal/transport/chi"
	openaiDraft "github.com/kailas-cloud/viewdex/internal/transport/openai"
	draftuc "github.com/kailas-cloud/viewdex/internal/usecase/draft"
	healthuc "github.com/kailas-cloud/viewdex/internal/usecase/health"
	"github.com/kailas-cloud/viewdex/internal/version"
)

func serve(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	logger.Info("Starting viewdex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("views_file", cfg.Catalog.ViewsFile),
	)

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	logger.Info("Catalog loaded", zap.Strings("entities", a.entityNames()))

	deps, err := buildDeps(a)
	if err != nil {
		return err
	}
	server := chiTransport.NewServer(deps, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Handler(),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Received shutdown signal")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Error during shutdown", zap.Error(err))
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Server stopped gracefully")
	return nil
}

// buildDeps assembles health, drafting and authentication around the search service.
func buildDeps(a *app) (chiTransport.Deps, error) {
	cfg := a.cfg

	// Pass nil interfaces (not typed nil pointers) for absent components.
	// Go gotcha: (*valkey.Store)(nil) wrapped in health.Pinger != nil.
	var dbPinger, cachePinger healthuc.Pinger
	if a.exec != nil {
		dbPinger = a.exec
	}
	if a.cache != nil {
		cachePinger = a.cache
	}

	deps := chiTransport.Deps{
		Search:       a.search,
		Draft:        draftuc.New(nil, a.search, a.search.Limits(), a.logger),
		Health:       healthuc.New(dbPinger, cachePinger, a.entityNames()),
		RequiredRole: cfg.Access.RequiredRole,
		RefreshCookie: chiTransport.CookieConfig{
			Name:   cfg.Auth.RefreshCookie.Name,
			Path:   cfg.Auth.RefreshCookie.Path,
			Secure: cfg.Auth.RefreshCookie.Secure,
		},
		RateLimit: chiTransport.RateLimitConfig{
			RPS:   cfg.RateLimit.RPS,
			Burst: cfg.RateLimit.Burst,
		},
	}

	if cfg.Draft.Enabled {
		drafter := openaiDraft.NewDrafter(&openaiDraft.Config{
			APIKey:  cfg.Draft.APIKey,
			BaseURL: cfg.Draft.BaseURL,
			Model:   cfg.Draft.Model,
			User:    "viewdex",
			Logger:  a.logger,
		})
		deps.Draft = draftuc.New(drafter, a.search, a.search.Limits(), a.logger)
		a.logger.Info("Filter drafting enabled", zap.String("model", cfg.Draft.Model))
	}

	var tokens *auth.TokenService
	if cfg.Auth.SignInEnabled() {
		var err error
		tokens, err = auth.NewTokenService(auth.TokenConfig{
			AccessSecret:  []byte(cfg.Auth.SessionSecret),
			RefreshSecret: []byte(cfg.Auth.RefreshSecret),
			Issuer:        cfg.Auth.Issuer,
			Audience:      cfg.Auth.Audience,
			AccessTTL:     time.Duration(cfg.Auth.AccessTTLSec) * time.Second,
			RefreshTTL:    time.Duration(cfg.Auth.RefreshTTLSec) * time.Second,
		})
		if err != nil {
			return chiTransport.Deps{}, fmt.Errorf("failed to create token service: %w", err)
		}
		google, err := auth.NewGoogleVerifier(cfg.Auth.GoogleClientID)
		if err != nil {
			return chiTransport.Deps{}, fmt.Errorf("failed to create google verifier: %w", err)
		}
		deps.Google = google
		deps.Tokens = tokens
		deps.Roles = auth.NewRoleBinder(auth.RoleBindings{
			Emails:   cfg.Auth.RoleBindings.Emails,
			Domains:  cfg.Auth.RoleBindings.Domains,
			Defaults: cfg.Auth.RoleBindings.Defaults,
		})
		a.logger.Info("Google sign-in enabled")
	}

	deps.Authenticator = auth.NewAuthenticator(cfg.Auth.APIKeys, tokens)
	if !deps.Authenticator.Enabled() {
		a.logger.Warn("Authentication disabled: every caller is anonymous")
	}
	return deps, nil
}
