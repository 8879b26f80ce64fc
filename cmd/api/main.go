package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-redacao-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-redacao-go/internal/config"
	"github.com/ovaphlow/pitchfork/service-redacao-go/internal/essay"
	essayrepo "github.com/ovaphlow/pitchfork/service-redacao-go/internal/essay/repo"
	"github.com/ovaphlow/pitchfork/service-redacao-go/internal/identity"
	"github.com/ovaphlow/pitchfork/service-redacao-go/internal/router"
	"github.com/ovaphlow/pitchfork/service-redacao-go/internal/session"
	sessionrepo "github.com/ovaphlow/pitchfork/service-redacao-go/internal/session/repo"
	"github.com/ovaphlow/pitchfork/service-redacao-go/internal/user"
	userrepo "github.com/ovaphlow/pitchfork/service-redacao-go/internal/user/repo"
	"github.com/ovaphlow/pitchfork/service-redacao-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-redacao-go/pkg/utilities"
)

func main() {
	// load .env file if present so os.Getenv picks values from it
	// this is best-effort: if no .env exists, continue (use defaults or real env)
	_ = godotenv.Load()

	// init logger
	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Info("starting service-redacao-go")

	appCfg, err := config.FromEnv()
	if err != nil {
		sugar.Fatalf("config: %v", err)
	}
	if appCfg.EphemeralSecret {
		sugar.Warn("SESSION_SECRET not set; session tokens will not survive a restart")
	}

	// init db
	cfg := database.ConfigFromEnv()
	sqlDB, err := database.Connect(cfg)
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	defer sqlDB.Close()

	if cfg.AutoMigrate {
		if err := database.Migrate(sqlDB); err != nil {
			sugar.Fatalf("migrate: %v", err)
		}
		if v, err := database.MigrationVersion(sqlDB); err == nil {
			sugar.Infow("schema ready", "version", v)
		}
	}

	// wrap with sqlx for convenience in repos/services
	sqlxDB := sqlx.NewDb(sqlDB, "postgres")
	defer sqlxDB.Close()

	// graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	users := user.NewUserService(userrepo.NewUserRepo(sqlxDB), user.BcryptHasher{Cost: appCfg.BcryptCost})
	essays := essay.NewEssayService(essayrepo.NewEssayRepo(sqlxDB), appCfg.DefaultProfessorID)

	sessions := sessionrepo.NewSessionRepo(sqlxDB)
	cache := session.NewCache(sessions, session.WithFallbackHasher(func(pw string) (string, error) {
		h, _, err := users.Hasher().Hash(pw)
		return h, err
	}))
	defer session.LogEvents(cache, sugar)()

	tokens, err := auth.NewTokenService(appCfg.SessionSecret, "service-redacao-go", appCfg.SessionTTL)
	if err != nil {
		sugar.Fatalf("token service: %v", err)
	}

	var google identity.GoogleVerifier
	if appCfg.GoogleClientID != "" {
		v, err := identity.NewGoogleVerifier(ctx, appCfg.GoogleClientID, appCfg.GoogleTimeout)
		if err != nil {
			// the server still serves password logins
			sugar.Warnw("google sign-in disabled", "err", err)
		} else {
			google = v
		}
	}
	resolver := identity.NewResolver(users, cache, tokens, google, sugar)

	go pruneSessions(ctx, sessions, appCfg.SessionTTL, sugar)

	// mount http server
	handler := router.RegisterRoutes(sugar, router.Handlers{
		Users:  user.NewHandler(users, sugar),
		Essays: essay.NewHandler(essays, sugar),
		Auth:   identity.NewHandler(resolver, sugar),
	})
	srv := &http.Server{
		Addr:              appCfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// run server in background
	go func() {
		sugar.Infow("listening", "addr", appCfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()

	<-ctx.Done()

	sugar.Info("shutting down")

	// give a short grace period for cleanup
	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// shutdown http server
	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}

	sugar.Info("goodbye")
}

// pruneSessions drops session entries older than ttl once an hour.
func pruneSessions(ctx context.Context, repo *sessionrepo.SessionRepo, ttl time.Duration, logger *zap.SugaredLogger) {
	t := time.NewTicker(time.Hour)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := repo.DeleteOlderThan(ctx, time.Now().Add(-ttl))
			if err != nil {
				logger.Warnw("prune sessions failed", "err", err)
				continue
			}
			if n > 0 {
				logger.Infow("pruned sessions", "count", n)
			}
		}
	}
}
