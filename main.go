package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"peoplepulse/internal/api"
	"peoplepulse/internal/auth"
	"peoplepulse/internal/certs"
	"peoplepulse/internal/config"
	"peoplepulse/internal/dashboard"
	"peoplepulse/internal/database"
	"peoplepulse/internal/remote"
	"peoplepulse/internal/session"
	"peoplepulse/internal/storage"
	"peoplepulse/internal/views"
)

const (
	janitorInterval = 5 * time.Minute
	sessionMaxIdle  = 30 * time.Minute
	auditRetention  = 90 * 24 * time.Hour
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize database
	log.Printf("Initializing database at %s", cfg.DBPath)
	db, err := database.Open(database.Config{Path: cfg.DBPath})
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("Using %s storage", cfg.Storage.Driver)
	store, closeStore, err := storage.Open(ctx, cfg.Storage, db)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer closeStore()
	if cfg.Storage.Secret == "" {
		log.Println("Warning: PEOPLEPULSE_STORAGE_SECRET not set, tokens are stored unencrypted")
	}

	client := remote.NewClient(cfg.APIBaseURL, cfg.HTTPTimeout)
	log.Printf("HR service at %s", client.BaseURL())

	auditRepo := database.NewAuditRepo(db)
	auditLogger := api.NewAuditLogger(auditRepo)

	sessions := session.NewManager(client, store, auditLogger)
	defer sessions.Close()

	csrf := auth.NewCSRFProtection()
	limiter := auth.DefaultRateLimiter()

	renderer, err := views.NewRenderer()
	if err != nil {
		log.Fatalf("Failed to parse templates: %v", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.Renderer = renderer

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	if len(cfg.AllowedOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:     cfg.AllowedOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost},
			AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, "X-CSRF-Token"},
			AllowCredentials: true,
		}))
	}

	handlers := api.NewHandlers(api.Deps{
		Sessions:       sessions,
		Loader:         dashboard.NewLoader(client),
		CSRF:           csrf,
		Limiter:        limiter,
		Audit:          auditLogger,
		AllowedOrigins: cfg.AllowedOrigins,
	})
	api.RegisterRoutes(e, handlers, auth.NewCookieStore(cookieSecret(cfg), cfg.SecureCookies))

	go runJanitor(ctx, db, auditRepo, sessions, csrf, limiter)

	go func() {
		addr := ":" + cfg.Port
		var err error
		if cfg.TLSDir != "" {
			certPath, keyPath, certErr := certs.EnsureCertificates(cfg.TLSDir)
			if certErr != nil {
				log.Fatalf("Failed to prepare TLS certificates: %v", certErr)
			}
			log.Printf("Starting PeoplePulse with HTTPS on port %s", cfg.Port)
			err = e.StartTLS(addr, certPath, keyPath)
		} else {
			log.Printf("Starting PeoplePulse on port %s", cfg.Port)
			err = e.Start(addr)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("Warning: shutdown: %v", err)
	}
	// Let running profile checks finish before Close cancels them
	if err := sessions.WaitSettled(shutdownCtx); err != nil {
		log.Printf("Warning: sessions still resolving at shutdown: %v", err)
	}
}

// cookieSecret returns the configured cookie signing key, or a random one.
// A random key logs every browser out on restart.
func cookieSecret(cfg *config.Config) []byte {
	if cfg.CookieSecret != "" {
		return []byte(cfg.CookieSecret)
	}
	log.Println("Warning: PEOPLEPULSE_COOKIE_SECRET not set, using a random key for this process")
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		log.Fatalf("Failed to generate cookie key: %v", err)
	}
	return key
}

// runJanitor periodically drops expired and idle state
func runJanitor(ctx context.Context, db *sql.DB, auditRepo *database.AuditRepo, sessions *session.Manager, csrf *auth.CSRFProtection, limiter *auth.RateLimiter) {
	storageRepo := database.NewStorageRepo(db)
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if n, err := storageRepo.DeleteExpired(ctx); err != nil {
			log.Printf("janitor: delete expired storage: %v", err)
		} else if n > 0 {
			log.Printf("janitor: removed %d expired storage rows", n)
		}
		if n, err := auditRepo.DeleteOlderThan(ctx, time.Now().Add(-auditRetention)); err != nil {
			log.Printf("janitor: delete old audit logs: %v", err)
		} else if n > 0 {
			log.Printf("janitor: removed %d audit logs", n)
		}
		if n := sessions.Prune(sessionMaxIdle); n > 0 {
			log.Printf("janitor: pruned %d idle sessions", n)
		}
		csrf.Cleanup()
		limiter.Cleanup()
	}
}
