package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dashboard-platform/internal/apierr"
	"dashboard-platform/internal/audit"
	"dashboard-platform/internal/auth"
	"dashboard-platform/internal/authz"
	"dashboard-platform/internal/config"
	"dashboard-platform/internal/repository"
	"dashboard-platform/internal/store"
	"dashboard-platform/pkg/logger"
	"dashboard-platform/pkg/utils"

	"github.com/gin-gonic/gin"
)

// deps are the process-wide collaborators handed to the router. Nothing here
// is per-request; tenant scope is built per request by the middleware.
type deps struct {
	log        *slog.Logger
	store      store.Store
	authorizer *authz.Authorizer
	tokens     *auth.Manager
	deny       auth.Denylist
	audit      *audit.Service
	db         *sql.DB
	bodyLimit  int64
}

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.Auth.UsingDevSecret {
		log.Warn("JWT_SECRET not set; using development secret", "env", cfg.App.Env)
	}

	tokens, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	d := deps{log: log, tokens: tokens, bodyLimit: cfg.Tenancy.BodyTenantLimitBytes}

	switch cfg.Store.Driver {
	case config.StoreDriverMemory:
		log.Warn("using in-memory record store; data is lost on restart")
		d.store = store.NewMemoryStore()
		d.audit = audit.NewService(audit.NewMemoryRepo())
	default:
		db, err := utils.OpenPostgres(rootCtx, cfg.PostgresDSN(), utils.PoolConfig{MaxConns: cfg.DB.MaxConns})
		if err != nil {
			log.Error("postgres init failed", "err", err)
			os.Exit(1)
		}
		defer db.Close()

		pg := store.NewPostgresStore(db)
		auditRepo := audit.NewPostgresRepo(db)
		if err := pg.EnsureSchema(rootCtx); err != nil {
			log.Error("record schema failed", "err", err)
			os.Exit(1)
		}
		if err := auditRepo.EnsureSchema(rootCtx); err != nil {
			log.Error("audit schema failed", "err", err)
			os.Exit(1)
		}
		d.db, d.store = db, pg
		d.audit = audit.NewService(auditRepo)
	}

	if addr := cfg.RedisAddr(); addr != "" {
		rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{
			Addr:     addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Error("redis init failed", "err", err)
			os.Exit(1)
		}
		defer rdb.Close()
		d.deny = auth.NewRedisDenylist(rdb)
	} else {
		log.Warn("REDIS_HOST not set; token revocation is process-local")
		d.deny = auth.NewMemoryDenylist()
	}

	d.authorizer = authz.NewAuthorizer(repository.NewMembershipDirectory(d.store))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           newRouter(d),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env, "store", cfg.Store.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}

func newRouter(d deps) *gin.Engine {
	r := gin.New()
	r.Use(logger.Middleware(d.log))
	r.Use(apierr.Recovery())
	registerRoutes(r, d)
	return r
}
