package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"duckpay/pkg/accounts"
	"duckpay/pkg/config"
	"duckpay/pkg/ledger"
	"duckpay/pkg/password"
	"duckpay/pkg/store"
	"duckpay/pkg/token"
)

// server holds everything the handlers need.
type server struct {
	cfg      *config.Config
	log      *logrus.Logger
	store    *store.Store
	accounts *accounts.Service
	ledger   *ledger.Service
	metrics  *metrics
}

func newServer(cfg *config.Config, db *gorm.DB, log *logrus.Logger) (*server, error) {
	st, err := store.New(db, log, store.WithCatalogTTL(cfg.PermissionCacheTTL))
	if err != nil {
		return nil, err
	}
	tokens := token.New([]byte(cfg.JWTSecret), cfg.AccessTokenTTL, token.WithAlgorithm(cfg.JWTAlgorithm))
	return &server{
		cfg:   cfg,
		log:   log,
		store: st,
		accounts: accounts.New(st, tokens, password.NewHasher(cfg.BcryptCost),
			accounts.WithLogger(log),
			accounts.WithRefreshTTL(cfg.RefreshTokenTTL)),
		ledger:  ledger.New(db, log),
		metrics: newMetrics(),
	}, nil
}

func newLogger(cfg *config.Config) *logrus.Logger {
	log := logrus.New()
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(lvl)
	} else {
		log.Warnf("unknown LOG_LEVEL %q, using info", cfg.LogLevel)
	}
	if cfg.LogFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	return log
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatal(err)
	}
	log := newLogger(cfg)
	if cfg.UsingDevSecret() {
		log.Warn("JWT_SECRET is not set, using the development secret")
	}
	gin.SetMode(cfg.GinMode)

	db, err := store.Open(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to connect database")
	}
	srv, err := newServer(cfg, db, log)
	if err != nil {
		log.WithError(err).Fatal("failed to set up store")
	}

	ctx := context.Background()
	// `duckpay migrate` runs AutoMigrate and seeding then exits.
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		srv.initDB(ctx, true)
		fmt.Println("migration and seeding completed")
		return
	}
	srv.initDB(ctx, cfg.AutoMigrate)

	r := srv.router()
	log.WithField("addr", cfg.ListenAddr).Info("listening")
	if err := r.Run(cfg.ListenAddr); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}
