package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	server "aqi_relay/internal/adapters/http_server"
	"aqi_relay/internal/adapters/observability"
	redisad "aqi_relay/internal/adapters/redis"
	"aqi_relay/internal/adapters/waqi"
	"aqi_relay/internal/app"
	"aqi_relay/internal/domain"
	"aqi_relay/internal/shared"
	mysqlrepo "aqi_relay/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	client, err := waqi.New(cfg.AQIBase, cfg.AQIToken, cfg.UpstreamTimeout)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize WAQI client")
	}

	// optional audit log
	var audit domain.LookupLog
	var db *sql.DB
	if cfg.MySQLDSN != "" {
		db, err = sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("sql.Open failed")
		}
		if err := db.Ping(); err != nil {
			log.Fatal().Err(err).Msg("db.Ping failed")
		}
		log.Info().Msg("database connection ok")
		audit = mysqlrepo.New(db)
	}

	// optional popularity counter
	var popular domain.Popularity
	var pop *redisad.Popular
	if cfg.RedisAddr != "" {
		pop = redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := pop.Ping(ctx)
		cancel()
		if err != nil {
			log.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("redis ping failed")
		}
		log.Info().Msg("redis connection ok")
		popular = pop
	}

	lookups := app.NewLookupService(client, audit, popular)

	// http
	srv := server.New(cfg.RequestTimeout)
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{L: lookups, TranslateErrors: cfg.TranslateErrors})

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Mux(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		log.Info().Msg("shutting down")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("server shutdown failed")
		}
		if pop != nil {
			if err := pop.Close(); err != nil {
				log.Error().Err(err).Msg("redis close failed")
			}
		}
		if db != nil {
			if err := db.Close(); err != nil {
				log.Error().Err(err).Msg("db close failed")
			}
		}
	}()

	log.Info().Str("addr", cfg.HTTPAddr).Str("upstream", cfg.AQIBase).Msg("API listening")
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
	<-done
}
