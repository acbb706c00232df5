package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hackgods/medical-appointment-scheduler/internal/api"
	"github.com/hackgods/medical-appointment-scheduler/internal/appointment"
	"github.com/hackgods/medical-appointment-scheduler/internal/auth"
	"github.com/hackgods/medical-appointment-scheduler/internal/clinical"
	"github.com/hackgods/medical-appointment-scheduler/internal/config"
	"github.com/hackgods/medical-appointment-scheduler/internal/db"
	"github.com/hackgods/medical-appointment-scheduler/internal/directory"
	"github.com/hackgods/medical-appointment-scheduler/internal/logging"
	redisclient "github.com/hackgods/medical-appointment-scheduler/internal/redis"
)

const version = "0.1.0"

type storeRepository interface {
	appointment.Repository
	clinical.Registry
	directory.Writer
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Bootstrap().Fatal().Err(err).Msg("config load error")
	}

	logger := logging.New(cfg.Env, cfg.LogLevel)
	logger.Info().
		Str("env", cfg.Env).
		Str("http_port", cfg.HTTPPort).
		Str("storage", cfg.StorageBackend).
		Str("lock", cfg.LockBackend).
		Msg("api-server starting up")

	policy, err := appointment.ParsePastDatePolicy(cfg.PastDatePolicy)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid PAST_DATE_POLICY")
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		pgPool      *pgxpool.Pool
		repo        storeRepository
		clinicalRep clinical.Repository
	)

	switch cfg.StorageBackend {
	case config.StoragePostgres:
		pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
		pgPool, err = db.ConnectPostgres(pgCtx, db.PoolConfig{DSN: cfg.PostgresDSN})
		if err == nil {
			err = db.Migrate(pgCtx, pgPool)
		}
		cancelPg()
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres setup error")
		}
		defer pgPool.Close()
		logger.Info().Msg("connected to Postgres, schema applied")

		repo = appointment.NewPgRepository(pgPool)
		clinicalRep = clinical.NewPgRepository(pgPool)

	case config.StorageMemory:
		mem := appointment.NewMemoryRepository()
		dir := directory.Generate(gofakeit.New(0), cfg.DemoDoctors, cfg.DemoPatients)
		if err := directory.Load(rootCtx, mem, dir); err != nil {
			logger.Fatal().Err(err).Msg("load demo directory")
		}
		logDemoTokens(logger, cfg, dir)

		repo = mem
		clinicalRep = clinical.NewMemoryRepository()
	}

	var (
		rdb    *redis.Client
		locker redisclient.Locker
	)
	if cfg.LockBackend == config.LockRedis {
		rdb, err = redisclient.NewRedisClient(rootCtx, redisclient.ClientConfig{
			Addr:     cfg.RedisAddr,
			Username: cfg.RedisUsername,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connection error")
		}
		defer func() {
			if err := rdb.Close(); err != nil {
				logger.Error().Err(err).Msg("error closing redis")
			}
		}()
		locker = redisclient.NewRedisDoctorDayLocker(rdb, cfg.LockTTL, cfg.LockWait)
		logger.Info().Msg("connected to Redis")
	} else {
		locker = redisclient.NewNopLocker()
	}

	appointments := appointment.NewService(repo, locker, appointment.ServiceConfig{
		StoreTimeout:   cfg.StoreTimeout,
		PastDatePolicy: policy,
	})
	records := clinical.NewService(clinicalRep, repo, nil)

	router := api.NewRouter(api.RouterConfig{
		Logger:       logger,
		Appointments: appointments,
		Clinical:     records,
		Verifier:     auth.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer),
		PgPool:       pgPool,
		Redis:        rdb,
		Env:          cfg.Env,
		Version:      version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
			stop()
		}
	}()

	<-rootCtx.Done()
	logger.Info().Msg("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		os.Exit(1)
	}
	logger.Info().Msg("api-server stopped")
}

// logDemoTokens prints one bearer token per demo identity so the memory
// backend can be exercised with curl.
func logDemoTokens(logger zerolog.Logger, cfg config.Config, dir directory.Directory) {
	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL)

	for _, d := range dir.Doctors {
		token, err := issuer.Issue(auth.Identity{Subject: d.ID, Role: auth.RoleDoctor, Email: d.Email})
		if err != nil {
			logger.Error().Err(err).Msg("issue demo token")
			return
		}
		logger.Info().Str("doctor", d.FullName).Str("email", d.Email).Str("token", token).Msg("demo doctor")
	}
	for _, p := range dir.Patients {
		token, err := issuer.Issue(auth.Identity{Subject: p.ID, Role: auth.RolePatient, Email: p.Email})
		if err != nil {
			logger.Error().Err(err).Msg("issue demo token")
			return
		}
		logger.Info().Str("email", p.Email).Str("token", token).Msg("demo patient")
	}
}
