package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/hackgods/medical-appointment-scheduler/internal/appointment"
	"github.com/hackgods/medical-appointment-scheduler/internal/auth"
	"github.com/hackgods/medical-appointment-scheduler/internal/config"
	"github.com/hackgods/medical-appointment-scheduler/internal/db"
	"github.com/hackgods/medical-appointment-scheduler/internal/directory"
	"github.com/hackgods/medical-appointment-scheduler/internal/logging"
)

func main() {
	doctors := flag.Int("doctors", 20, "number of doctors to create")
	patients := flag.Int("patients", 500, "number of patients to create")
	seed := flag.Uint64("seed", 0, "gofakeit seed, 0 for random")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.Bootstrap().Fatal().Err(err).Msg("config load error")
	}
	logger := logging.New(cfg.Env, cfg.LogLevel)

	if cfg.StorageBackend != config.StoragePostgres {
		logger.Fatal().Str("storage", cfg.StorageBackend).Msg("seed only targets the postgres backend")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, db.PoolConfig{DSN: cfg.PostgresDSN})
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		logger.Fatal().Err(err).Msg("apply schema")
	}

	logger.Info().Int("doctors", *doctors).Int("patients", *patients).Msg("seed starting")

	dir := directory.Generate(gofakeit.New(*seed), *doctors, *patients)
	if err := directory.Load(ctx, appointment.NewPgRepository(pool), dir); err != nil {
		logger.Fatal().Err(err).Msg("seed directory")
	}

	logger.Info().Msg("seed complete")

	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL)
	if len(dir.Doctors) > 0 {
		d := dir.Doctors[0]
		token, err := issuer.Issue(auth.Identity{Subject: d.ID, Role: auth.RoleDoctor, Email: d.Email})
		if err != nil {
			logger.Fatal().Err(err).Msg("issue doctor token")
		}
		fmt.Printf("doctor  %s <%s>\n  %s\n", d.FullName, d.Email, token)
	}
	if len(dir.Patients) > 0 {
		p := dir.Patients[0]
		token, err := issuer.Issue(auth.Identity{Subject: p.ID, Role: auth.RolePatient, Email: p.Email})
		if err != nil {
			logger.Fatal().Err(err).Msg("issue patient token")
		}
		fmt.Printf("patient %s %s <%s>\n  %s\n", p.FirstName, p.LastName, p.Email, token)
	}
}
