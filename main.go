package main

import (
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gamelobby/go-server/internal/config"
	"github.com/gamelobby/go-server/internal/directory"
	"github.com/gamelobby/go-server/internal/httpserver"
	"github.com/gamelobby/go-server/internal/lobby"
	"github.com/gamelobby/go-server/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	db, err := openDB(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	if err := migrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to apply migrations")
	}

	players := directory.NewSQLite(db)
	mgr := lobby.New(store.NewSQLite(db), players,
		lobby.WithAllowEmptyStart(cfg.AllowEmptyStart))

	srv := httpserver.New(mgr, players, cfg.ClientOrigin)
	log.Info().Str("port", cfg.Port).Str("db", cfg.DBPath).Msg("starting go-server")
	if err := srv.Start(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}
