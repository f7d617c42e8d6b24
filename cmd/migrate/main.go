package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/saeid-a/GymSessionsBack/internal/database"
	"github.com/saeid-a/GymSessionsBack/internal/logger"
)

func main() {
	logger.SetupDefault(os.Stdout, os.Getenv("LOG_LEVEL"))

	if err := godotenv.Load(); err != nil {
		log.Info().Msg("no .env file found")
	}

	dbUrl := os.Getenv("DB_URL")
	if dbUrl == "" {
		log.Fatal().Msg("DB_URL environment variable is required")
	}

	cmd := "up"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "up":
		if err := database.RunMigrations(dbUrl); err != nil {
			log.Fatal().Err(err).Msg("migration up failed")
		}
		log.Info().Msg("migration up successful")
	case "down":
		if err := database.RollbackMigrations(dbUrl); err != nil {
			log.Fatal().Err(err).Msg("migration down failed")
		}
		log.Info().Msg("migration down successful")
	default:
		log.Fatal().Str("command", cmd).Msg("unknown command, expected up or down")
	}
}
