package main

import (
	"database/sql"
	"log"
	"os"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/stanstork/sponsordesk-api/internal/config"
	"github.com/stanstork/sponsordesk-api/internal/migration"
)

var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "sponsordesk",
	Short: "Campaign tracker API for creator brand sponsorships",
	Long: `sponsordesk serves the campaign, finance and notification API and runs
the notification scheduler. Running it without a subcommand starts the server.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
	RunE:          runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().StringVar(&scanEmail, "email", "", "only scan the owner with this email")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and the notification scheduler",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger := bootstrap()
		return migration.RunMigrations(cfg.DatabaseURL, logger)
	},
}

// newLogger sets up structured, level-based logging.
func newLogger(level string) zerolog.Logger {
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	logger := zerolog.New(consoleWriter).With().Timestamp().Logger()

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.SetFlags(0)
	log.SetOutput(logger)
	return logger
}

// bootstrap loads configuration and wires the shared loggers.
func bootstrap() (*config.Config, zerolog.Logger) {
	cfg := config.Load()
	logger := newLogger(cfg.LogLevel)
	goose.SetLogger(migration.NewGooseAdapter(logger))
	return cfg, logger
}

func openDB(cfg *config.Config, logger zerolog.Logger) *sql.DB {
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to the database")
	}
	if err := db.Ping(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to ping database")
	}
	return db
}
