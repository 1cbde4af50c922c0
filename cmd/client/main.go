package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"paper-summarizer/internal/app"
	"paper-summarizer/internal/auth"
	"paper-summarizer/internal/cli"
	"paper-summarizer/internal/config"
	"paper-summarizer/internal/logger"
	"paper-summarizer/internal/repository/postgres"
	"paper-summarizer/internal/service/paperapi"
	"paper-summarizer/internal/state"
	"paper-summarizer/internal/storage"
)

func main() {
	os.Exit(run())
}

func run() int {
	fs := flag.NewFlagSet("paper-summarizer", flag.ContinueOnError)
	theme := fs.String("theme", string(state.ThemeDark), "color theme: light or dark")
	verbose := fs.Bool("v", false, "verbose logging")
	if err := fs.Parse(os.Args[1:]); err != nil {
		return 2
	}
	if *verbose {
		logger.SetLevel("debug")
	}
	if *theme != string(state.ThemeDark) && *theme != string(state.ThemeLight) {
		fmt.Fprintf(os.Stderr, "invalid theme %q, use light or dark\n", *theme)
		return 2
	}

	appConfig, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := postgres.NewPostgresDB(ctx, appConfig.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer database.Close()

	if appConfig.Database.RunMigrations {
		if err := database.RunMigrations(appConfig.Database.MigrationsPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to run migrations: %v\n", err)
			return 1
		}
	}

	authManager := auth.NewManager(
		auth.NewClient(appConfig.Supabase),
		auth.NewFileStore(appConfig.Session.FilePath),
		database,
	)

	store := state.NewStore()
	store.SetTheme(state.Theme(*theme))

	appCfg := app.NewConfig(
		database,
		storage.NewS3Storage(appConfig.Storage),
		paperapi.NewClient(appConfig.API),
		authManager,
		store,
		appConfig,
	)

	handlers := cli.NewHandlers(appCfg, os.Stdin, os.Stdout, os.Stderr)
	err = handlers.Run(ctx, fs.Args())
	handlers.Close()

	switch {
	case errors.Is(err, cli.ErrUsage):
		return 2
	case err != nil:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
