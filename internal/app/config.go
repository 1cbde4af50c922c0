package app

import (
	"paper-summarizer/internal/auth"
	"paper-summarizer/internal/config"
	"paper-summarizer/internal/repository/db"
	"paper-summarizer/internal/service/paperapi"
	"paper-summarizer/internal/state"
	"paper-summarizer/internal/storage"
)

// Config holds all application dependencies and configuration
type Config struct {
	// Database interface for data persistence
	DB db.Database
	// Blob storage for uploaded files
	Storage storage.BlobStorage
	// Summarization and chat service
	API paperapi.PaperAPI
	// Sign-in state and remote auth
	Auth *auth.Manager
	// Application state shared by all orchestrators
	Store *state.Store
	// Centralized application configuration
	AppConfig *config.AppConfig
}

// NewConfig creates a new application configuration
func NewConfig(
	database db.Database,
	blobs storage.BlobStorage,
	api paperapi.PaperAPI,
	authManager *auth.Manager,
	store *state.Store,
	appConfig *config.AppConfig,
) *Config {
	return &Config{
		DB:        database,
		Storage:   blobs,
		API:       api,
		Auth:      authManager,
		Store:     store,
		AppConfig: appConfig,
	}
}
