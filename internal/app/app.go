package app

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"

	"sparkchat/backend/internal/api"
	"sparkchat/backend/internal/auth"
	"sparkchat/backend/internal/chat"
	"sparkchat/backend/internal/config"
	"sparkchat/backend/internal/database"
	"sparkchat/backend/internal/llm"
	"sparkchat/backend/internal/repository"
	"sparkchat/backend/internal/service"
)

// App bundles the long-lived resources so tests can construct the whole
// application in-process and close it down cleanly.
type App struct {
	DB     *sql.DB
	Redis  *redis.Client
	Server *http.Server
}

// NewApp wires every dependency in order: storage first, then services,
// then the HTTP surface.
func NewApp(cfg *config.Config) (*App, error) {
	db, err := database.InitDB(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("initializing database: %w", err)
	}
	slog.Info("Successfully connected to SQLite database.")

	rdb, err := database.NewRedis(cfg.RedisAddr)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	slog.Info("Successfully connected to Redis.")

	userRepo := repository.NewUserRepository(db)
	transcriptRepo := repository.NewTranscriptRepository(db)

	authService := auth.NewService(userRepo, rdb, cfg.SessionTTL)
	store := chat.NewStore(chat.NewRedisStorage(rdb))
	provider := llm.NewGeminiProvider(cfg.GeminiAPIURL, cfg.GeminiAPIKey, cfg.GeminiModel)
	chatService := service.NewChatService(store, transcriptRepo, provider)

	authHandler := api.NewAuthHandler(authService)
	chatHandler := api.NewChatHandler(chatService)
	router := api.NewRouter(authService, authHandler, chatHandler, cfg.StaticDir)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.AppPort),
		Handler:           router,
		ReadHeaderTimeout: 20 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return &App{DB: db, Redis: rdb, Server: server}, nil
}

// Close releases the app's long-lived resources.
func (a *App) Close() {
	if err := a.DB.Close(); err != nil {
		slog.Error("Failed to close database connection", "error", err)
	}
	if err := a.Redis.Close(); err != nil {
		slog.Error("Failed to close redis connection", "error", err)
	}
}

// Run is the process entry point behind main. It returns the exit code
// instead of calling os.Exit so deferred cleanup still runs.
func Run() int {
	cfg, err := config.LoadConfig()
	if err != nil {
		// slog is not yet configured, so use the default logger for this critical error.
		slog.Error("Failed to load configuration", "error", err)
		return 1
	}

	setupLogger(cfg.LogLevel)
	logConfigSource()

	if cfg.GeminiAPIKey == "" {
		slog.Warn("GEMINI_API_KEY is not set; every non-canned exchange will fail and fall back to the apology reply.")
	}

	app, err := NewApp(cfg)
	if err != nil {
		slog.Error("Failed to initialize application", "error", err)
		return 1
	}
	defer app.Close()

	slog.Info("Starting server", "port", cfg.AppPort)
	if err := app.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server failed", "error", err)
		return 1
	}

	return 0
}

func logConfigSource() {
	configFileUsed := viper.ConfigFileUsed()
	if configFileUsed != "" {
		slog.Info("Successfully loaded configuration from file.", "file", configFileUsed)
	} else {
		slog.Info("Configuration file not found. Using environment variables and defaults.")
	}
}

func setupLogger(logLevel string) {
	var level slog.Level
	switch strings.ToUpper(logLevel) {
	case "DEBUG":
		level = slog.LevelDebug
	case "WARN":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
}
