package main

import (
	"os"
	"os/signal"
	"syscall"

	"cadenza/internal/config"
	"cadenza/internal/library"
	"cadenza/internal/player"
	"cadenza/internal/scanner"
	"cadenza/internal/store"
	"cadenza/pkg/models"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	// Initialize basic logger for startup
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	// Optional .env for overriding the config path
	_ = godotenv.Load()
	configPath := os.Getenv("CADENZA_CONFIG")
	if configPath == "" {
		configPath = "./config.toml"
	}

	// Load configuration
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.WithError(err).Fatal("Error loading configuration")
	}

	configureLogging(logger, cfg.Logging)

	// Check if music directory exists
	if _, err := os.Stat(cfg.Library.Path); os.IsNotExist(err) {
		logger.WithField("library_path", cfg.Library.Path).Fatal("Music directory does not exist. Please create it and add your music files.")
	}

	// Initialize store; failure here is fatal, the app cannot run without it
	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		logger.WithError(err).Fatal("Error initializing store")
	}
	defer st.Close()

	lib := library.New(st)

	// Playback queue persists its position through the library settings
	queue := player.NewQueue(lib)

	// Restore the last played song, paused, so the user can pick up where
	// they left off
	if settings, err := lib.GetSettings(); err == nil && settings.CurrentSongID != 0 {
		if song, err := lib.GetSong(settings.CurrentSongID); err == nil {
			queue.PlaySong(song, []models.Song{song})
			queue.Pause()
			logger.WithField("title", song.Title).Info("Restored last played song")
		}
	}

	// Scan the music library
	extractor := scanner.NewExtractor(cfg.Library.SupportedFormats)
	scan := scanner.NewScanner(lib, extractor, cfg.Library.Path)

	if cfg.Library.ScanOnStartup {
		inserted, err := scan.Scan()
		if err != nil {
			logger.WithError(err).Fatal("Error scanning music library")
		}
		if inserted == 0 {
			songs, err := lib.GetAllSongs()
			if err != nil {
				logger.WithError(err).Warn("Could not get song count")
			} else if len(songs) == 0 {
				logger.WithField("supported_formats", cfg.Library.SupportedFormats).Warn("No supported audio files found in music directory")
			}
		}
	}

	// Keep the library in sync with the filesystem
	var watcher *scanner.Watcher
	if cfg.Library.WatchForChanges {
		watcher, err = scan.StartWatcher()
		if err != nil {
			logger.WithError(err).Fatal("Error starting file watcher")
		}
	}

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	logger.Info("Received shutdown signal")
	if watcher != nil {
		watcher.Stop()
	}
}

// configureLogging applies the configured level, format and optional log file.
func configureLogging(logger *logrus.Logger, cfg config.LoggingConfig) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	if cfg.File != "" {
		file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			logger.WithError(err).Warn("Failed to open log file, logging to stderr")
			return
		}
		logger.SetOutput(file)
	}
}
