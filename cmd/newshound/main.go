package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"newshound/internal/config"
	"newshound/internal/database"
	"newshound/internal/ingest"
	"newshound/internal/server"
)

var (
	// Version will be set during build
	Version = "dev"

	// Command line flags
	port    = flag.Int("port", 0, "Port to run the server on (default: 8080 or NEWSHOUND_PORT)")
	dbPath  = flag.String("db", "", "Path to database file (default: data/newshound.db or NEWSHOUND_DB_PATH)")
	version = flag.Bool("version", false, "Print version information")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("Newshound version %s\n", Version)
		return
	}

	// Setup logging
	logger := log.New(os.Stdout, "newshound: ", log.LstdFlags|log.Lshortfile)

	// Get base configuration from environment
	cfg := config.GetConfig()

	// Override with command line flags if provided
	if *port > 0 {
		cfg.Port = *port
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	logger.Printf("Starting Newshound v%s", Version)
	logger.Printf("Port: %d", cfg.Port)
	logger.Printf("Database: %s", cfg.DBPath)
	if cfg.RedditToken == "" || cfg.RedditUserAgent == "" {
		logger.Printf("Reddit credentials not set; reddit calls will be rejected")
	}

	// Create necessary directories
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		logger.Fatalf("Failed to create database directory: %v", err)
	}

	// Initialize database with optimized configuration
	db, err := database.NewDB(cfg.DBPath, database.DefaultConfig())
	if err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Initialize ingestion service
	ingestSvc := ingest.NewService(db, logger, cfg.RedditToken, cfg.RedditUserAgent, cfg.FetchConcurrency)

	// Initialize server
	srv := server.NewServer(db, logger, ingestSvc)

	logger.Printf("Starting server on port %d", cfg.Port)
	if err := srv.Start(cfg.GetAddress()); err != nil {
		logger.Fatalf("Server error: %v", err)
	}
}
