// internal/config/environment.go
package config

import (
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	Port             int
	DBPath           string
	FetchConcurrency int

	// Reddit API credentials. The reddit adapter refuses to run
	// without both of these.
	RedditToken     string
	RedditUserAgent string
}

func GetConfig() Config {
	config := Config{
		Port:   8080, // default port
		DBPath: "data/newshound.db",
	}

	// Override with environment variables if present
	if port := os.Getenv("NEWSHOUND_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Port = p
		}
	}

	if dbPath := os.Getenv("NEWSHOUND_DB_PATH"); dbPath != "" {
		config.DBPath = dbPath
	}

	if n := os.Getenv("NEWSHOUND_FETCH_CONCURRENCY"); n != "" {
		if c, err := strconv.Atoi(n); err == nil {
			config.FetchConcurrency = c
		}
	}

	config.RedditToken = os.Getenv("NEWSHOUND_REDDIT_TOKEN")
	config.RedditUserAgent = os.Getenv("NEWSHOUND_REDDIT_USER_AGENT")

	return config
}

func (c Config) GetAddress() string {
	return fmt.Sprintf(":%d", c.Port)
}
