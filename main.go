package main

import (
	"bufio"
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

var jwtSecret []byte // loaded from env JWT_SECRET (fallback to dev default)

// appState is the process-wide snapshot container, set once in main.
var appState *AppState

func main() {
	// Auto-load ./.env if present (no external dependency) before reading vars
	loadDotEnv()
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "dev-insecure-secret-change" // development fallback
	}
	jwtSecret = []byte(secret)

	initLocalDB()
	appState = NewAppState(loadLocalSettings(), persistLocalSettings)

	// Initial pull in the background; the builtin admin carries the login
	// until the first reload lands or if the store is unreachable.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := appState.Reload(ctx); err != nil {
			log.Printf("initial sync failed: %v", err)
		}
	}()
	go periodicReload(syncInterval())

	if dir := os.Getenv("IMPORT_WATCH_DIR"); dir != "" {
		go func() {
			if err := watchImportDir(dir, appState); err != nil {
				log.Printf("import watcher stopped: %v", err)
			}
		}()
	}

	r := gin.Default()

	setupRoutes(r)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8081"
	}
	r.Run(":" + port)
}

func syncInterval() time.Duration {
	if v := os.Getenv("SYNC_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
		log.Printf("invalid SYNC_INTERVAL %q, using default", v)
	}
	return 5 * time.Minute
}

// periodicReload refreshes the snapshot on a fixed interval so external edits
// to the store show up without anyone pressing sync.
func periodicReload(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		if err := appState.Reload(ctx); err != nil {
			log.Printf("periodic sync failed: %v", err)
		}
		cancel()
	}
}

// loadDotEnv loads key=value pairs from a local .env file into the environment
// without overwriting variables that are already set. Lines starting with # are ignored.
func loadDotEnv() {
	path := ".env"
	if _, err := os.Stat(path); err != nil {
		return // no .env file
	}
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		// split on first '='
		if eq := strings.IndexByte(line, '='); eq > 0 {
			key := strings.TrimSpace(line[:eq])
			val := strings.TrimSpace(line[eq+1:])
			if _, exists := os.LookupEnv(key); !exists {
				_ = os.Setenv(key, val)
			}
		}
	}
}
