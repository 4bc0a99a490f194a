// Package config loads the bridge's environment configuration. A .env file
// in the working directory is honored when present; real environment
// variables win.
package config

import (
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	// BridgeAddr is the client protocol listener.
	BridgeAddr string
	// PictureAddr is the one-shot picture ingestion listener.
	PictureAddr string
	// EngineAddr is where the game engine accepts command connections.
	EngineAddr string
	// HTTPAddr serves /healthz and /status.
	HTTPAddr string
	// LogLevel is a zap level string: debug, info, warn, error.
	LogLevel string
}

func Load() Config {
	// missing .env is fine, env vars alone work
	_ = godotenv.Load()

	return Config{
		BridgeAddr:  getenv("BRIDGE_ADDR", ":41314"),
		PictureAddr: getenv("PICTURE_ADDR", ":41315"),
		EngineAddr:  getenv("ENGINE_ADDR", "127.0.0.1:41330"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),
		LogLevel:    getenv("LOG_LEVEL", "info"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
