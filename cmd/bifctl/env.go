package main

import (
	"os"
	"strconv"
)

// Environment variables read by bifctl.
const (
	envLargeThreshold = "BIFCTL_LARGE_THRESHOLD"
	envCacheDir       = "BIFCTL_CACHE_DIR"
	envCacheEntries   = "BIFCTL_CACHE_ENTRIES"
)

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil && parsed >= 0 {
			return parsed
		}
	}
	return defaultValue
}
