// Package env loads dotenv files before configuration is read, so secrets
// like the OpenRouter key can live outside the config file.
package env

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Load reads .env and then .env.<APP_ENV> when APP_ENV is set, later files
// overriding earlier ones. Missing files are not an error; running purely
// off real environment variables is normal in CI.
func Load() {
	_ = godotenv.Load(".env")

	if appEnv := os.Getenv("APP_ENV"); appEnv != "" {
		_ = godotenv.Overload(fmt.Sprintf(".env.%s", appEnv))
	}
}

// MustGet returns the value of key or an error naming it. It exists so
// startup failures say which variable is missing instead of failing on the
// first API call.
func MustGet(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("required environment variable %s is not set", key)
	}
	return val, nil
}
