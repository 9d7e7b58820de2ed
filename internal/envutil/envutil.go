package envutil

import (
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/dgellow/ortho-diary/internal/log"
)

// IsDev checks if we're running in development mode
// where security requirements can be relaxed for testing
func IsDev() bool {
	env := strings.ToLower(os.Getenv("ORTHO_DIARY_ENV"))
	return env == "development" || env == "dev"
}

// LoadDotEnv loads variables from the given files (".env" when none are
// given). Variables already set in the environment win. Missing files are
// not an error.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return err
		}
		log.LogDebugWithFields("envutil", "Loaded environment file", map[string]any{"file": f})
	}
	return nil
}

// FirstNonEmpty returns the value of the first set environment variable.
func FirstNonEmpty(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}
