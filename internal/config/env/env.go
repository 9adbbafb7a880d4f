package env

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// Dir is where per-environment .env files live, relative to the working directory.
const Dir = "internal/config/env"

// Candidates returns the .env files to try, most specific first.
// An explicit file always wins over the ENV based lookup.
func Candidates(explicit string) []string {
	var files []string
	if explicit != "" {
		files = append(files, explicit)
	}

	envName := os.Getenv("ENV")
	if envName == "" {
		envName = "development"
	}
	files = append(files,
		filepath.Join(Dir, fmt.Sprintf(".env.%s", envName)),
		".env",
	)
	return files
}

// LoadEnv loads the first .env file found among the candidates.
// Variables already present in the process environment are never overwritten.
// It returns the path that was loaded, or "" when none existed.
func LoadEnv(explicit string) (string, error) {
	for _, path := range Candidates(explicit) {
		err := godotenv.Load(path)
		if err == nil {
			return path, nil
		}
		if errors.Is(err, fs.ErrNotExist) {
			if path == explicit {
				return "", fmt.Errorf("env file %s not found", path)
			}
			continue
		}
		return "", fmt.Errorf("error loading env file %s: %w", path, err)
	}
	return "", nil
}
