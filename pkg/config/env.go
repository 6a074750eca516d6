package config

import (
	"errors"
	"os"
	"path/filepath"
)

// EnvFileVar names the variable that overrides the .env file location.
const EnvFileVar = "FXENGINE_ENV_FILE"

// EnvFile returns the .env file to load: $FXENGINE_ENV_FILE, else ".env".
func EnvFile() string {
	return GetEnv(EnvFileVar, ".env")
}

// GetEnv retrieves an environment variable with a default value
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FindEnvFile resolves name against the working directory and its parents,
// so tests running inside a package directory find the repository's file.
// Absolute paths are only checked for existence.
func FindEnvFile(name string) (string, error) {
	if name == "" {
		name = ".env"
	}
	if filepath.IsAbs(name) {
		if _, err := os.Stat(name); err != nil {
			return "", err
		}
		return name, nil
	}
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", os.ErrNotExist
		}
		dir = parent
	}
}
