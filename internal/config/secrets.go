package config

import (
	"os"
	"strings"
)

// GetSecret resolves a credential from, in order:
//  1. the environment variable itself (e.g. NAVER_CLIENT_SECRET)
//  2. the file named by NAME_FILE (e.g. NAVER_CLIENT_SECRET_FILE=/run/secrets/naver)
//  3. defaultValue
//
// File contents are trimmed so secrets written with a trailing newline work.
func GetSecret(envVar, defaultValue string) string {
	if value := os.Getenv(envVar); value != "" {
		return value
	}

	if value, ok := readSecretFile(os.Getenv(envVar + "_FILE")); ok {
		return value
	}

	return defaultValue
}

func readSecretFile(path string) (string, bool) {
	if path == "" {
		return "", false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	value := strings.TrimSpace(string(data))
	return value, value != ""
}
