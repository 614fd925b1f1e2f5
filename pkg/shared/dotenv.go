package shared

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// EnvFileVariable names an explicit env file. When unset, the nearest .env
// between the working directory and the module root is used.
const EnvFileVariable = "DEVICE_ANCHOR_ENV_FILE"

var dotenvLoadOnce sync.Once

func loadDotEnvIfPresent() {
	dotenvLoadOnce.Do(func() {
		path := strings.TrimSpace(os.Getenv(EnvFileVariable))
		if path == "" {
			found, ok := findEnvFile()
			if !ok {
				return
			}
			path = found
		}
		_, _ = applyEnvFile(path)
	})
}

func findEnvFile() (string, bool) {
	current, err := os.Getwd()
	if err != nil {
		return "", false
	}
	for {
		candidate := filepath.Join(current, ".env")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}
		if _, err := os.Stat(filepath.Join(current, "go.mod")); err == nil {
			return "", false
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", false
		}
		current = parent
	}
}

// applyEnvFile sets every variable from path that the process environment
// does not already define, and returns how many were set.
func applyEnvFile(path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open env file: %w", err)
	}
	defer file.Close()

	values, err := parseEnvFile(file)
	if err != nil {
		return 0, fmt.Errorf("failed to read env file %s: %w", path, err)
	}

	applied := 0
	for key, value := range values {
		if _, set := os.LookupEnv(key); set {
			continue
		}
		if err := os.Setenv(key, value); err == nil {
			applied++
		}
	}
	return applied, nil
}

// parseEnvFile reads KEY=value lines. Lines that are blank, comments or
// malformed are skipped. Later assignments of a key win.
func parseEnvFile(reader io.Reader) (map[string]string, error) {
	values := map[string]string{}
	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))

		key, raw, found := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if !found || !isValidEnvKey(key) {
			continue
		}
		values[key] = envValue(strings.TrimSpace(raw))
	}
	return values, scanner.Err()
}

func envValue(raw string) string {
	if len(raw) >= 2 {
		switch {
		case raw[0] == '"' && raw[len(raw)-1] == '"':
			return strings.NewReplacer(`\n`, "\n", `\"`, `"`, `\\`, `\`).Replace(raw[1 : len(raw)-1])
		case raw[0] == '\'' && raw[len(raw)-1] == '\'':
			return raw[1 : len(raw)-1]
		}
	}
	if index := strings.Index(raw, " #"); index >= 0 {
		raw = strings.TrimSpace(raw[:index])
	}
	return raw
}

func isValidEnvKey(key string) bool {
	if key == "" {
		return false
	}
	for index, character := range key {
		switch {
		case character == '_',
			character >= 'A' && character <= 'Z',
			character >= 'a' && character <= 'z',
			index > 0 && character >= '0' && character <= '9':
		default:
			return false
		}
	}
	return true
}

func firstNonEmptyEnv(keys ...string) string {
	for _, key := range keys {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			return value
		}
	}
	return ""
}
