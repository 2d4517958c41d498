package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	originalEnv := os.Getenv("HABRIDGE_CONFIG")
	defer os.Setenv("HABRIDGE_CONFIG", originalEnv)

	os.Setenv("HABRIDGE_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_MissingHubToken verifies run fails when no hub token is configured.
func TestRun_MissingHubToken(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")

	configContent := `
hub:
  url: "http://127.0.0.1:8123"
  token: ""

security:
  api_keys:
    - "test-key"

logging:
  level: error
  format: text
  output: stdout
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	originalEnv := os.Getenv("HABRIDGE_CONFIG")
	defer os.Setenv("HABRIDGE_CONFIG", originalEnv)
	os.Setenv("HABRIDGE_CONFIG", configPath)

	// Make sure the environment does not sneak a token in.
	originalToken := os.Getenv("HABRIDGE_HUB_TOKEN")
	defer os.Setenv("HABRIDGE_HUB_TOKEN", originalToken)
	os.Unsetenv("HABRIDGE_HUB_TOKEN")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail without a hub token")
	}
}

// TestGetConfigPath_Default verifies default config path.
func TestGetConfigPath_Default(t *testing.T) {
	originalEnv := os.Getenv("HABRIDGE_CONFIG")
	defer os.Setenv("HABRIDGE_CONFIG", originalEnv)

	os.Unsetenv("HABRIDGE_CONFIG")

	if path := getConfigPath(); path != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", path, defaultConfigPath)
	}
}

// TestGetConfigPath_EnvOverride verifies environment variable override.
func TestGetConfigPath_EnvOverride(t *testing.T) {
	originalEnv := os.Getenv("HABRIDGE_CONFIG")
	defer os.Setenv("HABRIDGE_CONFIG", originalEnv)

	expected := "/custom/path/config.yaml"
	os.Setenv("HABRIDGE_CONFIG", expected)

	if path := getConfigPath(); path != expected {
		t.Errorf("getConfigPath() = %q, want %q", path, expected)
	}
}
