package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	os.Setenv("OPENROUTER_API_KEY", "test_api_key")
	os.Setenv("MODEL", "test_model")
	os.Setenv("ENABLE_FILE_LOGGING", "true")
	os.Setenv("HOTKEY", "Ctrl+Shift+G")

	defer func() {
		os.Unsetenv("OPENROUTER_API_KEY")
		os.Unsetenv("MODEL")
		os.Unsetenv("ENABLE_FILE_LOGGING")
		os.Unsetenv("HOTKEY")
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.APIKey != "test_api_key" {
		t.Errorf("Expected APIKey to be 'test_api_key', got '%s'", cfg.APIKey)
	}
	if cfg.Model != "test_model" {
		t.Errorf("Expected Model to be 'test_model', got '%s'", cfg.Model)
	}
	if !cfg.EnableFileLogging {
		t.Errorf("Expected EnableFileLogging to be true, got %v", cfg.EnableFileLogging)
	}
	if cfg.Hotkey != "Ctrl+Shift+G" {
		t.Errorf("Expected Hotkey to be 'Ctrl+Shift+G', got '%s'", cfg.Hotkey)
	}
}

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"POLL_INTERVAL_SEC", "FUZZY_CONFIDENCE", "SELECTION_CONFIDENCE", "UNDERSIZED_RETRIES", "MIN_BOX_SIZE"} {
		os.Unsetenv(key)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.PollIntervalSec != 3 {
		t.Errorf("Expected default poll interval 3, got %d", cfg.PollIntervalSec)
	}
	if cfg.FuzzyConfidence != 0.6 {
		t.Errorf("Expected default fuzzy confidence 0.6, got %v", cfg.FuzzyConfidence)
	}
	if cfg.SelectionConfidence != 0.6 {
		t.Errorf("Expected default selection confidence 0.6, got %v", cfg.SelectionConfidence)
	}
	if cfg.UndersizedRetries != 1 {
		t.Errorf("Expected default undersized retries 1, got %d", cfg.UndersizedRetries)
	}
	if cfg.MinBoxSize != 12 {
		t.Errorf("Expected default min box size 12, got %d", cfg.MinBoxSize)
	}
}

func TestLoadThresholdOverrides(t *testing.T) {
	os.Setenv("FUZZY_CONFIDENCE", "0.5")
	os.Setenv("SELECTION_CONFIDENCE", "0.8")
	os.Setenv("UNDERSIZED_RETRIES", "2")
	defer func() {
		os.Unsetenv("FUZZY_CONFIDENCE")
		os.Unsetenv("SELECTION_CONFIDENCE")
		os.Unsetenv("UNDERSIZED_RETRIES")
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.FuzzyConfidence != 0.5 {
		t.Errorf("Expected fuzzy confidence 0.5, got %v", cfg.FuzzyConfidence)
	}
	if cfg.SelectionConfidence != 0.8 {
		t.Errorf("Expected selection confidence 0.8, got %v", cfg.SelectionConfidence)
	}
	if cfg.UndersizedRetries != 2 {
		t.Errorf("Expected undersized retries 2, got %d", cfg.UndersizedRetries)
	}
}

func TestAPIKeyFromSecretFile(t *testing.T) {
	keyFile := filepath.Join(t.TempDir(), "openrouter")
	if err := os.WriteFile(keyFile, []byte("file_key\n"), 0o600); err != nil {
		t.Fatalf("Failed to write key file: %v", err)
	}
	os.Setenv("OPENROUTER_API_KEY", "env_key")
	defer os.Unsetenv("OPENROUTER_API_KEY")

	cfg, err := LoadWithOptions(LoadOptions{APIKeyPathOverride: keyFile})
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.APIKey != "file_key" {
		t.Errorf("Expected key from secret file, got '%s'", cfg.APIKey)
	}
	if cfg.APIKeyPath != keyFile {
		t.Errorf("Expected key path '%s', got '%s'", keyFile, cfg.APIKeyPath)
	}
}

func TestAPIKeyEnvFallback(t *testing.T) {
	os.Setenv("OPENROUTER_API_KEY", "env_key")
	defer os.Unsetenv("OPENROUTER_API_KEY")

	missing := filepath.Join(t.TempDir(), "does-not-exist")
	cfg, err := LoadWithOptions(LoadOptions{APIKeyPathOverride: missing})
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.APIKey != "env_key" {
		t.Errorf("Expected env fallback key, got '%s'", cfg.APIKey)
	}
}

func TestFloatEnvRejectsOutOfRange(t *testing.T) {
	os.Setenv("FUZZY_CONFIDENCE", "1.5")
	defer os.Unsetenv("FUZZY_CONFIDENCE")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.FuzzyConfidence != 0.6 {
		t.Errorf("Expected out-of-range value to fall back to 0.6, got %v", cfg.FuzzyConfidence)
	}
}
