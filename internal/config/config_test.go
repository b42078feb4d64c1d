package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Env != EnvLocal {
		t.Fatalf("expected env %q, got %q", EnvLocal, cfg.Env)
	}
	if cfg.OllamaModel != "llama3.2:3b" {
		t.Fatalf("unexpected model: %s", cfg.OllamaModel)
	}
	if cfg.MemoryBackend != BackendSQLite {
		t.Fatalf("unexpected backend: %s", cfg.MemoryBackend)
	}
	if cfg.MaxHistory != 20 {
		t.Fatalf("unexpected max history: %d", cfg.MaxHistory)
	}
	if cfg.ModelTimeout() != 60*time.Second {
		t.Fatalf("unexpected model timeout: %s", cfg.ModelTimeout())
	}
	if cfg.Addr() != "0.0.0.0:8000" {
		t.Fatalf("unexpected addr: %s", cfg.Addr())
	}
	if cfg.IsProd() {
		t.Fatal("local config reported as prod")
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("ENV", "prod")
	t.Setenv("OLLAMA_MODEL", "qwen2.5:7b")
	t.Setenv("OLLAMA_HOST", "http://ollama:11434")
	t.Setenv("MODEL_TIMEOUT_S", "120")
	t.Setenv("MEMORY_BACKEND", "memory")
	t.Setenv("MAX_HISTORY", "50")
	t.Setenv("PORT", "9000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !cfg.IsProd() {
		t.Fatal("expected prod environment")
	}
	if cfg.OllamaModel != "qwen2.5:7b" {
		t.Fatalf("unexpected model: %s", cfg.OllamaModel)
	}
	if cfg.OllamaHost != "http://ollama:11434" {
		t.Fatalf("unexpected host: %s", cfg.OllamaHost)
	}
	if cfg.ModelTimeout() != 2*time.Minute {
		t.Fatalf("unexpected timeout: %s", cfg.ModelTimeout())
	}
	if cfg.MemoryBackend != BackendMemory {
		t.Fatalf("unexpected backend: %s", cfg.MemoryBackend)
	}
	if cfg.MaxHistory != 50 {
		t.Fatalf("unexpected max history: %d", cfg.MaxHistory)
	}
	if cfg.Addr() != "0.0.0.0:9000" {
		t.Fatalf("unexpected addr: %s", cfg.Addr())
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("MEMORY_BACKEND", "postgres")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown backend")
	}
	t.Setenv("MEMORY_BACKEND", "sqlite")

	t.Setenv("ENV", "staging")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown environment")
	}
	t.Setenv("ENV", "local")

	t.Setenv("MAX_HISTORY", "0")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for non-positive history bound")
	}
}
