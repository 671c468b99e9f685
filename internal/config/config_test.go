package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/dln-labs/dln-ingest/internal/config"
)

func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		orig, had := os.LookupEnv(k)
		os.Unsetenv(k)
		t.Cleanup(func() {
			if had {
				os.Setenv(k, orig)
			} else {
				os.Unsetenv(k)
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t, "ENV", "DLN_PROGRAM_ID", "TARGET_TRANSACTIONS", "BUS_RETRY_DELAY_MS")

	cfg := config.Load()

	if cfg.Env != "development" {
		t.Fatalf("expected default env development, got %s", cfg.Env)
	}
	if !cfg.IsDevelopment() {
		t.Fatal("expected IsDevelopment true by default")
	}
	if cfg.TargetTxCount != 25000 {
		t.Fatalf("expected default target 25000, got %d", cfg.TargetTxCount)
	}
	if cfg.BusRetryDelay != 30*time.Second {
		t.Fatalf("expected default retry delay 30s, got %s", cfg.BusRetryDelay)
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t, "ENV", "DLN_PROGRAM_ID", "TARGET_TRANSACTIONS", "CHAIN_RPC_TIMEOUT_SEC", "BUS_RETRY_DELAY_MS")

	os.Setenv("ENV", "production")
	os.Setenv("DLN_PROGRAM_ID", "DLNexxEciFsv1wxDLwvSn4bJgqzjFEYXHQxTTfZzsMHM")
	os.Setenv("TARGET_TRANSACTIONS", "500")
	os.Setenv("CHAIN_RPC_TIMEOUT_SEC", "5")
	os.Setenv("BUS_RETRY_DELAY_MS", "1500")

	cfg := config.Load()

	if cfg.IsDevelopment() {
		t.Fatal("expected IsDevelopment false for ENV=production")
	}
	if cfg.ProgramID != "DLNexxEciFsv1wxDLwvSn4bJgqzjFEYXHQxTTfZzsMHM" {
		t.Fatalf("unexpected program id %s", cfg.ProgramID)
	}
	if cfg.TargetTxCount != 500 {
		t.Fatalf("expected target 500, got %d", cfg.TargetTxCount)
	}
	if cfg.RPCTimeout != 5*time.Second {
		t.Fatalf("expected rpc timeout 5s, got %s", cfg.RPCTimeout)
	}
	if cfg.BusRetryDelay != 1500*time.Millisecond {
		t.Fatalf("expected retry delay 1500ms (the _MS suffix), got %s", cfg.BusRetryDelay)
	}
}
