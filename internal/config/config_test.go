package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const validConfig = `
team:
  id: team042
  secret: hunter2
server:
  listenAddr: ":9000"
  requestTimeoutSeconds: 5
banks:
  - id: vbank
    name: VBANK
    baseUrl: https://vbank.example
  - id: abank
    name: ABANK
    baseUrl: https://abank.example
`

func TestLoadValidConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Team.ID != "team042" || cfg.Team.Secret != "hunter2" {
		t.Fatalf("unexpected team: %+v", cfg.Team)
	}
	if cfg.Server.ListenAddr != ":9000" {
		t.Fatalf("unexpected listen addr: %s", cfg.Server.ListenAddr)
	}
	if cfg.Server.RequestTimeout() != 5*time.Second {
		t.Fatalf("unexpected timeout: %v", cfg.Server.RequestTimeout())
	}
	if len(cfg.Banks) != 2 || cfg.Banks[0].ID != "vbank" {
		t.Fatalf("unexpected banks: %v", cfg.Banks)
	}
}

func TestEnvironmentOverridesCredentials(t *testing.T) {
	t.Setenv("OPEN_BANKINGAPI_TEAM_ID", "env-team")
	t.Setenv("OPEN_BANKINGAPI_PASSWORD", "env-secret")

	cfg, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Team.ID != "env-team" || cfg.Team.Secret != "env-secret" {
		t.Fatalf("environment did not override credentials: %+v", cfg.Team)
	}
}

func TestLoadRejectsMissingBanks(t *testing.T) {
	_, err := Load(writeConfig(t, `
team:
  id: team042
banks: []
`))
	if err == nil {
		t.Fatal("expected an error for empty bank list")
	}
}

func TestLoadRejectsBankWithoutBaseURL(t *testing.T) {
	_, err := Load(writeConfig(t, `
team:
  id: team042
banks:
  - id: vbank
    name: VBANK
`))
	if err == nil {
		t.Fatal("expected an error for bank without baseUrl")
	}
}

func TestDefaultsApplied(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
team:
  id: team042
banks:
  - id: vbank
    baseUrl: https://vbank.example
`))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Server.ListenAddr != ":8000" {
		t.Fatalf("expected default listen addr, got %s", cfg.Server.ListenAddr)
	}
	if cfg.Server.RequestTimeout() != 10*time.Second {
		t.Fatalf("expected default timeout, got %v", cfg.Server.RequestTimeout())
	}
}
