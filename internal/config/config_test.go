package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadServerDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	cfg, err := LoadServer(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadServer: %v", err)
	}
	if cfg.Server.Port != 3000 || cfg.Server.BodyLimitMB != 25 {
		t.Errorf("unexpected server defaults: %+v", cfg.Server)
	}
	if cfg.Groq.Model != "whisper-large-v3-turbo" {
		t.Errorf("unexpected model %q", cfg.Groq.Model)
	}
}

func TestLoadServerFileAndEnv(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 8080
  api_key: from-file
mongo:
  uri: mongodb://db:27017
  database: clips
`)
	t.Setenv("API_KEY", "from-env")
	t.Setenv("DB_NAME", "")
	t.Setenv("PORT", "9090")

	cfg, err := LoadServer(path)
	if err != nil {
		t.Fatalf("LoadServer: %v", err)
	}
	if cfg.Server.APIKey != "from-env" {
		t.Errorf("api key = %q, want env override", cfg.Server.APIKey)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Mongo.Database != "clips" {
		t.Errorf("database = %q, empty env must not override", cfg.Mongo.Database)
	}
	// Untouched sections keep their defaults
	if cfg.Mongo.Collection != "transcriptions" {
		t.Errorf("collection = %q", cfg.Mongo.Collection)
	}
}

func TestLoadServerBadPort(t *testing.T) {
	t.Setenv("PORT", "abc")
	if _, err := LoadServer(""); err == nil {
		t.Fatal("expected error for non-numeric PORT")
	}
}

func TestDesktopValidate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(c *DesktopConfig)
		wantErr bool
	}{
		{"defaults", func(c *DesktopConfig) {}, false},
		{"unknown store", func(c *DesktopConfig) { c.Store.Kind = "postgres" }, true},
		{"remote store without url", func(c *DesktopConfig) { c.Store.Kind = StoreRemote }, true},
		{"remote store", func(c *DesktopConfig) {
			c.Store.Kind = StoreRemote
			c.Store.Remote.BaseURL = "http://localhost:3001"
		}, false},
		{"remote transcriber without url", func(c *DesktopConfig) { c.Transcriber.Kind = TranscriberRemote }, true},
		{"unknown transcriber", func(c *DesktopConfig) { c.Transcriber.Kind = "local" }, true},
		{"mongo without uri", func(c *DesktopConfig) {
			c.Store.Kind = StoreMongo
			c.Store.Mongo.URI = ""
		}, true},
		{"zero port", func(c *DesktopConfig) { c.Server.Port = 0 }, true},
		{"negative window", func(c *DesktopConfig) { c.Workflow.ErrorDisplaySeconds = -1 }, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultDesktopConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestLoadDesktopParsesSections(t *testing.T) {
	path := writeConfig(t, `
store:
  kind: remote
  remote:
    base_url: http://backend:3001
transcriber:
  kind: remote
workflow:
  error_display_seconds: 5
hotkey:
  redis:
    addr: localhost:6379
`)
	t.Setenv("API_KEY", "secret")

	cfg, err := LoadDesktop(path)
	if err != nil {
		t.Fatalf("LoadDesktop: %v", err)
	}
	if cfg.Store.Remote.APIKey != "secret" {
		t.Errorf("remote api key = %q", cfg.Store.Remote.APIKey)
	}
	if cfg.Workflow.ErrorDisplaySeconds != 5 || cfg.Workflow.SuccessDisplaySeconds != 3 {
		t.Errorf("workflow = %+v", cfg.Workflow)
	}
	if cfg.Hotkey.Redis.Channel != "voiceclip:toggle" {
		t.Errorf("channel default lost: %q", cfg.Hotkey.Redis.Channel)
	}
}
