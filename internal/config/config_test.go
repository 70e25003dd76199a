package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Ingest.Collection != "JCMT" {
		t.Errorf("collection = %q, want JCMT", cfg.Ingest.Collection)
	}
	if cfg.Catalog.CAOMDatabase != "caom2" {
		t.Errorf("caom database = %q, want caom2", cfg.Catalog.CAOMDatabase)
	}
	if cfg.Ingest.Workdir != "." {
		t.Errorf("workdir = %q, want .", cfg.Ingest.Workdir)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	content := `
catalog:
  dsn: jsa:secret@tcp(db.example:3306)/
  caom_database: caom2mirror
repository:
  service_url: https://repo.example/caom2repo
ingest:
  collection: JCMTLS
  log_dir: /var/log/jsaingest
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Catalog.DSN != "jsa:secret@tcp(db.example:3306)/" {
		t.Errorf("dsn = %q", cfg.Catalog.DSN)
	}
	if cfg.Catalog.CAOMDatabase != "caom2mirror" {
		t.Errorf("caom database = %q, want caom2mirror", cfg.Catalog.CAOMDatabase)
	}
	if cfg.Catalog.JCMTDatabase != "jcmt" {
		t.Errorf("jcmt database = %q, want default jcmt", cfg.Catalog.JCMTDatabase)
	}
	if cfg.Repository.ServiceURL != "https://repo.example/caom2repo" {
		t.Errorf("service url = %q", cfg.Repository.ServiceURL)
	}
	if cfg.Ingest.Collection != "JCMTLS" {
		t.Errorf("collection = %q, want JCMTLS", cfg.Ingest.Collection)
	}
	if cfg.Ingest.LogDir != "/var/log/jsaingest" {
		t.Errorf("log dir = %q, want /var/log/jsaingest", cfg.Ingest.LogDir)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	if err := os.WriteFile(path, []byte("ingest:\n  collection: JCMT\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("JSAINGEST_INGEST_COLLECTION", "SANDBOX")
	t.Setenv("JSAINGEST_CATALOG_DSN", "jsa@tcp(localhost:3306)/")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Ingest.Collection != "SANDBOX" {
		t.Errorf("collection = %q, want SANDBOX from environment", cfg.Ingest.Collection)
	}
	if cfg.Catalog.DSN != "jsa@tcp(localhost:3306)/" {
		t.Errorf("dsn = %q, want environment value", cfg.Catalog.DSN)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"service url set", func(c *Config) { c.Repository.ServiceURL = "https://repo.example" }, false},
		{"file root set", func(c *Config) { c.Repository.FileRoot = "/tmp/repo" }, false},
		{"no repository", func(c *Config) {}, true},
		{"bad collection", func(c *Config) {
			c.Repository.FileRoot = "/tmp/repo"
			c.Ingest.Collection = "HST"
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidCollection(t *testing.T) {
	for _, c := range Collections {
		if !ValidCollection(c) {
			t.Errorf("ValidCollection(%q) = false", c)
		}
	}
	if ValidCollection("jcmt") {
		t.Error("collection names are case-sensitive")
	}
}
