// Package config loads jsaingest configuration from a YAML file with
// JSAINGEST_* environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the default configuration file name.
	ConfigFileName = "jsaingest.yaml"

	envPrefix = "JSAINGEST"
)

// Collections lists the archive collections an ingestion run may target.
var Collections = []string{"JCMT", "JCMTLS", "JCMTUSER", "SANDBOX"}

// ValidCollection reports whether name is an ingestable collection.
func ValidCollection(name string) bool {
	for _, c := range Collections {
		if c == name {
			return true
		}
	}
	return false
}

// CatalogConfig points at the archive metadata mirror.
type CatalogConfig struct {
	DSN          string // go-sql-driver DSN, e.g. user:pass@tcp(host:3306)/
	CAOMDatabase string // schema holding Observation/Plane/Artifact
	JCMTDatabase string // schema holding the ACSIS/SCUBA-2 obs log tables
	OMPDatabase  string // schema holding ompproj/ompuser
}

// RepositoryConfig selects the observation record store. Exactly one of
// ServiceURL or FileRoot is used; FileRoot wins when both are set so a
// dry-run against local files never touches the service.
type RepositoryConfig struct {
	ServiceURL string
	FileRoot   string
}

// IngestConfig carries the per-run ingestion settings.
type IngestConfig struct {
	Collection     string // target collection, default JCMT
	Workdir        string // scratch + lock directory
	LogDir         string // where per-run log artifacts and reports land
	RunIDAliasFile string // optional old-to-new run identifier mapping
}

// Config is the full jsaingest configuration.
type Config struct {
	Catalog    CatalogConfig
	Repository RepositoryConfig
	Ingest     IngestConfig
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Catalog: CatalogConfig{
			CAOMDatabase: "caom2",
			JCMTDatabase: "jcmt",
			OMPDatabase:  "omp",
		},
		Ingest: IngestConfig{
			Collection: "JCMT",
			Workdir:    ".",
		},
	}
}

// DefaultPath returns the per-user configuration file location.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ConfigFileName
	}
	return filepath.Join(dir, "jsaingest", ConfigFileName)
}

// Load reads the configuration file at path, applying environment
// overrides (JSAINGEST_CATALOG_DSN and friends) on top. A missing file
// is not an error: defaults plus environment apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to stat config %s: %w", path, err)
		}
	}

	cfg := &Config{
		Catalog: CatalogConfig{
			DSN:          v.GetString("catalog.dsn"),
			CAOMDatabase: v.GetString("catalog.caom_database"),
			JCMTDatabase: v.GetString("catalog.jcmt_database"),
			OMPDatabase:  v.GetString("catalog.omp_database"),
		},
		Repository: RepositoryConfig{
			ServiceURL: v.GetString("repository.service_url"),
			FileRoot:   v.GetString("repository.file_root"),
		},
		Ingest: IngestConfig{
			Collection:     v.GetString("ingest.collection"),
			Workdir:        v.GetString("ingest.workdir"),
			LogDir:         v.GetString("ingest.log_dir"),
			RunIDAliasFile: v.GetString("ingest.runid_alias_file"),
		},
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	def := Default()
	v.SetDefault("catalog.caom_database", def.Catalog.CAOMDatabase)
	v.SetDefault("catalog.jcmt_database", def.Catalog.JCMTDatabase)
	v.SetDefault("catalog.omp_database", def.Catalog.OMPDatabase)
	v.SetDefault("ingest.collection", def.Ingest.Collection)
	v.SetDefault("ingest.workdir", def.Ingest.Workdir)
}

// Validate checks the settings every command depends on.
func (c *Config) Validate() error {
	if !ValidCollection(c.Ingest.Collection) {
		return fmt.Errorf("invalid collection %q (valid: %s)",
			c.Ingest.Collection, strings.Join(Collections, ", "))
	}
	if c.Repository.ServiceURL == "" && c.Repository.FileRoot == "" {
		return fmt.Errorf("no observation repository configured: set repository.service_url or repository.file_root")
	}
	return nil
}
