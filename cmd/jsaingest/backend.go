package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jsaops/jsaingest/internal/catalog"
	"github.com/jsaops/jsaingest/internal/catalog/caomdb"
	"github.com/jsaops/jsaingest/internal/config"
	"github.com/jsaops/jsaingest/internal/ingest"
	"github.com/jsaops/jsaingest/internal/repository"
	"github.com/jsaops/jsaingest/internal/repository/fsrepo"
	"github.com/jsaops/jsaingest/internal/repository/httprepo"
	"github.com/jsaops/jsaingest/internal/telemetry"
)

// openCatalog connects to the archive metadata mirror. The returned
// closer shuts the connection pool down.
func openCatalog(ctx context.Context) (catalog.Querier, func(), error) {
	if cfg.Catalog.DSN == "" {
		return nil, nil, fmt.Errorf("no catalog configured: set catalog.dsn or JSAINGEST_CATALOG_DSN")
	}
	store, err := caomdb.New(ctx, &caomdb.Config{
		DSN:          cfg.Catalog.DSN,
		CAOMDatabase: cfg.Catalog.CAOMDatabase,
		JCMTDatabase: cfg.Catalog.JCMTDatabase,
		OMPDatabase:  cfg.Catalog.OMPDatabase,
	})
	if err != nil {
		return nil, nil, err
	}
	closer := func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: closing catalog: %v\n", err)
		}
	}
	return telemetry.WrapQuerier(store), closer, nil
}

// openRepository selects the observation record store. A configured file
// root wins over the service URL so offline runs never touch the service.
func openRepository() (repository.Repository, error) {
	if cfg.Repository.FileRoot != "" {
		return fsrepo.New(cfg.Repository.FileRoot)
	}
	if cfg.Repository.ServiceURL != "" {
		return httprepo.New(&httprepo.Config{BaseURL: cfg.Repository.ServiceURL})
	}
	return nil, fmt.Errorf("no observation repository configured: set repository.service_url or repository.file_root")
}

// newSession assembles an ingestion session over the opened catalog and
// repository.
func newSession(log *slog.Logger, cat catalog.Querier, rep repository.Repository, collection string, dryRun, replace bool) (*ingest.Session, error) {
	aliases := map[string]string{}
	if cfg.Ingest.RunIDAliasFile != "" {
		m, skipped, err := config.LoadRunIDAliases(cfg.Ingest.RunIDAliasFile)
		if err != nil {
			return nil, err
		}
		if skipped > 0 {
			log.Warn("skipped corrupt run id alias lines", "file", cfg.Ingest.RunIDAliasFile, "count", skipped)
		}
		aliases = m
	}
	return ingest.New(ingest.Config{
		Collection:   collection,
		Replace:      replace,
		DryRun:       dryRun,
		RunIDAliases: aliases,
		Logger:       log,
	}, cat, rep)
}
