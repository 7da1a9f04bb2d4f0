package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/de-tools/export-consolidator/pkg/models/domain"
	"github.com/de-tools/export-consolidator/pkg/remote"
	"github.com/de-tools/export-consolidator/pkg/remote/sftp"
	"github.com/de-tools/export-consolidator/pkg/services/batch"
	"github.com/de-tools/export-consolidator/pkg/services/config"
	"github.com/de-tools/export-consolidator/pkg/services/engine"
	"github.com/de-tools/export-consolidator/pkg/store/artifact"
	"github.com/de-tools/export-consolidator/pkg/store/duckdb"
	"github.com/de-tools/export-consolidator/pkg/store/duckdb/runs"
	"github.com/rs/zerolog"
)

// Options override the collaborators that talk to the outside world.
type Options struct {
	// Dialer defaults to the SFTP dialer built from the connection config.
	Dialer remote.Dialer
	// Getenv defaults to os.Getenv.
	Getenv func(string) string
	// S3 is used instead of a client built from the default AWS config.
	S3 artifact.PutObjectAPI
}

// App is the wired engine with its optional stores.
type App struct {
	Config  *config.Config
	Dialer  remote.Dialer
	Service *batch.DefaultService
	// Runs is nil when no ledger is configured.
	Runs runs.Store

	getenv func(string) string
	db     *sql.DB
}

func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	logger := zerolog.Ctx(ctx)

	if opts.Getenv == nil {
		opts.Getenv = os.Getenv
	}
	if opts.Dialer == nil {
		opts.Dialer = sftp.NewDialer(cfg.Connection.DialerOptions())
	}

	a := &App{Config: cfg, Dialer: opts.Dialer, getenv: opts.Getenv}

	artifacts, err := a.artifactStore(ctx, opts.S3)
	if err != nil {
		return nil, err
	}

	var ledger batch.Ledger
	if cfg.Ledger.Path != "" {
		db, err := duckdb.NewDB(duckdb.Settings{DbPath: cfg.Ledger.Path})
		if err != nil {
			return nil, fmt.Errorf("failed to create DuckDB instance: %w", err)
		}
		a.db = db
		a.Runs, err = runs.NewStore(db)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to create run store: %w", err)
		}
		ledger = a.Runs
		logger.Debug().Str("path", cfg.Ledger.Path).Msg("run ledger enabled")
	}

	a.Service = batch.NewService(engine.New(a.Dialer, cfg.Engine), a.Descriptor, artifacts, ledger)
	return a, nil
}

// Descriptor resolves the connection descriptor, reading the private key on every call.
func (a *App) Descriptor() (domain.ConnectionDescriptor, error) {
	return a.Config.Connection.Descriptor(a.getenv)
}

// Owners loads the owner registry named by the config.
func (a *App) Owners() (config.OwnerRegistry, error) {
	return config.NewOwnerRegistry(a.Config.OwnersFile)
}

func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

func (a *App) artifactStore(ctx context.Context, client artifact.PutObjectAPI) (artifact.Store, error) {
	var stores []artifact.Store
	out := a.Config.Output

	if out.Dir != "" {
		local, err := artifact.NewLocalStore(out.Dir)
		if err != nil {
			return nil, err
		}
		stores = append(stores, local)
	}

	if out.Bucket != "" {
		if client == nil {
			s3Client, err := artifact.NewS3Client(ctx, out.Region)
			if err != nil {
				return nil, err
			}
			client = s3Client
		}
		remoteStore, err := artifact.NewS3Store(client, out.Bucket, out.Prefix)
		if err != nil {
			return nil, err
		}
		stores = append(stores, remoteStore)
	}

	switch len(stores) {
	case 0:
		return nil, nil
	case 1:
		return stores[0], nil
	}
	return artifact.NewMultiStore(stores...), nil
}

// ErrNoLedger is returned by commands that need the run ledger when none is configured.
var ErrNoLedger = errors.New("run ledger is not configured: set ledger.path")
