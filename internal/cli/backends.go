package cli

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"lipid-site-lab/internal/artifacts"
	"lipid-site-lab/internal/logger"
	"lipid-site-lab/internal/storage"
	chstore "lipid-site-lab/internal/storage/clickhouse"
	"lipid-site-lab/internal/storage/memory"
	"lipid-site-lab/internal/storage/migrations"
	pgstore "lipid-site-lab/internal/storage/postgres"
)

// Backends names the optional databases of a run.
type Backends struct {
	PostgresDSN   string
	ClickhouseDSN string
}

// OpenStores starts from in-memory stores and replaces the relational
// stores with PostgreSQL and the analytical ones with ClickHouse when a DSN
// is set. Migrations are applied on connect. The returned func closes every
// connection.
func OpenStores(ctx context.Context, b Backends, parent *log.Logger) (storage.Stores, func(), error) {
	l := logger.Component(parent, "stores")
	stores := memory.NewStores()
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if b.PostgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, b.PostgresDSN)
		if err != nil {
			return storage.Stores{}, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		closers = append(closers, pool.Close)
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			cleanup()
			return storage.Stores{}, nil, fmt.Errorf("postgres migrations: %w", err)
		}
		pg := pgstore.NewStores(pool)
		stores.Runs = pg.Runs
		stores.Sites = pg.Sites
		stores.Kinetics = pg.Kinetics
		stores.Rankings = pg.Rankings
		stores.Correspondence = pg.Correspondence
		l.Info("using postgres stores")
	}

	if b.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, b.ClickhouseDSN)
		if err != nil {
			cleanup()
			return storage.Stores{}, nil, fmt.Errorf("clickhouse: %w", err)
		}
		closers = append(closers, func() { conn.Close() })
		ch := chstore.NewStores(conn)
		stores.Intervals = ch.Intervals
		stores.Cutoffs = ch.Cutoffs
		l.Info("using clickhouse stores")
	}
	return stores, cleanup, nil
}

// S3FromEnv reads the S3 mirror settings. An empty bucket disables S3.
func S3FromEnv() artifacts.S3Options {
	return artifacts.S3Options{
		Region:    Env("S3_REGION", "us-east-1"),
		Endpoint:  Env("S3_ENDPOINT", ""),
		AccessKey: Env("S3_ACCESS_KEY_ID", ""),
		SecretKey: Env("S3_SECRET_ACCESS_KEY", ""),
		Bucket:    Env("S3_BUCKET", ""),
		Prefix:    Env("S3_PREFIX", ""),
	}
}

// OpenSink returns a local directory sink, an S3 sink, or a mirror of both.
// With neither configured it returns nil.
func OpenSink(ctx context.Context, outDir string, s3 artifacts.S3Options) (artifacts.Sink, error) {
	var sinks artifacts.Mirror
	if outDir != "" {
		sinks = append(sinks, artifacts.NewLocalSink(outDir))
	}
	if s3.Bucket != "" {
		s, err := artifacts.NewS3Sink(ctx, s3)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
	}
	switch len(sinks) {
	case 0:
		return nil, nil
	case 1:
		return sinks[0], nil
	default:
		return sinks, nil
	}
}
