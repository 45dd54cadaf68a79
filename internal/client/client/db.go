package client

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/sherryycxie/tables/internal/client/migrations"
	"github.com/sherryycxie/tables/internal/client/repositories/metadata"
	"github.com/sherryycxie/tables/internal/dbx"

	_ "modernc.org/sqlite"
)

// Repositories bundles the local stores and the connection behind them.
type Repositories struct {
	DB       *sql.DB
	Metadata metadata.Repository
}

func (r *Repositories) Close() error {
	if r == nil || r.DB == nil {
		return nil
	}
	return r.DB.Close()
}

// Reset wipes every locally stored value in one transaction: the saved
// session and the archive overrides. It returns how many keys were removed.
func (r *Repositories) Reset(ctx context.Context) (int, error) {
	var n int
	err := dbx.WithTx(ctx, r.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		keys, err := repo.Keys(ctx, "")
		if err != nil {
			return err
		}
		if err := repo.Clear(ctx); err != nil {
			return err
		}
		n = len(keys)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("reset local state: %w", err)
	}
	return n, nil
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded SQLite migrations to db.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("migrate local db: %w", err)
	}
	return nil
}

// OpenLocal opens the SQLite database at dsn and migrates it.
func OpenLocal(ctx context.Context, dsn string) (*Repositories, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dsn, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open %s: %w", dsn, err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Repositories{
		DB:       db,
		Metadata: metadata.NewSQLiteRepository(db),
	}, nil
}
