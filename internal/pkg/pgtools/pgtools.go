package pgtools

import (
	"context"
	"fmt"
	"time"

	"github.com/Leopold1975/helpdesk/internal/pkg/config"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // driver for migrations
	"github.com/pressly/goose/v3"
)

const maxPingDelay = time.Second * 10

// Connect opens a pool and pings it until the database answers, waiting one
// second longer after every failure.
func Connect(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	db, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("cannot create db pool error: %w", err)
	}

	for delay := time.Second; ; delay += time.Second {
		err := db.Ping(ctx)
		if err == nil {
			return db, nil
		}

		if delay > maxPingDelay {
			db.Close()

			return nil, fmt.Errorf("cannot ping db error: %w", err)
		}

		select {
		case <-ctx.Done():
			db.Close()

			return nil, fmt.Errorf("context error: %w", ctx.Err())
		case <-time.After(delay):
		}
	}
}

// ApplyMigration migrates the schema up to cfg.Version, or to the latest
// migration when Version is 0. With Reload set, everything is rolled back first.
func ApplyMigration(cfg config.PostgresDB) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("goose set dialect error: %w", err)
	}

	dbM, err := goose.OpenDBWithDriver("pgx", cfg.MigrationConnString())
	if err != nil {
		return fmt.Errorf("goose open pgx db error: %w", err)
	}
	defer dbM.Close()

	if cfg.Reload {
		if err := goose.Reset(dbM, cfg.MigrationsDir); err != nil {
			return fmt.Errorf("goose reset error: %w", err)
		}
	}

	if cfg.Version == 0 {
		if err := goose.Up(dbM, cfg.MigrationsDir); err != nil {
			return fmt.Errorf("goose up error: %w", err)
		}

		return nil
	}

	if err := goose.UpTo(dbM, cfg.MigrationsDir, int64(cfg.Version)); err != nil {
		return fmt.Errorf("goose up error: %w", err)
	}

	return nil
}

func CommitOrRollback(ctx context.Context, tx pgx.Tx, err error, where string) error {
	if err == nil {
		if errT := tx.Commit(ctx); errT != nil {
			err = fmt.Errorf("commit error: %w", errT)
		}
	} else {
		if errT := tx.Rollback(ctx); errT != nil {
			err = fmt.Errorf("%s error: %w rollback error: %w", where, err, errT)
		} else {
			err = fmt.Errorf("%s error: %w", where, err)
		}
	}

	return err
}

func Shutdown(ctx context.Context, db *pgxpool.Pool) error {
	done := make(chan struct{})

	go func() {
		db.Close()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("context error: %w", ctx.Err())
	case <-done:
		return nil
	}
}
