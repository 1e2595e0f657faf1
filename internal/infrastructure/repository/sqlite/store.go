// Package sqlite implements the catalog store on SQLite. Unique indexes on
// product names and category external IDs are the authoritative duplicate
// guards; violations surface as domain.ConflictError.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/mattn/go-sqlite3"
	"github.com/mrops-br/price-watch-api/internal/domain"
	"github.com/pressly/goose/v3"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

//go:embed migrations/*.sql
var migrations embed.FS

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is a SQLite implementation of domain.CatalogStore
type Store struct {
	db     *sql.DB
	tracer trace.Tracer
	logger *slog.Logger
}

// Compile-time check that Store implements domain.CatalogStore.
var _ domain.CatalogStore = (*Store)(nil)

// Open opens the database at path, applies pending migrations and returns the store
func Open(ctx context.Context, path string, tracer trace.Tracer, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite allows a single writer; one connection keeps transactions from
	// tripping over SQLITE_BUSY and keeps :memory: databases alive.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if err := migrate(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	logger.InfoContext(ctx, "Catalog database ready", slog.String("path", path))
	return &Store{db: db, tracer: tracer, logger: logger}, nil
}

func dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_foreign_keys=on&_busy_timeout=5000"
}

func migrate(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	if err != nil {
		return fmt.Errorf("create migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	for _, r := range results {
		logger.InfoContext(ctx, "Migration applied",
			slog.Int64("version", r.Source.Version),
			slog.String("duration", r.Duration.String()),
		)
	}
	return nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

// WithinTx runs fn inside a database transaction. The transaction is rolled
// back when fn returns an error or panics.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx domain.Tx) error) error {
	ctx, span := s.tracer.Start(ctx, "Store.WithinTx")
	defer span.End()

	err := s.inTx(ctx, func(q querier) error {
		return fn(ctx, &tx{store: s, q: q})
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Transaction rolled back")
		return err
	}

	span.SetStatus(codes.Ok, "Transaction committed")
	return nil
}

func (s *Store) inTx(ctx context.Context, fn func(q querier) error) (err error) {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
	}()

	if err := fn(sqlTx); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			s.logger.ErrorContext(ctx, "Failed to roll back transaction",
				slog.String("error", rbErr.Error()),
			)
		}
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// atomic runs fn on q when q is already a transaction, otherwise in a new one
func (s *Store) atomic(ctx context.Context, q querier, fn func(q querier) error) error {
	if _, ok := q.(*sql.Tx); ok {
		return fn(q)
	}
	return s.inTx(ctx, fn)
}

func (s *Store) Products() domain.ProductRepository {
	return &ProductRepository{store: s, q: s.db}
}

func (s *Store) Categories() domain.CategoryRepository {
	return &CategoryRepository{store: s, q: s.db}
}

func (s *Store) Users() domain.UserRepository {
	return &UserRepository{store: s, q: s.db}
}

func (s *Store) Subscriptions() domain.SubscriptionRepository {
	return &SubscriptionRepository{store: s, q: s.db}
}

type tx struct {
	store *Store
	q     querier
}

func (t *tx) Products() domain.ProductRepository {
	return &ProductRepository{store: t.store, q: t.q}
}

func (t *tx) Categories() domain.CategoryRepository {
	return &CategoryRepository{store: t.store, q: t.q}
}

func (t *tx) Users() domain.UserRepository {
	return &UserRepository{store: t.store, q: t.q}
}

func (t *tx) Subscriptions() domain.SubscriptionRepository {
	return &SubscriptionRepository{store: t.store, q: t.q}
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

func isForeignKeyViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
}
