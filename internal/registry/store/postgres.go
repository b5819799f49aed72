package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"registrar/internal/registry/models"
	"registrar/pkg/domain"
	"registrar/pkg/platform/sentinel"
)

//go:embed schema.sql
var schema string

const uniqueViolation = "23505"

// Postgres persists the registry in PostgreSQL. The partial unique index on
// live name hashes makes the database the arbiter of allocation races:
// whichever transaction commits first wins, the loser sees a unique
// violation and reports ErrAlreadyUsed.
type Postgres struct {
	db *sql.DB
}

// NewPostgres opens a connection pool and verifies connectivity.
func NewPostgres(databaseURL string) (*Postgres, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Postgres{db: db}, nil
}

// NewPostgresFromDB wraps an existing connection pool (integration tests).
func NewPostgresFromDB(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Migrate applies the embedded schema. Idempotent.
func (s *Postgres) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *Postgres) Allocate(ctx context.Context, record *models.Domain, now time.Time, grace time.Duration) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin allocate: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	// Lock the live row for this hash, if any. Racing allocators for the
	// same name queue here; the winner's insert makes the loser's check
	// fail on re-read or on the unique index.
	var (
		currentID domain.DomainID
		expiresAt time.Time
	)
	err = tx.QueryRowContext(ctx,
		`SELECT id, expires_at FROM domains WHERE name_hash = $1 AND NOT superseded FOR UPDATE`,
		record.NameHash.String(),
	).Scan(&currentID, &expiresAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// Never registered, or already superseded: free to insert.
	case err != nil:
		return fmt.Errorf("lock live record: %w", err)
	default:
		if now.Before(expiresAt.Add(grace)) || now.Equal(expiresAt.Add(grace)) {
			return sentinel.ErrAlreadyUsed
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE domains SET superseded = TRUE WHERE id = $1`, uint64(currentID),
		); err != nil {
			return fmt.Errorf("supersede lapsed record: %w", err)
		}
	}

	err = tx.QueryRowContext(ctx,
		`INSERT INTO domains (name, name_hash, owner, created_at, expires_at, resolved_address, bio)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		record.Name,
		record.NameHash.String(),
		record.Owner.String(),
		record.CreatedAt,
		record.ExpiresAt,
		record.ResolvedAddress.String(),
		record.Bio,
	).Scan(&record.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit allocate: %w", err)
	}
	return nil
}

const recordColumns = `id, name, name_hash, owner, created_at, expires_at, resolved_address, bio`

func scanRecord(row interface{ Scan(...any) error }) (*models.Domain, error) {
	var (
		record   models.Domain
		hash     string
		owner    string
		resolved string
	)
	err := row.Scan(&record.ID, &record.Name, &hash, &owner, &record.CreatedAt, &record.ExpiresAt, &resolved, &record.Bio)
	if err != nil {
		return nil, err
	}
	record.NameHash = domain.NameHash(hash)
	record.Owner = domain.OwnerAddress(owner)
	record.ResolvedAddress = domain.OwnerAddress(resolved)
	return &record, nil
}

func (s *Postgres) ResolveHash(ctx context.Context, hash domain.NameHash) (*models.Domain, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM domains WHERE name_hash = $1 AND NOT superseded`,
		hash.String(),
	)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resolve hash: %w", err)
	}
	return record, nil
}

func (s *Postgres) FindByID(ctx context.Context, id domain.DomainID) (*models.Domain, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM domains WHERE id = $1`,
		uint64(id),
	)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find by id: %w", err)
	}
	return record, nil
}

func (s *Postgres) OwnerOf(ctx context.Context, id domain.DomainID) (domain.OwnerAddress, error) {
	var owner string
	err := s.db.QueryRowContext(ctx,
		`SELECT owner FROM domains WHERE id = $1`, uint64(id),
	).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return "", sentinel.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("owner of: %w", err)
	}
	return domain.OwnerAddress(owner), nil
}

func (s *Postgres) ListAll(ctx context.Context) ([]*models.Domain, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM domains WHERE NOT superseded ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list all: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

func (s *Postgres) ListByOwner(ctx context.Context, owner domain.OwnerAddress) ([]*models.Domain, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM domains WHERE owner = $1 ORDER BY id`,
		owner.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("list by owner: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

func collectRecords(rows *sql.Rows) ([]*models.Domain, error) {
	records := make([]*models.Domain, 0)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

func (s *Postgres) Execute(ctx context.Context, id domain.DomainID, validate func(*models.Domain) error, mutate func(*models.Domain)) (*models.Domain, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin execute: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	row := tx.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM domains WHERE id = $1 FOR UPDATE`,
		uint64(id),
	)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock record: %w", err)
	}

	if err := validate(record); err != nil {
		return nil, err
	}
	mutate(record)

	if _, err := tx.ExecContext(ctx,
		`UPDATE domains SET owner = $2, expires_at = $3, resolved_address = $4, bio = $5 WHERE id = $1`,
		uint64(record.ID),
		record.Owner.String(),
		record.ExpiresAt,
		record.ResolvedAddress.String(),
		record.Bio,
	); err != nil {
		return nil, fmt.Errorf("update record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit execute: %w", err)
	}
	return record, nil
}

func (s *Postgres) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// InitAccount marks an owner's collection as initialized. Returns
// sentinel.ErrConflict if the account was already initialized.
func (s *Postgres) InitAccount(ctx context.Context, owner domain.OwnerAddress, at time.Time) error {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts (address, initialized_at) VALUES ($1, $2) ON CONFLICT (address) DO NOTHING`,
		owner.String(), at,
	)
	if err != nil {
		return fmt.Errorf("init account: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("init account rows: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

// IsInitialized reports whether an owner has set up their collection.
func (s *Postgres) IsInitialized(ctx context.Context, owner domain.OwnerAddress) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM accounts WHERE address = $1)`,
		owner.String(),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check account: %w", err)
	}
	return exists, nil
}

// Close releases the connection pool.
func (s *Postgres) Close() error {
	return s.db.Close()
}
