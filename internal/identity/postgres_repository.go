package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shillmonger/TrustLoanETH/internal/wallet"
)

const (
	uniqueViolation       = "23505"
	identityColumns       = `id, address, wallet_provider, email, created_at, last_login, updated_at`
	addressConstraintName = "identities_address_key"
	emailConstraintName   = "identities_email_key"
)

// PostgresRepository implements Repository using PostgreSQL. The schema is
// owned by the embedded migrations.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed identity repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// EnsureIndexes is a no-op; unique constraints ship with the migrations.
func (r *PostgresRepository) EnsureIndexes(context.Context) error { return nil }

// FindByAddressOrEmail returns the first record matching the address or, when given, the email.
func (r *PostgresRepository) FindByAddressOrEmail(ctx context.Context, address, email string) (Identity, error) {
	row := r.db.QueryRow(ctx, `SELECT `+identityColumns+` FROM identities
        WHERE address = $1 OR ($2 <> '' AND email = $2) LIMIT 1`, strings.ToLower(address), normalizeEmail(email))
	return scanIdentity(row)
}

// Create inserts a new record. Unique violations surface as *ConflictError.
func (r *PostgresRepository) Create(ctx context.Context, identity Identity) (Identity, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO identities (id, address, wallet_provider, email, created_at, last_login, updated_at)
        VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6, $7)
        RETURNING `+identityColumns,
		uuid.New(), strings.ToLower(identity.Address), string(identity.WalletProvider), normalizeEmail(identity.Email),
		identity.CreatedAt.UTC(), identity.LastLogin.UTC(), identity.UpdatedAt.UTC())
	created, err := scanIdentity(row)
	if err != nil {
		if conflict := uniqueConflict(err); conflict != nil {
			return Identity{}, conflict
		}
		return Identity{}, fmt.Errorf("insert identity: %w", err)
	}
	return created, nil
}

// UpsertByAddress creates a minimal record or refreshes last_login on the existing one.
func (r *PostgresRepository) UpsertByAddress(ctx context.Context, address string, now time.Time) (Identity, error) {
	now = now.UTC()
	row := r.db.QueryRow(ctx, `INSERT INTO identities (id, address, wallet_provider, created_at, last_login, updated_at)
        VALUES ($1, $2, $3, $4, $4, $4)
        ON CONFLICT (address) DO UPDATE SET last_login = EXCLUDED.last_login, updated_at = EXCLUDED.updated_at
        RETURNING `+identityColumns,
		uuid.New(), strings.ToLower(address), string(wallet.DefaultProvider), now)
	rec, err := scanIdentity(row)
	if err != nil {
		return Identity{}, fmt.Errorf("upsert identity: %w", err)
	}
	return rec, nil
}

// Find resolves a single record by email or id.
func (r *PostgresRepository) Find(ctx context.Context, key LookupKey) (Identity, error) {
	where, arg, ok := lookupClause(key, 1)
	if !ok {
		return Identity{}, ErrNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT `+identityColumns+` FROM identities WHERE `+where, arg)
	return scanIdentity(row)
}

// UpdateWallet rebinds the address (and provider when non-empty) in one statement.
func (r *PostgresRepository) UpdateWallet(ctx context.Context, key LookupKey, address string, provider wallet.Provider, now time.Time) (Identity, error) {
	where, arg, ok := lookupClause(key, 4)
	if !ok {
		return Identity{}, ErrNotFound
	}
	row := r.db.QueryRow(ctx, `UPDATE identities
        SET address = $1, wallet_provider = COALESCE(NULLIF($2, ''), wallet_provider), last_login = $3, updated_at = $3
        WHERE `+where+` RETURNING `+identityColumns,
		strings.ToLower(address), string(provider), now.UTC(), arg)
	rec, err := scanIdentity(row)
	if err != nil {
		if conflict := uniqueConflict(err); conflict != nil {
			return Identity{}, conflict
		}
		if errors.Is(err, ErrNotFound) {
			return Identity{}, err
		}
		return Identity{}, fmt.Errorf("update identity wallet: %w", err)
	}
	return rec, nil
}

// Touch refreshes last_login and updated_at and returns the updated row.
func (r *PostgresRepository) Touch(ctx context.Context, key LookupKey, now time.Time) (Identity, error) {
	where, arg, ok := lookupClause(key, 2)
	if !ok {
		return Identity{}, ErrNotFound
	}
	row := r.db.QueryRow(ctx, `UPDATE identities SET last_login = $1, updated_at = $1
        WHERE `+where+` RETURNING `+identityColumns, now.UTC(), arg)
	rec, err := scanIdentity(row)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Identity{}, err
		}
		return Identity{}, fmt.Errorf("touch identity: %w", err)
	}
	return rec, nil
}

// BackfillProvider persists provider where wallet_provider is NULL or empty.
func (r *PostgresRepository) BackfillProvider(ctx context.Context, provider wallet.Provider, now time.Time) (int64, error) {
	cmd, err := r.db.Exec(ctx, `UPDATE identities SET wallet_provider = $1, updated_at = $2
        WHERE wallet_provider IS NULL OR wallet_provider = ''`, string(provider), now.UTC())
	if err != nil {
		return 0, fmt.Errorf("backfill wallet provider: %w", err)
	}
	return cmd.RowsAffected(), nil
}

func lookupClause(key LookupKey, position int) (string, any, bool) {
	if !key.Valid() {
		return "", nil, false
	}
	switch key.Kind() {
	case LookupByEmail:
		return fmt.Sprintf("email = $%d", position), key.Value(), true
	case LookupByID:
		id, err := uuid.Parse(key.Value())
		if err != nil {
			return "", nil, false
		}
		return fmt.Sprintf("id = $%d", position), id, true
	}
	return "", nil, false
}

func scanIdentity(row pgx.Row) (Identity, error) {
	var (
		id       uuid.UUID
		provider *string
		email    *string
		rec      Identity
	)
	err := row.Scan(&id, &rec.Address, &provider, &email, &rec.CreatedAt, &rec.LastLogin, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Identity{}, ErrNotFound
	}
	if err != nil {
		return Identity{}, err
	}
	rec.ID = id.String()
	if provider != nil {
		rec.WalletProvider = wallet.Provider(*provider)
	}
	if email != nil {
		rec.Email = *email
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.LastLogin = rec.LastLogin.UTC()
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	return rec, nil
}

func uniqueConflict(err error) *ConflictError {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return nil
	}
	if pgErr.ConstraintName == emailConstraintName {
		return &ConflictError{Field: FieldEmail}
	}
	return &ConflictError{Field: FieldAddress}
}
