package identity

import (
	"context"
	"strings"
	"time"

	"github.com/shillmonger/TrustLoanETH/internal/wallet"
)

// Repository persists identities. Implementations enforce uniqueness of
// address and non-empty email at the store level.
type Repository interface {
	FindByAddressOrEmail(ctx context.Context, address, email string) (Identity, error)
	Create(ctx context.Context, identity Identity) (Identity, error)
	UpsertByAddress(ctx context.Context, address string, now time.Time) (Identity, error)
	Find(ctx context.Context, key LookupKey) (Identity, error)
	UpdateWallet(ctx context.Context, key LookupKey, address string, provider wallet.Provider, now time.Time) (Identity, error)
	Touch(ctx context.Context, key LookupKey, now time.Time) (Identity, error)
	BackfillProvider(ctx context.Context, provider wallet.Provider, now time.Time) (int64, error)
	EnsureIndexes(ctx context.Context) error
}

// LookupKind tags how a session resolves to an identity.
type LookupKind int

const (
	LookupByEmail LookupKind = iota + 1
	LookupByID
)

func (k LookupKind) String() string {
	switch k {
	case LookupByEmail:
		return "email"
	case LookupByID:
		return "id"
	default:
		return "unknown"
	}
}

// LookupKey selects a single identity either by email or by record id.
type LookupKey struct {
	kind  LookupKind
	value string
}

// ByEmail builds a key matching the lowercased email.
func ByEmail(email string) LookupKey {
	return LookupKey{kind: LookupByEmail, value: normalizeEmail(email)}
}

// ByID builds a key matching the record id.
func ByID(id string) LookupKey {
	return LookupKey{kind: LookupByID, value: strings.TrimSpace(id)}
}

func (k LookupKey) Kind() LookupKind { return k.kind }
func (k LookupKey) Value() string    { return k.value }

// Valid reports whether the key carries a non-empty value.
func (k LookupKey) Valid() bool {
	return k.kind != 0 && k.value != ""
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
