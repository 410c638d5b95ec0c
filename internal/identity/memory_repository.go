package identity

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shillmonger/TrustLoanETH/internal/wallet"
)

type memoryRepository struct {
	mu        sync.RWMutex
	records   map[string]Identity
	byAddress map[string]string
	byEmail   map[string]string
}

// NewMemoryRepository builds an in-memory identity store for tests and local development.
// Unique indexes on address and email are emulated under the mutex.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		records:   make(map[string]Identity),
		byAddress: make(map[string]string),
		byEmail:   make(map[string]string),
	}
}

func (r *memoryRepository) FindByAddressOrEmail(_ context.Context, address, email string) (Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if id, ok := r.byAddress[strings.ToLower(address)]; ok {
		return r.records[id], nil
	}
	if email = normalizeEmail(email); email != "" {
		if id, ok := r.byEmail[email]; ok {
			return r.records[id], nil
		}
	}
	return Identity{}, ErrNotFound
}

func (r *memoryRepository) Create(_ context.Context, identity Identity) (Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	identity.Address = strings.ToLower(identity.Address)
	identity.Email = normalizeEmail(identity.Email)
	if _, exists := r.byAddress[identity.Address]; exists {
		return Identity{}, &ConflictError{Field: FieldAddress}
	}
	if identity.Email != "" {
		if _, exists := r.byEmail[identity.Email]; exists {
			return Identity{}, &ConflictError{Field: FieldEmail}
		}
	}
	if identity.ID == "" {
		identity.ID = uuid.NewString()
	}
	r.put(identity)
	return identity, nil
}

func (r *memoryRepository) UpsertByAddress(_ context.Context, address string, now time.Time) (Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	address = strings.ToLower(address)
	if id, ok := r.byAddress[address]; ok {
		rec := r.records[id]
		rec.LastLogin = now
		rec.UpdatedAt = now
		r.records[id] = rec
		return rec, nil
	}
	rec := Identity{
		ID:             uuid.NewString(),
		Address:        address,
		WalletProvider: wallet.DefaultProvider,
		CreatedAt:      now,
		LastLogin:      now,
		UpdatedAt:      now,
	}
	r.put(rec)
	return rec, nil
}

func (r *memoryRepository) Find(_ context.Context, key LookupKey) (Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.resolve(key)
	if !ok {
		return Identity{}, ErrNotFound
	}
	return r.records[id], nil
}

func (r *memoryRepository) UpdateWallet(_ context.Context, key LookupKey, address string, provider wallet.Provider, now time.Time) (Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.resolve(key)
	if !ok {
		return Identity{}, ErrNotFound
	}
	address = strings.ToLower(address)
	if owner, taken := r.byAddress[address]; taken && owner != id {
		return Identity{}, &ConflictError{Field: FieldAddress}
	}
	rec := r.records[id]
	if rec.Address != "" {
		delete(r.byAddress, rec.Address)
	}
	rec.Address = address
	if provider != "" {
		rec.WalletProvider = provider
	}
	rec.LastLogin = now
	rec.UpdatedAt = now
	r.put(rec)
	return rec, nil
}

func (r *memoryRepository) Touch(_ context.Context, key LookupKey, now time.Time) (Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.resolve(key)
	if !ok {
		return Identity{}, ErrNotFound
	}
	rec := r.records[id]
	rec.LastLogin = now
	rec.UpdatedAt = now
	r.records[id] = rec
	return rec, nil
}

func (r *memoryRepository) BackfillProvider(_ context.Context, provider wallet.Provider, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, rec := range r.records {
		if rec.WalletProvider != "" {
			continue
		}
		rec.WalletProvider = provider
		rec.UpdatedAt = now
		r.records[id] = rec
		n++
	}
	return n, nil
}

func (r *memoryRepository) EnsureIndexes(context.Context) error { return nil }

// resolve must be called with the lock held.
func (r *memoryRepository) resolve(key LookupKey) (string, bool) {
	if !key.Valid() {
		return "", false
	}
	switch key.Kind() {
	case LookupByEmail:
		id, ok := r.byEmail[key.Value()]
		return id, ok
	case LookupByID:
		_, ok := r.records[key.Value()]
		return key.Value(), ok
	}
	return "", false
}

// put must be called with the lock held.
func (r *memoryRepository) put(rec Identity) {
	r.records[rec.ID] = rec
	if rec.Address != "" {
		r.byAddress[rec.Address] = rec.ID
	}
	if rec.Email != "" {
		r.byEmail[rec.Email] = rec.ID
	}
}
