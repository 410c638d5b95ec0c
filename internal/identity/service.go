package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shillmonger/TrustLoanETH/internal/wallet"
)

// Service manages the identity lifecycle.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a new identity service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

func invalidProvider() *ValidationError {
	return &ValidationError{Message: "Invalid wallet provider. Must be one of: " + wallet.SupportedProviderList()}
}

// Register validates the input and creates a new identity. Checks run in order
// address, provider, conflict; the first failure is returned.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Identity, error) {
	if !wallet.IsValidAddress(strings.TrimSpace(in.Address)) {
		return Identity{}, &ValidationError{Message: MsgInvalidAddress}
	}
	provider, err := wallet.ParseProvider(in.WalletProvider)
	if err != nil {
		return Identity{}, invalidProvider()
	}

	address := strings.ToLower(strings.TrimSpace(in.Address))
	email := normalizeEmail(in.Email)

	existing, err := s.repo.FindByAddressOrEmail(ctx, address, email)
	switch {
	case err == nil:
		if existing.Address == address {
			return Identity{}, &ConflictError{Field: FieldAddress}
		}
		return Identity{}, &ConflictError{Field: FieldEmail}
	case !errors.Is(err, ErrNotFound):
		return Identity{}, fmt.Errorf("check existing identity: %w", err)
	}

	now := s.now()
	created, err := s.repo.Create(ctx, Identity{
		Address:        address,
		WalletProvider: provider,
		Email:          email,
		CreatedAt:      now,
		LastLogin:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		var conflict *ConflictError
		if errors.As(err, &conflict) {
			return Identity{}, conflict
		}
		return Identity{}, fmt.Errorf("create identity: %w", err)
	}
	return created, nil
}

// SaveUser remembers an address without provider or email validation.
func (s *Service) SaveUser(ctx context.Context, address string) (Identity, error) {
	address = strings.ToLower(strings.TrimSpace(address))
	if address == "" {
		return Identity{}, &ValidationError{Message: MsgAddressRequired}
	}
	rec, err := s.repo.UpsertByAddress(ctx, address, s.now())
	if err != nil {
		return Identity{}, fmt.Errorf("upsert identity: %w", err)
	}
	return rec, nil
}

// WalletForSession refreshes lastLogin on the identity bound to key and
// returns it. The refresh and the read are a single store call.
func (s *Service) WalletForSession(ctx context.Context, key LookupKey) (Identity, error) {
	rec, err := s.repo.Touch(ctx, key, s.now())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Identity{}, ErrNotFound
		}
		return Identity{}, fmt.Errorf("touch identity: %w", err)
	}
	if rec.Address == "" {
		return Identity{}, ErrNoWallet
	}
	return rec, nil
}

// UpdateWalletForSession rebinds the wallet on the identity resolved by key.
func (s *Service) UpdateWalletForSession(ctx context.Context, key LookupKey, in UpdateWalletInput) (Identity, error) {
	address := strings.TrimSpace(in.Address)
	if address == "" {
		return Identity{}, &ValidationError{Message: MsgAddressRequired}
	}
	if !wallet.IsValidAddress(address) {
		return Identity{}, &ValidationError{Message: MsgInvalidAddress}
	}

	var provider wallet.Provider
	if strings.TrimSpace(in.WalletProvider) != "" {
		p, err := wallet.ParseProvider(in.WalletProvider)
		if err != nil {
			return Identity{}, invalidProvider()
		}
		provider = p
	}

	rec, err := s.repo.UpdateWallet(ctx, key, strings.ToLower(address), provider, s.now())
	if err != nil {
		var conflict *ConflictError
		switch {
		case errors.Is(err, ErrNotFound):
			return Identity{}, ErrNotFound
		case errors.As(err, &conflict):
			return Identity{}, conflict
		}
		return Identity{}, fmt.Errorf("update identity wallet: %w", err)
	}
	return rec, nil
}

// BackfillProviders persists the default provider on legacy records.
func (s *Service) BackfillProviders(ctx context.Context) (int64, error) {
	n, err := s.repo.BackfillProvider(ctx, wallet.DefaultProvider, s.now())
	if err != nil {
		return 0, fmt.Errorf("backfill providers: %w", err)
	}
	return n, nil
}
