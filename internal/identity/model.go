package identity

import (
	"time"

	"github.com/shillmonger/TrustLoanETH/internal/wallet"
)

// Identity binds a wallet address to its provider and an optional email.
type Identity struct {
	ID             string
	Address        string
	WalletProvider wallet.Provider
	Email          string
	CreatedAt      time.Time
	LastLogin      time.Time
	UpdatedAt      time.Time
}

// DisplayProvider returns the stored provider, or the default for legacy records.
// The default is never written back.
func (i Identity) DisplayProvider() wallet.Provider {
	return i.WalletProvider.OrDefault()
}

// RegisterInput is the payload accepted by Service.Register.
type RegisterInput struct {
	Address        string
	WalletProvider string
	Email          string
}

// UpdateWalletInput is the payload accepted by Service.UpdateWalletForSession.
type UpdateWalletInput struct {
	Address        string
	WalletProvider string
}

// Public is the externally visible projection of an Identity.
type Public struct {
	ID             string          `json:"id"`
	Address        string          `json:"address"`
	WalletProvider wallet.Provider `json:"walletProvider"`
	Email          string          `json:"email,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// Public projects the fields safe to return to callers.
func (i Identity) Public() Public {
	return Public{
		ID:             i.ID,
		Address:        i.Address,
		WalletProvider: i.DisplayProvider(),
		Email:          i.Email,
		CreatedAt:      i.CreatedAt,
	}
}
