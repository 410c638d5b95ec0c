package wallet

import (
	"fmt"
	"strings"
)

// Provider names a browser wallet extension.
type Provider string

const (
	MetaMask    Provider = "metamask"
	TrustWallet Provider = "trustwallet"
	OKXWallet   Provider = "okxwallet"
)

// SupportedProviders is the closed, ordered set of accepted providers.
// The first entry is the default and the detector's fallback.
var SupportedProviders = []Provider{MetaMask, TrustWallet, OKXWallet}

// DefaultProvider is assumed for records that predate provider tracking.
const DefaultProvider = MetaMask

// InvalidProviderError is returned by ParseProvider for names outside the supported set.
type InvalidProviderError struct {
	Name string
}

func (e *InvalidProviderError) Error() string {
	return fmt.Sprintf("unsupported wallet provider %q", e.Name)
}

// IsSupportedProvider reports whether the lowercased name is in SupportedProviders.
func IsSupportedProvider(name string) bool {
	name = strings.ToLower(name)
	for _, p := range SupportedProviders {
		if string(p) == name {
			return true
		}
	}
	return false
}

// ParseProvider trims and lowercases name and returns the matching Provider.
func ParseProvider(name string) (Provider, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if !IsSupportedProvider(normalized) {
		return "", &InvalidProviderError{Name: name}
	}
	return Provider(normalized), nil
}

// SupportedProviderList renders the supported set for user-facing messages.
func SupportedProviderList() string {
	names := make([]string, len(SupportedProviders))
	for i, p := range SupportedProviders {
		names[i] = string(p)
	}
	return strings.Join(names, ", ")
}

// OrDefault returns p, or DefaultProvider when p is empty.
func (p Provider) OrDefault() Provider {
	if p == "" {
		return DefaultProvider
	}
	return p
}
