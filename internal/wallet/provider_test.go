package wallet

import (
	"errors"
	"testing"
)

func TestIsSupportedProvider(t *testing.T) {
	for _, name := range []string{"metamask", "trustwallet", "okxwallet", "MetaMask", "OKXWallet"} {
		if !IsSupportedProvider(name) {
			t.Fatalf("expected %q to be supported", name)
		}
	}
	for _, name := range []string{"", "fakewallet", "coinbase", "meta mask"} {
		if IsSupportedProvider(name) {
			t.Fatalf("expected %q to be rejected", name)
		}
	}
}

func TestParseProvider(t *testing.T) {
	p, err := ParseProvider(" TrustWallet ")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if p != TrustWallet {
		t.Fatalf("expected trustwallet, got %s", p)
	}

	_, err = ParseProvider("fakewallet")
	var invalid *InvalidProviderError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidProviderError, got %v", err)
	}
	if invalid.Name != "fakewallet" {
		t.Fatalf("unexpected name in error: %s", invalid.Name)
	}
}

func TestSupportedProviderList(t *testing.T) {
	if got := SupportedProviderList(); got != "metamask, trustwallet, okxwallet" {
		t.Fatalf("unexpected list %q", got)
	}
	if SupportedProviders[0] != DefaultProvider {
		t.Fatalf("default provider must lead the supported set")
	}
}

func TestProviderOrDefault(t *testing.T) {
	if Provider("").OrDefault() != MetaMask {
		t.Fatalf("empty provider should default to metamask")
	}
	if OKXWallet.OrDefault() != OKXWallet {
		t.Fatalf("set provider should be kept")
	}
}
