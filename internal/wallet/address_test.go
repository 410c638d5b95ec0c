package wallet

import (
	"strings"
	"testing"
)

func TestIsValidAddress(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  bool
	}{
		{name: "mixed case", input: "0xAbC1230000000000000000000000000000000000", want: true},
		{name: "lowercase", input: "0x96bebc6c5f7547a8a1addc0a0aa80744d9c99065", want: true},
		{name: "uppercase hex", input: "0x96BEBC6C5F7547A8A1ADDC0A0AA80744D9C99065", want: true},
		{name: "upper prefix", input: "0X96bebc6c5f7547a8a1addc0a0aa80744d9c99065", want: true},
		{name: "too short", input: "0x123", want: false},
		{name: "too long", input: "0x96bebc6c5f7547a8a1addc0a0aa80744d9c990651", want: false},
		{name: "missing prefix", input: "96bebc6c5f7547a8a1addc0a0aa80744d9c99065", want: false},
		{name: "missing prefix padded", input: "0096bebc6c5f7547a8a1addc0a0aa80744d9c99065", want: false},
		{name: "non hex", input: "0xZZbebc6c5f7547a8a1addc0a0aa80744d9c99065", want: false},
		{name: "surrounding space", input: " 0x96bebc6c5f7547a8a1addc0a0aa80744d9c9906", want: false},
		{name: "empty", input: "", want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsValidAddress(tc.input); got != tc.want {
				t.Fatalf("IsValidAddress(%q) = %v, want %v", tc.input, got, tc.want)
			}
		})
	}
}

func TestNormalizeAddress(t *testing.T) {
	got, err := NormalizeAddress("  0xAbC1230000000000000000000000000000000000 ")
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if got != "0xabc1230000000000000000000000000000000000" {
		t.Fatalf("unexpected normalized address %s", got)
	}

	if _, err := NormalizeAddress("0x123"); err != ErrInvalidAddress {
		t.Fatalf("expected ErrInvalidAddress, got %v", err)
	}
}

func TestChecksumAddress(t *testing.T) {
	const checksummed = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	if got := ChecksumAddress(strings.ToLower(checksummed)); got != checksummed {
		t.Fatalf("ChecksumAddress = %s, want %s", got, checksummed)
	}
	if ChecksumAddress("0x123") != "0x123" {
		t.Fatalf("invalid input should be returned unchanged")
	}
}
