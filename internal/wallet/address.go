package wallet

import (
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ErrInvalidAddress is returned when a string is not a 0x-prefixed 20 byte hex address.
var ErrInvalidAddress = errors.New("invalid ethereum address")

const addressLength = 2 + 2*common.AddressLength

// IsValidAddress reports whether s is "0x" followed by exactly 40 hex digits.
// Letter case is ignored; no checksum is enforced.
func IsValidAddress(s string) bool {
	if len(s) != addressLength {
		return false
	}
	if s[0] != '0' || (s[1] != 'x' && s[1] != 'X') {
		return false
	}
	return common.IsHexAddress(s)
}

// NormalizeAddress trims and lowercases s. It fails when the result is not a valid address.
func NormalizeAddress(s string) (string, error) {
	addr := strings.ToLower(strings.TrimSpace(s))
	if !IsValidAddress(addr) {
		return "", ErrInvalidAddress
	}
	return addr, nil
}

// ChecksumAddress renders a valid address in EIP-55 mixed case. Invalid input is returned unchanged.
func ChecksumAddress(s string) string {
	if !IsValidAddress(s) {
		return s
	}
	return common.HexToAddress(s).Hex()
}
