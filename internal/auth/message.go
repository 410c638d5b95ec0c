package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	messageTitle   = "TrustLoan Login"
	addressLabel   = "Address: "
	nonceLabel     = "Nonce: "
	issuedAtLabel  = "Issued At: "
	signatureBytes = 65
)

// challengeMessage is the parsed form of the text a wallet signs.
type challengeMessage struct {
	Address  string
	Nonce    string
	IssuedAt time.Time
}

func (m challengeMessage) String() string {
	return messageTitle + "\n" +
		addressLabel + m.Address + "\n" +
		nonceLabel + m.Nonce + "\n" +
		issuedAtLabel + m.IssuedAt.UTC().Format(time.RFC3339)
}

func parseChallengeMessage(text string) (challengeMessage, error) {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	if len(lines) == 0 || lines[0] != messageTitle {
		return challengeMessage{}, fmt.Errorf("unexpected message title")
	}
	var (
		msg      challengeMessage
		issuedAt string
	)
	for _, line := range lines[1:] {
		switch {
		case strings.HasPrefix(line, addressLabel):
			msg.Address = strings.TrimPrefix(line, addressLabel)
		case strings.HasPrefix(line, nonceLabel):
			msg.Nonce = strings.TrimPrefix(line, nonceLabel)
		case strings.HasPrefix(line, issuedAtLabel):
			issuedAt = strings.TrimPrefix(line, issuedAtLabel)
		}
	}
	if msg.Address == "" || msg.Nonce == "" || issuedAt == "" {
		return challengeMessage{}, fmt.Errorf("message missing address, nonce or timestamp")
	}
	t, err := time.Parse(time.RFC3339, issuedAt)
	if err != nil {
		return challengeMessage{}, fmt.Errorf("invalid timestamp format: %w", err)
	}
	msg.IssuedAt = t
	return msg, nil
}

// recoverSigner returns the address that produced an EIP-191 personal_sign signature over message.
func recoverSigner(message, signature string) (string, error) {
	sig, err := hexutil.Decode(strings.TrimSpace(signature))
	if err != nil {
		return "", fmt.Errorf("invalid signature encoding: %w", err)
	}
	if len(sig) != signatureBytes {
		return "", fmt.Errorf("signature must be %d bytes, got %d", signatureBytes, len(sig))
	}
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}
	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return "", fmt.Errorf("recover public key: %w", err)
	}
	return crypto.PubkeyToAddress(*pub).Hex(), nil
}
