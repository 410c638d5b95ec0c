package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shillmonger/TrustLoanETH/internal/identity"
	"github.com/shillmonger/TrustLoanETH/internal/session"
	"github.com/shillmonger/TrustLoanETH/internal/wallet"
)

var (
	// ErrInvalidChallenge covers unknown, expired, reused or tampered sign-in messages.
	ErrInvalidChallenge = errors.New("sign-in challenge expired or invalid")
	// ErrInvalidSignature is returned when the signature does not recover to the claimed address.
	ErrInvalidSignature = errors.New("signature does not match address")
)

const maxClockSkew = time.Minute

// Config tunes challenge and session lifetimes.
type Config struct {
	NonceTTL   time.Duration
	SessionTTL time.Duration
}

// Service issues sign-in challenges and exchanges signed challenges for sessions.
type Service struct {
	ids      *identity.Service
	sessions session.Store
	nonces   NonceStore
	cfg      Config
	now      func() time.Time
}

// NewService wires the wallet sign-in flow.
func NewService(ids *identity.Service, sessions session.Store, nonces NonceStore, cfg Config) *Service {
	return &Service{ids: ids, sessions: sessions, nonces: nonces, cfg: cfg, now: func() time.Time { return time.Now().UTC() }}
}

// Challenge is the text a wallet must sign to obtain a session.
type Challenge struct {
	Nonce     string    `json:"nonce"`
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Challenge issues a single-use nonce for address and returns the message to sign.
func (s *Service) Challenge(ctx context.Context, address string) (Challenge, error) {
	addr, err := wallet.NormalizeAddress(address)
	if err != nil {
		return Challenge{}, &identity.ValidationError{Message: identity.MsgInvalidAddress}
	}
	now := s.now()
	msg := challengeMessage{Address: addr, Nonce: uuid.NewString(), IssuedAt: now.Truncate(time.Second)}
	if err := s.nonces.Put(ctx, msg.Nonce, addr, s.cfg.NonceTTL); err != nil {
		return Challenge{}, fmt.Errorf("issue nonce: %w", err)
	}
	return Challenge{Nonce: msg.Nonce, Message: msg.String(), ExpiresAt: msg.IssuedAt.Add(s.cfg.NonceTTL)}, nil
}

// SignInInput carries a signed challenge.
type SignInInput struct {
	Address   string
	Message   string
	Signature string
}

// SignIn verifies a signed challenge, remembers the address and opens a session.
func (s *Service) SignIn(ctx context.Context, in SignInInput) (session.Session, error) {
	addr, err := wallet.NormalizeAddress(in.Address)
	if err != nil {
		return session.Session{}, &identity.ValidationError{Message: identity.MsgInvalidAddress}
	}

	msg, err := parseChallengeMessage(in.Message)
	if err != nil {
		return session.Session{}, ErrInvalidChallenge
	}
	if !strings.EqualFold(msg.Address, addr) {
		return session.Session{}, ErrInvalidChallenge
	}
	now := s.now()
	age := now.Sub(msg.IssuedAt)
	if age < -maxClockSkew || age > s.cfg.NonceTTL {
		return session.Session{}, ErrInvalidChallenge
	}

	signer, err := recoverSigner(in.Message, in.Signature)
	if err != nil || !strings.EqualFold(signer, addr) {
		return session.Session{}, ErrInvalidSignature
	}

	issuedFor, err := s.nonces.Consume(ctx, msg.Nonce)
	if err != nil {
		if errors.Is(err, ErrInvalidChallenge) {
			return session.Session{}, err
		}
		return session.Session{}, fmt.Errorf("consume nonce: %w", err)
	}
	if issuedFor != addr {
		return session.Session{}, ErrInvalidChallenge
	}

	rec, err := s.ids.SaveUser(ctx, addr)
	if err != nil {
		return session.Session{}, fmt.Errorf("remember signer: %w", err)
	}

	sess := session.New(rec.ID, rec.Email, rec.Address, now, s.cfg.SessionTTL)
	if err := s.sessions.Create(ctx, sess); err != nil {
		return session.Session{}, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

// SignOut deletes the session behind token.
func (s *Service) SignOut(ctx context.Context, token string) error {
	if err := s.sessions.Delete(ctx, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
