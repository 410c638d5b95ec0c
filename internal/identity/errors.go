package identity

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no identity matches a lookup.
	ErrNotFound = errors.New("identity not found")
	// ErrNoWallet is returned when an identity exists but has no address bound.
	ErrNoWallet = errors.New("no wallet registered")
)

// User-facing messages.
const (
	MsgInvalidAddress    = "Invalid Ethereum address"
	MsgAddressRequired   = "Wallet address is required"
	MsgAddressRegistered = "Wallet address already registered"
	MsgEmailRegistered   = "Email already registered"
	MsgUserNotFound      = "User not found"
	MsgNoWallet          = "No wallet registered"
	MsgInternal          = "Internal server error"
)

// ValidationError reports malformed input. Message is safe to show to callers.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Field identifies the unique attribute involved in a conflict.
type Field string

const (
	FieldAddress Field = "address"
	FieldEmail   Field = "email"
)

// ConflictError reports a uniqueness violation on Field.
type ConflictError struct {
	Field Field
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s already registered", e.Field)
}

// Message returns the user-facing text for the conflict.
func (e *ConflictError) Message() string {
	if e.Field == FieldEmail {
		return MsgEmailRegistered
	}
	return MsgAddressRegistered
}
