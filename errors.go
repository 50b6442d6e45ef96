package walletcore

import (
	"fmt"
)

// Kind is the closed failure taxonomy. Every error surfaced by a top-level
// operation wraps one of these so callers can match on kind instead of
// message text.
type Kind string

const (
	KindTransport      Kind = "transport"
	KindChain          Kind = "chain"
	KindHistory        Kind = "history"
	KindSigningRequest Kind = "signingRequest"
	KindSecretStore    Kind = "secretStore"
	KindValidation     Kind = "validation"
)

type Error struct {
	Kind Kind
	Op   string // the operation that failed, e.g. "sync.account"
	Err  error

	// structured context, never folded into the message
	ChainID string
	Account string
	SID     string
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func errKind(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// IsKind reports whether err carries the given kind anywhere in its tree,
// including joined errors.
func IsKind(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	if e, ok := err.(*Error); ok && e.Kind == kind {
		return true
	}
	switch u := err.(type) {
	case interface{ Unwrap() error }:
		return IsKind(u.Unwrap(), kind)
	case interface{ Unwrap() []error }:
		for _, joined := range u.Unwrap() {
			if IsKind(joined, kind) {
				return true
			}
		}
	}
	return false
}
