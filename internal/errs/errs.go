// Package errs defines the error taxonomy shared by the payment,
// account and audit-chain subsystems. Callers use the As* helpers to
// decide whether an operation may be retried: validation and chain
// errors must not be, network errors may be.
package errs

import (
	"errors"
	"fmt"
)

// ConfigError is fatal: a required setting (base account secret,
// contract id, ...) is missing or unusable. Surfaced at startup or
// first use, never retried.
type ConfigError struct {
	Key    string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Key, e.Reason)
}

// NetworkError wraps a transport-level failure (timeout, unreachable
// endpoint). The operation outcome is unknown and the caller may retry
// read-only calls.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ValidationError rejects bad input before any side effect is attempted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation error: %s", e.Reason)
	}
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Reason)
}

// ChainError is a network-confirmed rejection: the ledger or the
// contract runtime received the transaction and refused it. Blind
// retries risk double payment.
type ChainError struct {
	Op          string
	Code        string
	ResultCodes []string
	Detail      string
}

func (e *ChainError) Error() string {
	if len(e.ResultCodes) > 0 {
		return fmt.Sprintf("chain error during %s: %s %v", e.Op, e.Code, e.ResultCodes)
	}
	return fmt.Sprintf("chain error during %s: %s: %s", e.Op, e.Code, e.Detail)
}

// NotFoundError reports an unknown transaction, account or campaign.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func AsConfig(err error) (*ConfigError, bool) {
	var ce *ConfigError
	return ce, errors.As(err, &ce)
}

func AsNetwork(err error) (*NetworkError, bool) {
	var ne *NetworkError
	return ne, errors.As(err, &ne)
}

func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	return ve, errors.As(err, &ve)
}

func AsChain(err error) (*ChainError, bool) {
	var ce *ChainError
	return ce, errors.As(err, &ce)
}

func AsNotFound(err error) (*NotFoundError, bool) {
	var nf *NotFoundError
	return nf, errors.As(err, &nf)
}

// IsRetryable reports whether the failure's outcome is unknown and the
// call may be repeated. Only network failures qualify; everything else
// in the taxonomy is a definitive answer.
func IsRetryable(err error) bool {
	_, ok := AsNetwork(err)
	return ok
}
