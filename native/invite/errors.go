package invite

import "errors"

var (
	ErrInvalidSigner       = errors.New("invite: invalid signer")
	ErrNotOwner            = errors.New("invite: caller is not the owner")
	ErrAlreadyRegistered   = errors.New("invite: already registered")
	ErrCodeOwnerNotFound   = errors.New("invite: address not found")
	ErrInvalidCode         = errors.New("invite: invalid code")
	ErrAlreadyRedeemed     = errors.New("invite: already redeemed invite code")
	ErrVerificationFailed  = errors.New("invite: verification failed")
	ErrNotInitialized      = errors.New("invite: registry not initialised")
	ErrAlreadyInitialized  = errors.New("invite: registry already initialised")
	ErrEmptyCode           = errors.New("invite: empty code")
	ErrCodeTaken           = errors.New("invite: code already bound to another account")
	ErrCallerNotInvitee    = errors.New("invite: caller is not the invitee")
	ErrUnsupportedVersion  = errors.New("invite: operation not supported by layout version")
	ErrLayoutIncompatible  = errors.New("invite: storage layout incompatible")
	ErrZeroAddress         = errors.New("invite: zero address")
	ErrInvalidAmount       = errors.New("invite: invalid amount")
	ErrLedgersUnavailable  = errors.New("invite: reward ledgers not wired")
	ErrCodeTooLong         = errors.New("invite: code too long")
)
