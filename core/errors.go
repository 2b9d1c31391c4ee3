package core

import "errors"

var (
	ErrNilTransaction   = errors.New("core: nil transaction")
	ErrInvalidSignature = errors.New("core: invalid transaction signature")
	ErrInvalidChainID   = errors.New("core: chain id mismatch")
	ErrNonceTooLow      = errors.New("core: nonce too low")
	ErrNonceTooHigh     = errors.New("core: nonce too high")
	ErrUnknownMethod    = errors.New("core: unknown method")
	ErrInvalidParams    = errors.New("core: invalid params")
	ErrReceiptNotFound  = errors.New("core: receipt not found")
	ErrZeroRegistry     = errors.New("core: registry address required")
)
