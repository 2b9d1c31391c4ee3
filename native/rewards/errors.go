package rewards

import "errors"

var (
	ErrNotOwner           = errors.New("rewards: caller is not the ledger owner")
	ErrUnauthorizedCaller = errors.New("rewards: caller not authorized to credit")
	ErrLedgerNotDeployed  = errors.New("rewards: ledger not initialised")
	ErrAlreadyInitialized = errors.New("rewards: ledger already initialised")
	ErrInvalidAmount      = errors.New("rewards: invalid amount")
	ErrZeroAddress        = errors.New("rewards: zero address")
)
