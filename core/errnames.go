package core

import (
	"errors"

	"inviteregistry/core/state"
	"inviteregistry/native/invite"
	"inviteregistry/native/rewards"
)

var errorNames = []struct {
	err  error
	name string
}{
	{invite.ErrInvalidSigner, "InvalidSigner"},
	{invite.ErrNotOwner, "NotOwner"},
	{invite.ErrAlreadyRegistered, "AlreadyRegistered"},
	{invite.ErrCodeOwnerNotFound, "CodeOwnerNotFound"},
	{invite.ErrInvalidCode, "InvalidCode"},
	{invite.ErrAlreadyRedeemed, "AlreadyRedeemed"},
	{invite.ErrVerificationFailed, "VerificationFailed"},
	{invite.ErrNotInitialized, "NotInitialized"},
	{invite.ErrAlreadyInitialized, "AlreadyInitialized"},
	{invite.ErrEmptyCode, "EmptyCode"},
	{invite.ErrCodeTooLong, "CodeTooLong"},
	{invite.ErrCodeTaken, "CodeTaken"},
	{invite.ErrCallerNotInvitee, "CallerNotInvitee"},
	{invite.ErrUnsupportedVersion, "UnsupportedVersion"},
	{invite.ErrLayoutIncompatible, "LayoutIncompatible"},
	{invite.ErrZeroAddress, "ZeroAddress"},
	{invite.ErrInvalidAmount, "InvalidAmount"},
	{invite.ErrLedgersUnavailable, "LedgersUnavailable"},
	{rewards.ErrNotOwner, "LedgerNotOwner"},
	{rewards.ErrUnauthorizedCaller, "UnauthorizedCaller"},
	{rewards.ErrLedgerNotDeployed, "LedgerNotDeployed"},
	{rewards.ErrAlreadyInitialized, "LedgerAlreadyInitialized"},
	{rewards.ErrInvalidAmount, "LedgerInvalidAmount"},
	{rewards.ErrZeroAddress, "LedgerZeroAddress"},
	{ErrInvalidSignature, "InvalidSignature"},
	{ErrInvalidChainID, "InvalidChainID"},
	{ErrNonceTooLow, "NonceTooLow"},
	{ErrNonceTooHigh, "NonceTooHigh"},
	{ErrUnknownMethod, "UnknownMethod"},
	{ErrInvalidParams, "InvalidParams"},
	{ErrReceiptNotFound, "ReceiptNotFound"},
	{state.ErrStateVersionMismatch, "StateVersionMismatch"},
	{state.ErrStateFromFuture, "StateFromFuture"},
}

// ErrorName returns the stable name of the first known error in err's chain,
// or "Internal" when none matches.
func ErrorName(err error) string {
	if err == nil {
		return ""
	}
	for _, entry := range errorNames {
		if errors.Is(err, entry.err) {
			return entry.name
		}
	}
	return "Internal"
}
