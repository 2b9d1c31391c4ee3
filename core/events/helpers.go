package events

import (
	"math/big"

	"inviteregistry/core/types"
	"inviteregistry/crypto"
)

func formatAddress(addr [20]byte) string {
	return crypto.AddressFromArray(addr).Hex()
}

func formatAmount(amount *big.Int) string {
	if amount == nil {
		return "0"
	}
	return amount.String()
}

// Generic converts a typed event into the representation stored in receipts
// and served over RPC.
func Generic(e Event) *types.Event {
	if e == nil {
		return nil
	}
	if conv, ok := e.(interface{ Event() *types.Event }); ok {
		return conv.Event()
	}
	return &types.Event{Type: e.EventType(), Attributes: map[string]string{}}
}
