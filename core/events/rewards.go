package events

import (
	"math/big"

	"inviteregistry/core/types"
)

const (
	TypeRewardsCredited      = "rewards.credited"
	TypeRewardsCallerAdded   = "rewards.caller.added"
	TypeRewardsCallerRemoved = "rewards.caller.removed"
	TypeRewardsInitialized   = "rewards.initialized"
)

// RewardsCredited is emitted when a reward ledger credits an account.
type RewardsCredited struct {
	Ledger     [20]byte
	Account    [20]byte
	Amount     *big.Int
	Reason     string
	RewardType string
	Initiator  [20]byte
}

// EventType implements the Event interface.
func (RewardsCredited) EventType() string { return TypeRewardsCredited }

// Event converts the strongly typed event to the generic representation used by subscribers.
func (e RewardsCredited) Event() *types.Event {
	attrs := map[string]string{
		"ledger":    formatAddress(e.Ledger),
		"account":   formatAddress(e.Account),
		"amount":    formatAmount(e.Amount),
		"initiator": formatAddress(e.Initiator),
	}
	if e.Reason != "" {
		attrs["reason"] = e.Reason
	}
	if e.RewardType != "" {
		attrs["rewardType"] = e.RewardType
	}
	return &types.Event{Type: TypeRewardsCredited, Attributes: attrs}
}

// RewardsCallerChanged is emitted when a ledger allow-list changes.
type RewardsCallerChanged struct {
	Ledger  [20]byte
	Caller  [20]byte
	Removed bool
}

// EventType implements the Event interface.
func (e RewardsCallerChanged) EventType() string {
	if e.Removed {
		return TypeRewardsCallerRemoved
	}
	return TypeRewardsCallerAdded
}

// Event converts the strongly typed event to the generic representation used by subscribers.
func (e RewardsCallerChanged) Event() *types.Event {
	return &types.Event{
		Type: e.EventType(),
		Attributes: map[string]string{
			"ledger": formatAddress(e.Ledger),
			"caller": formatAddress(e.Caller),
		},
	}
}

// RewardsInitialized is emitted when a ledger is set up at its address.
type RewardsInitialized struct {
	Ledger [20]byte
	Owner  [20]byte
}

// EventType implements the Event interface.
func (RewardsInitialized) EventType() string { return TypeRewardsInitialized }

// Event converts the strongly typed event to the generic representation used by subscribers.
func (e RewardsInitialized) Event() *types.Event {
	return &types.Event{
		Type: TypeRewardsInitialized,
		Attributes: map[string]string{
			"ledger": formatAddress(e.Ledger),
			"owner":  formatAddress(e.Owner),
		},
	}
}
