package events

import (
	"strconv"

	"inviteregistry/core/types"
)

const (
	TypeInviteSignerChanged        = "invite.signer.changed"
	TypeInviteCodeAdded            = "invite.code.added"
	TypeInviteCodeUsed             = "invite.code.used"
	TypeInviteAuthorizationChanged = "invite.authorization.changed"
	TypeInviteMintableChanged      = "invite.mintable.changed"
	TypeInviteUnclaimedChanged     = "invite.unclaimed.changed"
	TypeInviteOwnerTransferred     = "invite.owner.transferred"
	TypeInviteUpgraded             = "invite.upgraded"
)

// InviteSignerChanged is emitted when governance replaces the trusted signer.
type InviteSignerChanged struct {
	Signer [20]byte
}

// EventType implements the Event interface.
func (InviteSignerChanged) EventType() string { return TypeInviteSignerChanged }

// Event converts the strongly typed event to the generic representation used by subscribers.
func (e InviteSignerChanged) Event() *types.Event {
	return &types.Event{
		Type:       TypeInviteSignerChanged,
		Attributes: map[string]string{"signer": formatAddress(e.Signer)},
	}
}

// InviteCodeAdded is emitted when a code is bound to an issuing account.
type InviteCodeAdded struct {
	Account [20]byte
	Code    string
}

// EventType implements the Event interface.
func (InviteCodeAdded) EventType() string { return TypeInviteCodeAdded }

// Event converts the strongly typed event to the generic representation used by subscribers.
func (e InviteCodeAdded) Event() *types.Event {
	return &types.Event{
		Type: TypeInviteCodeAdded,
		Attributes: map[string]string{
			"account": formatAddress(e.Account),
			"code":    e.Code,
		},
	}
}

// InviteCodeUsed is emitted when an invitee redeems an issuer's code.
type InviteCodeUsed struct {
	Invitee [20]byte
	Issuer  [20]byte
	Code    string
}

// EventType implements the Event interface.
func (InviteCodeUsed) EventType() string { return TypeInviteCodeUsed }

// Event converts the strongly typed event to the generic representation used by subscribers.
func (e InviteCodeUsed) Event() *types.Event {
	return &types.Event{
		Type: TypeInviteCodeUsed,
		Attributes: map[string]string{
			"invitee": formatAddress(e.Invitee),
			"issuer":  formatAddress(e.Issuer),
			"code":    e.Code,
		},
	}
}

// InviteReferenceChanged is emitted by the governance setters for the
// collaborator addresses. Kind selects the concrete event type.
type InviteReferenceChanged struct {
	Kind    string
	Address [20]byte
}

// EventType implements the Event interface.
func (e InviteReferenceChanged) EventType() string { return e.Kind }

// Event converts the strongly typed event to the generic representation used by subscribers.
func (e InviteReferenceChanged) Event() *types.Event {
	return &types.Event{
		Type:       e.Kind,
		Attributes: map[string]string{"address": formatAddress(e.Address)},
	}
}

// InviteOwnerTransferred is emitted when governance ownership moves.
type InviteOwnerTransferred struct {
	Previous [20]byte
	Owner    [20]byte
}

// EventType implements the Event interface.
func (InviteOwnerTransferred) EventType() string { return TypeInviteOwnerTransferred }

// Event converts the strongly typed event to the generic representation used by subscribers.
func (e InviteOwnerTransferred) Event() *types.Event {
	return &types.Event{
		Type: TypeInviteOwnerTransferred,
		Attributes: map[string]string{
			"previous": formatAddress(e.Previous),
			"owner":    formatAddress(e.Owner),
		},
	}
}

// InviteUpgraded is emitted after the registry storage layout is migrated.
type InviteUpgraded struct {
	From uint32
	To   uint32
}

// EventType implements the Event interface.
func (InviteUpgraded) EventType() string { return TypeInviteUpgraded }

// Event converts the strongly typed event to the generic representation used by subscribers.
func (e InviteUpgraded) Event() *types.Event {
	return &types.Event{
		Type: TypeInviteUpgraded,
		Attributes: map[string]string{
			"from": strconv.FormatUint(uint64(e.From), 10),
			"to":   strconv.FormatUint(uint64(e.To), 10),
		},
	}
}
