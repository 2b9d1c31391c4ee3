package invite

import (
	"fmt"

	"inviteregistry/core/events"
)

// ChangeAuthorizedSigner replaces the trusted signer.
func (r *Registry) ChangeAuthorizedSigner(caller, signer [20]byte) error {
	if err := r.requireOwner(caller); err != nil {
		return err
	}
	if err := r.putAddress(slotKey(r.address, SlotAuthorizedSigner), signer); err != nil {
		return err
	}
	r.emitter.Emit(events.InviteSignerChanged{Signer: signer})
	return nil
}

func (r *Registry) setReference(caller [20]byte, slot, kind string, addr [20]byte) error {
	if err := r.requireOwner(caller); err != nil {
		return err
	}
	if _, err := r.requireSlot(slot); err != nil {
		return err
	}
	if err := r.putAddress(slotKey(r.address, slot), addr); err != nil {
		return err
	}
	r.emitter.Emit(events.InviteReferenceChanged{Kind: kind, Address: addr})
	return nil
}

// SetAuthorizationContractAddress replaces the authorization reference.
func (r *Registry) SetAuthorizationContractAddress(caller, addr [20]byte) error {
	return r.setReference(caller, SlotAuthorizationContract, events.TypeInviteAuthorizationChanged, addr)
}

// SetMintableRegistryContractAddress replaces the claimed ledger reference.
func (r *Registry) SetMintableRegistryContractAddress(caller, addr [20]byte) error {
	return r.setReference(caller, SlotMintableRegistry, events.TypeInviteMintableChanged, addr)
}

// SetUnclaimedRegistryContractAddress replaces the unclaimed ledger reference.
func (r *Registry) SetUnclaimedRegistryContractAddress(caller, addr [20]byte) error {
	return r.setReference(caller, SlotUnclaimedRegistry, events.TypeInviteUnclaimedChanged, addr)
}

// TransferOwnership hands governance to owner. The previous owner keeps no
// rights.
func (r *Registry) TransferOwnership(caller, owner [20]byte) error {
	if err := r.requireOwner(caller); err != nil {
		return err
	}
	if owner == ([20]byte{}) {
		return ErrZeroAddress
	}
	if err := r.putAddress(slotKey(r.address, SlotOwner), owner); err != nil {
		return err
	}
	r.emitter.Emit(events.InviteOwnerTransferred{Previous: caller, Owner: owner})
	return nil
}

// Upgrade moves the registry logic to target. Only the version record is
// rewritten; target must keep every slot of the current layout in place.
func (r *Registry) Upgrade(caller [20]byte, target uint32) error {
	if err := r.requireOwner(caller); err != nil {
		return err
	}
	current, err := r.layout()
	if err != nil {
		return err
	}
	next, err := LayoutFor(target)
	if err != nil {
		return err
	}
	if next.Version == current.Version {
		return fmt.Errorf("%w: already at v%d", ErrUnsupportedVersion, current.Version)
	}
	if err := CheckLayout(current, next); err != nil {
		return err
	}
	if err := r.st.KVPut(layoutKey(r.address), layoutRecord{Version: next.Version, Fingerprint: next.Fingerprint()}); err != nil {
		return err
	}
	r.emitter.Emit(events.InviteUpgraded{From: current.Version, To: next.Version})
	return nil
}
