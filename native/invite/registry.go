package invite

import (
	"fmt"
	"math/big"

	"inviteregistry/core/events"
)

// MaxCodeLength bounds the size of an invite code in bytes.
const MaxCodeLength = 128

// store abstracts the subset of state manager functionality required by the
// registry.
type store interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

// CreditLedger is the credit interface of a reward ledger.
type CreditLedger interface {
	CreditBalance(caller, account [20]byte, amount *big.Int, reason, rewardType string, initiator [20]byte) error
}

// LedgerResolver returns the reward ledger living at addr.
type LedgerResolver func(addr [20]byte) CreditLedger

// Registry is the invite-code state machine bound to its registry address.
// Every mutation re-reads the records it depends on from state before writing.
type Registry struct {
	st      store
	address [20]byte
	emitter events.Emitter
	ledgers LedgerResolver
}

// NewRegistry creates a registry view over st at the given address.
func NewRegistry(st store, address [20]byte) *Registry {
	return &Registry{st: st, address: address, emitter: events.NoopEmitter{}}
}

// SetEmitter configures the event emitter used to broadcast registry updates.
// Passing nil resets the emitter to a no-op implementation.
func (r *Registry) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		r.emitter = events.NoopEmitter{}
		return
	}
	r.emitter = emitter
}

// SetLedgers wires the resolver used by the award pathways.
func (r *Registry) SetLedgers(resolver LedgerResolver) {
	r.ledgers = resolver
}

// Address returns the registry address.
func (r *Registry) Address() [20]byte {
	return r.address
}

// Initialize performs the one-time setup at the latest layout version.
func (r *Registry) Initialize(caller [20]byte) error {
	return r.InitializeVersion(caller, LatestVersion)
}

// InitializeVersion sets caller as owner and records the layout of version.
// The signer and ledger references stay empty until configured.
func (r *Registry) InitializeVersion(caller [20]byte, version uint32) error {
	if caller == ([20]byte{}) {
		return ErrZeroAddress
	}
	layout, err := LayoutFor(version)
	if err != nil {
		return err
	}
	found, err := r.st.KVGet(layoutKey(r.address), new(layoutRecord))
	if err != nil {
		return err
	}
	if found {
		return ErrAlreadyInitialized
	}
	if err := r.st.KVPut(layoutKey(r.address), layoutRecord{Version: layout.Version, Fingerprint: layout.Fingerprint()}); err != nil {
		return err
	}
	return r.putAddress(slotKey(r.address, SlotOwner), caller)
}

// layout loads and validates the stored layout record.
func (r *Registry) layout() (Layout, error) {
	var rec layoutRecord
	found, err := r.st.KVGet(layoutKey(r.address), &rec)
	if err != nil {
		return Layout{}, err
	}
	if !found {
		return Layout{}, ErrNotInitialized
	}
	layout, err := LayoutFor(rec.Version)
	if err != nil {
		return Layout{}, err
	}
	if layout.Fingerprint() != rec.Fingerprint {
		return Layout{}, fmt.Errorf("%w: fingerprint mismatch for v%d", ErrLayoutIncompatible, rec.Version)
	}
	return layout, nil
}

func (r *Registry) requireSlot(slot string) (Layout, error) {
	layout, err := r.layout()
	if err != nil {
		return Layout{}, err
	}
	if !layout.Has(slot) {
		return Layout{}, fmt.Errorf("%w: v%d has no %s", ErrUnsupportedVersion, layout.Version, slot)
	}
	return layout, nil
}

// Version returns the layout version recorded in state.
func (r *Registry) Version() (uint32, error) {
	layout, err := r.layout()
	if err != nil {
		return 0, err
	}
	return layout.Version, nil
}

func (r *Registry) getAddress(key []byte) ([20]byte, error) {
	var out [20]byte
	if _, err := r.st.KVGet(key, &out); err != nil {
		return [20]byte{}, err
	}
	return out, nil
}

func (r *Registry) putAddress(key []byte, addr [20]byte) error {
	return r.st.KVPut(key, addr)
}

// Owner returns the governance owner.
func (r *Registry) Owner() ([20]byte, error) {
	return r.getAddress(slotKey(r.address, SlotOwner))
}

// AuthorizedSigner returns the trusted signer identity.
func (r *Registry) AuthorizedSigner() ([20]byte, error) {
	return r.getAddress(slotKey(r.address, SlotAuthorizedSigner))
}

// AuthorizationContract returns the configured authorization reference.
func (r *Registry) AuthorizationContract() ([20]byte, error) {
	return r.getAddress(slotKey(r.address, SlotAuthorizationContract))
}

// MintableRegistry returns the address of the claimed reward ledger.
func (r *Registry) MintableRegistry() ([20]byte, error) {
	return r.getAddress(slotKey(r.address, SlotMintableRegistry))
}

// UnclaimedRegistry returns the address of the unclaimed reward ledger.
func (r *Registry) UnclaimedRegistry() ([20]byte, error) {
	return r.getAddress(slotKey(r.address, SlotUnclaimedRegistry))
}

// GetInviteCode returns the code owned by account, or "" when none.
func (r *Registry) GetInviteCode(account [20]byte) (string, error) {
	var code string
	if _, err := r.st.KVGet(accountSlotKey(r.address, SlotInviteCodes, account), &code); err != nil {
		return "", err
	}
	return code, nil
}

// GetInviteCodeOwner returns the account owning code, or the zero address.
func (r *Registry) GetInviteCodeOwner(code string) ([20]byte, error) {
	if code == "" {
		return [20]byte{}, nil
	}
	return r.getAddress(codeSlotKey(r.address, SlotInviteCodeOwners, code))
}

// IsInviteCodeValid reports whether some account owns code.
func (r *Registry) IsInviteCodeValid(code string) (bool, error) {
	owner, err := r.GetInviteCodeOwner(code)
	if err != nil {
		return false, err
	}
	return owner != ([20]byte{}), nil
}

// IsInviteUsed reports whether account already redeemed a code.
func (r *Registry) IsInviteUsed(account [20]byte) (bool, error) {
	var used bool
	if _, err := r.st.KVGet(accountSlotKey(r.address, SlotInviteUsed, account), &used); err != nil {
		return false, err
	}
	return used, nil
}

func (r *Registry) requireSigner(caller [20]byte) error {
	if _, err := r.layout(); err != nil {
		return err
	}
	signer, err := r.AuthorizedSigner()
	if err != nil {
		return err
	}
	if signer == ([20]byte{}) || caller != signer {
		return ErrInvalidSigner
	}
	return nil
}

func (r *Registry) requireOwner(caller [20]byte) error {
	if _, err := r.layout(); err != nil {
		return err
	}
	owner, err := r.Owner()
	if err != nil {
		return err
	}
	if caller != owner {
		return ErrNotOwner
	}
	return nil
}

// RegisterInviteCode binds code to account. Only the trusted signer may call
// it. An account registers at most once and a code is bound to at most one
// account.
func (r *Registry) RegisterInviteCode(caller, account [20]byte, code string) error {
	if err := r.requireSigner(caller); err != nil {
		return err
	}
	if account == ([20]byte{}) {
		return ErrZeroAddress
	}
	if code == "" {
		return ErrEmptyCode
	}
	if len(code) > MaxCodeLength {
		return fmt.Errorf("%w: %d bytes", ErrCodeTooLong, len(code))
	}
	existing, err := r.GetInviteCode(account)
	if err != nil {
		return err
	}
	if existing != "" {
		return ErrAlreadyRegistered
	}
	holder, err := r.GetInviteCodeOwner(code)
	if err != nil {
		return err
	}
	if holder != ([20]byte{}) {
		return ErrCodeTaken
	}
	if err := r.st.KVPut(accountSlotKey(r.address, SlotInviteCodes, account), code); err != nil {
		return err
	}
	if err := r.putAddress(codeSlotKey(r.address, SlotInviteCodeOwners, code), account); err != nil {
		return err
	}
	r.emitter.Emit(events.InviteCodeAdded{Account: account, Code: code})
	return nil
}
