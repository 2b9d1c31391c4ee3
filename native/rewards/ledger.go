package rewards

import (
	"fmt"
	"math/big"
	"strings"

	"inviteregistry/core/events"
)

// store abstracts the subset of state manager functionality required by the
// reward ledgers.
type store interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVAppend(key []byte, value []byte) error
	KVGetList(key []byte, out interface{}) error
}

// Ledger is a credit-balance registry living at its own address. Only callers
// on its allow-list may credit balances; the allow-list is managed by the
// ledger owner.
type Ledger struct {
	st      store
	address [20]byte
	emitter events.Emitter
}

// NewLedger binds a ledger view to the state at the given address. The ledger
// does not need to be initialised for reads; balances of an unknown ledger are
// zero.
func NewLedger(st store, address [20]byte) *Ledger {
	return &Ledger{st: st, address: address, emitter: events.NoopEmitter{}}
}

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (l *Ledger) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		l.emitter = events.NoopEmitter{}
		return
	}
	l.emitter = emitter
}

// Address returns the ledger address.
func (l *Ledger) Address() [20]byte {
	return l.address
}

// Initialize performs the one-time setup making caller the owner.
func (l *Ledger) Initialize(caller [20]byte) error {
	if l.address == ([20]byte{}) || caller == ([20]byte{}) {
		return ErrZeroAddress
	}
	_, ok, err := l.Owner()
	if err != nil {
		return err
	}
	if ok {
		return ErrAlreadyInitialized
	}
	if err := l.st.KVPut(ownerKey(l.address), caller); err != nil {
		return err
	}
	l.emitter.Emit(events.RewardsInitialized{Ledger: l.address, Owner: caller})
	return nil
}

// Owner returns the ledger owner and whether the ledger was initialised.
func (l *Ledger) Owner() ([20]byte, bool, error) {
	var owner [20]byte
	ok, err := l.st.KVGet(ownerKey(l.address), &owner)
	if err != nil {
		return [20]byte{}, false, err
	}
	return owner, ok, nil
}

func (l *Ledger) requireOwner(caller [20]byte) error {
	owner, ok, err := l.Owner()
	if err != nil {
		return err
	}
	if !ok {
		return ErrLedgerNotDeployed
	}
	if caller != owner {
		return ErrNotOwner
	}
	return nil
}

// AddAuthorizedCaller places addr on the credit allow-list.
func (l *Ledger) AddAuthorizedCaller(caller, addr [20]byte) error {
	if err := l.requireOwner(caller); err != nil {
		return err
	}
	if addr == ([20]byte{}) {
		return ErrZeroAddress
	}
	if err := l.st.KVPut(callerKey(l.address, addr), true); err != nil {
		return err
	}
	if err := l.st.KVAppend(callerIndexKey(l.address), addr[:]); err != nil {
		return err
	}
	l.emitter.Emit(events.RewardsCallerChanged{Ledger: l.address, Caller: addr})
	return nil
}

// RemoveAuthorizedCaller takes addr off the credit allow-list.
func (l *Ledger) RemoveAuthorizedCaller(caller, addr [20]byte) error {
	if err := l.requireOwner(caller); err != nil {
		return err
	}
	if err := l.st.KVPut(callerKey(l.address, addr), false); err != nil {
		return err
	}
	l.emitter.Emit(events.RewardsCallerChanged{Ledger: l.address, Caller: addr, Removed: true})
	return nil
}

// IsAuthorizedCaller reports whether addr may credit balances.
func (l *Ledger) IsAuthorizedCaller(addr [20]byte) (bool, error) {
	var allowed bool
	if _, err := l.st.KVGet(callerKey(l.address, addr), &allowed); err != nil {
		return false, err
	}
	return allowed, nil
}

// AuthorizedCallers lists the addresses currently on the allow-list in the
// order they were first added.
func (l *Ledger) AuthorizedCallers() ([][20]byte, error) {
	var raw [][]byte
	if err := l.st.KVGetList(callerIndexKey(l.address), &raw); err != nil {
		return nil, err
	}
	out := make([][20]byte, 0, len(raw))
	for _, b := range raw {
		var addr [20]byte
		copy(addr[:], b)
		allowed, err := l.IsAuthorizedCaller(addr)
		if err != nil {
			return nil, err
		}
		if allowed {
			out = append(out, addr)
		}
	}
	return out, nil
}

// CreditBalance adds amount to account's balance. The caller must be on the
// allow-list; reason, rewardType and initiator are recorded in the emitted
// event only.
func (l *Ledger) CreditBalance(caller, account [20]byte, amount *big.Int, reason, rewardType string, initiator [20]byte) error {
	if _, ok, err := l.Owner(); err != nil {
		return err
	} else if !ok {
		return ErrLedgerNotDeployed
	}
	allowed, err := l.IsAuthorizedCaller(caller)
	if err != nil {
		return err
	}
	if !allowed {
		return ErrUnauthorizedCaller
	}
	if account == ([20]byte{}) {
		return ErrZeroAddress
	}
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("%w: amount must be non-negative", ErrInvalidAmount)
	}
	balance, err := l.BalanceOf(account)
	if err != nil {
		return err
	}
	balance.Add(balance, amount)
	if err := l.st.KVPut(balanceKey(l.address, account), balance); err != nil {
		return err
	}
	total, err := l.TotalCredited()
	if err != nil {
		return err
	}
	total.Add(total, amount)
	if err := l.st.KVPut(totalKey(l.address), total); err != nil {
		return err
	}
	l.emitter.Emit(events.RewardsCredited{
		Ledger:     l.address,
		Account:    account,
		Amount:     new(big.Int).Set(amount),
		Reason:     strings.TrimSpace(reason),
		RewardType: strings.TrimSpace(rewardType),
		Initiator:  initiator,
	})
	return nil
}

// BalanceOf returns the balance of account; unknown accounts hold zero.
func (l *Ledger) BalanceOf(account [20]byte) (*big.Int, error) {
	balance := new(big.Int)
	if _, err := l.st.KVGet(balanceKey(l.address, account), balance); err != nil {
		return nil, err
	}
	return balance, nil
}

// TotalCredited returns the sum of all credits made by the ledger.
func (l *Ledger) TotalCredited() (*big.Int, error) {
	total := new(big.Int)
	if _, err := l.st.KVGet(totalKey(l.address), total); err != nil {
		return nil, err
	}
	return total, nil
}
