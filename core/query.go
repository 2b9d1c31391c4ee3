package core

import (
	"errors"
	"math/big"

	"inviteregistry/core/events"
	"inviteregistry/core/state"
	"inviteregistry/core/types"
	"inviteregistry/native/invite"
)

// MaxEventsPerQuery bounds the page size of Events.
const MaxEventsPerQuery = 1000

// RegistryConfig is the governance view of the invite registry.
type RegistryConfig struct {
	Address               [20]byte
	Version               uint32
	Owner                 [20]byte
	AuthorizedSigner      [20]byte
	AuthorizationContract [20]byte
	MintableRegistry      [20]byte
	UnclaimedRegistry     [20]byte
}

// readRegistry runs fn against a registry view of the committed state.
func (n *Node) readRegistry(fn func(r *invite.Registry) error) error {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return fn(n.newRegistry(state.NewManager(n.trie), events.NoopEmitter{}))
}

// IsInviteCodeValid reports whether some account owns code.
func (n *Node) IsInviteCodeValid(code string) (bool, error) {
	var valid bool
	err := n.readRegistry(func(r *invite.Registry) (err error) {
		valid, err = r.IsInviteCodeValid(code)
		return err
	})
	return valid, err
}

// InviteCode returns the code owned by account.
func (n *Node) InviteCode(account [20]byte) (string, error) {
	var code string
	err := n.readRegistry(func(r *invite.Registry) (err error) {
		code, err = r.GetInviteCode(account)
		return err
	})
	return code, err
}

// InviteCodeOwner returns the account owning code, or the zero address.
func (n *Node) InviteCodeOwner(code string) ([20]byte, error) {
	var owner [20]byte
	err := n.readRegistry(func(r *invite.Registry) (err error) {
		owner, err = r.GetInviteCodeOwner(code)
		return err
	})
	return owner, err
}

// IsInviteUsed reports whether account redeemed a code.
func (n *Node) IsInviteUsed(account [20]byte) (bool, error) {
	var used bool
	err := n.readRegistry(func(r *invite.Registry) (err error) {
		used, err = r.IsInviteUsed(account)
		return err
	})
	return used, err
}

// RegistryConfig returns the registry governance fields. Version is zero
// while the registry is not initialised.
func (n *Node) RegistryConfig() (RegistryConfig, error) {
	cfg := RegistryConfig{Address: n.registry}
	err := n.readRegistry(func(r *invite.Registry) error {
		var err error
		if cfg.Version, err = r.Version(); err != nil && !errors.Is(err, invite.ErrNotInitialized) {
			return err
		}
		if cfg.Owner, err = r.Owner(); err != nil {
			return err
		}
		if cfg.AuthorizedSigner, err = r.AuthorizedSigner(); err != nil {
			return err
		}
		if cfg.AuthorizationContract, err = r.AuthorizationContract(); err != nil {
			return err
		}
		if cfg.MintableRegistry, err = r.MintableRegistry(); err != nil {
			return err
		}
		cfg.UnclaimedRegistry, err = r.UnclaimedRegistry()
		return err
	})
	return cfg, err
}

// RewardBalance returns the balance of account on the ledger at ledgerAddr.
func (n *Node) RewardBalance(ledgerAddr, account [20]byte) (*big.Int, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.newLedger(state.NewManager(n.trie), ledgerAddr, nil).BalanceOf(account)
}

// Nonce returns the next nonce expected from addr.
func (n *Node) Nonce(addr [20]byte) (uint64, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return state.NewManager(n.trie).Nonce(addr)
}

// Receipt returns the receipt of the transaction with the given hash.
func (n *Node) Receipt(hash string) (*types.Receipt, error) {
	return loadReceipt(n.db, hash)
}

// Events returns up to limit logged events starting at sequence from.
func (n *Node) Events(from uint64, limit int) ([]*types.LoggedEvent, error) {
	if limit <= 0 || limit > MaxEventsPerQuery {
		limit = MaxEventsPerQuery
	}
	n.stateMu.Lock()
	end := n.eventSeq
	n.stateMu.Unlock()

	out := make([]*types.LoggedEvent, 0)
	for seq := from; seq < end && len(out) < limit; seq++ {
		evt, ok, err := loadEvent(n.db, seq)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		out = append(out, evt)
	}
	return out, nil
}
