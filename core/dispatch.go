package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"

	"inviteregistry/core/events"
	"inviteregistry/core/state"
	"inviteregistry/core/types"
	"inviteregistry/crypto"
	"inviteregistry/native/invite"
)

// call is the execution context of one admitted transaction.
type call struct {
	node    *Node
	from    [20]byte
	manager *state.Manager
	emitter events.Emitter
}

func (c *call) registry() *invite.Registry {
	return c.node.newRegistry(c.manager, c.emitter)
}

type handlerFunc func(c *call, params []byte) error

var handlers = map[string]handlerFunc{
	types.MethodInviteInitialize: func(c *call, raw []byte) error {
		var p types.InitializeParams
		if err := decodeParams(raw, &p); err != nil {
			return err
		}
		if p.Version == 0 {
			return c.registry().Initialize(c.from)
		}
		return c.registry().InitializeVersion(c.from, p.Version)
	},
	types.MethodInviteRegisterInviteCode: func(c *call, raw []byte) error {
		var p types.RegisterInviteCodeParams
		if err := decodeParams(raw, &p); err != nil {
			return err
		}
		account, err := parseAddress("account", p.Account)
		if err != nil {
			return err
		}
		return c.registry().RegisterInviteCode(c.from, account, p.Code)
	},
	types.MethodInviteRegisterInviteCodeUsed: func(c *call, raw []byte) error {
		var p types.RedeemParams
		if err := decodeParams(raw, &p); err != nil {
			return err
		}
		invitee, err := parseAddress("invitee", p.Invitee)
		if err != nil {
			return err
		}
		return c.registry().RegisterInviteCodeUsed(c.from, invitee, p.Code)
	},
	types.MethodInviteRegisterInviteCodeUsedAward: func(c *call, raw []byte) error {
		var p types.AwardParams
		if err := decodeParams(raw, &p); err != nil {
			return err
		}
		invitee, err := parseAddress("invitee", p.Invitee)
		if err != nil {
			return err
		}
		amount, err := parseAmount(p.Amount)
		if err != nil {
			return err
		}
		initiator := c.from
		if p.Initiator != "" {
			if initiator, err = parseAddress("initiator", p.Initiator); err != nil {
				return err
			}
		}
		return c.registry().RegisterInviteCodeUsedWithAward(c.from, invitee, p.Code, invite.Award{
			Amount:     amount,
			Reason:     p.Reason,
			RewardType: p.RewardType,
			Initiator:  initiator,
		})
	},
	types.MethodInviteSelfRegisterInviteCodeUsed: func(c *call, raw []byte) error {
		var p types.SelfRedeemParams
		if err := decodeParams(raw, &p); err != nil {
			return err
		}
		invitee, err := parseAddress("invitee", p.Invitee)
		if err != nil {
			return err
		}
		amount, err := parseAmount(p.Amount)
		if err != nil {
			return err
		}
		param, err := parseBytes32("param", p.Param)
		if err != nil {
			return err
		}
		signer, err := parseAddress("claimedSigner", p.ClaimedSigner)
		if err != nil {
			return err
		}
		sig, err := hexutil.Decode(p.Signature)
		if err != nil {
			return fmt.Errorf("%w: signature: %v", ErrInvalidParams, err)
		}
		return c.registry().SelfRegisterInviteCodeUsed(c.from, invitee, p.Code, invite.SelfAuthorization{
			Amount:        amount,
			Param:         param,
			Timestamp:     p.Timestamp,
			ClaimedSigner: signer,
			Signature:     sig,
		})
	},
	types.MethodInviteChangeAuthorizedSigner: addressCall(func(r *invite.Registry, caller, addr [20]byte) error {
		return r.ChangeAuthorizedSigner(caller, addr)
	}),
	types.MethodInviteSetAuthorizationContract: addressCall(func(r *invite.Registry, caller, addr [20]byte) error {
		return r.SetAuthorizationContractAddress(caller, addr)
	}),
	types.MethodInviteSetMintableRegistryContract: addressCall(func(r *invite.Registry, caller, addr [20]byte) error {
		return r.SetMintableRegistryContractAddress(caller, addr)
	}),
	types.MethodInviteSetUnclaimedRegistryContract: addressCall(func(r *invite.Registry, caller, addr [20]byte) error {
		return r.SetUnclaimedRegistryContractAddress(caller, addr)
	}),
	types.MethodInviteTransferOwnership: addressCall(func(r *invite.Registry, caller, addr [20]byte) error {
		return r.TransferOwnership(caller, addr)
	}),
	types.MethodInviteUpgrade: func(c *call, raw []byte) error {
		var p types.UpgradeParams
		if err := decodeParams(raw, &p); err != nil {
			return err
		}
		return c.registry().Upgrade(c.from, p.Version)
	},
	types.MethodRewardsInitialize: func(c *call, raw []byte) error {
		var p types.LedgerParams
		if err := decodeParams(raw, &p); err != nil {
			return err
		}
		ledger, err := parseAddress("ledger", p.Ledger)
		if err != nil {
			return err
		}
		return c.node.newLedger(c.manager, ledger, c.emitter).Initialize(c.from)
	},
	types.MethodRewardsAddAuthorizedCaller: func(c *call, raw []byte) error {
		ledger, caller, err := ledgerCallerParams(raw)
		if err != nil {
			return err
		}
		return c.node.newLedger(c.manager, ledger, c.emitter).AddAuthorizedCaller(c.from, caller)
	},
	types.MethodRewardsRemoveAuthorizedCaller: func(c *call, raw []byte) error {
		ledger, caller, err := ledgerCallerParams(raw)
		if err != nil {
			return err
		}
		return c.node.newLedger(c.manager, ledger, c.emitter).RemoveAuthorizedCaller(c.from, caller)
	},
}

// Methods lists the method names the host accepts.
func Methods() []string {
	out := make([]string, 0, len(handlers))
	for name := range handlers {
		out = append(out, name)
	}
	return out
}

func addressCall(fn func(r *invite.Registry, caller, addr [20]byte) error) handlerFunc {
	return func(c *call, raw []byte) error {
		var p types.AddressParams
		if err := decodeParams(raw, &p); err != nil {
			return err
		}
		addr, err := parseAddress("address", p.Address)
		if err != nil {
			return err
		}
		return fn(c.registry(), c.from, addr)
	}
}

func ledgerCallerParams(raw []byte) ([20]byte, [20]byte, error) {
	var p types.LedgerCallerParams
	if err := decodeParams(raw, &p); err != nil {
		return [20]byte{}, [20]byte{}, err
	}
	ledger, err := parseAddress("ledger", p.Ledger)
	if err != nil {
		return [20]byte{}, [20]byte{}, err
	}
	caller, err := parseAddress("caller", p.Caller)
	if err != nil {
		return [20]byte{}, [20]byte{}, err
	}
	return ledger, caller, nil
}

func decodeParams(raw []byte, out interface{}) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = []byte("{}")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	return nil
}

func parseAddress(field, value string) ([20]byte, error) {
	addr, err := crypto.DecodeAddress(value)
	if err != nil {
		return [20]byte{}, fmt.Errorf("%w: %s: %v", ErrInvalidParams, field, err)
	}
	return addr.Array(), nil
}

func parseAmount(value string) (*big.Int, error) {
	if value == "" {
		return nil, fmt.Errorf("%w: amount required", ErrInvalidParams)
	}
	amount, ok := math.ParseBig256(value)
	if !ok {
		return nil, fmt.Errorf("%w: amount %q", ErrInvalidParams, value)
	}
	return amount, nil
}

func parseBytes32(field, value string) ([32]byte, error) {
	var out [32]byte
	if value == "" {
		return out, nil
	}
	raw, err := hexutil.Decode(value)
	if err != nil {
		return out, fmt.Errorf("%w: %s: %v", ErrInvalidParams, field, err)
	}
	if len(raw) != len(out) {
		return out, fmt.Errorf("%w: %s must be 32 bytes, got %d", ErrInvalidParams, field, len(raw))
	}
	copy(out[:], raw)
	return out, nil
}
