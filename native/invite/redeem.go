package invite

import (
	"fmt"
	"math/big"

	"inviteregistry/core/events"
	"inviteregistry/native/authorization"
)

// Award carries the reward parameters of the award pathways.
type Award struct {
	Amount     *big.Int
	Reason     string
	RewardType string
	Initiator  [20]byte
}

// SelfAuthorization is the signed authorization presented by an invitee.
type SelfAuthorization struct {
	Amount        *big.Int
	Param         [32]byte
	Timestamp     uint64
	ClaimedSigner [20]byte
	Signature     []byte
}

// resolveRedemption checks the redemption preconditions in order and returns
// the issuer of code.
func (r *Registry) resolveRedemption(invitee [20]byte, code string) ([20]byte, error) {
	own, err := r.GetInviteCode(invitee)
	if err != nil {
		return [20]byte{}, err
	}
	if own == "" {
		return [20]byte{}, ErrCodeOwnerNotFound
	}
	issuer, err := r.GetInviteCodeOwner(code)
	if err != nil {
		return [20]byte{}, err
	}
	if issuer == ([20]byte{}) {
		return [20]byte{}, ErrInvalidCode
	}
	used, err := r.IsInviteUsed(invitee)
	if err != nil {
		return [20]byte{}, err
	}
	if used {
		return [20]byte{}, ErrAlreadyRedeemed
	}
	return issuer, nil
}

func (r *Registry) markUsed(invitee, issuer [20]byte, code string) error {
	if err := r.st.KVPut(accountSlotKey(r.address, SlotInviteUsed, invitee), true); err != nil {
		return err
	}
	r.emitter.Emit(events.InviteCodeUsed{Invitee: invitee, Issuer: issuer, Code: code})
	return nil
}

// RegisterInviteCodeUsed marks invitee as redeemed against code. Only the
// trusted signer may call it.
func (r *Registry) RegisterInviteCodeUsed(caller, invitee [20]byte, code string) error {
	if err := r.requireSigner(caller); err != nil {
		return err
	}
	issuer, err := r.resolveRedemption(invitee, code)
	if err != nil {
		return err
	}
	return r.markUsed(invitee, issuer, code)
}

// RegisterInviteCodeUsedWithAward redeems like RegisterInviteCodeUsed and
// credits the award to the invitee on the mintable ledger and to the issuer
// on the unclaimed ledger. A failed credit fails the whole call; the host
// discards the writes already made.
func (r *Registry) RegisterInviteCodeUsedWithAward(caller, invitee [20]byte, code string, award Award) error {
	if err := r.requireSigner(caller); err != nil {
		return err
	}
	return r.redeemWithAward(invitee, code, award)
}

// SelfRegisterInviteCodeUsed lets the invitee redeem on their own behalf with
// an authorization signed by the trusted signer over
// (registry, invitee, amount, SelfServiceScope, param, timestamp). The
// timestamp is not checked for freshness.
func (r *Registry) SelfRegisterInviteCodeUsed(caller, invitee [20]byte, code string, auth SelfAuthorization) error {
	if _, err := r.requireSlot(SlotAuthorizationContract); err != nil {
		return err
	}
	if caller != invitee {
		return ErrCallerNotInvitee
	}
	if auth.Amount == nil || auth.Amount.Sign() < 0 {
		return fmt.Errorf("%w: amount must be non-negative", ErrInvalidAmount)
	}
	authContract, err := r.AuthorizationContract()
	if err != nil {
		return err
	}
	if authContract == ([20]byte{}) {
		return fmt.Errorf("%w: authorization contract not configured", ErrVerificationFailed)
	}
	signer, err := r.AuthorizedSigner()
	if err != nil {
		return err
	}
	verifier := authorization.NewVerifier(signer)
	if !verifier.Authorize(r.address, invitee, auth.Amount, authorization.SelfServiceScope, auth.Param, auth.Timestamp, auth.ClaimedSigner, auth.Signature) {
		return ErrVerificationFailed
	}
	return r.redeemWithAward(invitee, code, Award{
		Amount:     auth.Amount,
		Reason:     "self",
		RewardType: authorization.SelfServiceScope,
		Initiator:  invitee,
	})
}

func (r *Registry) redeemWithAward(invitee [20]byte, code string, award Award) error {
	if _, err := r.requireSlot(SlotMintableRegistry); err != nil {
		return err
	}
	if award.Amount == nil || award.Amount.Sign() < 0 {
		return fmt.Errorf("%w: amount must be non-negative", ErrInvalidAmount)
	}
	issuer, err := r.resolveRedemption(invitee, code)
	if err != nil {
		return err
	}
	if err := r.markUsed(invitee, issuer, code); err != nil {
		return err
	}
	if r.ledgers == nil {
		return ErrLedgersUnavailable
	}
	mintable, err := r.MintableRegistry()
	if err != nil {
		return err
	}
	unclaimed, err := r.UnclaimedRegistry()
	if err != nil {
		return err
	}
	if err := r.ledgers(mintable).CreditBalance(r.address, invitee, award.Amount, award.Reason, award.RewardType, award.Initiator); err != nil {
		return fmt.Errorf("credit mintable ledger: %w", err)
	}
	if err := r.ledgers(unclaimed).CreditBalance(r.address, issuer, award.Amount, award.Reason, award.RewardType, award.Initiator); err != nil {
		return fmt.Errorf("credit unclaimed ledger: %w", err)
	}
	return nil
}
