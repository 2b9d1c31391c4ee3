package authorization

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// SelfServiceScope is the scope string bound into self-service redemption
// authorizations.
const SelfServiceScope = "selfkey.invite.reward"

var (
	errAmountRequired = errors.New("authorization: amount required")
	errAmountRange    = errors.New("authorization: amount out of uint256 range")
)

// Message is the tuple of business parameters covered by an authorization
// signature.
type Message struct {
	From      [20]byte
	To        [20]byte
	Amount    *big.Int
	Scope     string
	Param     [32]byte
	Timestamp uint64
}

// Packed returns the tightly packed encoding of the message fields in order:
// from(20) to(20) amount(32) scope(utf8) param(32) timestamp(32).
func (m Message) Packed() ([]byte, error) {
	if m.Amount == nil {
		return nil, errAmountRequired
	}
	amount, overflow := uint256.FromBig(m.Amount)
	if overflow || m.Amount.Sign() < 0 {
		return nil, errAmountRange
	}
	amountWord := amount.Bytes32()
	tsWord := uint256.NewInt(m.Timestamp).Bytes32()

	buf := make([]byte, 0, 20+20+32+len(m.Scope)+32+32)
	buf = append(buf, m.From[:]...)
	buf = append(buf, m.To[:]...)
	buf = append(buf, amountWord[:]...)
	buf = append(buf, m.Scope...)
	buf = append(buf, m.Param[:]...)
	buf = append(buf, tsWord[:]...)
	return buf, nil
}

// Digest returns keccak256 of the packed message.
func (m Message) Digest() ([]byte, error) {
	packed, err := m.Packed()
	if err != nil {
		return nil, err
	}
	return ethcrypto.Keccak256(packed), nil
}

// SigningHash returns the personal-message (EIP-191) hash of the digest, which
// is what signers actually sign.
func (m Message) SigningHash() ([]byte, error) {
	digest, err := m.Digest()
	if err != nil {
		return nil, err
	}
	return accounts.TextHash(digest), nil
}
