package authorization

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// SignatureLength is the size of an r||s||v secp256k1 signature.
const SignatureLength = 65

// Verify reports whether signature over the message built from the supplied
// fields was produced by claimedSigner. It never fails with an error: any
// malformed input simply yields false. Timestamps are not checked for
// freshness; callers decide whether a timestamp is acceptable.
func Verify(from, to [20]byte, amount *big.Int, scope string, param [32]byte, timestamp uint64, claimedSigner [20]byte, signature []byte) bool {
	msg := Message{From: from, To: to, Amount: amount, Scope: scope, Param: param, Timestamp: timestamp}
	recovered, ok := Recover(msg, signature)
	if !ok {
		return false
	}
	return recovered == claimedSigner && claimedSigner != ([20]byte{})
}

// Recover returns the address that signed msg. The boolean is false when the
// signature is malformed or recovery fails.
func Recover(msg Message, signature []byte) ([20]byte, bool) {
	var out [20]byte
	if len(signature) != SignatureLength {
		return out, false
	}
	hash, err := msg.SigningHash()
	if err != nil {
		return out, false
	}
	sig := make([]byte, SignatureLength)
	copy(sig, signature)
	switch sig[64] {
	case 0, 1:
	case 27, 28:
		sig[64] -= 27
	default:
		return out, false
	}
	pubKey, err := ethcrypto.SigToPub(hash, sig)
	if err != nil {
		return out, false
	}
	copy(out[:], ethcrypto.PubkeyToAddress(*pubKey).Bytes())
	return out, true
}

// Sign produces a 65-byte signature with a 27/28 recovery id, the form
// produced by wallet personal_sign implementations.
func Sign(msg Message, key *ecdsa.PrivateKey) ([]byte, error) {
	if key == nil {
		return nil, fmt.Errorf("authorization: signing key required")
	}
	hash, err := msg.SigningHash()
	if err != nil {
		return nil, err
	}
	sig, err := ethcrypto.Sign(hash, key)
	if err != nil {
		return nil, fmt.Errorf("authorization: sign: %w", err)
	}
	sig[64] += 27
	return sig, nil
}

// Verifier binds the package-level verification to the single identity it
// trusts.
type Verifier struct {
	trusted [20]byte
}

// NewVerifier constructs a verifier trusting signer.
func NewVerifier(signer [20]byte) *Verifier {
	return &Verifier{trusted: signer}
}

// Trusted returns the identity the verifier accepts.
func (v *Verifier) Trusted() [20]byte {
	if v == nil {
		return [20]byte{}
	}
	return v.trusted
}

// Authorize verifies the signature and additionally requires claimedSigner to
// be the trusted identity.
func (v *Verifier) Authorize(from, to [20]byte, amount *big.Int, scope string, param [32]byte, timestamp uint64, claimedSigner [20]byte, signature []byte) bool {
	if v == nil || claimedSigner != v.trusted {
		return false
	}
	return Verify(from, to, amount, scope, param, timestamp, claimedSigner, signature)
}
