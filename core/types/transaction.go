package types

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// ErrUnsigned is returned when a transaction carries no signature.
var ErrUnsigned = errors.New("tx: missing signature")

// Transaction is a signed call against one of the hosted modules. Params holds
// the JSON encoded method arguments; the signature covers every other field.
type Transaction struct {
	ChainID uint64 `json:"chainId"`
	Nonce   uint64 `json:"nonce"`
	Method  string `json:"method"`
	Params  []byte `json:"params"`

	R *big.Int `json:"r"`
	S *big.Int `json:"s"`
	V *big.Int `json:"v"`

	from []byte
}

type txBody struct {
	ChainID uint64
	Nonce   uint64
	Method  string
	Params  []byte
}

// Hash returns the keccak256 digest of the RLP encoded unsigned body.
func (tx *Transaction) Hash() ([]byte, error) {
	encoded, err := rlp.EncodeToBytes(txBody{
		ChainID: tx.ChainID,
		Nonce:   tx.Nonce,
		Method:  tx.Method,
		Params:  tx.Params,
	})
	if err != nil {
		return nil, err
	}
	return crypto.Keccak256(encoded), nil
}

// Sign signs the transaction body with privKey.
func (tx *Transaction) Sign(privKey *ecdsa.PrivateKey) error {
	hash, err := tx.Hash()
	if err != nil {
		return err
	}
	sig, err := crypto.Sign(hash, privKey)
	if err != nil {
		return err
	}
	tx.R = new(big.Int).SetBytes(sig[:32])
	tx.S = new(big.Int).SetBytes(sig[32:64])
	tx.V = new(big.Int).SetBytes([]byte{sig[64] + 27})
	tx.from = nil
	return nil
}

// From recovers the sender address from the signature.
func (tx *Transaction) From() ([20]byte, error) {
	var out [20]byte
	if tx.from != nil {
		copy(out[:], tx.from)
		return out, nil
	}
	if tx.R == nil || tx.S == nil || tx.V == nil {
		return out, ErrUnsigned
	}
	if len(tx.R.Bytes()) > 32 || len(tx.S.Bytes()) > 32 {
		return out, fmt.Errorf("tx: malformed signature")
	}
	v := tx.V.Uint64()
	if v != 27 && v != 28 {
		return out, fmt.Errorf("tx: invalid recovery id %d", v)
	}
	hash, err := tx.Hash()
	if err != nil {
		return out, err
	}
	sig := make([]byte, 65)
	tx.R.FillBytes(sig[:32])
	tx.S.FillBytes(sig[32:64])
	sig[64] = byte(v - 27)
	pubKey, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return out, fmt.Errorf("tx: recover sender: %w", err)
	}
	tx.from = crypto.PubkeyToAddress(*pubKey).Bytes()
	copy(out[:], tx.from)
	return out, nil
}
