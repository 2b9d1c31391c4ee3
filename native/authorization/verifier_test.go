package authorization

import (
	"crypto/ecdsa"
	"encoding/hex"
	"math/big"
	"testing"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

func newKey(t *testing.T) (*ecdsa.PrivateKey, [20]byte) {
	t.Helper()
	key, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	var addr [20]byte
	copy(addr[:], ethcrypto.PubkeyToAddress(key.PublicKey).Bytes())
	return key, addr
}

func testMessage() Message {
	var registry, invitee [20]byte
	registry[0] = 0xAA
	invitee[19] = 0x02
	var param [32]byte
	copy(param[:], "campaign-1")
	return Message{
		From:      registry,
		To:        invitee,
		Amount:    big.NewInt(100),
		Scope:     SelfServiceScope,
		Param:     param,
		Timestamp: 1_700_000_000,
	}
}

func TestVerifyAcceptsSignerSignature(t *testing.T) {
	key, signer := newKey(t)
	msg := testMessage()
	sig, err := Sign(msg, key)
	require.NoError(t, err)
	require.Len(t, sig, SignatureLength)

	require.True(t, Verify(msg.From, msg.To, msg.Amount, msg.Scope, msg.Param, msg.Timestamp, signer, sig))
}

func TestVerifyAcceptsZeroBasedRecoveryID(t *testing.T) {
	key, signer := newKey(t)
	msg := testMessage()
	sig, err := Sign(msg, key)
	require.NoError(t, err)
	sig[64] -= 27

	require.True(t, Verify(msg.From, msg.To, msg.Amount, msg.Scope, msg.Param, msg.Timestamp, signer, sig))
}

func TestVerifyRejectsAlteredFields(t *testing.T) {
	key, signer := newKey(t)
	msg := testMessage()
	sig, err := Sign(msg, key)
	require.NoError(t, err)

	require.False(t, Verify(msg.From, msg.To, msg.Amount, "selfkey.other.scope", msg.Param, msg.Timestamp, signer, sig))
	require.False(t, Verify(msg.From, msg.To, big.NewInt(101), msg.Scope, msg.Param, msg.Timestamp, signer, sig))
	require.False(t, Verify(msg.From, msg.To, msg.Amount, msg.Scope, msg.Param, msg.Timestamp+1, signer, sig))
	other := msg.To
	other[0] = 0x01
	require.False(t, Verify(msg.From, other, msg.Amount, msg.Scope, msg.Param, msg.Timestamp, signer, sig))
}

func TestVerifyRejectsWrongSigner(t *testing.T) {
	key, _ := newKey(t)
	_, impostor := newKey(t)
	msg := testMessage()
	sig, err := Sign(msg, key)
	require.NoError(t, err)

	require.False(t, Verify(msg.From, msg.To, msg.Amount, msg.Scope, msg.Param, msg.Timestamp, impostor, sig))
}

func TestVerifyMalformedInputReturnsFalse(t *testing.T) {
	key, signer := newKey(t)
	msg := testMessage()
	sig, err := Sign(msg, key)
	require.NoError(t, err)

	require.False(t, Verify(msg.From, msg.To, msg.Amount, msg.Scope, msg.Param, msg.Timestamp, signer, nil))
	require.False(t, Verify(msg.From, msg.To, msg.Amount, msg.Scope, msg.Param, msg.Timestamp, signer, sig[:64]))
	require.False(t, Verify(msg.From, msg.To, nil, msg.Scope, msg.Param, msg.Timestamp, signer, sig))
	require.False(t, Verify(msg.From, msg.To, big.NewInt(-1), msg.Scope, msg.Param, msg.Timestamp, signer, sig))
	huge := new(big.Int).Lsh(big.NewInt(1), 256)
	require.False(t, Verify(msg.From, msg.To, huge, msg.Scope, msg.Param, msg.Timestamp, signer, sig))

	badV := append([]byte(nil), sig...)
	badV[64] = 9
	require.False(t, Verify(msg.From, msg.To, msg.Amount, msg.Scope, msg.Param, msg.Timestamp, signer, badV))

	garbage := make([]byte, SignatureLength)
	require.False(t, Verify(msg.From, msg.To, msg.Amount, msg.Scope, msg.Param, msg.Timestamp, signer, garbage))
	require.False(t, Verify(msg.From, msg.To, msg.Amount, msg.Scope, msg.Param, msg.Timestamp, [20]byte{}, sig))
}

func TestVerifyIsDeterministic(t *testing.T) {
	key, signer := newKey(t)
	msg := testMessage()
	sig, err := Sign(msg, key)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		require.True(t, Verify(msg.From, msg.To, msg.Amount, msg.Scope, msg.Param, msg.Timestamp, signer, sig))
	}
}

func TestPackedLayout(t *testing.T) {
	msg := testMessage()
	packed, err := msg.Packed()
	require.NoError(t, err)
	require.Len(t, packed, 20+20+32+len(SelfServiceScope)+32+32)
	require.Equal(t, msg.From[:], packed[:20])
	require.Equal(t, msg.To[:], packed[20:40])
	require.Equal(t, byte(100), packed[71])
	require.Equal(t, SelfServiceScope, string(packed[72:72+len(SelfServiceScope)]))
}

func TestSigningHashKnownVector(t *testing.T) {
	// The signed hash is the digest wrapped exactly once in the 32-byte
	// personal-message prefix.
	msg := testMessage()
	digest, err := msg.Digest()
	require.NoError(t, err)
	hash, err := msg.SigningHash()
	require.NoError(t, err)
	expected := ethcrypto.Keccak256([]byte("\x19Ethereum Signed Message:\n32"), digest)
	require.Equal(t, hex.EncodeToString(expected), hex.EncodeToString(hash))
}

func TestVerifierAuthorizeRequiresTrustedSigner(t *testing.T) {
	key, signer := newKey(t)
	otherKey, other := newKey(t)
	msg := testMessage()

	v := NewVerifier(signer)
	require.Equal(t, signer, v.Trusted())

	sig, err := Sign(msg, key)
	require.NoError(t, err)
	require.True(t, v.Authorize(msg.From, msg.To, msg.Amount, msg.Scope, msg.Param, msg.Timestamp, signer, sig))

	otherSig, err := Sign(msg, otherKey)
	require.NoError(t, err)
	require.True(t, Verify(msg.From, msg.To, msg.Amount, msg.Scope, msg.Param, msg.Timestamp, other, otherSig))
	require.False(t, v.Authorize(msg.From, msg.To, msg.Amount, msg.Scope, msg.Param, msg.Timestamp, other, otherSig))
}
