package crypto

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeAddressAcceptsHexAndBech32(t *testing.T) {
	key, err := GeneratePrivateKey()
	require.NoError(t, err)
	addr := key.PubKey().Address()

	fromHex, err := DecodeAddress(addr.Hex())
	require.NoError(t, err)
	require.Equal(t, addr.Bytes(), fromHex.Bytes())

	fromBech, err := DecodeAddress(addr.String())
	require.NoError(t, err)
	require.Equal(t, addr.Bytes(), fromBech.Bytes())
	require.True(t, strings.HasPrefix(addr.String(), string(InvitePrefix)+"1"))
}

func TestDecodeAddressRejectsMalformed(t *testing.T) {
	for _, input := range []string{"", "0x1234", "invite1notbech32", "0xzz00000000000000000000000000000000000000"} {
		_, err := DecodeAddress(input)
		require.Error(t, err, input)
	}
}

func TestNewAddressLength(t *testing.T) {
	_, err := NewAddress(InvitePrefix, make([]byte, 19))
	require.Error(t, err)
	zero, err := NewAddress(InvitePrefix, make([]byte, 20))
	require.NoError(t, err)
	require.True(t, zero.IsZero())
}

func TestKeystoreRoundTrip(t *testing.T) {
	key, err := GeneratePrivateKey()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "keys", "signer.keystore")
	require.NoError(t, SaveToKeystore(path, key, "passphrase"))

	addr, err := KeystoreAddress(path)
	require.NoError(t, err)
	require.Equal(t, key.PubKey().Address().Bytes(), addr.Bytes())

	loaded, err := LoadFromKeystore(path, "passphrase")
	require.NoError(t, err)
	require.Equal(t, key.Bytes(), loaded.Bytes())

	_, err = LoadFromKeystore(path, "wrong")
	require.Error(t, err)
}
