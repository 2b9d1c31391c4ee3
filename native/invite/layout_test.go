package invite

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"inviteregistry/core/events"
)

func TestCheckLayoutAppendOnly(t *testing.T) {
	v1, err := LayoutFor(VersionV1)
	require.NoError(t, err)
	v2, err := LayoutFor(VersionV2)
	require.NoError(t, err)

	require.NoError(t, CheckLayout(v1, v2))
	require.NoError(t, CheckLayout(v2, v2))
	require.ErrorIs(t, CheckLayout(v2, v1), ErrLayoutIncompatible)

	inserted := Layout{Version: 3, Slots: []string{SlotOwner, SlotMintableRegistry, SlotAuthorizedSigner, SlotInviteCodes, SlotInviteCodeOwners, SlotInviteUsed}}
	require.ErrorIs(t, CheckLayout(v1, inserted), ErrLayoutIncompatible)

	_, err = LayoutFor(99)
	require.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestFingerprintCoversOrder(t *testing.T) {
	a := Layout{Slots: []string{"x", "y"}}
	b := Layout{Slots: []string{"y", "x"}}
	require.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}

func TestCorruptLayoutRecordRejected(t *testing.T) {
	f := newFixture(t, VersionV1)
	require.NoError(t, f.st.KVPut(layoutKey(f.registry.Address()), layoutRecord{Version: VersionV1, Fingerprint: [32]byte{1}}))
	_, err := f.registry.Version()
	require.ErrorIs(t, err, ErrLayoutIncompatible)
	err = f.registry.RegisterInviteCode(f.signer, addr(0x10), "Code123")
	require.ErrorIs(t, err, ErrLayoutIncompatible)
}

func TestV1RejectsAwardOperations(t *testing.T) {
	f := newFixture(t, VersionV1)
	a, b := addr(0x10), addr(0x11)
	require.NoError(t, f.registry.RegisterInviteCode(f.signer, a, "CodeA"))
	require.NoError(t, f.registry.RegisterInviteCode(f.signer, b, "CodeB"))

	require.ErrorIs(t, f.registry.SetMintableRegistryContractAddress(f.owner, f.mintable), ErrUnsupportedVersion)
	require.ErrorIs(t, f.registry.SetAuthorizationContractAddress(f.owner, f.authRef), ErrUnsupportedVersion)
	err := f.registry.RegisterInviteCodeUsedWithAward(f.signer, b, "CodeA", Award{Amount: big.NewInt(1)})
	require.ErrorIs(t, err, ErrUnsupportedVersion)
	err = f.registry.SelfRegisterInviteCodeUsed(b, b, "CodeA", SelfAuthorization{Amount: big.NewInt(1)})
	require.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestUpgradePreservesRecords(t *testing.T) {
	f := newFixture(t, VersionV1)
	a, b := addr(0x10), addr(0x11)
	require.NoError(t, f.registry.RegisterInviteCode(f.signer, a, "CodeA"))
	require.NoError(t, f.registry.RegisterInviteCode(f.signer, b, "CodeB"))
	require.NoError(t, f.registry.RegisterInviteCodeUsed(f.signer, b, "CodeA"))
	rootBefore := f.st.Trie().Hash()

	stranger := addr(0x66)
	require.ErrorIs(t, f.registry.Upgrade(stranger, VersionV2), ErrNotOwner)
	require.NoError(t, f.registry.Upgrade(f.owner, VersionV2))
	require.Equal(t, events.InviteUpgraded{From: VersionV1, To: VersionV2}, f.lastEvent(t))
	require.NotEqual(t, rootBefore, f.st.Trie().Hash())

	// A fresh view over the same state stands in for the new logic.
	upgraded := NewRegistry(f.st, f.registry.Address())
	version, err := upgraded.Version()
	require.NoError(t, err)
	require.Equal(t, VersionV2, version)

	code, err := upgraded.GetInviteCode(a)
	require.NoError(t, err)
	require.Equal(t, "CodeA", code)
	issuer, err := upgraded.GetInviteCodeOwner("CodeA")
	require.NoError(t, err)
	require.Equal(t, a, issuer)
	used, err := upgraded.IsInviteUsed(b)
	require.NoError(t, err)
	require.True(t, used)
	owner, err := upgraded.Owner()
	require.NoError(t, err)
	require.Equal(t, f.owner, owner)
	signer, err := upgraded.AuthorizedSigner()
	require.NoError(t, err)
	require.Equal(t, f.signer, signer)

	require.ErrorIs(t, upgraded.SetMintableRegistryContractAddress(stranger, f.mintable), ErrNotOwner)
	require.ErrorIs(t, upgraded.SetUnclaimedRegistryContractAddress(stranger, f.unclaimed), ErrNotOwner)
	require.ErrorIs(t, upgraded.SetAuthorizationContractAddress(stranger, f.authRef), ErrNotOwner)
	require.NoError(t, upgraded.SetMintableRegistryContractAddress(f.owner, f.mintable))

	require.ErrorIs(t, upgraded.Upgrade(f.owner, VersionV2), ErrUnsupportedVersion)
	require.ErrorIs(t, upgraded.Upgrade(f.owner, VersionV1), ErrLayoutIncompatible)
}
