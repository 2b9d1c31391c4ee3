package events

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"inviteregistry/crypto"
)

func TestInviteCodeUsedGenericForm(t *testing.T) {
	var invitee, issuer [20]byte
	invitee[19] = 2
	issuer[19] = 1

	ev := Generic(InviteCodeUsed{Invitee: invitee, Issuer: issuer, Code: "Code123"})
	require.Equal(t, TypeInviteCodeUsed, ev.Type)
	require.Equal(t, crypto.AddressFromArray(invitee).Hex(), ev.Attributes["invitee"])
	require.Equal(t, crypto.AddressFromArray(issuer).Hex(), ev.Attributes["issuer"])
	require.Equal(t, "Code123", ev.Attributes["code"])
}

func TestReferenceChangedUsesKind(t *testing.T) {
	ev := InviteReferenceChanged{Kind: TypeInviteMintableChanged}
	require.Equal(t, TypeInviteMintableChanged, ev.EventType())
	require.Equal(t, TypeInviteMintableChanged, Generic(ev).Type)
}

func TestRewardsCreditedOmitsEmptyMetadata(t *testing.T) {
	ev := Generic(RewardsCredited{Amount: big.NewInt(100)})
	require.Equal(t, "100", ev.Attributes["amount"])
	_, hasReason := ev.Attributes["reason"]
	require.False(t, hasReason)
}

func TestBufferPreservesOrder(t *testing.T) {
	var buf Buffer
	buf.Emit(InviteSignerChanged{})
	buf.Emit(nil)
	buf.Emit(InviteCodeAdded{Code: "x"})
	got := buf.Events()
	require.Len(t, got, 2)
	require.Equal(t, TypeInviteSignerChanged, got[0].EventType())
	require.Equal(t, TypeInviteCodeAdded, got[1].EventType())
}
