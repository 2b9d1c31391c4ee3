package invite

import (
	"fmt"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Slot names. The order inside a layout is the storage order and never
// changes once released.
const (
	SlotOwner                 = "owner"
	SlotAuthorizedSigner      = "authorizedSigner"
	SlotInviteCodes           = "inviteCodes"
	SlotInviteCodeOwners      = "inviteCodeOwners"
	SlotInviteUsed            = "inviteUsed"
	SlotAuthorizationContract = "authorizationContract"
	SlotMintableRegistry      = "mintableRegistry"
	SlotUnclaimedRegistry     = "unclaimedRegistry"
)

const (
	VersionV1     uint32 = 1
	VersionV2     uint32 = 2
	LatestVersion        = VersionV2
)

// Layout is an ordered list of named storage slots for one logic version.
type Layout struct {
	Version uint32
	Slots   []string
}

var layouts = map[uint32]Layout{
	VersionV1: {
		Version: VersionV1,
		Slots:   []string{SlotOwner, SlotAuthorizedSigner, SlotInviteCodes, SlotInviteCodeOwners, SlotInviteUsed},
	},
	VersionV2: {
		Version: VersionV2,
		Slots: []string{
			SlotOwner, SlotAuthorizedSigner, SlotInviteCodes, SlotInviteCodeOwners, SlotInviteUsed,
			SlotAuthorizationContract, SlotMintableRegistry, SlotUnclaimedRegistry,
		},
	},
}

// LayoutFor returns the layout registered for version.
func LayoutFor(version uint32) (Layout, error) {
	layout, ok := layouts[version]
	if !ok {
		return Layout{}, fmt.Errorf("%w: unknown version %d", ErrUnsupportedVersion, version)
	}
	return layout, nil
}

// Has reports whether the layout declares slot.
func (l Layout) Has(slot string) bool {
	for _, s := range l.Slots {
		if s == slot {
			return true
		}
	}
	return false
}

// Fingerprint commits to the ordered slot names.
func (l Layout) Fingerprint() [32]byte {
	var out [32]byte
	copy(out[:], ethcrypto.Keccak256([]byte(strings.Join(l.Slots, "\x00"))))
	return out
}

// CheckLayout fails unless next keeps every slot of prev at the same position,
// that is prev is a prefix of next.
func CheckLayout(prev, next Layout) error {
	if len(next.Slots) < len(prev.Slots) {
		return fmt.Errorf("%w: v%d drops slots of v%d", ErrLayoutIncompatible, next.Version, prev.Version)
	}
	for i, slot := range prev.Slots {
		if next.Slots[i] != slot {
			return fmt.Errorf("%w: slot %d is %q in v%d but %q in v%d", ErrLayoutIncompatible, i, slot, prev.Version, next.Slots[i], next.Version)
		}
	}
	return nil
}

type layoutRecord struct {
	Version     uint32
	Fingerprint [32]byte
}
