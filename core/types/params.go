package types

// Method names accepted by the transaction host.
const (
	MethodInviteInitialize                    = "invite.initialize"
	MethodInviteRegisterInviteCode            = "invite.registerInviteCode"
	MethodInviteRegisterInviteCodeUsed        = "invite.registerInviteCodeUsed"
	MethodInviteRegisterInviteCodeUsedAward   = "invite.registerInviteCodeUsedWithAward"
	MethodInviteSelfRegisterInviteCodeUsed    = "invite.selfRegisterInviteCodeUsed"
	MethodInviteChangeAuthorizedSigner        = "invite.changeAuthorizedSigner"
	MethodInviteSetAuthorizationContract      = "invite.setAuthorizationContractAddress"
	MethodInviteSetMintableRegistryContract   = "invite.setMintableRegistryContractAddress"
	MethodInviteSetUnclaimedRegistryContract  = "invite.setUnclaimedRegistryContractAddress"
	MethodInviteTransferOwnership             = "invite.transferOwnership"
	MethodInviteUpgrade                       = "invite.upgrade"
	MethodRewardsInitialize                   = "rewards.initialize"
	MethodRewardsAddAuthorizedCaller          = "rewards.addAuthorizedCaller"
	MethodRewardsRemoveAuthorizedCaller       = "rewards.removeAuthorizedCaller"
)

// Addresses are hex or bech32 strings, amounts decimal strings and byte
// fields 0x-prefixed hex.

// InitializeParams selects the layout version; zero means latest.
type InitializeParams struct {
	Version uint32 `json:"version,omitempty"`
}

type RegisterInviteCodeParams struct {
	Account string `json:"account"`
	Code    string `json:"code"`
}

type RedeemParams struct {
	Invitee string `json:"invitee"`
	Code    string `json:"code"`
}

type AwardParams struct {
	Invitee    string `json:"invitee"`
	Code       string `json:"code"`
	Amount     string `json:"amount"`
	Reason     string `json:"reason,omitempty"`
	RewardType string `json:"rewardType,omitempty"`
	Initiator  string `json:"initiator,omitempty"`
}

type SelfRedeemParams struct {
	Invitee       string `json:"invitee"`
	Code          string `json:"code"`
	Amount        string `json:"amount"`
	Param         string `json:"param"`
	Timestamp     uint64 `json:"timestamp"`
	ClaimedSigner string `json:"claimedSigner"`
	Signature     string `json:"signature"`
}

type AddressParams struct {
	Address string `json:"address"`
}

type UpgradeParams struct {
	Version uint32 `json:"version"`
}

type LedgerParams struct {
	Ledger string `json:"ledger"`
}

type LedgerCallerParams struct {
	Ledger string `json:"ledger"`
	Caller string `json:"caller"`
}
