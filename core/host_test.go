package core

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/require"

	"inviteregistry/core/events"
	"inviteregistry/core/types"
	"inviteregistry/crypto"
	"inviteregistry/native/authorization"
	"inviteregistry/native/invite"
	"inviteregistry/native/rewards"
	"inviteregistry/storage"
)

const testChainID = 7

var (
	testRegistry  = [20]byte{0xF0, 0x01}
	testMintable  = [20]byte{0xA1}
	testUnclaimed = [20]byte{0xA2}
	testAuthRef   = [20]byte{0xA3}
)

type actor struct {
	key   *crypto.PrivateKey
	addr  [20]byte
	nonce uint64
}

func newActor(t *testing.T) *actor {
	t.Helper()
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	return &actor{key: key, addr: key.PubKey().Address().Array()}
}

func (a *actor) hex() string {
	return crypto.AddressFromArray(a.addr).Hex()
}

func (a *actor) tx(t *testing.T, method string, params interface{}) *types.Transaction {
	t.Helper()
	raw, err := json.Marshal(params)
	require.NoError(t, err)
	tx := &types.Transaction{ChainID: testChainID, Nonce: a.nonce, Method: method, Params: raw}
	require.NoError(t, tx.Sign(a.key.PrivateKey))
	return tx
}

// send applies a call and advances the local nonce when it was admitted.
func (a *actor) send(t *testing.T, n *Node, method string, params interface{}) *types.Receipt {
	t.Helper()
	receipt, err := n.ApplyTransaction(context.Background(), a.tx(t, method, params))
	require.NoError(t, err)
	a.nonce++
	return receipt
}

func (a *actor) mustSend(t *testing.T, n *Node, method string, params interface{}) *types.Receipt {
	t.Helper()
	receipt := a.send(t, n, method, params)
	require.True(t, receipt.Succeeded(), "%s failed: %s", method, receipt.Error)
	return receipt
}

func hexAddr(a [20]byte) string {
	return crypto.AddressFromArray(a).Hex()
}

func newTestNode(t *testing.T, db storage.Database) *Node {
	t.Helper()
	node, err := NewNode(db, Config{ChainID: testChainID, RegistryAddress: testRegistry})
	require.NoError(t, err)
	return node
}

type deployment struct {
	node   *Node
	owner  *actor
	signer *actor
}

// deploy initialises the registry and both ledgers, allow-lists the registry
// and configures every reference.
func deploy(t *testing.T, db storage.Database) *deployment {
	t.Helper()
	d := &deployment{node: newTestNode(t, db), owner: newActor(t), signer: newActor(t)}
	d.owner.mustSend(t, d.node, types.MethodInviteInitialize, types.InitializeParams{})
	d.owner.mustSend(t, d.node, types.MethodInviteChangeAuthorizedSigner, types.AddressParams{Address: d.signer.hex()})
	for _, ledger := range [][20]byte{testMintable, testUnclaimed} {
		d.owner.mustSend(t, d.node, types.MethodRewardsInitialize, types.LedgerParams{Ledger: hexAddr(ledger)})
		d.owner.mustSend(t, d.node, types.MethodRewardsAddAuthorizedCaller, types.LedgerCallerParams{Ledger: hexAddr(ledger), Caller: hexAddr(testRegistry)})
	}
	d.owner.mustSend(t, d.node, types.MethodInviteSetMintableRegistryContract, types.AddressParams{Address: hexAddr(testMintable)})
	d.owner.mustSend(t, d.node, types.MethodInviteSetUnclaimedRegistryContract, types.AddressParams{Address: hexAddr(testUnclaimed)})
	d.owner.mustSend(t, d.node, types.MethodInviteSetAuthorizationContract, types.AddressParams{Address: hexAddr(testAuthRef)})
	return d
}

func (d *deployment) register(t *testing.T, account *actor, code string) {
	t.Helper()
	d.signer.mustSend(t, d.node, types.MethodInviteRegisterInviteCode, types.RegisterInviteCodeParams{Account: account.hex(), Code: code})
}

func (d *deployment) balance(t *testing.T, ledger, account [20]byte) int64 {
	t.Helper()
	bal, err := d.node.RewardBalance(ledger, account)
	require.NoError(t, err)
	return bal.Int64()
}

func TestApplyRegistersAndRedeems(t *testing.T) {
	d := deploy(t, storage.NewMemDB())
	issuer, invitee := newActor(t), newActor(t)
	d.register(t, issuer, "Code123")
	d.register(t, invitee, "Code2")

	receipt := d.signer.mustSend(t, d.node, types.MethodInviteRegisterInviteCodeUsed, types.RedeemParams{Invitee: invitee.hex(), Code: "Code123"})
	require.Len(t, receipt.Events, 1)
	require.Equal(t, events.TypeInviteCodeUsed, receipt.Events[0].Type)
	require.Equal(t, issuer.hex(), receipt.Events[0].Attributes["issuer"])

	used, err := d.node.IsInviteUsed(invitee.addr)
	require.NoError(t, err)
	require.True(t, used)
	owner, err := d.node.InviteCodeOwner("Code123")
	require.NoError(t, err)
	require.Equal(t, issuer.addr, owner)

	stored, err := d.node.Receipt(receipt.TxHash)
	require.NoError(t, err)
	require.Equal(t, receipt.StateRoot, stored.StateRoot)

	again := d.signer.send(t, d.node, types.MethodInviteRegisterInviteCodeUsed, types.RedeemParams{Invitee: invitee.hex(), Code: "Code123"})
	require.False(t, again.Succeeded())
	require.Equal(t, invite.ErrAlreadyRedeemed.Error(), again.Error)
	require.Empty(t, again.Events)
}

func TestAwardAbortsAtomicallyWhenLedgerRejects(t *testing.T) {
	d := deploy(t, storage.NewMemDB())
	issuer, invitee := newActor(t), newActor(t)
	d.register(t, issuer, "CodeA")
	d.register(t, invitee, "CodeB")
	d.owner.mustSend(t, d.node, types.MethodRewardsRemoveAuthorizedCaller, types.LedgerCallerParams{Ledger: hexAddr(testUnclaimed), Caller: hexAddr(testRegistry)})

	seqBefore := len(mustEvents(t, d.node))
	receipt := d.signer.send(t, d.node, types.MethodInviteRegisterInviteCodeUsedAward, types.AwardParams{Invitee: invitee.hex(), Code: "CodeA", Amount: "100"})
	require.False(t, receipt.Succeeded())
	require.Contains(t, receipt.Error, rewards.ErrUnauthorizedCaller.Error())

	// The mintable credit ran before the failing one and must be gone.
	require.EqualValues(t, 0, d.balance(t, testMintable, invitee.addr))
	require.EqualValues(t, 0, d.balance(t, testUnclaimed, issuer.addr))
	used, err := d.node.IsInviteUsed(invitee.addr)
	require.NoError(t, err)
	require.False(t, used)
	require.Len(t, mustEvents(t, d.node), seqBefore)

	// The failed call still consumed the nonce.
	nonce, err := d.node.Nonce(d.signer.addr)
	require.NoError(t, err)
	require.Equal(t, d.signer.nonce, nonce)

	d.owner.mustSend(t, d.node, types.MethodRewardsAddAuthorizedCaller, types.LedgerCallerParams{Ledger: hexAddr(testUnclaimed), Caller: hexAddr(testRegistry)})
	d.signer.mustSend(t, d.node, types.MethodInviteRegisterInviteCodeUsedAward, types.AwardParams{Invitee: invitee.hex(), Code: "CodeA", Amount: "100"})
	require.EqualValues(t, 100, d.balance(t, testMintable, invitee.addr))
	require.EqualValues(t, 100, d.balance(t, testUnclaimed, issuer.addr))
	require.EqualValues(t, 0, d.balance(t, testMintable, issuer.addr))
	require.EqualValues(t, 0, d.balance(t, testUnclaimed, invitee.addr))
}

func mustEvents(t *testing.T, n *Node) []*types.LoggedEvent {
	t.Helper()
	evts, err := n.Events(0, MaxEventsPerQuery)
	require.NoError(t, err)
	return evts
}

func selfRedeemParams(t *testing.T, d *deployment, invitee *actor, code, scope string) types.SelfRedeemParams {
	t.Helper()
	param := [32]byte{0x01}
	msg := authorization.Message{From: testRegistry, To: invitee.addr, Amount: big.NewInt(100), Scope: scope, Param: param, Timestamp: 1_700_000_000}
	sig, err := authorization.Sign(msg, d.signer.key.PrivateKey)
	require.NoError(t, err)
	return types.SelfRedeemParams{
		Invitee:       invitee.hex(),
		Code:          code,
		Amount:        "100",
		Param:         hexutil.Encode(param[:]),
		Timestamp:     msg.Timestamp,
		ClaimedSigner: d.signer.hex(),
		Signature:     hexutil.Encode(sig),
	}
}

func TestSelfServiceRedemptionThroughHost(t *testing.T) {
	d := deploy(t, storage.NewMemDB())
	issuer, invitee := newActor(t), newActor(t)
	d.register(t, issuer, "CodeA")
	d.register(t, invitee, "CodeB")

	bad := invitee.send(t, d.node, types.MethodInviteSelfRegisterInviteCodeUsed, selfRedeemParams(t, d, invitee, "CodeA", "other.scope"))
	require.False(t, bad.Succeeded())
	require.Equal(t, invite.ErrVerificationFailed.Error(), bad.Error)

	receipt := invitee.mustSend(t, d.node, types.MethodInviteSelfRegisterInviteCodeUsed, selfRedeemParams(t, d, invitee, "CodeA", authorization.SelfServiceScope))
	kinds := make([]string, 0, len(receipt.Events))
	for _, evt := range receipt.Events {
		kinds = append(kinds, evt.Type)
	}
	require.Equal(t, []string{events.TypeInviteCodeUsed, events.TypeRewardsCredited, events.TypeRewardsCredited}, kinds)
	require.EqualValues(t, 100, d.balance(t, testMintable, invitee.addr))
	require.EqualValues(t, 100, d.balance(t, testUnclaimed, issuer.addr))
}

func TestRacingRedemptionsCommitOnce(t *testing.T) {
	d := deploy(t, storage.NewMemDB())
	issuer, invitee := newActor(t), newActor(t)
	d.register(t, issuer, "CodeA")
	d.register(t, invitee, "CodeB")

	operatorTx := d.signer.tx(t, types.MethodInviteRegisterInviteCodeUsedAward, types.AwardParams{Invitee: invitee.hex(), Code: "CodeA", Amount: "100"})
	selfTx := invitee.tx(t, types.MethodInviteSelfRegisterInviteCodeUsed, selfRedeemParams(t, d, invitee, "CodeA", authorization.SelfServiceScope))

	var wg sync.WaitGroup
	receipts := make([]*types.Receipt, 2)
	errs := make([]error, 2)
	for i, tx := range []*types.Transaction{operatorTx, selfTx} {
		wg.Add(1)
		go func(i int, tx *types.Transaction) {
			defer wg.Done()
			receipts[i], errs[i] = d.node.ApplyTransaction(context.Background(), tx)
		}(i, tx)
	}
	wg.Wait()

	committed := 0
	for i := range receipts {
		require.NoError(t, errs[i])
		if receipts[i].Succeeded() {
			committed++
			continue
		}
		require.Equal(t, invite.ErrAlreadyRedeemed.Error(), receipts[i].Error)
	}
	require.Equal(t, 1, committed)
	require.EqualValues(t, 100, d.balance(t, testMintable, invitee.addr))
	require.EqualValues(t, 100, d.balance(t, testUnclaimed, issuer.addr))
}

func TestAdmissionChecks(t *testing.T) {
	d := deploy(t, storage.NewMemDB())
	heightBefore := d.node.Height()

	wrongChain := d.signer.tx(t, types.MethodInviteRegisterInviteCode, types.RegisterInviteCodeParams{Account: d.owner.hex(), Code: "X"})
	wrongChain.ChainID = testChainID + 1
	require.NoError(t, wrongChain.Sign(d.signer.key.PrivateKey))
	_, err := d.node.ApplyTransaction(context.Background(), wrongChain)
	require.ErrorIs(t, err, ErrInvalidChainID)

	future := d.signer.tx(t, types.MethodInviteRegisterInviteCode, types.RegisterInviteCodeParams{Account: d.owner.hex(), Code: "X"})
	future.Nonce += 5
	require.NoError(t, future.Sign(d.signer.key.PrivateKey))
	_, err = d.node.ApplyTransaction(context.Background(), future)
	require.ErrorIs(t, err, ErrNonceTooHigh)

	unknown := d.signer.tx(t, "invite.mint", struct{}{})
	_, err = d.node.ApplyTransaction(context.Background(), unknown)
	require.ErrorIs(t, err, ErrUnknownMethod)

	unsigned := &types.Transaction{ChainID: testChainID, Method: types.MethodInviteRegisterInviteCode}
	_, err = d.node.ApplyTransaction(context.Background(), unsigned)
	require.ErrorIs(t, err, ErrInvalidSignature)

	replay := d.signer.tx(t, types.MethodInviteRegisterInviteCode, types.RegisterInviteCodeParams{Account: d.owner.hex(), Code: "X"})
	_, err = d.node.ApplyTransaction(context.Background(), replay)
	require.NoError(t, err)
	_, err = d.node.ApplyTransaction(context.Background(), replay)
	require.ErrorIs(t, err, ErrNonceTooLow)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.signer.nonce++
	_, err = d.node.ApplyTransaction(ctx, d.signer.tx(t, types.MethodInviteRegisterInviteCode, types.RegisterInviteCodeParams{Account: d.signer.hex(), Code: "Y"}))
	require.ErrorIs(t, err, context.Canceled)

	require.Equal(t, heightBefore+1, d.node.Height())
}

func TestInvalidParamsRevert(t *testing.T) {
	d := deploy(t, storage.NewMemDB())
	receipt := d.signer.send(t, d.node, types.MethodInviteRegisterInviteCode, map[string]string{"account": "not-an-address", "code": "X"})
	require.False(t, receipt.Succeeded())
	require.Contains(t, receipt.Error, ErrInvalidParams.Error())

	receipt = d.signer.send(t, d.node, types.MethodInviteRegisterInviteCode, map[string]string{"account": d.owner.hex(), "code": "X", "extra": "1"})
	require.False(t, receipt.Succeeded())
}

func TestRestartRestoresState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db")
	db, err := storage.NewLevelDB(path)
	require.NoError(t, err)

	d := deploy(t, db)
	issuer, invitee := newActor(t), newActor(t)
	d.register(t, issuer, "CodeA")
	d.register(t, invitee, "CodeB")
	d.signer.mustSend(t, d.node, types.MethodInviteRegisterInviteCodeUsedAward, types.AwardParams{Invitee: invitee.hex(), Code: "CodeA", Amount: "100"})
	root := d.node.StateRoot()
	height := d.node.Height()
	eventCount := len(mustEvents(t, d.node))
	db.Close()

	reopened, err := storage.NewLevelDB(path)
	require.NoError(t, err)
	defer reopened.Close()
	node := newTestNode(t, reopened)

	require.Equal(t, root, node.StateRoot())
	require.Equal(t, height, node.Height())
	require.Len(t, mustEvents(t, node), eventCount)

	used, err := node.IsInviteUsed(invitee.addr)
	require.NoError(t, err)
	require.True(t, used)
	code, err := node.InviteCode(issuer.addr)
	require.NoError(t, err)
	require.Equal(t, "CodeA", code)
	bal, err := node.RewardBalance(testUnclaimed, issuer.addr)
	require.NoError(t, err)
	require.EqualValues(t, 100, bal.Int64())
	cfg, err := node.RegistryConfig()
	require.NoError(t, err)
	require.Equal(t, invite.LatestVersion, cfg.Version)
	require.Equal(t, d.signer.addr, cfg.AuthorizedSigner)
	nonce, err := node.Nonce(d.signer.addr)
	require.NoError(t, err)
	require.Equal(t, d.signer.nonce, nonce)
}

func TestUpgradeThroughHost(t *testing.T) {
	node := newTestNode(t, storage.NewMemDB())
	owner, signer, issuer, invitee := newActor(t), newActor(t), newActor(t), newActor(t)
	owner.mustSend(t, node, types.MethodInviteInitialize, types.InitializeParams{Version: invite.VersionV1})
	owner.mustSend(t, node, types.MethodInviteChangeAuthorizedSigner, types.AddressParams{Address: signer.hex()})
	signer.mustSend(t, node, types.MethodInviteRegisterInviteCode, types.RegisterInviteCodeParams{Account: issuer.hex(), Code: "CodeA"})
	signer.mustSend(t, node, types.MethodInviteRegisterInviteCode, types.RegisterInviteCodeParams{Account: invitee.hex(), Code: "CodeB"})
	signer.mustSend(t, node, types.MethodInviteRegisterInviteCodeUsed, types.RedeemParams{Invitee: invitee.hex(), Code: "CodeA"})

	early := owner.send(t, node, types.MethodInviteSetMintableRegistryContract, types.AddressParams{Address: hexAddr(testMintable)})
	require.False(t, early.Succeeded())

	stranger := signer.send(t, node, types.MethodInviteUpgrade, types.UpgradeParams{Version: invite.VersionV2})
	require.Equal(t, invite.ErrNotOwner.Error(), stranger.Error)
	owner.mustSend(t, node, types.MethodInviteUpgrade, types.UpgradeParams{Version: invite.VersionV2})

	used, err := node.IsInviteUsed(invitee.addr)
	require.NoError(t, err)
	require.True(t, used)
	cfg, err := node.RegistryConfig()
	require.NoError(t, err)
	require.Equal(t, invite.VersionV2, cfg.Version)
	require.Equal(t, signer.addr, cfg.AuthorizedSigner)
	require.Equal(t, owner.addr, cfg.Owner)

	denied := signer.send(t, node, types.MethodInviteSetMintableRegistryContract, types.AddressParams{Address: hexAddr(testMintable)})
	require.Equal(t, invite.ErrNotOwner.Error(), denied.Error)
	owner.mustSend(t, node, types.MethodInviteSetMintableRegistryContract, types.AddressParams{Address: hexAddr(testMintable)})
}

func TestMethodsListed(t *testing.T) {
	listed := make(map[string]bool)
	for _, m := range Methods() {
		listed[m] = true
	}
	for _, m := range []string{
		types.MethodInviteInitialize, types.MethodInviteRegisterInviteCode, types.MethodInviteRegisterInviteCodeUsed,
		types.MethodInviteRegisterInviteCodeUsedAward, types.MethodInviteSelfRegisterInviteCodeUsed,
		types.MethodInviteChangeAuthorizedSigner, types.MethodInviteSetAuthorizationContract,
		types.MethodInviteSetMintableRegistryContract, types.MethodInviteSetUnclaimedRegistryContract,
		types.MethodInviteTransferOwnership, types.MethodInviteUpgrade, types.MethodRewardsInitialize,
		types.MethodRewardsAddAuthorizedCaller, types.MethodRewardsRemoveAuthorizedCaller,
	} {
		require.True(t, listed[m], fmt.Sprintf("method %s not routed", m))
	}
}
