package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"inviteregistry/core"
	"inviteregistry/core/types"
	"inviteregistry/crypto"
	"inviteregistry/rpc"
	"inviteregistry/storage"
)

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func startNode(t *testing.T) {
	t.Helper()
	node, err := core.NewNode(storage.NewMemDB(), core.Config{ChainID: 21, RegistryAddress: [20]byte{0xF0, 0x21}})
	require.NoError(t, err)
	ts := httptest.NewServer(rpc.NewServer(node, rpc.ServerConfig{}).Handler())
	t.Cleanup(ts.Close)

	original := rpcEndpoint
	rpcEndpoint = ts.URL + "/rpc"
	t.Cleanup(func() { rpcEndpoint = original })
}

func newKeystore(t *testing.T) (string, crypto.Address) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "key.json")
	code, stdout, stderr := runCLI(t, "generate-key", "-keystore", path)
	require.Equal(t, 0, code, stderr)
	addr, err := crypto.KeystoreAddress(path)
	require.NoError(t, err)
	require.Contains(t, stdout, addr.Hex())
	require.Contains(t, stdout, addr.String())
	return path, addr
}

func params(t *testing.T, v interface{}) string {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return string(raw)
}

func TestSendAndQueryAgainstNode(t *testing.T) {
	t.Setenv(keystorePassEnv, "cli-test")
	startNode(t)
	ownerKey, owner := newKeystore(t)

	code, _, stderr := runCLI(t, "send", "-keystore", ownerKey, "-method", types.MethodInviteInitialize)
	require.Equal(t, 0, code, stderr)
	code, _, stderr = runCLI(t, "send", "-keystore", ownerKey, "-method", types.MethodInviteChangeAuthorizedSigner,
		"-params", params(t, types.AddressParams{Address: owner.Hex()}))
	require.Equal(t, 0, code, stderr)
	code, _, stderr = runCLI(t, "send", "-keystore", ownerKey, "-method", types.MethodInviteRegisterInviteCode,
		"-params", params(t, types.RegisterInviteCodeParams{Account: owner.String(), Code: "12345"}))
	require.Equal(t, 0, code, stderr)

	code, stdout, stderr := runCLI(t, "query", "invite_isInviteCodeValid", "12345")
	require.Equal(t, 0, code, stderr)
	require.Equal(t, "true", strings.TrimSpace(stdout))

	code, stdout, _ = runCLI(t, "query", "invite_getNonce", owner.Hex())
	require.Equal(t, 0, code)
	require.Equal(t, "3", strings.TrimSpace(stdout))

	code, stdout, _ = runCLI(t, "query", "invite_getEvents", "json:0", "json:1")
	require.Equal(t, 0, code)
	require.Contains(t, stdout, "invite.signer.changed")

	// A second registration for the same account reverts.
	code, _, stderr = runCLI(t, "send", "-keystore", ownerKey, "-method", types.MethodInviteRegisterInviteCode,
		"-params", params(t, types.RegisterInviteCodeParams{Account: owner.Hex(), Code: "other"}))
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "AlreadyRegistered")
}

func TestSendRejectsBadInput(t *testing.T) {
	t.Setenv(keystorePassEnv, "cli-test")
	code, _, stderr := runCLI(t, "send", "-method", types.MethodInviteInitialize, "-params", "{")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "valid JSON")

	code, _, stderr = runCLI(t, "send", "-keystore", "x")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "--method is required")
}

func TestSignAndVerifyAuthorization(t *testing.T) {
	t.Setenv(keystorePassEnv, "cli-test")
	signerKey, signer := newKeystore(t)
	invitee, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	inviteeHex := invitee.PubKey().Address().Hex()
	param := "0x" + strings.Repeat("ab", 32)

	code, stdout, stderr := runCLI(t, "sign-authorization", "-keystore", signerKey,
		"-from", inviteeHex, "-amount", "250", "-param", param, "-timestamp", "1700000000")
	require.Equal(t, 0, code, stderr)
	var signed signedAuthorization
	require.NoError(t, json.Unmarshal([]byte(stdout), &signed))
	require.Equal(t, signer.Hex(), signed.Signer)

	verify := func(amount string) (int, string) {
		code, stdout, _ := runCLI(t, "verify-authorization", "-from", inviteeHex, "-amount", amount,
			"-param", param, "-timestamp", "1700000000", "-signer", signer.Hex(), "-signature", signed.Signature)
		return code, stdout
	}
	code, stdout = verify("250")
	require.Equal(t, 0, code)
	require.Contains(t, stdout, fmt.Sprintf("Recovered: %s", signer.Hex()))
	require.Contains(t, stdout, "Valid: true")

	code, stdout = verify("251")
	require.Equal(t, 1, code)
	require.Contains(t, stdout, "Valid: false")
}

func TestAddressAndUsage(t *testing.T) {
	t.Setenv(keystorePassEnv, "cli-test")
	path, addr := newKeystore(t)
	code, stdout, _ := runCLI(t, "address", "-keystore", path)
	require.Equal(t, 0, code)
	require.Contains(t, stdout, addr.Hex())

	code, _, stderr := runCLI(t, "generate-key", "-keystore", path)
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "already exists")

	code, _, stderr = runCLI(t, "frobnicate")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "Unknown command")

	code, _, _ = runCLI(t)
	require.Equal(t, 1, code)
}

func TestGlobalRPCFlag(t *testing.T) {
	original := rpcEndpoint
	t.Cleanup(func() { rpcEndpoint = original })
	args, err := applyGlobalFlags([]string{"--rpc", "http://node:1/rpc", "query", "invite_config"})
	require.NoError(t, err)
	require.Equal(t, []string{"query", "invite_config"}, args)
	require.Equal(t, "http://node:1/rpc", rpcEndpoint)

	_, err = applyGlobalFlags([]string{"--rpc"})
	require.Error(t, err)
	_, err = applyGlobalFlags([]string{"--output", "xml"})
	require.Error(t, err)
}

func TestYAMLOutput(t *testing.T) {
	original := outputFormat
	t.Cleanup(func() { outputFormat = original })
	args, err := applyGlobalFlags([]string{"--output=yaml", "query"})
	require.NoError(t, err)
	require.Equal(t, []string{"query"}, args)

	var out bytes.Buffer
	writeRPCResult(&out, json.RawMessage(`{"chainId":21,"owner":"alice"}`))
	require.Equal(t, "chainId: 21\nowner: alice\n", out.String())
}
