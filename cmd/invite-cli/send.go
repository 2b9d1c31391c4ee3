package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"strings"

	"inviteregistry/core/types"
)

func runSend(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("send", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var keystorePath, method, params string
	var nonce int64
	var chainID uint64
	fs.StringVar(&keystorePath, "keystore", "", "keystore of the sender")
	fs.StringVar(&method, "method", "", "transaction method, e.g. invite.registerInviteCode")
	fs.StringVar(&params, "params", "{}", "JSON encoded method parameters")
	fs.Int64Var(&nonce, "nonce", -1, "sender nonce (fetched from the node when negative)")
	fs.Uint64Var(&chainID, "chain-id", 0, "chain id (fetched from the node when zero)")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() > 0 {
		return printError(stderr, "unexpected positional arguments")
	}
	method = strings.TrimSpace(method)
	if method == "" {
		return printError(stderr, "--method is required")
	}
	if !json.Valid([]byte(params)) {
		return printError(stderr, "--params must be valid JSON")
	}
	key, err := loadKey(keystorePath)
	if err != nil {
		return printError(stderr, "%v", err)
	}
	from := key.PubKey().Address()

	if chainID == 0 {
		var cfg struct {
			ChainID uint64 `json:"chainId"`
		}
		if code := queryInto(stderr, "invite_config", nil, &cfg); code != 0 {
			return code
		}
		chainID = cfg.ChainID
	}
	if nonce < 0 {
		var next uint64
		if code := queryInto(stderr, "invite_getNonce", []interface{}{from.Hex()}, &next); code != 0 {
			return code
		}
		nonce = int64(next)
	}

	tx := &types.Transaction{ChainID: chainID, Nonce: uint64(nonce), Method: method, Params: []byte(params)}
	if err := tx.Sign(key.PrivateKey); err != nil {
		return printError(stderr, "sign transaction: %v", err)
	}
	result, rpcErr, err := callRPC("invite_sendTransaction", []interface{}{tx})
	if err != nil {
		return handleRPCCallError(stderr, err)
	}
	if rpcErr != nil {
		return handleRPCError(stderr, rpcErr)
	}
	writeRPCResult(stdout, result)

	var receipt types.Receipt
	if err := json.Unmarshal(result, &receipt); err != nil {
		return printError(stderr, "decode receipt: %v", err)
	}
	if !receipt.Succeeded() {
		fmt.Fprintf(stderr, "Transaction reverted: %s (%s)\n", receipt.ErrorName, receipt.Error)
		return 1
	}
	return 0
}

func queryInto(stderr io.Writer, method string, params []interface{}, out interface{}) int {
	result, rpcErr, err := callRPC(method, params)
	if err != nil {
		return handleRPCCallError(stderr, err)
	}
	if rpcErr != nil {
		return handleRPCError(stderr, rpcErr)
	}
	if err := json.Unmarshal(result, out); err != nil {
		return printError(stderr, "decode %s result: %v", method, err)
	}
	return 0
}

// runQuery calls an arbitrary read method. Positional arguments are sent as
// strings unless prefixed with "json:", e.g. `json:10`.
func runQuery(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		return printError(stderr, "query requires an RPC method, e.g. invite_config")
	}
	method := args[0]
	if method == "invite_sendTransaction" {
		return printError(stderr, "use the send command to submit transactions")
	}
	params := make([]interface{}, 0, len(args)-1)
	for _, arg := range args[1:] {
		if raw, ok := strings.CutPrefix(arg, "json:"); ok {
			if !json.Valid([]byte(raw)) {
				return printError(stderr, "invalid JSON argument %q", raw)
			}
			params = append(params, json.RawMessage(raw))
			continue
		}
		params = append(params, arg)
	}
	result, rpcErr, err := callRPC(method, params)
	if err != nil {
		return handleRPCCallError(stderr, err)
	}
	if rpcErr != nil {
		return handleRPCError(stderr, rpcErr)
	}
	writeRPCResult(stdout, result)
	return 0
}
