package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"

	"inviteregistry/crypto"
	"inviteregistry/native/authorization"
)

type authorizationFlags struct {
	from      string
	to        string
	amount    string
	scope     string
	param     string
	timestamp uint64
}

func (f *authorizationFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.from, "from", "", "invitee address the authorization is issued for")
	fs.StringVar(&f.to, "to", "", "recipient address (defaults to --from)")
	fs.StringVar(&f.amount, "amount", "", "reward amount in base units")
	fs.StringVar(&f.scope, "scope", authorization.SelfServiceScope, "authorization scope")
	fs.StringVar(&f.param, "param", "", "32 byte hex parameter (defaults to zero)")
	fs.Uint64Var(&f.timestamp, "timestamp", 0, "issuance timestamp in unix seconds")
}

func (f *authorizationFlags) message() (authorization.Message, error) {
	var msg authorization.Message
	from, err := crypto.DecodeAddress(f.from)
	if err != nil {
		return msg, fmt.Errorf("--from: %v", err)
	}
	to := from
	if strings.TrimSpace(f.to) != "" {
		if to, err = crypto.DecodeAddress(f.to); err != nil {
			return msg, fmt.Errorf("--to: %v", err)
		}
	}
	amountStr := strings.TrimSpace(f.amount)
	amount, ok := math.ParseBig256(amountStr)
	if !ok || amountStr == "" {
		return msg, fmt.Errorf("--amount: invalid value %q", f.amount)
	}
	var param [32]byte
	if strings.TrimSpace(f.param) != "" {
		raw, err := hexutil.Decode(strings.TrimSpace(f.param))
		if err != nil || len(raw) != 32 {
			return msg, fmt.Errorf("--param: expected 32 byte hex value")
		}
		copy(param[:], raw)
	}
	return authorization.Message{
		From:      from.Array(),
		To:        to.Array(),
		Amount:    amount,
		Scope:     f.scope,
		Param:     param,
		Timestamp: f.timestamp,
	}, nil
}

type signedAuthorization struct {
	Signer    string `json:"signer"`
	Param     string `json:"param"`
	Timestamp uint64 `json:"timestamp"`
	Signature string `json:"signature"`
}

func runSignAuthorization(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("sign-authorization", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var flags authorizationFlags
	var keystorePath string
	flags.register(fs)
	fs.StringVar(&keystorePath, "keystore", "", "keystore of the authorized signer")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	msg, err := flags.message()
	if err != nil {
		return printError(stderr, "%v", err)
	}
	key, err := loadKey(keystorePath)
	if err != nil {
		return printError(stderr, "%v", err)
	}
	sig, err := authorization.Sign(msg, key.PrivateKey)
	if err != nil {
		return printError(stderr, "%v", err)
	}
	out, _ := json.MarshalIndent(signedAuthorization{
		Signer:    key.PubKey().Address().Hex(),
		Param:     hexutil.Encode(msg.Param[:]),
		Timestamp: msg.Timestamp,
		Signature: hexutil.Encode(sig),
	}, "", "  ")
	fmt.Fprintln(stdout, string(out))
	return 0
}

func runVerifyAuthorization(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("verify-authorization", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var flags authorizationFlags
	var signerStr, sigStr string
	flags.register(fs)
	fs.StringVar(&signerStr, "signer", "", "claimed signer address")
	fs.StringVar(&sigStr, "signature", "", "hex encoded 65 byte signature")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	msg, err := flags.message()
	if err != nil {
		return printError(stderr, "%v", err)
	}
	signer, err := crypto.DecodeAddress(signerStr)
	if err != nil {
		return printError(stderr, "--signer: %v", err)
	}
	sig, err := hexutil.Decode(strings.TrimSpace(sigStr))
	if err != nil {
		return printError(stderr, "--signature: %v", err)
	}
	if recovered, ok := authorization.Recover(msg, sig); ok {
		fmt.Fprintf(stdout, "Recovered: %s\n", crypto.AddressFromArray(recovered).Hex())
	}
	if !authorization.Verify(msg.From, msg.To, msg.Amount, msg.Scope, msg.Param, msg.Timestamp, signer.Array(), sig) {
		fmt.Fprintln(stdout, "Valid: false")
		return 1
	}
	fmt.Fprintln(stdout, "Valid: true")
	return 0
}
