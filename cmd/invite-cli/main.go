package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"inviteregistry/cmd/internal/passphrase"
)

const (
	rpcURLEnv        = "INVITE_RPC_URL"
	rpcTokenEnv      = "INVITE_RPC_TOKEN"
	keystorePassEnv  = "INVITE_KEYSTORE_PASSPHRASE"
	defaultRPCURL    = "http://127.0.0.1:8547/rpc"
	rpcClientTimeout = 30 * time.Second
)

var (
	rpcEndpoint  = defaultRPCEndpoint()
	outputFormat = "json"
	httpClient   = &http.Client{Timeout: rpcClientTimeout}
	// passphraseFor builds the passphrase source used by keystore commands.
	passphraseFor = func(create bool) func() (string, error) {
		if create {
			return passphrase.NewSource(keystorePassEnv, passphrase.WithConfirmation()).Get
		}
		return passphrase.NewSource(keystorePassEnv).Get
	}
)

type rpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	args, err := applyGlobalFlags(args)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if len(args) == 0 {
		fmt.Fprintln(stderr, usage())
		return 1
	}
	switch args[0] {
	case "generate-key":
		return runGenerateKey(args[1:], stdout, stderr)
	case "address":
		return runAddress(args[1:], stdout, stderr)
	case "sign-authorization":
		return runSignAuthorization(args[1:], stdout, stderr)
	case "verify-authorization":
		return runVerifyAuthorization(args[1:], stdout, stderr)
	case "send":
		return runSend(args[1:], stdout, stderr)
	case "query":
		return runQuery(args[1:], stdout, stderr)
	case "help", "-h", "--help":
		fmt.Fprintln(stdout, usage())
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		fmt.Fprintln(stderr, usage())
		return 1
	}
}

func usage() string {
	return strings.TrimSpace(`Usage:
  invite-cli [--rpc URL] [--output json|yaml] <command> [flags]

Commands:
  generate-key          Create a new keystore and print its address
  address               Print the address recorded in a keystore
  sign-authorization    Sign a self-service redemption authorization
  verify-authorization  Check an authorization signature offline
  send                  Sign and submit a transaction
  query                 Call a read-only RPC method

The keystore passphrase is read from INVITE_KEYSTORE_PASSPHRASE or prompted.
INVITE_RPC_TOKEN is sent as a bearer token when the node requires one.
`)
}

func defaultRPCEndpoint() string {
	if v := strings.TrimSpace(os.Getenv(rpcURLEnv)); v != "" {
		return v
	}
	return defaultRPCURL
}

func applyGlobalFlags(args []string) ([]string, error) {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--rpc" {
			if i+1 >= len(args) {
				return nil, fmt.Errorf("missing value for --rpc")
			}
			rpcEndpoint = args[i+1]
			i++
			continue
		}
		if strings.HasPrefix(arg, "--rpc=") {
			rpcEndpoint = strings.TrimPrefix(arg, "--rpc=")
			continue
		}
		if arg == "--output" || strings.HasPrefix(arg, "--output=") {
			value, ok := strings.CutPrefix(arg, "--output=")
			if !ok {
				if i+1 >= len(args) {
					return nil, fmt.Errorf("missing value for --output")
				}
				value = args[i+1]
				i++
			}
			if value != "json" && value != "yaml" {
				return nil, fmt.Errorf("unsupported output format %q", value)
			}
			outputFormat = value
			continue
		}
		out = append(out, arg)
	}
	return out, nil
}

func callRPC(method string, params []interface{}) (json.RawMessage, *rpcError, error) {
	if params == nil {
		params = []interface{}{}
	}
	payload := map[string]interface{}{"jsonrpc": "2.0", "id": 1, "method": method, "params": params}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	req, err := http.NewRequest(http.MethodPost, rpcEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token := strings.TrimSpace(os.Getenv(rpcTokenEnv)); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("POST %s: %w", rpcEndpoint, err)
	}
	defer resp.Body.Close()
	var rpcResp struct {
		Result json.RawMessage `json:"result"`
		Error  *rpcError       `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, nil, fmt.Errorf("failed to decode response from node: %w", err)
	}
	return rpcResp.Result, rpcResp.Error, nil
}

func handleRPCError(w io.Writer, err *rpcError) int {
	if err == nil {
		return 0
	}
	fmt.Fprintf(w, "RPC error %d: %s\n", err.Code, err.Message)
	if len(err.Data) > 0 {
		fmt.Fprintf(w, "%s\n", err.Data)
	}
	return 1
}

func handleRPCCallError(w io.Writer, err error) int {
	if err == nil {
		return 0
	}
	fmt.Fprintf(w, "RPC call failed: %v\n", err)
	return 1
}

func writeRPCResult(w io.Writer, result json.RawMessage) {
	if len(result) == 0 {
		fmt.Fprintln(w, "null")
		return
	}
	if outputFormat == "yaml" {
		var decoded interface{}
		if err := json.Unmarshal(result, &decoded); err == nil {
			if out, err := yaml.Marshal(decoded); err == nil {
				_, _ = w.Write(out)
				return
			}
		}
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, result, "", "  "); err == nil {
		result = pretty.Bytes()
	}
	if _, err := w.Write(result); err == nil && result[len(result)-1] != '\n' {
		fmt.Fprintln(w)
	}
}

func printError(w io.Writer, format string, args ...interface{}) int {
	fmt.Fprintf(w, "Error: "+format+"\n", args...)
	return 1
}
