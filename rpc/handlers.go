package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"

	"inviteregistry/core"
	"inviteregistry/core/types"
	"inviteregistry/crypto"
	"inviteregistry/native/authorization"
	"inviteregistry/observability"
	"inviteregistry/observability/logging"
)

// ConfigResult is the response of invite_config.
type ConfigResult struct {
	ChainID               uint64 `json:"chainId"`
	Height                uint64 `json:"height"`
	StateRoot             string `json:"stateRoot"`
	Registry              string `json:"registry"`
	Version               uint32 `json:"version"`
	Owner                 string `json:"owner"`
	AuthorizedSigner      string `json:"authorizedSigner"`
	AuthorizationContract string `json:"authorizationContract"`
	MintableRegistry      string `json:"mintableRegistry"`
	UnclaimedRegistry     string `json:"unclaimedRegistry"`
}

// VerifyAuthorizationParams carries an authorization to check off-chain.
type VerifyAuthorizationParams struct {
	From          string `json:"from"`
	To            string `json:"to"`
	Amount        string `json:"amount"`
	Scope         string `json:"scope,omitempty"`
	Param         string `json:"param"`
	Timestamp     uint64 `json:"timestamp"`
	ClaimedSigner string `json:"claimedSigner"`
	Signature     string `json:"signature"`
}

// VerifyAuthorizationResult reports the verification outcome. Recovered is
// empty when the signature is malformed.
type VerifyAuthorizationResult struct {
	Valid     bool   `json:"valid"`
	Recovered string `json:"recovered,omitempty"`
}

type errorData struct {
	ErrorName string `json:"errorName"`
	Detail    string `json:"detail,omitempty"`
}

func (s *Server) handleSendTransaction(w http.ResponseWriter, r *http.Request, req *RPCRequest) bool {
	if err := s.auth.authorize(r); err != nil {
		writeError(w, http.StatusUnauthorized, req.ID, codeUnauthorized, err.Error(), nil)
		return false
	}
	if !s.limiter.allow(clientID(r)) {
		observability.RPC().RecordThrottle("client")
		writeError(w, http.StatusTooManyRequests, req.ID, codeRateLimited, "rate limit exceeded", nil)
		return false
	}
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "expected transaction parameter", nil)
		return false
	}
	var tx types.Transaction
	if err := json.Unmarshal(req.Params[0], &tx); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid transaction", err.Error())
		return false
	}
	receipt, err := s.node.ApplyTransaction(r.Context(), &tx)
	if err != nil {
		writeNodeError(w, req.ID, err)
		return false
	}
	writeResult(w, req.ID, receipt)
	return true
}

func (s *Server) handleIsInviteCodeValid(w http.ResponseWriter, _ *http.Request, req *RPCRequest) bool {
	code, ok := stringParam(w, req, 0, "code")
	if !ok {
		return false
	}
	valid, err := s.node.IsInviteCodeValid(code)
	if err != nil {
		writeNodeError(w, req.ID, err)
		return false
	}
	writeResult(w, req.ID, valid)
	return true
}

func (s *Server) handleGetInviteCode(w http.ResponseWriter, _ *http.Request, req *RPCRequest) bool {
	account, ok := addressParam(w, req, 0, "account")
	if !ok {
		return false
	}
	code, err := s.node.InviteCode(account)
	if err != nil {
		writeNodeError(w, req.ID, err)
		return false
	}
	writeResult(w, req.ID, code)
	return true
}

func (s *Server) handleGetInviteCodeOwner(w http.ResponseWriter, _ *http.Request, req *RPCRequest) bool {
	code, ok := stringParam(w, req, 0, "code")
	if !ok {
		return false
	}
	owner, err := s.node.InviteCodeOwner(code)
	if err != nil {
		writeNodeError(w, req.ID, err)
		return false
	}
	writeResult(w, req.ID, hexAddress(owner))
	return true
}

func (s *Server) handleIsInviteUsed(w http.ResponseWriter, _ *http.Request, req *RPCRequest) bool {
	account, ok := addressParam(w, req, 0, "account")
	if !ok {
		return false
	}
	used, err := s.node.IsInviteUsed(account)
	if err != nil {
		writeNodeError(w, req.ID, err)
		return false
	}
	writeResult(w, req.ID, used)
	return true
}

func (s *Server) handleConfig(w http.ResponseWriter, _ *http.Request, req *RPCRequest) bool {
	cfg, err := s.node.RegistryConfig()
	if err != nil {
		writeNodeError(w, req.ID, err)
		return false
	}
	root := s.node.StateRoot()
	writeResult(w, req.ID, ConfigResult{
		ChainID:               s.node.ChainID(),
		Height:                s.node.Height(),
		StateRoot:             hexutil.Encode(root[:]),
		Registry:              hexAddress(cfg.Address),
		Version:               cfg.Version,
		Owner:                 hexAddress(cfg.Owner),
		AuthorizedSigner:      hexAddress(cfg.AuthorizedSigner),
		AuthorizationContract: hexAddress(cfg.AuthorizationContract),
		MintableRegistry:      hexAddress(cfg.MintableRegistry),
		UnclaimedRegistry:     hexAddress(cfg.UnclaimedRegistry),
	})
	return true
}

func (s *Server) handleGetReceipt(w http.ResponseWriter, _ *http.Request, req *RPCRequest) bool {
	hash, ok := stringParam(w, req, 0, "hash")
	if !ok {
		return false
	}
	receipt, err := s.node.Receipt(hash)
	if err != nil {
		writeNodeError(w, req.ID, err)
		return false
	}
	writeResult(w, req.ID, receipt)
	return true
}

func (s *Server) handleGetEvents(w http.ResponseWriter, _ *http.Request, req *RPCRequest) bool {
	var from uint64
	limit := core.MaxEventsPerQuery
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params[0], &from); err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "from must be an unsigned integer", err.Error())
			return false
		}
	}
	if len(req.Params) > 1 {
		if err := json.Unmarshal(req.Params[1], &limit); err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "limit must be an integer", err.Error())
			return false
		}
	}
	logged, err := s.node.Events(from, limit)
	if err != nil {
		writeNodeError(w, req.ID, err)
		return false
	}
	writeResult(w, req.ID, logged)
	return true
}

func (s *Server) handleGetNonce(w http.ResponseWriter, _ *http.Request, req *RPCRequest) bool {
	account, ok := addressParam(w, req, 0, "account")
	if !ok {
		return false
	}
	nonce, err := s.node.Nonce(account)
	if err != nil {
		writeNodeError(w, req.ID, err)
		return false
	}
	writeResult(w, req.ID, nonce)
	return true
}

func (s *Server) handleBalanceOf(w http.ResponseWriter, _ *http.Request, req *RPCRequest) bool {
	ledger, ok := addressParam(w, req, 0, "ledger")
	if !ok {
		return false
	}
	account, ok := addressParam(w, req, 1, "account")
	if !ok {
		return false
	}
	balance, err := s.node.RewardBalance(ledger, account)
	if err != nil {
		writeNodeError(w, req.ID, err)
		return false
	}
	writeResult(w, req.ID, balance.String())
	return true
}

func (s *Server) handleVerifyAuthorization(w http.ResponseWriter, _ *http.Request, req *RPCRequest) bool {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "expected authorization parameter", nil)
		return false
	}
	var p VerifyAuthorizationParams
	if err := json.Unmarshal(req.Params[0], &p); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid authorization", err.Error())
		return false
	}
	msg, claimed, sig, err := decodeAuthorization(p)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return false
	}
	result := VerifyAuthorizationResult{
		Valid: authorization.Verify(msg.From, msg.To, msg.Amount, msg.Scope, msg.Param, msg.Timestamp, claimed, sig),
	}
	if recovered, ok := authorization.Recover(msg, sig); ok {
		result.Recovered = hexAddress(recovered)
	}
	s.logger.Debug("authorization verified",
		logging.MaskField("signature", p.Signature),
		logging.MaskField("from", p.From),
		slog.Bool("valid", result.Valid))
	writeResult(w, req.ID, result)
	return true
}

func decodeAuthorization(p VerifyAuthorizationParams) (authorization.Message, [20]byte, []byte, error) {
	var msg authorization.Message
	var claimed [20]byte
	from, err := crypto.DecodeAddress(p.From)
	if err != nil {
		return msg, claimed, nil, fmt.Errorf("from: %v", err)
	}
	to, err := crypto.DecodeAddress(p.To)
	if err != nil {
		return msg, claimed, nil, fmt.Errorf("to: %v", err)
	}
	signer, err := crypto.DecodeAddress(p.ClaimedSigner)
	if err != nil {
		return msg, claimed, nil, fmt.Errorf("claimedSigner: %v", err)
	}
	amount, ok := math.ParseBig256(strings.TrimSpace(p.Amount))
	if !ok || strings.TrimSpace(p.Amount) == "" {
		return msg, claimed, nil, fmt.Errorf("amount: invalid value %q", p.Amount)
	}
	var param [32]byte
	if p.Param != "" {
		raw, err := hexutil.Decode(p.Param)
		if err != nil || len(raw) != 32 {
			return msg, claimed, nil, fmt.Errorf("param: expected 32 byte hex value")
		}
		copy(param[:], raw)
	}
	sig, err := hexutil.Decode(p.Signature)
	if err != nil {
		return msg, claimed, nil, fmt.Errorf("signature: %v", err)
	}
	scope := p.Scope
	if scope == "" {
		scope = authorization.SelfServiceScope
	}
	msg = authorization.Message{
		From:      from.Array(),
		To:        to.Array(),
		Amount:    amount,
		Scope:     scope,
		Param:     param,
		Timestamp: p.Timestamp,
	}
	return msg, signer.Array(), sig, nil
}

func stringParam(w http.ResponseWriter, req *RPCRequest, idx int, name string) (string, bool) {
	if len(req.Params) <= idx {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, fmt.Sprintf("%s parameter required", name), nil)
		return "", false
	}
	var value string
	if err := json.Unmarshal(req.Params[idx], &value); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, fmt.Sprintf("%s must be a string", name), err.Error())
		return "", false
	}
	return value, true
}

func addressParam(w http.ResponseWriter, req *RPCRequest, idx int, name string) ([20]byte, bool) {
	value, ok := stringParam(w, req, idx, name)
	if !ok {
		return [20]byte{}, false
	}
	addr, err := crypto.DecodeAddress(value)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, fmt.Sprintf("invalid %s", name), err.Error())
		return [20]byte{}, false
	}
	return addr.Array(), true
}

func hexAddress(addr [20]byte) string {
	return crypto.AddressFromArray(addr).Hex()
}

// writeNodeError maps host errors onto JSON-RPC codes, carrying the stable
// error name in the data field.
func writeNodeError(w http.ResponseWriter, id interface{}, err error) {
	data := errorData{ErrorName: core.ErrorName(err), Detail: err.Error()}
	switch {
	case errors.Is(err, core.ErrNonceTooLow), errors.Is(err, core.ErrNonceTooHigh):
		writeError(w, http.StatusOK, id, codeNonce, "nonce mismatch", data)
	case errors.Is(err, core.ErrReceiptNotFound):
		writeError(w, http.StatusNotFound, id, codeNotFound, "receipt not found", data)
	case errors.Is(err, core.ErrInvalidSignature), errors.Is(err, core.ErrInvalidChainID),
		errors.Is(err, core.ErrUnknownMethod), errors.Is(err, core.ErrNilTransaction):
		writeError(w, http.StatusBadRequest, id, codeInvalidParams, "transaction rejected", data)
	default:
		writeError(w, http.StatusInternalServerError, id, codeServerError, "internal error", data)
	}
}
