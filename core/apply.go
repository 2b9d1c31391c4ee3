package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"inviteregistry/core/events"
	"inviteregistry/core/state"
	"inviteregistry/core/types"
	"inviteregistry/crypto"
	"inviteregistry/observability"
	"inviteregistry/storage/trie"
)

// ApplyTransaction admits tx and applies it atomically. Admission failures
// (signature, chain id, nonce, unknown method) return an error and leave no
// trace. An admitted call always yields a receipt: on success its state and
// events are committed, on failure every write of the call is discarded and
// only the sender nonce advances.
func (n *Node) ApplyTransaction(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	if tx == nil {
		return nil, ErrNilTransaction
	}
	ctx, span := n.tracer.Start(ctx, "core.apply_transaction",
		trace.WithAttributes(attribute.String("tx.method", tx.Method)))
	defer span.End()

	receipt, err := n.applyTransaction(ctx, tx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if !receipt.Succeeded() {
		span.SetStatus(codes.Error, receipt.Error)
	} else {
		span.SetStatus(codes.Ok, "committed")
	}
	return receipt, nil
}

func (n *Node) applyTransaction(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	if err := contextErr(ctx); err != nil {
		return nil, err
	}
	from, err := tx.From()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if tx.ChainID != n.chainID {
		return nil, fmt.Errorf("%w: got %d want %d", ErrInvalidChainID, tx.ChainID, n.chainID)
	}
	handler, ok := handlers[tx.Method]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, tx.Method)
	}
	hash, err := tx.Hash()
	if err != nil {
		return nil, err
	}

	n.stateMu.Lock()
	defer n.stateMu.Unlock()

	if err := contextErr(ctx); err != nil {
		return nil, err
	}
	expected, err := state.NewManager(n.trie).Nonce(from)
	if err != nil {
		return nil, err
	}
	if tx.Nonce < expected {
		return nil, fmt.Errorf("%w: got %d want %d", ErrNonceTooLow, tx.Nonce, expected)
	}
	if tx.Nonce > expected {
		return nil, fmt.Errorf("%w: got %d want %d", ErrNonceTooHigh, tx.Nonce, expected)
	}

	start := time.Now()
	working := n.trie.Copy()
	manager := state.NewManager(working)
	buf := &events.Buffer{}
	execErr := handler(&call{node: n, from: from, manager: manager, emitter: buf}, tx.Params)
	if execErr != nil {
		working = n.trie.Copy()
		manager = state.NewManager(working)
		buf = nil
	}
	if err := manager.SetNonce(from, expected+1); err != nil {
		return nil, err
	}

	receipt := &types.Receipt{
		TxHash: fmt.Sprintf("0x%x", hash),
		From:   crypto.AddressFromArray(from).Hex(),
		Method: tx.Method,
		Nonce:  tx.Nonce,
		Status: types.ReceiptStatusSuccess,
	}
	if execErr != nil {
		receipt.Status = types.ReceiptStatusFailed
		receipt.Error = execErr.Error()
		receipt.ErrorName = ErrorName(execErr)
	}
	if err := n.commitLocked(working, buf.Events(), receipt); err != nil {
		return nil, err
	}

	metrics := observability.Registry()
	metrics.ObserveTransaction(tx.Method, execErr == nil, time.Since(start))
	metrics.SetHeight(receipt.Height)
	if execErr != nil {
		n.logger.Warn("transaction reverted",
			slog.String("method", tx.Method),
			slog.String("txHash", receipt.TxHash),
			slog.Uint64("height", receipt.Height),
			slog.String("reason", receipt.Error))
		return receipt, nil
	}
	recordDomainMetrics(metrics, tx.Method)
	n.logger.Info("transaction committed",
		slog.String("method", tx.Method),
		slog.String("txHash", receipt.TxHash),
		slog.Uint64("height", receipt.Height),
		slog.Int("events", len(receipt.Events)))
	return receipt, nil
}

// commitLocked commits working at the next height, then persists the receipt,
// the logged events and the new head in one batch. The node switches to the
// new root only after the batch is written.
func (n *Node) commitLocked(working *trie.Trie, emitted []events.Event, receipt *types.Receipt) error {
	height := n.height + 1
	root, err := working.Commit(n.trie.Root(), height)
	if err != nil {
		return fmt.Errorf("core: commit state: %w", err)
	}
	receipt.Height = height
	receipt.StateRoot = root.Hex()

	batch := n.db.NewBatch()
	seq := n.eventSeq
	for _, evt := range emitted {
		generic := events.Generic(evt)
		if generic == nil {
			continue
		}
		logged := &types.LoggedEvent{Sequence: seq, Height: height, TxHash: receipt.TxHash, Event: *generic}
		if err := putEvent(batch, logged); err != nil {
			return err
		}
		receipt.Events = append(receipt.Events, generic)
		seq++
	}
	if err := putReceipt(batch, receipt); err != nil {
		return err
	}
	if err := putHead(batch, headRecord{Height: height, Root: root, EventSeq: seq}); err != nil {
		return err
	}
	if err := batch.Write(); err != nil {
		return fmt.Errorf("core: persist head: %w", err)
	}
	n.trie = working
	n.height = height
	n.eventSeq = seq
	close(n.committed)
	n.committed = make(chan struct{})
	return nil
}

func recordDomainMetrics(metrics interface {
	RecordRegistration()
	RecordRedemption(string)
}, method string) {
	switch method {
	case types.MethodInviteRegisterInviteCode:
		metrics.RecordRegistration()
	case types.MethodInviteRegisterInviteCodeUsed:
		metrics.RecordRedemption("operator")
	case types.MethodInviteRegisterInviteCodeUsedAward:
		metrics.RecordRedemption("award")
	case types.MethodInviteSelfRegisterInviteCodeUsed:
		metrics.RecordRedemption("self")
	}
}
