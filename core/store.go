package core

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"

	"inviteregistry/core/types"
	"inviteregistry/storage"
)

// Host records live beside the trie in the same database. They are written in
// one batch after the trie commit so the head never points at a root whose
// receipts are missing.

var (
	headKey       = []byte("host/head")
	receiptPrefix = []byte("host/receipt/")
	eventPrefix   = []byte("host/event/")
)

type headRecord struct {
	Height   uint64
	Root     common.Hash
	EventSeq uint64
}

func loadHead(db storage.Database) (headRecord, bool, error) {
	var head headRecord
	raw, err := db.Get(headKey)
	if errors.Is(err, storage.ErrNotFound) {
		return head, false, nil
	}
	if err != nil {
		return head, false, err
	}
	if err := rlp.DecodeBytes(raw, &head); err != nil {
		return head, false, fmt.Errorf("core: decode head: %w", err)
	}
	return head, true, nil
}

func putHead(batch storage.Batch, head headRecord) error {
	encoded, err := rlp.EncodeToBytes(head)
	if err != nil {
		return err
	}
	return batch.Put(headKey, encoded)
}

func receiptKey(hash string) []byte {
	return append(append([]byte(nil), receiptPrefix...), []byte(normalizeHash(hash))...)
}

func eventKey(seq uint64) []byte {
	key := make([]byte, len(eventPrefix)+8)
	copy(key, eventPrefix)
	binary.BigEndian.PutUint64(key[len(eventPrefix):], seq)
	return key
}

func normalizeHash(hash string) string {
	trimmed := strings.ToLower(strings.TrimSpace(hash))
	if !strings.HasPrefix(trimmed, "0x") {
		trimmed = "0x" + trimmed
	}
	return trimmed
}

func putReceipt(batch storage.Batch, receipt *types.Receipt) error {
	encoded, err := json.Marshal(receipt)
	if err != nil {
		return err
	}
	return batch.Put(receiptKey(receipt.TxHash), encoded)
}

func putEvent(batch storage.Batch, evt *types.LoggedEvent) error {
	encoded, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return batch.Put(eventKey(evt.Sequence), encoded)
}

func loadReceipt(db storage.Database, hash string) (*types.Receipt, error) {
	raw, err := db.Get(receiptKey(hash))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrReceiptNotFound
	}
	if err != nil {
		return nil, err
	}
	receipt := new(types.Receipt)
	if err := json.Unmarshal(raw, receipt); err != nil {
		return nil, fmt.Errorf("core: decode receipt: %w", err)
	}
	return receipt, nil
}

func loadEvent(db storage.Database, seq uint64) (*types.LoggedEvent, bool, error) {
	raw, err := db.Get(eventKey(seq))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	evt := new(types.LoggedEvent)
	if err := json.Unmarshal(raw, evt); err != nil {
		return nil, false, fmt.Errorf("core: decode event %d: %w", seq, err)
	}
	return evt, true, nil
}
