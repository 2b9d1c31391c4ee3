package types

const (
	// ReceiptStatusFailed marks a transaction that was admitted but reverted.
	ReceiptStatusFailed uint8 = 0
	// ReceiptStatusSuccess marks a committed transaction.
	ReceiptStatusSuccess uint8 = 1
)

// Receipt records the outcome of an applied transaction. Reverted
// transactions carry the rejection reason and no events.
type Receipt struct {
	TxHash    string   `json:"txHash"`
	From      string   `json:"from"`
	Method    string   `json:"method"`
	Nonce     uint64   `json:"nonce"`
	Height    uint64   `json:"height"`
	StateRoot string   `json:"stateRoot"`
	Status    uint8    `json:"status"`
	Error     string   `json:"error,omitempty"`
	ErrorName string   `json:"errorName,omitempty"`
	Events    []*Event `json:"events,omitempty"`
}

// Succeeded reports whether the transaction committed.
func (r *Receipt) Succeeded() bool {
	return r != nil && r.Status == ReceiptStatusSuccess
}
