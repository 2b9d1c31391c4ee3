package types

// Event represents a typed event emitted during state transitions.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// LoggedEvent is an event as recorded in the node's append-only log.
type LoggedEvent struct {
	Sequence uint64 `json:"sequence"`
	Height   uint64 `json:"height"`
	TxHash   string `json:"txHash"`
	Event
}
