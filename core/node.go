package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"inviteregistry/core/events"
	"inviteregistry/core/state"
	"inviteregistry/native/invite"
	"inviteregistry/native/rewards"
	"inviteregistry/observability"
	"inviteregistry/storage"
	"inviteregistry/storage/trie"
)

// Config carries the static parameters of a node.
type Config struct {
	ChainID         uint64
	RegistryAddress [20]byte
	AllowMigrate    bool
	Logger          *slog.Logger
}

// Node is the single-writer transaction host. It applies signed calls one at a
// time against a working copy of the state trie and commits the copy only when
// the call succeeds.
type Node struct {
	db       storage.Database
	chainID  uint64
	registry [20]byte
	logger   *slog.Logger
	tracer   trace.Tracer

	stateMu  sync.Mutex
	trie     *trie.Trie
	height   uint64
	eventSeq uint64

	// committed is closed and replaced after every commit.
	committed chan struct{}
}

// NewNode opens the state recorded in db. An empty database is initialised at
// height zero with the current state schema version.
func NewNode(db storage.Database, cfg Config) (*Node, error) {
	if db == nil {
		return nil, fmt.Errorf("core: database required")
	}
	if cfg.RegistryAddress == ([20]byte{}) {
		return nil, ErrZeroRegistry
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	n := &Node{
		db:       db,
		chainID:  cfg.ChainID,
		registry: cfg.RegistryAddress,
		logger:   logger.With(slog.String("component", "core")),
		tracer:   otel.Tracer("inviteregistry/core"),

		committed: make(chan struct{}),
	}

	head, found, err := loadHead(db)
	if err != nil {
		return nil, err
	}
	if !found {
		if err := n.genesis(); err != nil {
			return nil, err
		}
		return n, nil
	}
	tr, err := trie.NewTrie(db, head.Root[:])
	if err != nil {
		return nil, fmt.Errorf("core: open state at %x: %w", head.Root, err)
	}
	if err := state.EnsureStateVersion(tr, cfg.AllowMigrate); err != nil {
		return nil, err
	}
	n.trie = tr
	n.height = head.Height
	n.eventSeq = head.EventSeq
	observability.Registry().SetHeight(n.height)
	n.logger.Info("state restored", slog.Uint64("height", n.height), slog.String("root", tr.Root().Hex()))
	return n, nil
}

func (n *Node) genesis() error {
	tr, err := trie.NewTrie(n.db, nil)
	if err != nil {
		return err
	}
	if err := state.NewManager(tr).SetStateVersion(state.StateVersion); err != nil {
		return err
	}
	root, err := tr.Commit(tr.Root(), 0)
	if err != nil {
		return fmt.Errorf("core: commit genesis: %w", err)
	}
	batch := n.db.NewBatch()
	if err := putHead(batch, headRecord{Height: 0, Root: root, EventSeq: 0}); err != nil {
		return err
	}
	if err := batch.Write(); err != nil {
		return err
	}
	n.trie = tr
	n.logger.Info("state initialised", slog.String("root", root.Hex()))
	return nil
}

// Committed returns a channel closed by the next commit. Callers fetch the
// channel before reading state so no commit is missed.
func (n *Node) Committed() <-chan struct{} {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.committed
}

// ChainID returns the chain identifier transactions must carry.
func (n *Node) ChainID() uint64 {
	return n.chainID
}

// RegistryAddress returns the address the invite registry lives at.
func (n *Node) RegistryAddress() [20]byte {
	return n.registry
}

// Height returns the height of the last committed state.
func (n *Node) Height() uint64 {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.height
}

// StateRoot returns the last committed state root.
func (n *Node) StateRoot() [32]byte {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return [32]byte(n.trie.Root())
}

func (n *Node) newRegistry(manager *state.Manager, emitter events.Emitter) *invite.Registry {
	registry := invite.NewRegistry(manager, n.registry)
	registry.SetEmitter(emitter)
	registry.SetLedgers(func(addr [20]byte) invite.CreditLedger {
		return n.newLedger(manager, addr, emitter)
	})
	return registry
}

func (n *Node) newLedger(manager *state.Manager, addr [20]byte, emitter events.Emitter) *rewards.Ledger {
	ledger := rewards.NewLedger(manager, addr)
	ledger.SetEmitter(emitter)
	return ledger
}

func contextErr(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("core: deadline exceeded before admission: %w", err)
		}
		return err
	}
	return nil
}
