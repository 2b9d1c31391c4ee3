package state

import (
	"errors"
	"fmt"
	"math"

	"inviteregistry/storage/trie"
)

// StateVersion is the host schema this binary reads and writes. Module
// layouts, such as the invite registry slots, are versioned separately.
const StateVersion uint32 = 1

var stateVersionKey = []byte("state/version")

var (
	ErrStateVersionMismatch = errors.New("state: schema version mismatch")
	// ErrStateFromFuture marks state written by a newer binary. It is never
	// opened, migration allowed or not.
	ErrStateFromFuture = errors.New("state: schema newer than binary")
)

// SetStateVersion stores version as the host schema.
func (m *Manager) SetStateVersion(version uint32) error {
	if m == nil {
		return errors.New("state: manager unavailable")
	}
	return m.KVPut(stateVersionKey, uint64(version))
}

// StateVersion reads the stored host schema; ok is false on fresh state.
func (m *Manager) StateVersion() (version uint32, ok bool, err error) {
	if m == nil {
		return 0, false, errors.New("state: manager unavailable")
	}
	var stored uint64
	if ok, err = m.KVGet(stateVersionKey, &stored); err != nil || !ok {
		return 0, ok, err
	}
	if stored > math.MaxUint32 {
		return 0, false, fmt.Errorf("state: schema version %d out of range", stored)
	}
	return uint32(stored), true, nil
}

// EnsureStateVersion gates opening tr. Fresh state and the current version
// pass. Older versions pass only with allowMigrate; newer ones never do.
func EnsureStateVersion(tr *trie.Trie, allowMigrate bool) error {
	if tr == nil {
		return errors.New("state: nil trie")
	}
	stored, ok, err := NewManager(tr).StateVersion()
	if err != nil {
		return err
	}
	switch {
	case !ok, stored == StateVersion:
		return nil
	case stored > StateVersion:
		return fmt.Errorf("%w: on-disk=%d binary=%d", ErrStateFromFuture, stored, StateVersion)
	case allowMigrate:
		return nil
	default:
		return fmt.Errorf("%w: on-disk=%d binary=%d", ErrStateVersionMismatch, stored, StateVersion)
	}
}
