package rewards

import "fmt"

const keyPrefix = "rewards/"

func ownerKey(ledger [20]byte) []byte {
	return []byte(fmt.Sprintf("%s%x/owner", keyPrefix, ledger))
}

func callerKey(ledger, caller [20]byte) []byte {
	return []byte(fmt.Sprintf("%s%x/caller/%x", keyPrefix, ledger, caller))
}

func callerIndexKey(ledger [20]byte) []byte {
	return []byte(fmt.Sprintf("%s%x/callers", keyPrefix, ledger))
}

func balanceKey(ledger, account [20]byte) []byte {
	return []byte(fmt.Sprintf("%s%x/balance/%x", keyPrefix, ledger, account))
}

func totalKey(ledger [20]byte) []byte {
	return []byte(fmt.Sprintf("%s%x/total", keyPrefix, ledger))
}
