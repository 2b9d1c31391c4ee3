package invite

import "fmt"

const keyPrefix = "invite/"

// Every slot lives under the registry address so the records survive a logic
// upgrade that keeps the address.

func layoutKey(registry [20]byte) []byte {
	return []byte(fmt.Sprintf("%s%x/layout", keyPrefix, registry))
}

func slotKey(registry [20]byte, slot string) []byte {
	return []byte(fmt.Sprintf("%s%x/%s", keyPrefix, registry, slot))
}

func accountSlotKey(registry [20]byte, slot string, account [20]byte) []byte {
	return []byte(fmt.Sprintf("%s%x/%s/%x", keyPrefix, registry, slot, account))
}

func codeSlotKey(registry [20]byte, slot string, code string) []byte {
	return []byte(fmt.Sprintf("%s%x/%s/%x", keyPrefix, registry, slot, []byte(code)))
}
