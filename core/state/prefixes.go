package state

import "fmt"

var accountNoncePrefix = []byte("account/nonce/")

func accountNonceKey(addr [20]byte) []byte {
	return []byte(fmt.Sprintf("%s%x", accountNoncePrefix, addr))
}
