// Package digest provides the hashing support the blockchain needs to bind
// a block to its content and to its parent.
package digest

import (
	"crypto/sha256"

	"github.com/ethereum/go-ethereum/common"
)

// GenesisPrevHash is the previous hash recorded on the genesis block since
// there is no parent block to reference.
const GenesisPrevHash = "0"

// Length is the number of hex characters in a rendered digest.
const Length = 2 * common.HashLength

// =============================================================================

// Hash returns the sha256 digest of the content as a lowercase hex string
// without a 0x prefix.
func Hash(content string) string {
	hash := sha256.Sum256([]byte(content))
	return common.Bytes2Hex(hash[:])
}

// IsHash reports whether the string has the shape of a rendered digest.
func IsHash(s string) bool {
	if len(s) != Length {
		return false
	}

	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		default:
			return false
		}
	}

	return true
}
