package id

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
)

// NewID32 returns exactly 32 hex characters (no separators/prefixes).
func NewID32() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// ContractAddress derives the address of the nonce-th child minted by creator,
// the same way contract creation assigns addresses.
func ContractAddress(creator common.Address, nonce uint64) common.Address {
	return crypto.CreateAddress(creator, nonce)
}
