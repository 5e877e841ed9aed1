package domain

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// NormalizeAddress validates a hex wallet or token address and returns its
// lowercase form, which is the key used for users and holdings.
func NormalizeAddress(address string) (string, error) {
	address = strings.TrimSpace(address)
	if !common.IsHexAddress(address) {
		return "", fmt.Errorf("%w: not a hex address: %q", ErrInvalidRequest, address)
	}
	return strings.ToLower(common.HexToAddress(address).Hex()), nil
}

// ChecksumAddress returns the EIP-55 form of a normalised address for display.
func ChecksumAddress(address string) string {
	if !common.IsHexAddress(address) {
		return address
	}
	return common.HexToAddress(address).Hex()
}
