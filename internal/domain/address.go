package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ErrInvalidAddress is returned for wallet strings that are not 20-byte hex addresses.
var ErrInvalidAddress = errors.New("invalid wallet address")

// NormalizeAddresses validates EVM wallet addresses and returns them in the
// lowercase 0x form subgraphs store. Blank entries are dropped; the 0x prefix
// is optional on input.
func NormalizeAddresses(addresses []string) ([]string, error) {
	out := make([]string, 0, len(addresses))
	for _, a := range addresses {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		if !common.IsHexAddress(a) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, a)
		}
		out = append(out, strings.ToLower(common.HexToAddress(a).Hex()))
	}
	return out, nil
}
