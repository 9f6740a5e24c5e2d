package ledger

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts"

	linkerr "github.com/mrz1836/btclink/pkg/errors"
)

// DefaultPath is the first native segwit receive address of account 0.
const DefaultPath = "m/84'/0'/0'/0/0"

// Format is the address encoding requested from the Bitcoin app.
type Format byte

// Address formats, valued as the getWalletPublicKey P2 byte.
const (
	Legacy Format = 0x00
	P2SH   Format = 0x01
	Bech32 Format = 0x02
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case P2SH:
		return "p2sh"
	case Bech32:
		return "bech32"
	default:
		return "legacy"
	}
}

// AddressFormat maps a derivation path to the address format of its purpose:
// m/84' and m/86' are bech32, m/49' is p2sh, anything else is legacy.
func AddressFormat(path string) Format {
	switch {
	case strings.HasPrefix(path, "m/84'"), strings.HasPrefix(path, "m/86'"):
		return Bech32
	case strings.HasPrefix(path, "m/49'"):
		return P2SH
	default:
		return Legacy
	}
}

// ParsePath parses a BIP32 path such as m/84'/0'/0'/0/0.
func ParsePath(path string) (accounts.DerivationPath, error) {
	// relative paths would be resolved against the Ethereum default root
	if !strings.HasPrefix(path, "m/") {
		return nil, linkerr.WithDetails(linkerr.ErrInvalidPath, map[string]string{"path": path})
	}
	dp, err := accounts.ParseDerivationPath(path)
	if err != nil {
		return nil, linkerr.WithDetails(linkerr.WithCause(linkerr.ErrInvalidPath, err), map[string]string{"path": path})
	}
	if len(dp) > maxPathDepth {
		return nil, linkerr.WithDetails(linkerr.ErrInvalidPath, map[string]string{
			"path":  path,
			"depth": "at most 10 components",
		})
	}
	return dp, nil
}
