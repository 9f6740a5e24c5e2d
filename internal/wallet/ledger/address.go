package ledger

import (
	"crypto/sha256"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck,gosec // HASH160 is defined over RIPEMD-160

	linkerr "github.com/mrz1836/btclink/pkg/errors"
)

// hash160 computes RIPEMD160(SHA256(b)).
func hash160(b []byte) []byte {
	sum := sha256.Sum256(b)
	h := ripemd160.New()
	_, _ = h.Write(sum[:])
	return h.Sum(nil)
}

// CompressPublicKey parses a SEC1 public key and returns its 33-byte form.
func CompressPublicKey(pub []byte) ([]byte, error) {
	key, err := btcec.ParsePubKey(pub)
	if err != nil {
		return nil, linkerr.WithCause(ErrInvalidReply, err)
	}
	return key.SerializeCompressed(), nil
}

// EncodeAddress derives the mainnet address of a compressed public key in format.
func EncodeAddress(compressed []byte, format Format) (string, error) {
	return encodeAddress(compressed, format, &chaincfg.MainNetParams)
}

func encodeAddress(compressed []byte, format Format, params *chaincfg.Params) (string, error) {
	pkHash := hash160(compressed)

	var (
		addr btcutil.Address
		err  error
	)
	switch format {
	case Bech32:
		addr, err = btcutil.NewAddressWitnessPubKeyHash(pkHash, params)
	case P2SH:
		// P2SH-wrapped P2WPKH: the redeem script is OP_0 <20-byte key hash>.
		redeem := append([]byte{0x00, 0x14}, pkHash...)
		addr, err = btcutil.NewAddressScriptHash(redeem, params)
	default:
		addr, err = btcutil.NewAddressPubKeyHash(pkHash, params)
	}
	if err != nil {
		return "", err
	}
	return addr.EncodeAddress(), nil
}

// verifyAddress checks the device-reported address against the public key.
func verifyAddress(compressed []byte, format Format, reported string) error {
	derived, err := EncodeAddress(compressed, format)
	if err != nil {
		return err
	}
	if derived != reported {
		return linkerr.WithDetails(ErrAddressMismatch, map[string]string{
			"device":  reported,
			"derived": derived,
			"format":  format.String(),
		})
	}
	return nil
}
