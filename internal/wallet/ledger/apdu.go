package ledger

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"

	linkerr "github.com/mrz1836/btclink/pkg/errors"
)

// maxPathDepth is the deepest path the Bitcoin app accepts.
const maxPathDepth = 10

// Command bytes.
const (
	claDashboard = 0xb0
	insAppInfo   = 0x01

	claBTC                = 0xe0
	insGetWalletPublicKey = 0x40
)

// resetAPDU asks the device for the running app's name and version.
var resetAPDU = []byte{claDashboard, insAppInfo, 0x00, 0x00}

// AppInfo describes the app currently open on the device.
type AppInfo struct {
	Name    string
	Version string
}

// WalletPublicKey is the parsed getWalletPublicKey reply.
type WalletPublicKey struct {
	PublicKey []byte // uncompressed, as returned by the device
	Address   string
	ChainCode []byte
}

// getWalletPublicKeyAPDU builds the BTC app command for path in format,
// without on-device confirmation.
func getWalletPublicKeyAPDU(path accounts.DerivationPath, format Format) []byte {
	data := make([]byte, 1+4*len(path))
	data[0] = byte(len(path))
	for i, component := range path {
		binary.BigEndian.PutUint32(data[1+4*i:], component)
	}

	apdu := []byte{claBTC, insGetWalletPublicKey, 0x00, byte(format), byte(len(data))}
	return append(apdu, data...)
}

// parseAppInfo decodes the reset reply: format | nameLen | name | versionLen | version | ...
func parseAppInfo(reply []byte) (AppInfo, error) {
	if len(reply) < 2 {
		return AppInfo{}, errShortReply("app info", reply)
	}
	pos := 1
	name, pos, err := readLV(reply, pos)
	if err != nil {
		return AppInfo{}, fmt.Errorf("app info name: %w", err)
	}
	version, _, err := readLV(reply, pos)
	if err != nil {
		return AppInfo{}, fmt.Errorf("app info version: %w", err)
	}
	return AppInfo{Name: string(name), Version: string(version)}, nil
}

// parseWalletPublicKey decodes pubkeyLen | pubkey | addrLen | address | chaincode(32).
func parseWalletPublicKey(reply []byte) (*WalletPublicKey, error) {
	pub, pos, err := readLV(reply, 0)
	if err != nil {
		return nil, fmt.Errorf("public key: %w", err)
	}
	addr, pos, err := readLV(reply, pos)
	if err != nil {
		return nil, fmt.Errorf("address: %w", err)
	}
	if len(reply)-pos < 32 {
		return nil, errShortReply("chain code", reply)
	}
	return &WalletPublicKey{
		PublicKey: pub,
		Address:   string(addr),
		ChainCode: reply[pos : pos+32],
	}, nil
}

// readLV reads a one-byte length followed by that many bytes.
func readLV(b []byte, pos int) ([]byte, int, error) {
	if pos >= len(b) {
		return nil, pos, errShortReply("length", b)
	}
	n := int(b[pos])
	pos++
	if pos+n > len(b) {
		return nil, pos, errShortReply("value", b)
	}
	return b[pos : pos+n], pos + n, nil
}

func errShortReply(what string, reply []byte) error {
	return linkerr.WithDetails(ErrInvalidReply, map[string]string{
		"field": what,
		"len":   fmt.Sprintf("%d", len(reply)),
	})
}
