package ledger

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"sync"
	"time"

	linkerr "github.com/mrz1836/btclink/pkg/errors"
)

// ExchangeTimeout bounds every APDU round trip.
const ExchangeTimeout = 30 * time.Second

// HID framing constants.
const (
	hidChannel    = 0x0101
	hidTagAPDU    = 0x05
	hidPacketSize = 64
	hidHeaderSize = 5
)

// Sentinel errors for the device transport.
var (
	// ErrInvalidReply indicates a malformed device reply.
	ErrInvalidReply = &linkerr.LinkError{
		Code:     "LEDGER_INVALID_REPLY",
		Message:  "malformed reply from Ledger device",
		ExitCode: linkerr.ExitGeneral,
	}

	// ErrAddressMismatch indicates the device address differs from the one derived locally.
	ErrAddressMismatch = &linkerr.LinkError{
		Code:     "LEDGER_ADDRESS_MISMATCH",
		Message:  "device address does not match its public key",
		ExitCode: linkerr.ExitGeneral,
	}
)

// StatusError is a non-success status word returned by the device.
type StatusError struct {
	Status uint16
}

func (e *StatusError) Error() string {
	switch e.Status {
	case 0x6985:
		return "ledger: request denied on device (0x6985)"
	case 0x6d00, 0x6e00:
		return fmt.Sprintf("ledger: Bitcoin app not open (0x%04x)", e.Status)
	default:
		return fmt.Sprintf("ledger: device status 0x%04x", e.Status)
	}
}

// Transport exchanges raw APDUs with a device. Exchange returns the reply
// without its status word.
type Transport interface {
	Exchange(ctx context.Context, apdu []byte) ([]byte, error)
	Close() error
}

// hidTransport frames APDUs into 64-byte HID reports.
type hidTransport struct {
	mu     sync.Mutex
	dev    io.ReadWriteCloser
	closed bool
}

// NewHIDTransport wraps an open HID device.
func NewHIDTransport(dev io.ReadWriteCloser) Transport {
	return &hidTransport{dev: dev}
}

// Exchange writes apdu and reads the reply. The device is closed when ctx
// ends mid-exchange since a half-read reply leaves the channel unusable.
func (t *hidTransport) Exchange(ctx context.Context, apdu []byte) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, linkerr.ErrDeviceNotFound
	}

	type result struct {
		reply []byte
		err   error
	}
	done := make(chan result, 1)
	go func() {
		reply, err := exchange(t.dev, apdu)
		done <- result{reply, err}
	}()

	select {
	case <-ctx.Done():
		t.closed = true
		_ = t.dev.Close()
		return nil, linkerr.WithCause(linkerr.ErrTimeout, ctx.Err())
	case r := <-done:
		return r.reply, r.err
	}
}

func (t *hidTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true
	return t.dev.Close()
}

// exchange performs one framed round trip and checks the status word.
func exchange(rw io.ReadWriter, apdu []byte) ([]byte, error) {
	for _, packet := range framePackets(apdu) {
		if _, err := rw.Write(packet); err != nil {
			return nil, fmt.Errorf("ledger write: %w", err)
		}
	}

	reply, err := readReply(rw)
	if err != nil {
		return nil, err
	}
	if len(reply) < 2 {
		return nil, errShortReply("status", reply)
	}

	status := binary.BigEndian.Uint16(reply[len(reply)-2:])
	if status != 0x9000 {
		return nil, &StatusError{Status: status}
	}
	return reply[:len(reply)-2], nil
}

// framePackets splits apdu into HID packets: channel | tag | seq, with the
// total length prefixed to the first payload. Packets are zero padded.
func framePackets(apdu []byte) [][]byte {
	payload := make([]byte, 2, 2+len(apdu))
	binary.BigEndian.PutUint16(payload, uint16(len(apdu))) //nolint:gosec // APDUs are far below 64KiB
	payload = append(payload, apdu...)

	var packets [][]byte
	space := hidPacketSize - hidHeaderSize
	for seq := 0; len(payload) > 0; seq++ {
		packet := make([]byte, hidPacketSize)
		binary.BigEndian.PutUint16(packet[0:], hidChannel)
		packet[2] = hidTagAPDU
		binary.BigEndian.PutUint16(packet[3:], uint16(seq)) //nolint:gosec // bounded by APDU size

		n := copy(packet[hidHeaderSize:], payload[:min(space, len(payload))])
		payload = payload[n:]
		packets = append(packets, packet)
	}
	return packets
}

// readReply reassembles a framed reply.
func readReply(r io.Reader) ([]byte, error) {
	var (
		reply []byte
		total = -1
	)
	packet := make([]byte, hidPacketSize)

	for seq := 0; total < 0 || len(reply) < total; seq++ {
		if _, err := io.ReadFull(r, packet); err != nil {
			return nil, fmt.Errorf("ledger read: %w", err)
		}
		if binary.BigEndian.Uint16(packet[0:]) != hidChannel || packet[2] != hidTagAPDU {
			return nil, linkerr.WithDetails(ErrInvalidReply, map[string]string{"field": "header"})
		}
		if int(binary.BigEndian.Uint16(packet[3:])) != seq {
			return nil, linkerr.WithDetails(ErrInvalidReply, map[string]string{"field": "sequence"})
		}

		data := packet[hidHeaderSize:]
		if seq == 0 {
			total = int(binary.BigEndian.Uint16(data))
			reply = make([]byte, 0, total)
			data = data[2:]
		}
		if left := total - len(reply); len(data) > left {
			data = data[:left]
		}
		reply = append(reply, data...)
	}
	return reply, nil
}

// timeoutTransport applies a per-exchange deadline.
type timeoutTransport struct {
	Transport
	timeout time.Duration
}

// WithTimeout bounds every Exchange on t by timeout.
func WithTimeout(t Transport, timeout time.Duration) Transport {
	return &timeoutTransport{Transport: t, timeout: timeout}
}

func (t *timeoutTransport) Exchange(ctx context.Context, apdu []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.Transport.Exchange(ctx, apdu)
}
