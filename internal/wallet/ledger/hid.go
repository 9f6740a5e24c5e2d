package ledger

import (
	"context"

	"github.com/karalabe/hid"

	linkerr "github.com/mrz1836/btclink/pkg/errors"
)

// VendorID is the Ledger USB vendor id.
const VendorID = 0x2c97

// usagePageVendor is the HID usage page of the APDU interface.
const usagePageVendor = 0xffa0

// DeviceOpener opens a transport to a device.
type DeviceOpener interface {
	Open(ctx context.Context) (Transport, error)
}

// DeviceOpenerFunc adapts a function to DeviceOpener.
type DeviceOpenerFunc func(ctx context.Context) (Transport, error)

// Open calls f.
func (f DeviceOpenerFunc) Open(ctx context.Context) (Transport, error) {
	return f(ctx)
}

// HIDOpener opens the first Ledger found on USB HID.
type HIDOpener struct{}

// Open enumerates Ledger devices and opens the APDU interface.
func (HIDOpener) Open(context.Context) (Transport, error) {
	if !hid.Supported() {
		return nil, linkerr.WithSuggestion(linkerr.ErrDeviceNotFound, "USB HID is not supported on this platform build")
	}

	infos, err := hid.Enumerate(VendorID, 0)
	if err != nil {
		return nil, linkerr.WithCause(linkerr.ErrDeviceNotFound, err)
	}
	for _, info := range infos {
		// macOS and Windows report the usage page, Linux reports the interface
		if info.UsagePage != usagePageVendor && info.Interface != 0 {
			continue
		}
		dev, err := info.Open()
		if err != nil {
			return nil, linkerr.WithCause(linkerr.ErrDeviceNotFound, err)
		}
		return NewHIDTransport(dev), nil
	}

	return nil, linkerr.WithSuggestion(linkerr.ErrDeviceNotFound, "connect and unlock the Ledger, then open the Bitcoin app")
}
