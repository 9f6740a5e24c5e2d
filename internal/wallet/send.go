package wallet

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	linkerr "github.com/mrz1836/btclink/pkg/errors"
)

// SendOptions carries optional transfer settings understood by some wallets.
type SendOptions struct {
	// FeeRate in sat/vB; zero lets the wallet choose.
	FeeRate int64 `json:"feeRate,omitempty" validate:"gte=0"`
}

// SendRequest describes a transfer. Amount is in satoshis.
type SendRequest struct {
	Recipient string       `json:"recipient" validate:"required"`
	Amount    int64        `json:"amount" validate:"gt=0"`
	Options   *SendOptions `json:"options,omitempty"`
}

//nolint:gochecknoglobals // validator caches struct metadata and is safe for concurrent use
var validate = validator.New()

// Validate checks the request before it reaches a wallet.
func (r SendRequest) Validate() error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return linkerr.WithCause(linkerr.ErrInvalidInput, err)
	}

	fe := verrs[0]
	switch fe.Field() {
	case "Amount":
		return linkerr.WithDetails(linkerr.ErrInvalidAmount, map[string]string{"amount": "must be positive"})
	case "Recipient":
		return linkerr.WithDetails(linkerr.ErrInvalidAddress, map[string]string{"recipient": "required"})
	default:
		return linkerr.WithDetails(linkerr.ErrInvalidInput, map[string]string{
			strings.ToLower(fe.Field()): fe.Tag(),
		})
	}
}

// FeeRate returns the requested fee rate or zero.
func (r SendRequest) FeeRate() int64 {
	if r.Options == nil {
		return 0
	}
	return r.Options.FeeRate
}
