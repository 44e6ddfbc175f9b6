package pendingtx

import "errors"

var (
	ErrStoreRequired      = errors.New("pendingtx: store is required")
	ErrInvalidStatus      = errors.New("pendingtx: invalid transaction status")
	ErrRecipientRequired  = errors.New("pendingtx: payment recipient is required")
	ErrInvalidPaymentType = errors.New("pendingtx: invalid payment type")
	ErrAmountNotPositive  = errors.New("pendingtx: payment amount must be positive")
	ErrURIRequired        = errors.New("pendingtx: upload local URI is required")
)
