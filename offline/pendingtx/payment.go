package pendingtx

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment type values. The set is closed like Status; "withdrawal" is kept
// as an accepted spelling alongside "withdraw" because both appear in
// persisted data.
const (
	PaymentTypeGift       = "gift"
	PaymentTypeWithdraw   = "withdraw"
	PaymentTypeWithdrawal = "withdrawal"
	PaymentTypePayment    = "payment"
)

// PendingPayment is a gift payment whose server-side settlement has not been
// confirmed yet. Records live in one persisted list and expire after the
// service TTL.
type PendingPayment struct {
	ID          uuid.UUID       `json:"id"`
	Type        string          `json:"type"`
	RecipientID string          `json:"recipientId"`
	MomentID    string          `json:"momentId,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Status      Status          `json:"status"`
	Metadata    map[string]any  `json:"metadata,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// PaymentParams describes a payment to record. RecipientID and a positive
// Amount are required; Type defaults to gift.
type PaymentParams struct {
	Type        string
	RecipientID string
	MomentID    string
	Amount      decimal.Decimal
	Currency    string
	Metadata    map[string]any
}

func newPendingPayment(params PaymentParams, now time.Time) (PendingPayment, error) {
	recipientID := strings.TrimSpace(params.RecipientID)
	if recipientID == "" {
		return PendingPayment{}, ErrRecipientRequired
	}

	if !params.Amount.IsPositive() {
		return PendingPayment{}, ErrAmountNotPositive
	}

	paymentType := strings.ToLower(strings.TrimSpace(params.Type))

	switch paymentType {
	case "":
		paymentType = PaymentTypeGift
	case PaymentTypeGift, PaymentTypeWithdraw, PaymentTypeWithdrawal, PaymentTypePayment:
	default:
		return PendingPayment{}, ErrInvalidPaymentType
	}

	currency := strings.ToUpper(strings.TrimSpace(params.Currency))
	if currency == "" {
		currency = DefaultCurrency
	}

	return PendingPayment{
		ID:          uuid.New(),
		Type:        paymentType,
		RecipientID: recipientID,
		MomentID:    strings.TrimSpace(params.MomentID),
		Amount:      params.Amount,
		Currency:    currency,
		Status:      StatusInitiated,
		Metadata:    params.Metadata,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}
