package payments

import "time"

// ConfirmRequest is the client's claim about a gateway payment. Amount is
// in minor currency units and is validated against the server-known price
// before the gateway is ever contacted.
type ConfirmRequest struct {
	PaymentReference string `json:"paymentReference" validate:"required"`
	OrderReference   string `json:"orderReference" validate:"required"`
	Amount           int64  `json:"amount" validate:"required,gt=0"`
}

type ConfirmResponse struct {
	Success bool      `json:"success"`
	Plan    string    `json:"plan"`
	EndDate time.Time `json:"endDate"`
}

// Reference statuses as recorded in payment_references.
const (
	StatusConfirmed        = "confirmed"
	StatusActivated        = "activated"
	StatusActivationFailed = "activation_failed"
)

// ReferenceRecord tracks a consumed payment reference. Rows in
// activation_failed state are the input to ops reconciliation.
type ReferenceRecord struct {
	Reference      string    `json:"reference"`
	OrderReference string    `json:"orderReference"`
	OwnerUID       string    `json:"ownerUid"`
	Amount         int64     `json:"amount"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}
