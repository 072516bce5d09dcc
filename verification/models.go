package verification

import "time"

// Status of a verification transaction. pending is the only non-terminal
// state; terminal states are sticky.
type Status string

const (
	StatusPending     Status = "pending"
	StatusVerified    Status = "verified"
	StatusNotVerified Status = "not_verified"
	StatusError       Status = "error"
)

// Terminal reports whether the status can no longer change.
func (s Status) Terminal() bool {
	return s == StatusVerified || s == StatusNotVerified || s == StatusError
}

// Result is the payload of a resolved transaction.
type Result struct {
	PersonName   string `json:"personName,omitempty"`
	CompanyCode  string `json:"companyCode,omitempty"`
	CompanyName  string `json:"companyName,omitempty"`
	Role         string `json:"role,omitempty"`
	Error        string `json:"error,omitempty"`
	SessionToken string `json:"sessionToken,omitempty"`
}

// Transaction tracks one asynchronous identity verification against a
// company's mandate holders. Created pending, resolved terminally exactly
// once by a wallet callback.
type Transaction struct {
	ID          string
	CompanyCode string
	Nonce       string
	Status      Status
	Result      *Result
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// InitiateResponse hands the caller the transaction id for polling and the
// opaque request reference the wallet holder must follow.
type InitiateResponse struct {
	TransactionID string `json:"transactionId"`
	RequestRef    string `json:"requestRef"`
}
