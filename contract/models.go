package contract

import "time"

// Status of a contract.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// Contract is an umbrella over one or more signing workspaces. It completes
// when all of its workspaces complete.
type Contract struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Kind      string    `json:"kind"`
	Status    Status    `json:"status"`
	CreatedBy string    `json:"createdBy"`
	CompanyID string    `json:"companyId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
