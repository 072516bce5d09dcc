package directory

import "time"

// CompanyStatus tracks the verification state of a company record.
type CompanyStatus string

const (
	CompanyActive             CompanyStatus = "active"
	CompanyInactive           CompanyStatus = "inactive"
	CompanyPendingVerify      CompanyStatus = "pending_verification"
	CompanyVerificationFailed CompanyStatus = "verification_failed"
)

// MandateStatus tracks the lifecycle of a mandate.
type MandateStatus string

const (
	MandatePending  MandateStatus = "pending_confirmation"
	MandateActive   MandateStatus = "active"
	MandateRejected MandateStatus = "rejected"
	MandateRevoked  MandateStatus = "revoked"
	MandateExpired  MandateStatus = "expired"
)

// MandateScope describes how the holder may exercise the mandate.
type MandateScope string

const (
	ScopeSole    MandateScope = "sole"
	ScopeJoint   MandateScope = "joint"
	ScopeLimited MandateScope = "limited"
)

// Company mirrors a record from the commercial registry.
type Company struct {
	ID             string
	RegistryCode   string
	Name           string
	Country        string
	Status         CompanyStatus
	LastVerifiedAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Mandate grants a user a role at a company. Only active mandates prove
// authority.
type Mandate struct {
	ID        string
	UserID    string
	CompanyID string
	Role      string
	Scope     MandateScope
	ValidFrom time.Time
	ValidTo   *time.Time
	Source    string
	Status    MandateStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MandateWithCompany joins a mandate with its company record.
type MandateWithCompany struct {
	Mandate
	Company Company
}

// MandateHolder joins a mandate with holder identity, for company-side views
// and the verification protocol's name matching.
type MandateHolder struct {
	Mandate
	UserName  string
	UserEmail string
}

// RegistryOfficer is one statutory representative in a registry extract.
type RegistryOfficer struct {
	GivenName  string `json:"givenName"`
	FamilyName string `json:"familyName"`
	Role       string `json:"role"`
	Scope      string `json:"scope,omitempty"`
}

// RegistryExtract is the commercial-registry view of a company.
type RegistryExtract struct {
	RegistryCode string            `json:"registryCode"`
	Name         string            `json:"name"`
	Country      string            `json:"country"`
	Officers     []RegistryOfficer `json:"officers"`
}
