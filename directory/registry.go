package directory

import (
	"context"
	"errors"
)

// ErrRegistryNotFound means the registry has no company for the given code.
var ErrRegistryNotFound = errors.New("directory: registry extract not found")

// Registry looks up company extracts in a commercial registry.
type Registry interface {
	Lookup(ctx context.Context, registryCode string) (RegistryExtract, error)
}

// MockRegistry serves a fixed set of extracts. It stands in for the national
// commercial registries in the demo deployment.
type MockRegistry struct {
	extracts map[string]RegistryExtract
}

func NewMockRegistry() *MockRegistry {
	return &MockRegistry{extracts: map[string]RegistryExtract{
		"36723246": {
			RegistryCode: "36723246",
			Name:         "DIGITAL NOTARY s.r.o.",
			Country:      "SK",
			Officers: []RegistryOfficer{
				{GivenName: "Ján", FamilyName: "Nováček", Role: "Konateľ", Scope: "samostatne"},
			},
		},
		"12345678": {
			RegistryCode: "12345678",
			Name:         "ARIAN s.r.o.",
			Country:      "SK",
			Officers: []RegistryOfficer{
				{GivenName: "Petra", FamilyName: "Ambroz", Role: "Konateľ", Scope: "samostatne"},
			},
		},
		"54321098": {
			RegistryCode: "54321098",
			Name:         "eGarant s.r.o.",
			Country:      "CZ",
			Officers: []RegistryOfficer{
				{GivenName: "Ján", FamilyName: "Nováček", Role: "Jednatel", Scope: "samostatne"},
			},
		},
	}}
}

func (r *MockRegistry) Lookup(ctx context.Context, registryCode string) (RegistryExtract, error) {
	ex, ok := r.extracts[registryCode]
	if !ok {
		return RegistryExtract{}, ErrRegistryNotFound
	}
	return ex, nil
}
