package workspace

import (
	"errors"
	"testing"

	"github.com/Brano80/eGarant/directory"
)

func mandate(id, role, companyCode string, status directory.MandateStatus) directory.MandateWithCompany {
	return directory.MandateWithCompany{
		Mandate: directory.Mandate{ID: id, Role: role, Status: status},
		Company: directory.Company{RegistryCode: companyCode},
	}
}

func TestCanAcceptOpenParticipant(t *testing.T) {
	bound, err := CanAccept(Participant{}, nil)
	if err != nil {
		t.Fatalf("open participant denied: %v", err)
	}
	if bound != "" {
		t.Errorf("bound = %q, want empty", bound)
	}
}

func TestCanAcceptGatedMatch(t *testing.T) {
	p := Participant{RequiredRole: "Director", RequiredCompanyCode: "36723246"}
	mandates := []directory.MandateWithCompany{
		mandate("m-1", "Clerk", "36723246", directory.MandateActive),
		mandate("m-2", "Director", "36723246", directory.MandateActive),
	}

	bound, err := CanAccept(p, mandates)
	if err != nil {
		t.Fatalf("denied: %v", err)
	}
	if bound != "m-2" {
		t.Errorf("bound = %q, want m-2", bound)
	}
}

func TestCanAcceptDenials(t *testing.T) {
	cases := []struct {
		name     string
		p        Participant
		mandates []directory.MandateWithCompany
	}{
		{
			name: "no mandates at all",
			p:    Participant{RequiredRole: "Director", RequiredCompanyCode: "36723246"},
		},
		{
			name: "wrong company",
			p:    Participant{RequiredRole: "Director", RequiredCompanyCode: "36723246"},
			mandates: []directory.MandateWithCompany{
				mandate("m-1", "Director", "12345678", directory.MandateActive),
			},
		},
		{
			name: "role match is case sensitive",
			p:    Participant{RequiredRole: "Director"},
			mandates: []directory.MandateWithCompany{
				mandate("m-1", "director", "36723246", directory.MandateActive),
			},
		},
		{
			name: "inactive mandate never satisfies",
			p:    Participant{RequiredRole: "Director", RequiredCompanyCode: "36723246"},
			mandates: []directory.MandateWithCompany{
				mandate("m-1", "Director", "36723246", directory.MandateRevoked),
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := CanAccept(tc.p, tc.mandates)
			var denied *MandateDeniedError
			if !errors.As(err, &denied) {
				t.Fatalf("err = %v, want MandateDeniedError", err)
			}
			if denied.RequiredRole != tc.p.RequiredRole || denied.RequiredCompanyCode != tc.p.RequiredCompanyCode {
				t.Errorf("denial constraint = %+v, want %q/%q", denied, tc.p.RequiredRole, tc.p.RequiredCompanyCode)
			}
		})
	}
}

func TestCanAcceptRoleOnlyGate(t *testing.T) {
	p := Participant{RequiredRole: "Konateľ"}
	mandates := []directory.MandateWithCompany{
		mandate("m-1", "Konateľ", "12345678", directory.MandateActive),
	}
	bound, err := CanAccept(p, mandates)
	if err != nil {
		t.Fatalf("denied: %v", err)
	}
	if bound != "m-1" {
		t.Errorf("bound = %q", bound)
	}
}

func TestCanAcceptDeterministic(t *testing.T) {
	p := Participant{RequiredRole: "Director", RequiredCompanyCode: "X"}
	mandates := []directory.MandateWithCompany{
		mandate("m-1", "Director", "X", directory.MandateActive),
	}
	for i := 0; i < 5; i++ {
		bound, err := CanAccept(p, mandates)
		if err != nil || bound != "m-1" {
			t.Fatalf("call %d: bound=%q err=%v", i, bound, err)
		}
	}
}
