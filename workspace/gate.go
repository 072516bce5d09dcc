package workspace

import "github.com/Brano80/eGarant/directory"

// CanAccept decides whether a participant may accept their invitation given
// the acting user's mandates. For a gated participant it returns the id of
// the mandate that satisfies the constraint; an open participant accepts
// unconditionally with no bound mandate.
//
// Pure decision function: no side effects, deterministic for identical
// inputs. Role matching is exact and case-sensitive.
func CanAccept(p Participant, mandates []directory.MandateWithCompany) (boundMandateID string, err error) {
	if !p.Gated() {
		return "", nil
	}
	for _, mc := range mandates {
		if mc.Status != directory.MandateActive {
			continue
		}
		if p.RequiredRole != "" && mc.Role != p.RequiredRole {
			continue
		}
		if p.RequiredCompanyCode != "" && mc.Company.RegistryCode != p.RequiredCompanyCode {
			continue
		}
		return mc.ID, nil
	}
	return "", &MandateDeniedError{
		RequiredRole:        p.RequiredRole,
		RequiredCompanyCode: p.RequiredCompanyCode,
	}
}
