package workspace

import (
	"errors"
	"fmt"
)

var (
	ErrWorkspaceNotFound   = errors.New("workspace: workspace not found")
	ErrParticipantNotFound = errors.New("workspace: participant not found")
	ErrDocumentNotFound    = errors.New("workspace: document not found")
	ErrSignatureNotFound   = errors.New("workspace: signature not found")

	ErrNameRequired       = errors.New("workspace: name is required")
	ErrNotCreator         = errors.New("workspace: only the creator may do this")
	ErrNotInvitee         = errors.New("workspace: invitation belongs to a different user")
	ErrAlreadyResponded   = errors.New("workspace: invitation already answered")
	ErrAlreadyParticipant = errors.New("workspace: user is already a participant")
	ErrNotParticipant     = errors.New("workspace: user is not a participant")
	ErrNotAccepted        = errors.New("workspace: participant has not accepted the invitation")
	ErrAlreadySigned      = errors.New("workspace: signature already signed")
	ErrReadForbidden      = errors.New("workspace: no read access to this workspace")
)

// MandateDeniedError is returned when a gated acceptance finds no matching
// active mandate. It carries the unmet constraint so the caller can prompt
// remediation.
type MandateDeniedError struct {
	RequiredRole        string
	RequiredCompanyCode string
}

func (e *MandateDeniedError) Error() string {
	switch {
	case e.RequiredRole != "" && e.RequiredCompanyCode != "":
		return fmt.Sprintf("workspace: no active mandate for role %q at company %s", e.RequiredRole, e.RequiredCompanyCode)
	case e.RequiredRole != "":
		return fmt.Sprintf("workspace: no active mandate for role %q", e.RequiredRole)
	default:
		return fmt.Sprintf("workspace: no active mandate at company %s", e.RequiredCompanyCode)
	}
}
