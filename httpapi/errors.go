package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Brano80/eGarant/auth"
	"github.com/Brano80/eGarant/contract"
	"github.com/Brano80/eGarant/directory"
	"github.com/Brano80/eGarant/pkg/logger"
	"github.com/Brano80/eGarant/verification"
	"github.com/Brano80/eGarant/workspace"
)

// respondError maps domain errors onto HTTP statuses. Denials carry enough
// structure for the client to render a remedy.
func respondError(c *gin.Context, err error) {
	var denied *workspace.MandateDeniedError
	if errors.As(err, &denied) {
		c.JSON(http.StatusForbidden, gin.H{
			"error":               denied.Error(),
			"requiredRole":        denied.RequiredRole,
			"requiredCompanyCode": denied.RequiredCompanyCode,
		})
		return
	}

	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})

	case errors.Is(err, auth.ErrUserNotFound),
		errors.Is(err, directory.ErrCompanyNotFound),
		errors.Is(err, directory.ErrMandateNotFound),
		errors.Is(err, directory.ErrRegistryNotFound),
		errors.Is(err, directory.ErrHolderNotFound),
		errors.Is(err, contract.ErrNotFound),
		errors.Is(err, workspace.ErrWorkspaceNotFound),
		errors.Is(err, workspace.ErrParticipantNotFound),
		errors.Is(err, workspace.ErrDocumentNotFound),
		errors.Is(err, workspace.ErrSignatureNotFound),
		errors.Is(err, verification.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

	case errors.Is(err, workspace.ErrNotCreator),
		errors.Is(err, workspace.ErrNotInvitee),
		errors.Is(err, workspace.ErrNotParticipant),
		errors.Is(err, workspace.ErrReadForbidden),
		errors.Is(err, directory.ErrNotAuthorized),
		errors.Is(err, directory.ErrNotMandateHolder),
		errors.Is(err, directory.ErrNotAnOfficer):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})

	case errors.Is(err, workspace.ErrAlreadySigned),
		errors.Is(err, workspace.ErrAlreadyResponded),
		errors.Is(err, workspace.ErrAlreadyParticipant),
		errors.Is(err, workspace.ErrNotAccepted),
		errors.Is(err, directory.ErrMandateNotOpen),
		errors.Is(err, verification.ErrAlreadyResolved),
		errors.Is(err, auth.ErrDuplicateEmail):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})

	case errors.Is(err, verification.ErrMalformedClaim),
		errors.Is(err, verification.ErrNonceMismatch),
		errors.Is(err, workspace.ErrNameRequired),
		errors.Is(err, contract.ErrTitleRequired),
		errors.Is(err, auth.ErrWeakPassword):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	default:
		logger.Error(c.Request.Context(), "unhandled error", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
