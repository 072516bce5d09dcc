package httpapi

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/Brano80/eGarant/apikey"
	"github.com/Brano80/eGarant/audit"
	"github.com/Brano80/eGarant/auth"
	"github.com/Brano80/eGarant/contract"
	"github.com/Brano80/eGarant/directory"
	"github.com/Brano80/eGarant/verification"
	"github.com/Brano80/eGarant/workspace"
)

// Server wires the domain services to the HTTP surface.
type Server struct {
	auth       *auth.Service
	dir        *directory.Service
	contracts  *contract.Service
	workspaces *workspace.Service
	verifier   *verification.Service
	keys       *apikey.Service
	audits     *audit.Service

	// resetData reseeds the demo stores. Nil on persistent deployments,
	// which disables the endpoint.
	resetData func(ctx context.Context) error
}

// Deps carries the services a Server needs.
type Deps struct {
	Auth       *auth.Service
	Directory  *directory.Service
	Contracts  *contract.Service
	Workspaces *workspace.Service
	Verifier   *verification.Service
	Keys       *apikey.Service
	Audits     *audit.Service
	ResetData  func(ctx context.Context) error
}

func NewServer(d Deps) *Server {
	return &Server{
		auth:       d.Auth,
		dir:        d.Directory,
		contracts:  d.Contracts,
		workspaces: d.Workspaces,
		verifier:   d.Verifier,
		keys:       d.Keys,
		audits:     d.Audits,
		resetData:  d.ResetData,
	}
}

// Router builds the gin engine with all routes and middleware.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), RequestLogger(), Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		api.POST("/auth/register", s.handleRegister)
		api.POST("/auth/login", s.handleLogin)
		api.POST("/auth/mock-login", s.handleMockLogin)

		authed := api.Group("", SessionAuth(s.auth))
		{
			authed.GET("/auth/current-user", s.handleCurrentUser)
			authed.POST("/auth/set-context", s.handleSetContext)
			authed.POST("/auth/logout", s.handleLogout)

			authed.GET("/registry-search", s.handleRegistrySearch)
			authed.POST("/companies/connect", s.handleConnectCompany)
			authed.GET("/companies/:id", s.handleCompanyProfile)
			authed.GET("/companies/:id/mandates", s.handleCompanyMandates)
			authed.GET("/companies/:id/audit", s.handleCompanyAudit)

			authed.GET("/mandates", s.handleMyMandates)
			authed.POST("/mandates", s.handleGrantMandate)
			authed.POST("/mandates/:id/respond", s.handleRespondMandate)
			authed.POST("/mandates/:id/revoke", s.handleRevokeMandate)

			authed.GET("/contracts", s.handleListContracts)
			authed.POST("/contracts", s.handleCreateContract)
			authed.GET("/contracts/:id", s.handleGetContract)

			authed.GET("/workspaces", s.handleListWorkspaces)
			authed.POST("/workspaces", s.handleCreateWorkspace)
			authed.GET("/workspaces/:id", s.handleGetWorkspace)
			authed.POST("/workspaces/:id/participants", s.handleInviteParticipant)
			authed.POST("/participants/:id/respond", s.handleRespondInvitation)
			authed.POST("/workspaces/:id/documents", s.handleAttachDocument)
			authed.POST("/documents/:id/sign", s.handleSignDocument)
			authed.GET("/documents/:id/attestation", s.handleAttestationReport)

			authed.GET("/attestations", s.handleListAttestations)
			authed.GET("/dashboard/summary", s.handleDashboardSummary)

			authed.GET("/keys", s.handleListKeys)
			authed.POST("/keys", s.handleCreateKey)
			authed.DELETE("/keys/:id", s.handleDeleteKey)
		}

		api.POST("/admin/reset-data", s.handleResetData)
	}

	v1 := r.Group("/api/v1")
	{
		machine := v1.Group("", APIKeyAuth(s.keys))
		{
			machine.POST("/verify-mandate", s.handleInitiateVerification)
			machine.GET("/verify-status/:id", s.handleVerificationStatus)
		}
		// The wallet side authenticates through the transaction nonce, not an
		// api key.
		v1.GET("/request-object/:id", s.handleRequestObject)
		v1.POST("/verify-callback/:id", s.handleVerificationCallback)
	}

	return r
}
