package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Brano80/eGarant/workspace"
)

func (s *Server) handleCreateContract(c *gin.Context) {
	session := sessionFrom(c)
	var req struct {
		Title string `json:"title"`
		Kind  string `json:"kind"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	contract, err := s.contracts.Create(c.Request.Context(), session.UserID, companyContext(session), req.Title, req.Kind)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, contract)
}

func (s *Server) handleListContracts(c *gin.Context) {
	session := sessionFrom(c)
	contracts, err := s.contracts.ListForContext(c.Request.Context(), session.UserID, companyContext(session))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"contracts": contracts})
}

func (s *Server) handleGetContract(c *gin.Context) {
	contract, err := s.contracts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, contract)
}

func (s *Server) handleCreateWorkspace(c *gin.Context) {
	session := sessionFrom(c)
	var req struct {
		Name       string `json:"name"`
		ContractID string `json:"contractId"`
		Invitees   []struct {
			Email               string `json:"email"`
			RequiredRole        string `json:"requiredRole"`
			RequiredCompanyCode string `json:"requiredCompanyCode"`
		} `json:"invitees"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	w, err := s.workspaces.Create(c.Request.Context(), session.UserID, companyContext(session), req.ContractID, req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	var participants []workspace.Participant
	for _, inv := range req.Invitees {
		p, err := s.workspaces.Invite(c.Request.Context(), session.UserID, w.ID,
			inv.Email, inv.RequiredRole, inv.RequiredCompanyCode)
		if err != nil {
			respondError(c, err)
			return
		}
		participants = append(participants, p)
	}
	c.JSON(http.StatusCreated, gin.H{"workspace": w, "participants": participants})
}

func (s *Server) handleListWorkspaces(c *gin.Context) {
	session := sessionFrom(c)
	ws, err := s.workspaces.ListForContext(c.Request.Context(), session.UserID, companyContext(session))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"workspaces": ws})
}

func (s *Server) handleGetWorkspace(c *gin.Context) {
	session := sessionFrom(c)
	detail, err := s.workspaces.Get(c.Request.Context(), session.UserID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (s *Server) handleInviteParticipant(c *gin.Context) {
	session := sessionFrom(c)
	var req struct {
		Email               string `json:"email"`
		RequiredRole        string `json:"requiredRole"`
		RequiredCompanyCode string `json:"requiredCompanyCode"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email is required"})
		return
	}
	p, err := s.workspaces.Invite(c.Request.Context(), session.UserID, c.Param("id"),
		req.Email, req.RequiredRole, req.RequiredCompanyCode)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (s *Server) handleRespondInvitation(c *gin.Context) {
	session := sessionFrom(c)
	var req struct {
		Accept bool `json:"accept"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	p, err := s.workspaces.Respond(c.Request.Context(), session.UserID, c.Param("id"), req.Accept)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) handleAttachDocument(c *gin.Context) {
	session := sessionFrom(c)
	var req struct {
		Title      string `json:"title"`
		Kind       string `json:"kind"`
		ContractID string `json:"contractId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	d, err := s.workspaces.AttachDocument(c.Request.Context(), session.UserID, c.Param("id"),
		req.ContractID, req.Title, req.Kind)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

func (s *Server) handleSignDocument(c *gin.Context) {
	session := sessionFrom(c)
	var req struct {
		Payload string `json:"payload"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	outcome, err := s.workspaces.Sign(c.Request.Context(), session.UserID, c.Param("id"), req.Payload)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"signature":          outcome.Signature,
		"documentCompleted":  outcome.DocumentCompleted,
		"workspaceCompleted": outcome.WorkspaceCompleted,
		"contractCompleted":  outcome.ContractCompleted,
	})
}

func (s *Server) handleAttestationReport(c *gin.Context) {
	session := sessionFrom(c)
	report, err := s.workspaces.AttestationReport(c.Request.Context(), session.UserID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleListAttestations(c *gin.Context) {
	session := sessionFrom(c)
	atts, err := s.workspaces.ListAttestations(c.Request.Context(), session.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"attestations": atts})
}

func (s *Server) handleDashboardSummary(c *gin.Context) {
	session := sessionFrom(c)
	sum, err := s.workspaces.SummaryForUser(c.Request.Context(), session.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}
