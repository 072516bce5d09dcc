package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Brano80/eGarant/directory"
)

func (s *Server) handleRegistrySearch(c *gin.Context) {
	code := c.Query("registryCode")
	if code == "" {
		code = c.Query("ico")
	}
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "registryCode is required"})
		return
	}
	extract, err := s.dir.RegistrySearch(c.Request.Context(), code)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, extract)
}

func (s *Server) handleConnectCompany(c *gin.Context) {
	session := sessionFrom(c)
	var req struct {
		RegistryCode string `json:"registryCode"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.RegistryCode == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "registryCode is required"})
		return
	}
	mc, err := s.dir.ConnectCompany(c.Request.Context(), session.UserID, req.RegistryCode)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, mandateWithCompanyView(mc))
}

func (s *Server) handleCompanyProfile(c *gin.Context) {
	company, err := s.dir.CompanyProfile(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, companyView(company))
}

func (s *Server) handleCompanyMandates(c *gin.Context) {
	session := sessionFrom(c)
	holders, err := s.dir.CompanyMandates(c.Request.Context(), session.UserID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]gin.H, 0, len(holders))
	for _, h := range holders {
		out = append(out, gin.H{
			"id":        h.ID,
			"userId":    h.UserID,
			"userName":  h.UserName,
			"userEmail": h.UserEmail,
			"role":      h.Role,
			"scope":     h.Scope,
			"status":    h.Status,
			"validTo":   h.ValidTo,
		})
	}
	c.JSON(http.StatusOK, gin.H{"mandates": out})
}

func (s *Server) handleCompanyAudit(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	events, err := s.audits.CompanyLog(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

func (s *Server) handleMyMandates(c *gin.Context) {
	session := sessionFrom(c)
	mandates, err := s.dir.MandatesForUser(c.Request.Context(), session.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]gin.H, 0, len(mandates))
	for _, mc := range mandates {
		out = append(out, mandateWithCompanyView(mc))
	}
	c.JSON(http.StatusOK, gin.H{"mandates": out})
}

func (s *Server) handleGrantMandate(c *gin.Context) {
	session := sessionFrom(c)
	var req struct {
		CompanyID   string     `json:"companyId"`
		HolderEmail string     `json:"holderEmail"`
		Role        string     `json:"role"`
		Scope       string     `json:"scope"`
		ValidTo     *time.Time `json:"validTo"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.CompanyID == "" || req.HolderEmail == "" || req.Role == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "companyId, holderEmail and role are required"})
		return
	}
	m, err := s.dir.GrantMandate(c.Request.Context(), session.UserID, req.CompanyID,
		req.HolderEmail, req.Role, directory.MandateScope(req.Scope), req.ValidTo)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, mandateView(m))
}

func (s *Server) handleRespondMandate(c *gin.Context) {
	session := sessionFrom(c)
	var req struct {
		Accept bool `json:"accept"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	m, err := s.dir.RespondToMandate(c.Request.Context(), session.UserID, c.Param("id"), req.Accept)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, mandateView(m))
}

func (s *Server) handleRevokeMandate(c *gin.Context) {
	session := sessionFrom(c)
	m, err := s.dir.RevokeMandate(c.Request.Context(), session.UserID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, mandateView(m))
}

func companyView(co directory.Company) gin.H {
	return gin.H{
		"id":             co.ID,
		"registryCode":   co.RegistryCode,
		"name":           co.Name,
		"country":        co.Country,
		"status":         co.Status,
		"lastVerifiedAt": co.LastVerifiedAt,
	}
}

func mandateView(m directory.Mandate) gin.H {
	return gin.H{
		"id":        m.ID,
		"userId":    m.UserID,
		"companyId": m.CompanyID,
		"role":      m.Role,
		"scope":     m.Scope,
		"status":    m.Status,
		"source":    m.Source,
		"validFrom": m.ValidFrom,
		"validTo":   m.ValidTo,
	}
}

func mandateWithCompanyView(mc directory.MandateWithCompany) gin.H {
	v := mandateView(mc.Mandate)
	v["company"] = companyView(mc.Company)
	return v
}
