package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleInitiateVerification(c *gin.Context) {
	var req struct {
		CompanyCode string `json:"companyCode"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.CompanyCode == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "companyCode is required"})
		return
	}
	resp, err := s.verifier.Initiate(c.Request.Context(), req.CompanyCode)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (s *Server) handleVerificationStatus(c *gin.Context) {
	tx, err := s.verifier.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": tx.Status, "result": tx.Result})
}

func (s *Server) handleRequestObject(c *gin.Context) {
	obj, err := s.verifier.RequestObject(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, obj)
}

// handleVerificationCallback receives the wallet's identity token. Wallets
// post either a bare token body or a JSON object carrying it.
func (s *Server) handleVerificationCallback(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, 64<<10))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}
	token := strings.TrimSpace(string(raw))
	if strings.HasPrefix(token, "{") {
		var body struct {
			Token string `json:"token"`
		}
		if err := json.Unmarshal(raw, &body); err == nil && body.Token != "" {
			token = body.Token
		} else {
			token = ""
		}
	}

	tx, err := s.verifier.Callback(c.Request.Context(), c.Param("id"), token)
	if err != nil && tx.ID == "" {
		respondError(c, err)
		return
	}
	if err != nil {
		// The transaction resolved to a terminal error state; report both.
		c.JSON(http.StatusBadRequest, gin.H{"status": tx.Status, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": tx.Status})
}
