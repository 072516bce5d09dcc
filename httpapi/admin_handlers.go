package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Brano80/eGarant/apikey"
)

func (s *Server) handleCreateKey(c *gin.Context) {
	session := sessionFrom(c)
	var req struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	key, secret, err := s.keys.Create(c.Request.Context(), session.UserID, req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	// The plaintext secret is returned exactly once.
	c.JSON(http.StatusCreated, gin.H{"key": keyView(key), "secret": secret})
}

func (s *Server) handleListKeys(c *gin.Context) {
	session := sessionFrom(c)
	keys, err := s.keys.List(c.Request.Context(), session.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]gin.H, 0, len(keys))
	for _, k := range keys {
		out = append(out, keyView(k))
	}
	c.JSON(http.StatusOK, gin.H{"keys": out})
}

func (s *Server) handleDeleteKey(c *gin.Context) {
	session := sessionFrom(c)
	keys, err := s.keys.List(c.Request.Context(), session.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	owned := false
	for _, k := range keys {
		if k.ID == c.Param("id") {
			owned = true
			break
		}
	}
	if !owned {
		c.JSON(http.StatusNotFound, gin.H{"error": "key not found"})
		return
	}
	if err := s.keys.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deactivated"})
}

// handleResetData reseeds the demo stores. Available only on in-memory
// deployments.
func (s *Server) handleResetData(c *gin.Context) {
	if s.resetData == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not available on this deployment"})
		return
	}
	if err := s.resetData(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reset"})
}

func keyView(k apikey.Key) gin.H {
	return gin.H{
		"id":         k.ID,
		"name":       k.Name,
		"prefix":     k.Prefix,
		"active":     k.Active,
		"createdAt":  k.CreatedAt,
		"lastUsedAt": k.LastUsedAt,
	}
}
