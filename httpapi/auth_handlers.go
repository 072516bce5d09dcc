package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Brano80/eGarant/audit"
	"github.com/Brano80/eGarant/auth"
)

type userView struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

func viewUser(u *auth.User) userView {
	return userView{ID: u.ID, Email: u.Email, Name: u.Name, CreatedAt: u.CreatedAt}
}

func (s *Server) handleRegister(c *gin.Context) {
	var req auth.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	user, err := s.auth.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": viewUser(user)})
}

func (s *Server) handleLogin(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	result, err := s.auth.Login(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	s.audits.Write(c.Request.Context(), audit.KindUserLogin, map[string]any{"via": "password"}, result.User.ID, "")
	c.JSON(http.StatusOK, gin.H{"token": result.Token, "user": viewUser(&result.User)})
}

// handleMockLogin signs in a seeded demo user by email alone. Demo flows
// only; the endpoint still issues a regular session token.
func (s *Server) handleMockLogin(c *gin.Context) {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email is required"})
		return
	}
	user, err := s.auth.GetUserByEmail(c.Request.Context(), req.Email)
	if err != nil {
		respondError(c, err)
		return
	}
	token, err := s.auth.IssueToken(user.ID, auth.ContextPersonal)
	if err != nil {
		respondError(c, err)
		return
	}
	s.audits.Write(c.Request.Context(), audit.KindUserLogin, map[string]any{"via": "mock"}, user.ID, "")
	c.JSON(http.StatusOK, gin.H{"token": token, "user": viewUser(user)})
}

func (s *Server) handleCurrentUser(c *gin.Context) {
	session := sessionFrom(c)
	user, err := s.auth.GetUserByID(c.Request.Context(), session.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user":          viewUser(user),
		"activeContext": session.ActiveContext,
	})
}

// handleSetContext switches the acting context. Sessions are stateless; the
// switch reissues the token with the new context claim.
func (s *Server) handleSetContext(c *gin.Context) {
	session := sessionFrom(c)
	var req struct {
		Context string `json:"context"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Context == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "context is required"})
		return
	}

	if req.Context != auth.ContextPersonal {
		active, err := s.dir.ActiveMandatesForUser(c.Request.Context(), session.UserID)
		if err != nil {
			respondError(c, err)
			return
		}
		allowed := false
		for _, mc := range active {
			if mc.CompanyID == req.Context {
				allowed = true
				break
			}
		}
		if !allowed {
			c.JSON(http.StatusForbidden, gin.H{"error": "no active mandate for this company"})
			return
		}
	}

	token, err := s.auth.IssueToken(session.UserID, req.Context)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "activeContext": req.Context})
}

func (s *Server) handleLogout(c *gin.Context) {
	session := sessionFrom(c)
	s.audits.Write(c.Request.Context(), audit.KindUserLogout, map[string]any{}, session.UserID, "")
	c.JSON(http.StatusOK, gin.H{"status": "logged out"})
}
