package devserver

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type credentials struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	RefreshToken string `json:"refresh_token"`
}

// tokenBody mirrors the hosted auth server's grant response.
type tokenBody struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int       `json:"expires_in"`
	RefreshToken string    `json:"refresh_token"`
	User         tokenUser `json:"user"`
}

type tokenUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func (s *Server) tokenResponse(c *gin.Context, account *Account, token *Token) {
	c.JSON(http.StatusOK, tokenBody{
		AccessToken:  token.Access,
		TokenType:    "bearer",
		ExpiresIn:    int(time.Until(token.ExpiresAt).Seconds()),
		RefreshToken: token.Refresh,
		User:         tokenUser{ID: account.ID, Email: account.Email},
	})
}

func writeAuthError(c *gin.Context, status int, code, description string) {
	c.JSON(status, gin.H{"error": code, "error_description": description})
}

// handleSignup registers an account and signs it in immediately, no
// confirmation step.
func (s *Server) handleSignup(c *gin.Context) {
	var creds credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		writeAuthError(c, http.StatusBadRequest, "invalid_request", "malformed body")
		return
	}
	creds.Email = strings.TrimSpace(strings.ToLower(creds.Email))
	if creds.Email == "" {
		writeAuthError(c, http.StatusBadRequest, "invalid_request", "email is required")
		return
	}
	if len(creds.Password) < 6 {
		writeAuthError(c, http.StatusBadRequest, "weak_password", "password must be at least 6 characters")
		return
	}

	ctx := c.Request.Context()
	account, err := s.accounts.Create(ctx, creds.Email, creds.Password)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			writeAuthError(c, http.StatusUnprocessableEntity, "email_exists", "email already registered")
			return
		}
		writeAuthError(c, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	token, err := s.accounts.IssueToken(ctx, account.ID)
	if err != nil {
		writeAuthError(c, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	s.tokenResponse(c, account, token)
}

// handleToken serves the password and refresh_token grants.
func (s *Server) handleToken(c *gin.Context) {
	var creds credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		writeAuthError(c, http.StatusBadRequest, "invalid_request", "malformed body")
		return
	}

	ctx := c.Request.Context()
	switch c.Query("grant_type") {
	case "password":
		account, err := s.accounts.Authenticate(ctx, strings.TrimSpace(strings.ToLower(creds.Email)), creds.Password)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeAuthError(c, http.StatusBadRequest, "invalid_grant", "invalid login credentials")
			return
		}
		if err != nil {
			writeAuthError(c, http.StatusInternalServerError, "server_error", err.Error())
			return
		}
		token, err := s.accounts.IssueToken(ctx, account.ID)
		if err != nil {
			writeAuthError(c, http.StatusInternalServerError, "server_error", err.Error())
			return
		}
		s.tokenResponse(c, account, token)

	case "refresh_token":
		token, err := s.accounts.Rotate(ctx, creds.RefreshToken)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeAuthError(c, http.StatusBadRequest, "invalid_grant", "refresh token not found")
			return
		}
		if err != nil {
			writeAuthError(c, http.StatusInternalServerError, "server_error", err.Error())
			return
		}
		account, err := s.accounts.FindAccount(ctx, token.AccountID)
		if err != nil {
			writeAuthError(c, http.StatusInternalServerError, "server_error", err.Error())
			return
		}
		s.tokenResponse(c, account, token)

	default:
		writeAuthError(c, http.StatusBadRequest, "unsupported_grant_type", "use password or refresh_token")
	}
}

// handleLogout revokes the presented token. Idempotent.
func (s *Server) handleLogout(c *gin.Context) {
	if access := bearerToken(c); access != "" {
		if err := s.accounts.Revoke(c.Request.Context(), access); err != nil {
			writeAuthError(c, http.StatusInternalServerError, "server_error", err.Error())
			return
		}
	}
	c.Status(http.StatusNoContent)
}
