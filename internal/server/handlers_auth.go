package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/llopes04/fieldsync/internal/records"
	"github.com/llopes04/fieldsync/internal/users"
)

type registerPayload struct {
	Name     string `json:"nome"`
	Username string `json:"usuario"`
	Password string `json:"senha"`
}

type loginPayload struct {
	Username string `json:"usuario"`
	Password string `json:"senha"`
}

// accountPayload is the wire shape of an account. The password hash
// never leaves the server.
type accountPayload struct {
	ID       string `json:"id"`
	Name     string `json:"nome"`
	Username string `json:"usuario"`
}

type sessionPayload struct {
	AccessToken string         `json:"access_token"`
	ExpiresIn   int64          `json:"expires_in"`
	TokenType   string         `json:"token_type"`
	User        accountPayload `json:"user"`
}

func toAccountPayload(account records.User) accountPayload {
	return accountPayload{ID: account.ID, Name: account.Name, Username: account.Username}
}

func (h *httpHandler) handleRegister(c *gin.Context) {
	var request registerPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	account, err := h.accounts.Register(c.Request.Context(), request.Name, request.Username, request.Password)
	switch {
	case errors.Is(err, users.ErrUsernameTaken):
		c.JSON(http.StatusConflict, gin.H{"error": "username_taken"})
		return
	case errors.Is(err, users.ErrWeakPassword):
		c.JSON(http.StatusBadRequest, gin.H{"error": "weak_password"})
		return
	case err != nil:
		h.logger.Error("account registration failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": toAccountPayload(account)})
}

func (h *httpHandler) handleLogin(c *gin.Context) {
	var request loginPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	account, err := h.accounts.Authenticate(c.Request.Context(), request.Username, request.Password)
	if err != nil {
		if !errors.Is(err, users.ErrInvalidCredentials) {
			h.logger.Error("login failed", zap.Error(err))
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	token, expiresIn, err := h.tokens.IssueToken(account.ID, account.Username)
	if err != nil {
		h.logger.Error("failed to issue session token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token_issue_failed"})
		return
	}

	c.JSON(http.StatusOK, sessionPayload{
		AccessToken: token,
		ExpiresIn:   expiresIn,
		TokenType:   "Bearer",
		User:        toAccountPayload(account),
	})
}
