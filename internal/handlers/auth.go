package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	iauth "github.com/charlesng35/exteriorcrm/internal/auth"
	"github.com/charlesng35/exteriorcrm/internal/middleware"
	"github.com/charlesng35/exteriorcrm/internal/models"
	"github.com/charlesng35/exteriorcrm/internal/services"
	"github.com/charlesng35/exteriorcrm/pkg/errors"
	"github.com/charlesng35/exteriorcrm/pkg/logger"
	"github.com/charlesng35/exteriorcrm/pkg/response"
)

// AuthHandler manages password authentication flows (signup/login/refresh/logout).
type AuthHandler struct {
	accounts *services.AccountService
	sessions *iauth.SessionService
}

func NewAuthHandler(accounts *services.AccountService, sessions *iauth.SessionService) *AuthHandler {
	return &AuthHandler{accounts: accounts, sessions: sessions}
}

type signupRequest struct {
	Email     string `json:"email" validate:"required,crm_email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"first_name" validate:"max=128"`
	LastName  string `json:"last_name" validate:"max=128"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type accountPayload struct {
	ID                    string  `json:"id"`
	Email                 string  `json:"email"`
	FirstName             string  `json:"first_name"`
	LastName              string  `json:"last_name"`
	CurrentOrganizationID *string `json:"current_organization_id"`
}

type authPayload struct {
	Tokens  iauth.TokenPair `json:"tokens"`
	Account accountPayload  `json:"account"`
}

func newAuthPayload(result *services.AuthResult) authPayload {
	return authPayload{Tokens: result.Tokens, Account: toAccountPayload(result.Account)}
}

func toAccountPayload(account *models.Account) accountPayload {
	if account == nil {
		return accountPayload{}
	}
	return accountPayload{
		ID:                    account.ID,
		Email:                 account.Email,
		FirstName:             account.FirstName,
		LastName:              account.LastName,
		CurrentOrganizationID: account.CurrentOrganizationID,
	}
}

// POST /api/auth/signup
func (h *AuthHandler) Signup(c *gin.Context) {
	var req signupRequest
	if !bindAndValidate(c, &req) {
		return
	}

	result, err := h.accounts.Signup(requestContext(c), services.SignupInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}, sessionMetadata(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, newAuthPayload(result))
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	result, err := h.accounts.Login(requestContext(c), strings.TrimSpace(req.Email), req.Password, sessionMetadata(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, newAuthPayload(result))
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// POST /api/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if !bindAndValidate(c, &req) {
		return
	}

	pair, _, err := h.sessions.RefreshSession(requestContext(c), req.RefreshToken)
	if err != nil {
		response.Error(c, errors.ErrUnauthorized.WithInternal(err))
		return
	}

	response.Success(c, http.StatusOK, pair)
}

// POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	sid := middleware.SessionID(c)
	if sid == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	if err := h.sessions.EndSession(requestContext(c), sid); err != nil {
		logger.WithModule("auth").Warn("end session failed", zap.String("session_id", sid), zap.Error(err))
		response.Error(c, errors.ErrInternalServer.WithInternal(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"revoked": true})
}

// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	accountID, ok := accountOrAbort(c)
	if !ok {
		return
	}

	account, err := h.accounts.Get(requestContext(c), accountID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, toAccountPayload(account))
}
