package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"freshledger/internal/core/apperror"
	appctx "freshledger/internal/core/context"
	"freshledger/internal/infrastructure/http/v1/dto"
)

// AuthHandler handles operator authentication.
type AuthHandler struct {
	*BaseHandler
	service AuthService
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(base *BaseHandler, service AuthService) *AuthHandler {
	return &AuthHandler{BaseHandler: base, service: service}
}

// Token handles POST /auth/token
func (h *AuthHandler) Token(c *gin.Context) {
	var req dto.TokenRequest
	if !h.BindJSON(c, &req) {
		return
	}

	token, op, err := h.service.Login(c.Request.Context(), req.ToCredentials())
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewTokenResponse(token, op))
}

// Me handles GET /auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	user := appctx.GetUser(c.Request.Context())
	if user == nil {
		h.Error(c, apperror.NewUnauthorized("not authenticated"))
		return
	}
	h.OK(c, dto.MeResponse{ID: user.UserID, Username: user.Username, Roles: user.Roles})
}

// RegisterRoutes registers the public and protected auth endpoints.
func (h *AuthHandler) RegisterRoutes(public, protected *gin.RouterGroup) {
	public.POST("/token", h.Token)
	protected.GET("/me", h.Me)
}
